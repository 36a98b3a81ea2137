package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeMagicLinkEmail — тип фоновой задачи отправки письма со ссылкой входа.
const TypeMagicLinkEmail = "email:magic_link"

// magicLinkPayload — JSON-полезная нагрузка задачи.
type magicLinkPayload struct {
	Email   string `json:"email"`
	LinkURL string `json:"link_url"`
}

// Enqueuer ставит письма в очередь asynq. Письмо уходит из фонового воркера,
// HTTP-запрос не ждёт Brevo.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer создаёт постановщик задач.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueMagicLink ставит задачу отправки письма со ссылкой входа.
func (e *Enqueuer) EnqueueMagicLink(ctx context.Context, email, linkURL string) error {
	raw, err := json.Marshal(magicLinkPayload{Email: email, LinkURL: linkURL})
	if err != nil {
		return fmt.Errorf("mail: не удалось сериализовать задачу: %w", err)
	}

	task := asynq.NewTask(TypeMagicLinkEmail, raw)
	// Ссылка живёт 15 минут, дольше ретраить письмо бессмысленно.
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Retention(time.Hour),
	)
	if err != nil {
		return fmt.Errorf("mail: не удалось поставить задачу: %w", err)
	}
	return nil
}

// Close закрывает соединение клиента с redis.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// NewServeMux регистрирует обработчики почтовых задач.
func NewServeMux(sender *BrevoClient) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeMagicLinkEmail, func(ctx context.Context, t *asynq.Task) error {
		var p magicLinkPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			// Битая нагрузка: ретраи не помогут.
			return fmt.Errorf("mail: битая нагрузка задачи: %v: %w", err, asynq.SkipRetry)
		}

		ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()

		return sender.SendMagicLink(ctx, p.Email, p.LinkURL)
	})
	return mux
}
