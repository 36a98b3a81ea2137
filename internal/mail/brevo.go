package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// brevoSendRequest повторяет тело запроса Brevo API v3 на отправку
// транзакционного письма.
type brevoSendRequest struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// BrevoClient отправляет письма через Brevo API. Пустой APIKey превращает
// клиента в no-op: удобно для локальной разработки без ящика.
type BrevoClient struct {
	APIKey     string
	From       string
	SenderName string
	Client     *http.Client
}

// NewBrevoClient создаёт клиента Brevo.
func NewBrevoClient(apiKey, from, senderName string) *BrevoClient {
	return &BrevoClient{
		APIKey:     apiKey,
		From:       from,
		SenderName: senderName,
		Client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// SendMagicLink отправляет письмо со ссылкой входа.
func (c *BrevoClient) SendMagicLink(ctx context.Context, toEmail, linkURL string) error {
	subject := "登录链接 / Ваша ссылка для входа"
	html := magicLinkHTML(linkURL)
	return c.send(ctx, toEmail, subject, html)
}

// send отправляет одно письмо через Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}

	body := brevoSendRequest{
		Sender:      brevoAddress{Email: c.From, Name: c.SenderName},
		To:          []brevoAddress{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail: brevo вернул статус %d", resp.StatusCode)
	}
	return nil
}

// magicLinkHTML собирает тело письма со ссылкой входа.
func magicLinkHTML(linkURL string) string {
	return fmt.Sprintf(`
    <h1>登录链接</h1>
    <p>点击下面的按钮登录。链接 15 分钟内有效，只能使用一次。</p>
    <p>Нажмите на кнопку, чтобы войти. Ссылка действует 15 минут и работает один раз.</p>
    <center>
      <a href="%s" style="display:inline-block;padding:12px 24px;background:#16a34a;color:#fff;border-radius:6px;text-decoration:none;">登录 / Войти</a>
    </center>
    <p style="margin-top:20px;font-size:14px;color:#666;">
      如果不是您本人操作，请忽略此邮件。Если это были не вы, просто проигнорируйте письмо.
    </p>
`, linkURL)
}
