package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation описывает диалог двух пользователей вокруг одного объявления.
// OwnerID — тот, кто открыл диалог; OtherID — владелец объявления.
// Пара {OwnerID, OtherID} неупорядоченная: повторный вызов с той же парой
// в любом порядке должен вернуть тот же диалог.
type Conversation struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PostType  string    `db:"post_type" json:"post_type"`
	PostID    uuid.UUID `db:"post_id" json:"post_id"`
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"`
	OtherID   uuid.UUID `db:"other_id" json:"other_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsParticipant проверяет, участвует ли пользователь в диалоге.
func (c *Conversation) IsParticipant(userID uuid.UUID) bool {
	return c.OwnerID == userID || c.OtherID == userID
}

// Counterpart возвращает id второй стороны диалога.
func (c *Conversation) Counterpart(userID uuid.UUID) uuid.UUID {
	if c.OwnerID == userID {
		return c.OtherID
	}
	return c.OwnerID
}

// Message описывает сообщение в диалоге. Журнал только дописывается:
// редактирования и удаления сообщений нет.
type Message struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	SenderID       uuid.UUID `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
