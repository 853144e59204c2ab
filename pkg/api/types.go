package api

import "time"

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderUser Sender = "USER"
	SenderBot  Sender = "BOT"
)

// Chat is one conversation thread. Identity is assigned by the backend and
// immutable once created.
type Chat struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single entry in a chat's history. Messages carry no identifier
// beyond their list position; ordering is insertion order.
type Message struct {
	Sender  Sender `json:"sender"`
	Content string `json:"content"`
}

// IsUser reports whether the message was written by the person at the keyboard
// rather than the bot. The backend historically stored a few sender spellings,
// so the check is case-insensitive on the USER prefix.
func (m Message) IsUser() bool {
	return m.Sender == SenderUser || m.Sender == "user" || m.Sender == "User"
}
