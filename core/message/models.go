package message

import (
	"time"

	"github.com/trezcool/kampus/core"
)

// Notification kinds
const (
	KindInfo    = "info"
	KindWarning = "warning"
	KindSuccess = "success"
	KindError   = "error"
)

// Notification is a one-way notice addressed to a single account. Only the
// addressee may list it or mark it read.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Kind      string    `json:"kind"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Message is a direct message between two accounts. It is visible to both;
// only the receiver may mark it read.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body,omitempty"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

type NewMessage struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	Body       string `json:"body" validate:"required"`
}

func (nm *NewMessage) Validate() error {
	nm.ReceiverID = core.CleanString(nm.ReceiverID)
	nm.Subject = core.CleanString(nm.Subject)
	nm.Body = core.CleanString(nm.Body)
	return core.Validate.Struct(nm)
}
