package model

import (
	"time"

	"github.com/google/uuid"
)

// Message holds a single chat message. Immutable after creation.
type Message struct {
	ID        uuid.UUID `json:"id"`
	RoomID    string    `json:"room_id"`
	Text      string    `json:"text,omitempty"`
	Sender    string    `json:"sender"`
	SenderID  uuid.UUID `json:"sender_id"`
	FileID    string    `json:"file_id,omitempty"`
	System    bool      `json:"system,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// VisibleMessage is a Message annotated with the time it has left before
// expiry, in milliseconds.
type VisibleMessage struct {
	Message
	RemainingMs int64 `json:"remaining_ms"`
}
