package models

import "time"

// Message is one chat message between two users. Immutable once stored,
// except for the read flag which only ever flips false to true.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// LastMessage is the preview of the most recent message in a conversation.
type LastMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	SenderID  int64     `json:"sender_id"`
}

// ConversationSummary is one row of a user's conversation list. It is derived
// from the message log on demand, never stored.
type ConversationSummary struct {
	CounterpartID int64        `json:"counterpart_id"`
	User          UserResponse `json:"user"`
	LastMessage   LastMessage  `json:"last_message"`
	UnreadCount   int          `json:"unread_count"`
}
