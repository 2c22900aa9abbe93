package chat

import (
	"encoding/json"
	"log"

	"swiftchat/models"
)

// Inbound event types consumed from a session.
const (
	EventUserOnline       = "user_online"
	EventJoinConversation = "join_conversation"
	EventTyping           = "typing"
	EventSendMessage      = "send_message"
	EventMarkMessagesRead = "mark_messages_read"
	EventGetConversations = "get_conversations"
	EventGetMessages      = "get_messages"
	EventUserOffline      = "user_offline"
)

// Outbound event types produced to sessions.
const (
	EventUserConnected       = "user_connected"
	EventUserDisconnected    = "user_disconnected"
	EventOnlineUsers         = "online_users"
	EventReceiveMessage      = "receive_message"
	EventMessageSent         = "message_sent"
	EventMessageError        = "message_error"
	EventMessagesRead        = "messages_read"
	EventConversationsLoaded = "conversations_loaded"
	EventConversationsError  = "conversations_error"
	EventMessagesLoaded      = "messages_loaded"
	EventMessagesError       = "messages_error"
)

// Event is the wire envelope for everything crossing a session in either
// direction.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an outbound event, marshaling the payload once so fan-out
// to many sessions shares the encoded bytes.
func NewEvent(eventType string, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal %s payload: %v", eventType, err)
		return Event{Type: eventType}
	}
	return Event{Type: eventType, Payload: data}
}

type TypingRequest struct {
	ReceiverID int64 `json:"receiver_id"`
	IsTyping   bool  `json:"is_typing"`
}

type TypingPayload struct {
	UserID   int64 `json:"user_id"`
	IsTyping bool  `json:"is_typing"`
}

type SendMessageRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}

type MarkReadRequest struct {
	SenderID int64 `json:"sender_id"`
}

type GetMessagesRequest struct {
	UserID int64 `json:"user_id"`
	Page   int   `json:"page"`
	Limit  int   `json:"limit"`
}

type JoinConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type MessagesReadPayload struct {
	ReadBy int64 `json:"read_by"`
}

type MessagesLoadedPayload struct {
	Messages []models.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}
