package chat

import (
	"log"
	"strings"

	"swiftchat/models"
)

// Store is the durable message log the router persists into. Persistence is
// the source of truth; live delivery is best-effort on top of it.
type Store interface {
	CreateMessage(senderID, receiverID int64, content string) (*models.Message, error)
	MarkRead(senderID, receiverID int64) error
	MessagesBetween(userID1, userID2 int64, limit, offset int) ([]models.Message, error)
	MessagesForUser(userID int64) ([]models.Message, error)
	GetUserByID(id int64) (*models.User, error)
}

// Delivery resolves connected users and pushes events to their sessions.
type Delivery interface {
	SendToUser(userID int64, event Event) bool
	IsOnline(userID int64) bool
}

// Router validates, persists, and fans out chat messages and read receipts.
type Router struct {
	store        Store
	delivery     Delivery
	historyLimit int
}

func NewRouter(store Store, delivery Delivery, historyLimit int) *Router {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Router{store: store, delivery: delivery, historyLimit: historyLimit}
}

// SendMessage persists the message and delivers it. The receiver gets the
// message only if connected; the sender always gets an acknowledgment once
// the message is stored, whether or not the receiver was reachable.
func (r *Router) SendMessage(senderID, receiverID int64, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		r.delivery.SendToUser(senderID, NewEvent(EventMessageError, ErrorPayload{Error: "Message content is required"}))
		return
	}

	msg, err := r.store.CreateMessage(senderID, receiverID, content)
	if err != nil {
		log.Printf("failed to persist message from %d to %d: %v", senderID, receiverID, err)
		r.delivery.SendToUser(senderID, NewEvent(EventMessageError, ErrorPayload{Error: "Failed to send message"}))
		return
	}

	r.delivery.SendToUser(receiverID, NewEvent(EventReceiveMessage, msg))
	r.delivery.SendToUser(senderID, NewEvent(EventMessageSent, msg))
}

// MarkRead flips every unread message from senderID to readerID to read and,
// if the sender is connected, tells them who read their messages. The store
// update is a bulk flip of still-unread rows, so applying it twice is the
// same as once.
func (r *Router) MarkRead(readerID, senderID int64) {
	if err := r.store.MarkRead(senderID, readerID); err != nil {
		log.Printf("failed to mark messages from %d read by %d: %v", senderID, readerID, err)
		return
	}
	r.delivery.SendToUser(senderID, NewEvent(EventMessagesRead, MessagesReadPayload{ReadBy: readerID}))
}

// LoadMessages sends one page of the conversation between userID and peerID
// back to the requesting user. Pages count newest-first; each page arrives in
// chronological order. hasMore is inferred from page fullness: a final page
// exactly as full as the limit reports one extra empty fetch.
func (r *Router) LoadMessages(userID, peerID int64, page, limit int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = r.historyLimit
	}
	if limit > 100 {
		limit = 100
	}

	messages, err := r.store.MessagesBetween(userID, peerID, limit, (page-1)*limit)
	if err != nil {
		log.Printf("failed to load messages for %d with %d: %v", userID, peerID, err)
		r.delivery.SendToUser(userID, NewEvent(EventMessagesError, ErrorPayload{Error: "Failed to load messages"}))
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	r.delivery.SendToUser(userID, NewEvent(EventMessagesLoaded, MessagesLoadedPayload{
		Messages: messages,
		HasMore:  len(messages) == limit,
	}))
}

// LoadConversations rebuilds the user's conversation list from the message
// log and sends it back, most recent conversation first.
func (r *Router) LoadConversations(userID int64) {
	messages, err := r.store.MessagesForUser(userID)
	if err != nil {
		log.Printf("failed to load conversations for %d: %v", userID, err)
		r.delivery.SendToUser(userID, NewEvent(EventConversationsError, ErrorPayload{Error: "Failed to load conversations"}))
		return
	}

	summaries := Aggregate(userID, messages)
	for i := range summaries {
		user, err := r.store.GetUserByID(summaries[i].CounterpartID)
		if err != nil {
			continue
		}
		summaries[i].User = user.ToResponse()
		summaries[i].User.Online = r.delivery.IsOnline(user.ID)
	}

	r.delivery.SendToUser(userID, NewEvent(EventConversationsLoaded, summaries))
}
