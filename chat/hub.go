package chat

import (
	"log"
	"sync"
	"time"
)

// Hub is the live half of the messaging core. It owns the connection
// registry and the session transports, broadcasts presence changes, runs the
// typing tracker, and fronts the message router for connected sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]Sender

	registry *Registry
	typing   *TypingTracker
	router   *Router
}

// NewHub wires the messaging core around a message store.
func NewHub(store Store, typingTimeout time.Duration, historyLimit int) *Hub {
	h := &Hub{
		sessions: make(map[string]Sender),
		registry: NewRegistry(),
	}
	h.typing = NewTypingTracker(typingTimeout, func(senderID, receiverID int64) {
		h.forwardTyping(senderID, receiverID, false)
	})
	h.router = NewRouter(store, h, historyLimit)
	return h
}

// Register binds the sender's session to userID and broadcasts presence: the
// new session gets its own online ack plus the full snapshot, everyone else
// learns the user connected. A prior session for the same user is evicted
// and force-closed.
func (h *Hub) Register(userID int64, sender Sender) {
	h.mu.Lock()
	evicted := h.registry.Register(userID, sender.SessionID())
	var stale Sender
	if evicted != "" {
		stale = h.sessions[evicted]
		delete(h.sessions, evicted)
	}
	h.sessions[sender.SessionID()] = sender
	h.mu.Unlock()

	if stale != nil {
		stale.Close()
		log.Printf("user %d evicted stale session %s", userID, evicted)
	}
	log.Printf("user %d connected on session %s", userID, sender.SessionID())

	_ = sender.Send(NewEvent(EventUserOnline, userID))
	h.broadcast(NewEvent(EventUserConnected, userID), sender.SessionID())
	h.broadcast(NewEvent(EventOnlineUsers, h.registry.OnlineUsers()), "")
}

// Unregister takes the session's user offline: pending typing indicators are
// cleared (each receiver gets a final typing=false) before the departure and
// the refreshed snapshot are broadcast. The transport stays attached so an
// explicit offline signal can be followed by a re-register. Unknown sessions
// are a no-op.
func (h *Hub) Unregister(sessionID string) {
	userID, ok := h.registry.Unregister(sessionID)
	if !ok {
		return
	}
	log.Printf("user %d went offline from session %s", userID, sessionID)

	for _, receiverID := range h.typing.ClearSender(userID) {
		h.forwardTyping(userID, receiverID, false)
	}

	h.broadcast(NewEvent(EventUserDisconnected, userID), sessionID)
	h.broadcast(NewEvent(EventOnlineUsers, h.registry.OnlineUsers()), "")
}

// Disconnect is Unregister plus detaching the transport, for when the
// underlying connection is gone.
func (h *Hub) Disconnect(sessionID string) {
	h.Unregister(sessionID)

	h.mu.Lock()
	delete(h.sessions, sessionID)
	h.mu.Unlock()
}

// Typing handles a typing signal from senderID toward receiverID. Signals
// toward an offline receiver create no state. Only state transitions are
// forwarded: a repeat typing=true re-arms the timer silently, and a
// typing=false for an idle pair is dropped. An explicit stop always wins
// over the pair's expiry timer.
func (h *Hub) Typing(senderID, receiverID int64, isTyping bool) {
	if isTyping {
		if !h.IsOnline(receiverID) {
			return
		}
		if h.typing.Start(senderID, receiverID) {
			h.forwardTyping(senderID, receiverID, true)
		}
		return
	}

	if h.typing.Stop(senderID, receiverID) {
		h.forwardTyping(senderID, receiverID, false)
	}
}

func (h *Hub) forwardTyping(senderID, receiverID int64, isTyping bool) {
	h.SendToUser(receiverID, NewEvent(EventTyping, TypingPayload{UserID: senderID, IsTyping: isTyping}))
}

// SendMessage routes one chat message; see Router.SendMessage.
func (h *Hub) SendMessage(senderID, receiverID int64, content string) {
	h.router.SendMessage(senderID, receiverID, content)
}

// MarkRead applies a read receipt; see Router.MarkRead.
func (h *Hub) MarkRead(readerID, senderID int64) {
	h.router.MarkRead(readerID, senderID)
}

// LoadConversations pushes the user's conversation list to their session.
func (h *Hub) LoadConversations(userID int64) {
	h.router.LoadConversations(userID)
}

// LoadMessages pushes one history page to the user's session.
func (h *Hub) LoadMessages(userID, peerID int64, page, limit int) {
	h.router.LoadMessages(userID, peerID, page, limit)
}

// SendToUser delivers an event to the user's session if one is connected.
// Reports whether a session accepted the event.
func (h *Hub) SendToUser(userID int64, event Event) bool {
	sessionID, ok := h.registry.Resolve(userID)
	if !ok {
		return false
	}

	h.mu.RLock()
	sender := h.sessions[sessionID]
	h.mu.RUnlock()
	if sender == nil {
		return false
	}

	if err := sender.Send(event); err != nil {
		log.Printf("dropping %s event for user %d: %v", event.Type, userID, err)
		return false
	}
	return true
}

// IsOnline reports whether the user currently holds a session.
func (h *Hub) IsOnline(userID int64) bool {
	_, ok := h.registry.Resolve(userID)
	return ok
}

// OnlineUsers returns a snapshot of connected user ids.
func (h *Hub) OnlineUsers() []int64 {
	return h.registry.OnlineUsers()
}

// broadcast fans an event out to every attached session except the one
// excluded. Slow or closed sessions drop the event rather than block.
func (h *Hub) broadcast(event Event, exceptSessionID string) {
	h.mu.RLock()
	senders := make([]Sender, 0, len(h.sessions))
	for sessionID, sender := range h.sessions {
		if sessionID == exceptSessionID {
			continue
		}
		senders = append(senders, sender)
	}
	h.mu.RUnlock()

	for _, sender := range senders {
		_ = sender.Send(event)
	}
}

// Close force-closes every attached transport. Used at shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	senders := make([]Sender, 0, len(h.sessions))
	for _, sender := range h.sessions {
		senders = append(senders, sender)
	}
	h.sessions = make(map[string]Sender)
	h.mu.Unlock()

	for _, sender := range senders {
		sender.Close()
	}
}
