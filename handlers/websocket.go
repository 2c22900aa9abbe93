package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"swiftchat/chat"
	"swiftchat/middleware"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

var errSessionClosed = errors.New("session closed")
var errSendBufferFull = errors.New("send buffer full")

// wsClient binds one websocket connection to a hub session. It implements
// chat.Sender with a buffered queue so hub fan-out never blocks on a slow
// peer.
type wsClient struct {
	sessionID string
	userID    int64
	conn      *websocket.Conn
	hub       *chat.Hub

	mu     sync.Mutex
	send   chan chat.Event
	closed bool
}

func (c *wsClient) SessionID() string { return c.sessionID }

// Send queues an event for the write pump. A full buffer means the peer is
// too slow or gone; the event is dropped rather than retried.
func (c *wsClient) Send(event chat.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errSessionClosed
	}
	select {
	case c.send <- event:
		return nil
	default:
		return errSendBufferFull
	}
}

// Close shuts the send queue down. Safe to call more than once.
func (c *wsClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// HandleWebSocket upgrades the connection and runs the session until the
// transport drops.
func HandleWebSocket(hub *chat.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.GetUserFromContext(r)
		if user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}

		client := &wsClient{
			sessionID: uuid.NewString(),
			userID:    user.ID,
			conn:      conn,
			hub:       hub,
			send:      make(chan chat.Event, sendBufferSize),
		}

		hub.Register(client.userID, client)
		client.hub.LoadConversations(client.userID)

		go client.writePump()
		client.readPump()
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.Disconnect(c.sessionID)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var event chat.Event
		if err := c.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for user %d: %v", c.userID, err)
			}
			return
		}
		c.dispatch(event)
	}
}

func (c *wsClient) dispatch(event chat.Event) {
	switch event.Type {
	case chat.EventUserOnline:
		// Reconnect/re-register; identity comes from the verified session,
		// not the payload.
		c.hub.Register(c.userID, c)

	case chat.EventJoinConversation:
		var req chat.JoinConversationRequest
		if err := json.Unmarshal(event.Payload, &req); err != nil {
			return
		}
		log.Printf("user %d joined conversation %s", c.userID, req.ConversationID)

	case chat.EventTyping:
		var req chat.TypingRequest
		if err := json.Unmarshal(event.Payload, &req); err != nil {
			return
		}
		c.hub.Typing(c.userID, req.ReceiverID, req.IsTyping)

	case chat.EventSendMessage:
		var req chat.SendMessageRequest
		if err := json.Unmarshal(event.Payload, &req); err != nil {
			return
		}
		c.hub.SendMessage(c.userID, req.ReceiverID, req.Content)

	case chat.EventMarkMessagesRead:
		var req chat.MarkReadRequest
		if err := json.Unmarshal(event.Payload, &req); err != nil {
			return
		}
		c.hub.MarkRead(c.userID, req.SenderID)

	case chat.EventGetConversations:
		c.hub.LoadConversations(c.userID)

	case chat.EventGetMessages:
		var req chat.GetMessagesRequest
		if err := json.Unmarshal(event.Payload, &req); err != nil {
			return
		}
		c.hub.LoadMessages(c.userID, req.UserID, req.Page, req.Limit)

	case chat.EventUserOffline:
		c.hub.Unregister(c.sessionID)

	default:
		log.Printf("unknown event type %q from user %d", event.Type, c.userID)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
