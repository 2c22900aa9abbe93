package chat

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftchat/models"
)

type mockSender struct {
	id string

	mu     sync.Mutex
	events []Event
	closed int
}

func (m *mockSender) SessionID() string { return m.id }

func (m *mockSender) Send(event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockSender) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
}

func (m *mockSender) recorded() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func (m *mockSender) eventsOfType(eventType string) []Event {
	var out []Event
	for _, e := range m.recorded() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type stubStore struct{}

func (stubStore) CreateMessage(senderID, receiverID int64, content string) (*models.Message, error) {
	return &models.Message{SenderID: senderID, ReceiverID: receiverID, Content: content}, nil
}
func (stubStore) MarkRead(senderID, receiverID int64) error { return nil }
func (stubStore) MessagesBetween(userID1, userID2 int64, limit, offset int) ([]models.Message, error) {
	return nil, nil
}
func (stubStore) MessagesForUser(userID int64) ([]models.Message, error) { return nil, nil }
func (stubStore) GetUserByID(id int64) (*models.User, error)            { return &models.User{ID: id}, nil }

func newTestHub() *Hub {
	return NewHub(stubStore{}, testTypingTimeout, 50)
}

func decodeTyping(t *testing.T, e Event) TypingPayload {
	t.Helper()
	var p TypingPayload
	require.NoError(t, json.Unmarshal(e.Payload, &p))
	return p
}

func TestHub_RegisterBroadcastsPresence(t *testing.T) {
	hub := newTestHub()
	alice := &mockSender{id: "sa"}
	bob := &mockSender{id: "sb"}

	hub.Register(1, alice)
	hub.Register(2, bob)

	// Alice learns that bob connected and gets the refreshed snapshot.
	connected := alice.eventsOfType(EventUserConnected)
	require.Len(t, connected, 1)
	var connectedID int64
	require.NoError(t, json.Unmarshal(connected[0].Payload, &connectedID))
	assert.Equal(t, int64(2), connectedID)

	snapshots := alice.eventsOfType(EventOnlineUsers)
	require.NotEmpty(t, snapshots)
	var online []int64
	require.NoError(t, json.Unmarshal(snapshots[len(snapshots)-1].Payload, &online))
	assert.Equal(t, []int64{1, 2}, online)

	// Bob gets his own online ack and the full snapshot, but no
	// user_connected for himself.
	require.Len(t, bob.eventsOfType(EventUserOnline), 1)
	assert.Empty(t, bob.eventsOfType(EventUserConnected))
	require.Len(t, bob.eventsOfType(EventOnlineUsers), 1)
}

func TestHub_SecondSessionEvictsAndClosesFirst(t *testing.T) {
	hub := newTestHub()
	first := &mockSender{id: "s1"}
	second := &mockSender{id: "s2"}

	hub.Register(1, first)
	hub.Register(1, second)

	first.mu.Lock()
	closed := first.closed
	first.mu.Unlock()
	assert.Equal(t, 1, closed, "evicted transport is force-closed exactly once")

	ok := hub.SendToUser(1, NewEvent(EventUserOnline, int64(1)))
	assert.True(t, ok)
	assert.NotEmpty(t, second.eventsOfType(EventUserOnline))

	// The stale transport dropping later must not take the user offline.
	hub.Disconnect("s1")
	assert.True(t, hub.IsOnline(1))
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := newTestHub()
	alice := &mockSender{id: "sa"}
	bob := &mockSender{id: "sb"}

	hub.Register(1, alice)
	hub.Register(2, bob)

	hub.Unregister("sa")
	hub.Unregister("sa")

	assert.Len(t, bob.eventsOfType(EventUserDisconnected), 1)
	assert.False(t, hub.IsOnline(1))
}

func TestHub_TypingForwardedOnlyOnTransitions(t *testing.T) {
	hub := newTestHub()
	alice := &mockSender{id: "sa"}
	bob := &mockSender{id: "sb"}
	hub.Register(1, alice)
	hub.Register(2, bob)

	hub.Typing(1, 2, true)
	hub.Typing(1, 2, true)
	hub.Typing(1, 2, false)

	var started, stopped int
	for _, e := range bob.eventsOfType(EventTyping) {
		if decodeTyping(t, e).IsTyping {
			started++
		} else {
			stopped++
		}
	}
	assert.Equal(t, 1, started, "repeat typing=true re-arms silently")
	assert.Equal(t, 1, stopped)

	// No stray expiry after the explicit stop.
	time.Sleep(3 * testTypingTimeout)
	assert.Len(t, bob.eventsOfType(EventTyping), 2)
}

func TestHub_TypingExpiryForwardsFalseOnce(t *testing.T) {
	hub := newTestHub()
	alice := &mockSender{id: "sa"}
	bob := &mockSender{id: "sb"}
	hub.Register(1, alice)
	hub.Register(2, bob)

	start := time.Now()
	hub.Typing(1, 2, true)
	time.Sleep(4 * testTypingTimeout)

	events := bob.eventsOfType(EventTyping)
	require.Len(t, events, 2)
	assert.True(t, decodeTyping(t, events[0]).IsTyping)
	assert.False(t, decodeTyping(t, events[1]).IsTyping)
	assert.GreaterOrEqual(t, time.Since(start), testTypingTimeout)
}

func TestHub_TypingTowardOfflineReceiverCreatesNoState(t *testing.T) {
	hub := newTestHub()
	alice := &mockSender{id: "sa"}
	hub.Register(1, alice)

	hub.Typing(1, 99, true)

	time.Sleep(3 * testTypingTimeout)
	hub.typing.mu.Lock()
	pending := len(hub.typing.pending)
	hub.typing.mu.Unlock()
	assert.Zero(t, pending)
}

func TestHub_DisconnectClearsTypingBeforeSnapshot(t *testing.T) {
	hub := newTestHub()
	alice := &mockSender{id: "sa"}
	bob := &mockSender{id: "sb"}
	carol := &mockSender{id: "sc"}
	hub.Register(1, alice)
	hub.Register(2, bob)
	hub.Register(3, carol)

	hub.Typing(1, 2, true)
	hub.Typing(1, 3, true)

	hub.Disconnect("sa")

	for _, receiver := range []*mockSender{bob, carol} {
		events := receiver.recorded()
		typingFalseAt, snapshotAt := -1, -1
		for i, e := range events {
			switch e.Type {
			case EventTyping:
				if !decodeTyping(t, e).IsTyping {
					typingFalseAt = i
				}
			case EventUserDisconnected:
				// arrives with the snapshot; ordering against typing is
				// what matters here
			case EventOnlineUsers:
				snapshotAt = i
			}
		}
		require.GreaterOrEqual(t, typingFalseAt, 0, "receiver %s missed typing=false", receiver.id)
		require.Greater(t, snapshotAt, typingFalseAt,
			"typing=false must precede the republished snapshot for %s", receiver.id)
	}

	// No expiry fires for the cleared pairs.
	time.Sleep(3 * testTypingTimeout)
	var falses int
	for _, e := range bob.eventsOfType(EventTyping) {
		if !decodeTyping(t, e).IsTyping {
			falses++
		}
	}
	assert.Equal(t, 1, falses)
}

func TestHub_SendToOfflineUser(t *testing.T) {
	hub := newTestHub()
	assert.False(t, hub.SendToUser(42, NewEvent(EventUserOnline, int64(42))))
}
