package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_CreateAndGetUser(t *testing.T) {
	store := openTestStore(t)

	created, err := store.CreateUser("alice", "alice@example.com", "hash")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "alice", created.Username)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := store.GetUserByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Username, byID.Username)

	byName, err := store.GetUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byEmail, err := store.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestStore_DuplicateUsernameRejected(t *testing.T) {
	store := openTestStore(t)

	_, err := store.CreateUser("alice", "alice@example.com", "hash")
	require.NoError(t, err)

	_, err = store.CreateUser("alice", "other@example.com", "hash")
	assert.Error(t, err)
}

func TestStore_SearchUsersExcludesCaller(t *testing.T) {
	store := openTestStore(t)

	alice, err := store.CreateUser("alice", "alice@example.com", "hash")
	require.NoError(t, err)
	_, err = store.CreateUser("alicia", "alicia@example.com", "hash")
	require.NoError(t, err)
	_, err = store.CreateUser("bob", "bob@example.com", "hash")
	require.NoError(t, err)

	results, err := store.SearchUsers("ali", alice.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alicia", results[0].Username)

	all, err := store.ListUsers(alice.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_CreateMessage(t *testing.T) {
	store := openTestStore(t)

	msg, err := store.CreateMessage(1, 2, "hello")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.Equal(t, int64(1), msg.SenderID)
	assert.Equal(t, int64(2), msg.ReceiverID)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.Read, "messages start unread")
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestStore_MessagesBetweenPagination(t *testing.T) {
	store := openTestStore(t)

	for _, content := range []string{"m1", "m2", "m3", "m4", "m5"} {
		_, err := store.CreateMessage(1, 2, content)
		require.NoError(t, err)
	}
	// A message with a third party never leaks into the pair query.
	_, err := store.CreateMessage(1, 3, "other thread")
	require.NoError(t, err)

	// Newest page first, each page oldest-to-newest.
	page, err := store.MessagesBetween(1, 2, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m4", page[0].Content)
	assert.Equal(t, "m5", page[1].Content)

	page, err = store.MessagesBetween(1, 2, 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "m1", page[0].Content)

	// Direction does not matter for the pair.
	page, err = store.MessagesBetween(2, 1, 10, 0)
	require.NoError(t, err)
	assert.Len(t, page, 5)
}

func TestStore_MessagesForUser(t *testing.T) {
	store := openTestStore(t)

	_, err := store.CreateMessage(1, 2, "sent")
	require.NoError(t, err)
	_, err = store.CreateMessage(3, 1, "received")
	require.NoError(t, err)
	_, err = store.CreateMessage(2, 3, "unrelated")
	require.NoError(t, err)

	messages, err := store.MessagesForUser(1)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "sent", messages[0].Content)
	assert.Equal(t, "received", messages[1].Content)
}

func TestStore_MarkReadIsIdempotent(t *testing.T) {
	store := openTestStore(t)

	_, err := store.CreateMessage(2, 1, "one")
	require.NoError(t, err)
	_, err = store.CreateMessage(2, 1, "two")
	require.NoError(t, err)
	// Unread in the other direction stays untouched.
	_, err = store.CreateMessage(1, 2, "reply")
	require.NoError(t, err)

	unread, err := store.UnreadCount(2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	require.NoError(t, store.MarkRead(2, 1))
	require.NoError(t, store.MarkRead(2, 1))

	unread, err = store.UnreadCount(2, 1)
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = store.UnreadCount(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, unread, "reverse direction must not be flipped")

	// The flag never reverts: stored rows stay read.
	messages, err := store.MessagesForUser(1)
	require.NoError(t, err)
	for _, msg := range messages {
		if msg.ReceiverID == 1 {
			assert.True(t, msg.Read)
		}
	}
}
