package chat

import (
	"sync"
	"time"
)

type typingKey struct {
	senderID   int64
	receiverID int64
}

// TypingTracker holds the set of (sender, receiver) pairs currently typing.
// Each pair owns exactly one pending timer; arming always cancels the prior
// handle first, so a pair can never fire twice and an expiry can never race
// an explicit stop.
type TypingTracker struct {
	mu      sync.Mutex
	timeout time.Duration
	pending map[typingKey]*time.Timer
	expired func(senderID, receiverID int64)
}

// NewTypingTracker builds a tracker that calls expired when a pair times out
// without an explicit stop.
func NewTypingTracker(timeout time.Duration, expired func(senderID, receiverID int64)) *TypingTracker {
	return &TypingTracker{
		timeout: timeout,
		pending: make(map[typingKey]*time.Timer),
		expired: expired,
	}
}

// Start marks the pair as typing and (re)arms its expiry timer. Repeated
// starts within the window debounce rather than stacking timers. Returns
// whether the pair was idle before this call.
func (t *TypingTracker) Start(senderID, receiverID int64) bool {
	key := typingKey{senderID, receiverID}

	t.mu.Lock()
	defer t.mu.Unlock()

	prior, wasTyping := t.pending[key]
	if wasTyping {
		prior.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(t.timeout, func() {
		t.expire(key, timer)
	})
	t.pending[key] = timer
	return !wasTyping
}

// Stop clears the pair and cancels its timer. Returns whether the pair was
// typing.
func (t *TypingTracker) Stop(senderID, receiverID int64) bool {
	key := typingKey{senderID, receiverID}

	t.mu.Lock()
	defer t.mu.Unlock()

	timer, ok := t.pending[key]
	if !ok {
		return false
	}
	timer.Stop()
	delete(t.pending, key)
	return true
}

// ClearSender removes every pair the sender has pending and returns the
// receivers, so the caller can forward a final typing=false to each.
func (t *TypingTracker) ClearSender(senderID int64) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var receivers []int64
	for key, timer := range t.pending {
		if key.senderID != senderID {
			continue
		}
		timer.Stop()
		delete(t.pending, key)
		receivers = append(receivers, key.receiverID)
	}
	return receivers
}

// expire runs on timer fire. The pair may already have been stopped or
// re-armed; only the timer still installed for the key is allowed to report
// expiry.
func (t *TypingTracker) expire(key typingKey, timer *time.Timer) {
	t.mu.Lock()
	current, ok := t.pending[key]
	if !ok || current != timer {
		t.mu.Unlock()
		return
	}
	delete(t.pending, key)
	t.mu.Unlock()

	if t.expired != nil {
		t.expired(key.senderID, key.receiverID)
	}
}
