package chat

// Sender delivers outbound events to one live transport session. Send must
// not block on a slow peer; implementations queue or drop. Close must be safe
// to call more than once.
type Sender interface {
	SessionID() string
	Send(event Event) error
	Close()
}
