package ports

import (
	"context"
	"errors"

	"github.com/busbeacon/beacon/internal/domain"
)

// ErrSessionClosed is returned by session operations after Close.
var ErrSessionClosed = errors.New("session closed")

// SessionEventKind enumerates the connection-level events a session
// reports on its status channel.
type SessionEventKind int

const (
	SessionConnected SessionEventKind = iota
	SessionDisconnected
	SessionError
)

// SessionEvent is one entry on a session's status channel. Err is set
// for SessionError events.
type SessionEvent struct {
	Kind SessionEventKind
	Err  error
}

// ObserveHandle detaches a map observer. Cancel is idempotent and safe
// to call during teardown.
type ObserveHandle interface {
	Cancel()
}

// SessionMap is a named keyed map inside a replicated document. Keys
// are unique, writes are last-write-wins per key by sample timestamp.
type SessionMap interface {
	Get(key string) (domain.LocationSample, bool)
	Set(key string, sample domain.LocationSample) error
	Observe(fn func(key string, sample domain.LocationSample)) ObserveHandle
}

// Session is a live replicated document scoped to one bus. Any number
// of local consumers may attach; none owns the session exclusively.
type Session interface {
	Map(name string) SessionMap
	Events() <-chan SessionEvent
	Close() error
}

// SessionDialer establishes a Session for a bus. The attempt is bounded
// by ctx; implementations must not outlive its deadline.
type SessionDialer interface {
	Dial(ctx context.Context, busID string) (Session, error)
}
