// Package session provides the session store: durable, append-only
// conversation records addressed by an (app, user, session) key.
package session

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/sessionwatch/pkg/types"
)

var (
	// ErrNotFound is returned when no session exists for a key.
	ErrNotFound = errors.New("session not found")
	// ErrExists is returned when creating a session whose key is taken.
	ErrExists = errors.New("session already exists")
)

// Store is the session persistence interface. Implementations must be safe
// for concurrent use and must hand out defensive copies: callers never
// observe later mutations through a previously returned session, which is
// what lets a read-only monitor share a store with the turn runner.
type Store interface {
	// Create creates an empty session for the key.
	Create(ctx context.Context, key types.SessionKey) (*types.Session, error)
	// Get returns a copy of the session, or ErrNotFound.
	Get(ctx context.Context, key types.SessionKey) (*types.Session, error)
	// AppendEvent appends one event to the session's event sequence.
	AppendEvent(ctx context.Context, key types.SessionKey, ev types.Event) error
	// PutState sets one key in the session's state blob.
	PutState(ctx context.Context, key types.SessionKey, name string, value any) error
	// Delete removes the session.
	Delete(ctx context.Context, key types.SessionKey) error
	// List returns the keys of all sessions for an app. An empty appID
	// lists every session in the store.
	List(ctx context.Context, appID string) ([]types.SessionKey, error)
}

// NewID generates a new ULID for sessions and events.
func NewID() string {
	return ulid.Make().String()
}

// copySession returns a defensive copy of a session. Events are immutable
// once appended, so cloning the slices is sufficient.
func copySession(s *types.Session) *types.Session {
	out := *s
	out.Events = make([]types.Event, len(s.Events))
	copy(out.Events, s.Events)
	if s.State != nil {
		out.State = make(map[string]any, len(s.State))
		for k, v := range s.State {
			out.State[k] = v
		}
	}
	return &out
}
