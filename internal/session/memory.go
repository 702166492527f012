package session

import (
	"context"
	"sync"
	"time"

	"github.com/opencode-ai/sessionwatch/internal/event"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// MemoryStore is an in-memory Store. Sessions live for the lifetime of the
// process; reads return defensive copies.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[types.SessionKey]*types.Session
	bus      *event.Bus
}

// NewMemoryStore creates an in-memory session store. A nil bus disables
// store event publishing.
func NewMemoryStore(bus *event.Bus) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[types.SessionKey]*types.Session),
		bus:      bus,
	}
}

func (m *MemoryStore) Create(ctx context.Context, key types.SessionKey) (*types.Session, error) {
	m.mu.Lock()
	if _, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return nil, ErrExists
	}

	now := time.Now().UnixMilli()
	sess := &types.Session{
		AppID:  key.AppID,
		UserID: key.UserID,
		ID:     key.SessionID,
		State:  make(map[string]any),
		Time:   types.SessionTime{Created: now, Updated: now},
	}
	m.sessions[key] = sess
	out := copySession(sess)
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.PublishSync(event.Event{Type: event.SessionCreated, Data: event.SessionCreatedData{Key: key}})
	}
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, key types.SessionKey) (*types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[key]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(sess), nil
}

func (m *MemoryStore) AppendEvent(ctx context.Context, key types.SessionKey, ev types.Event) error {
	m.mu.Lock()
	sess, ok := m.sessions[key]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	sess.Events = append(sess.Events, ev)
	sess.Time.Updated = time.Now().UnixMilli()
	index := len(sess.Events) - 1
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.PublishSync(event.Event{
			Type: event.EventAppended,
			Data: event.EventAppendedData{Key: key, Event: ev, Index: index},
		})
	}
	return nil
}

func (m *MemoryStore) PutState(ctx context.Context, key types.SessionKey, name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[key]
	if !ok {
		return ErrNotFound
	}
	if sess.State == nil {
		sess.State = make(map[string]any)
	}
	sess.State[name] = value
	sess.Time.Updated = time.Now().UnixMilli()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key types.SessionKey) error {
	m.mu.Lock()
	_, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	if m.bus != nil {
		m.bus.PublishSync(event.Event{Type: event.SessionDeleted, Data: event.SessionDeletedData{Key: key}})
	}
	return nil
}

func (m *MemoryStore) List(ctx context.Context, appID string) ([]types.SessionKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []types.SessionKey
	for key := range m.sessions {
		if appID == "" || key.AppID == appID {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
