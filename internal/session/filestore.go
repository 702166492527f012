package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/opencode-ai/sessionwatch/internal/event"
	"github.com/opencode-ai/sessionwatch/internal/storage"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// FileStore is a Store backed by file-based JSON storage. Sessions survive
// process restarts. Each session is one document at
// session/<app>/<user>/<id>.json.
type FileStore struct {
	storage *storage.Store
	bus     *event.Bus

	// Serializes read-modify-write cycles within this process. Cross-process
	// writes are serialized by the storage layer's file locks.
	mu sync.Mutex
}

// NewFileStore creates a file-backed session store rooted at dir. A nil bus
// disables store event publishing.
func NewFileStore(dir string, bus *event.Bus) *FileStore {
	return &FileStore{
		storage: storage.New(dir),
		bus:     bus,
	}
}

// BasePath returns the root directory of the underlying storage.
func (f *FileStore) BasePath() string {
	return f.storage.BasePath()
}

func storageKey(key types.SessionKey) []string {
	return []string{"session", key.AppID, key.UserID, key.SessionID}
}

func (f *FileStore) Create(ctx context.Context, key types.SessionKey) (*types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var existing types.Session
	err := f.storage.Get(ctx, storageKey(key), &existing)
	if err == nil {
		return nil, ErrExists
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UnixMilli()
	sess := &types.Session{
		AppID:  key.AppID,
		UserID: key.UserID,
		ID:     key.SessionID,
		State:  make(map[string]any),
		Time:   types.SessionTime{Created: now, Updated: now},
	}
	if err := f.storage.Put(ctx, storageKey(key), sess); err != nil {
		return nil, err
	}

	if f.bus != nil {
		f.bus.PublishSync(event.Event{Type: event.SessionCreated, Data: event.SessionCreatedData{Key: key}})
	}
	return copySession(sess), nil
}

func (f *FileStore) Get(ctx context.Context, key types.SessionKey) (*types.Session, error) {
	var sess types.Session
	if err := f.storage.Get(ctx, storageKey(key), &sess); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (f *FileStore) AppendEvent(ctx context.Context, key types.SessionKey, ev types.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sess types.Session
	if err := f.storage.Get(ctx, storageKey(key), &sess); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	sess.Events = append(sess.Events, ev)
	sess.Time.Updated = time.Now().UnixMilli()
	if err := f.storage.Put(ctx, storageKey(key), &sess); err != nil {
		return err
	}

	if f.bus != nil {
		f.bus.PublishSync(event.Event{
			Type: event.EventAppended,
			Data: event.EventAppendedData{Key: key, Event: ev, Index: len(sess.Events) - 1},
		})
	}
	return nil
}

func (f *FileStore) PutState(ctx context.Context, key types.SessionKey, name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sess types.Session
	if err := f.storage.Get(ctx, storageKey(key), &sess); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if sess.State == nil {
		sess.State = make(map[string]any)
	}
	sess.State[name] = value
	sess.Time.Updated = time.Now().UnixMilli()
	return f.storage.Put(ctx, storageKey(key), &sess)
}

func (f *FileStore) Delete(ctx context.Context, key types.SessionKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sess types.Session
	if err := f.storage.Get(ctx, storageKey(key), &sess); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := f.storage.Delete(ctx, storageKey(key)); err != nil {
		return err
	}
	if f.bus != nil {
		f.bus.PublishSync(event.Event{Type: event.SessionDeleted, Data: event.SessionDeletedData{Key: key}})
	}
	return nil
}

func (f *FileStore) List(ctx context.Context, appID string) ([]types.SessionKey, error) {
	var keys []types.SessionKey

	apps := []string{appID}
	if appID == "" {
		all, err := f.storage.List(ctx, []string{"session"})
		if err != nil {
			return nil, err
		}
		apps = all
	}

	for _, app := range apps {
		users, err := f.storage.List(ctx, []string{"session", app})
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			err := f.storage.Scan(ctx, []string{"session", app, user}, func(name string, data json.RawMessage) error {
				keys = append(keys, types.SessionKey{AppID: app, UserID: user, SessionID: name})
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return keys, nil
}
