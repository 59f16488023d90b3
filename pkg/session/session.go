// Package session persists who is signed in on a terminal.
//
// A Session moves through three states: it starts in StateInit while its
// record is being read back from the Store, becomes StateActive once a valid
// record is loaded (or a new one is opened at login), and ends in StateCleared
// after logout. Records that cannot be decoded, have expired or fail the
// caller's validity check are deleted and reported as ErrNoSession.
//
//	mgr := session.NewManager(store, 12*time.Hour, func(id models.Identity) bool { return id.Valid() })
//	s, _ := mgr.Open(ctx, identity)  // login
//	s, err := mgr.Resume(ctx, s.ID)  // next request, or after a restart
//	_ = mgr.Clear(ctx, s)            // logout
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// KeyPrefix is the fixed key under which identity records are stored.
const KeyPrefix = "restaurant_user"

var (
	// ErrNotFound is returned by stores for missing keys.
	ErrNotFound = errors.New("session: key not found")
	// ErrNoSession means there is no usable session for the id.
	ErrNoSession = errors.New("session: no session")
)

// State is a session's lifecycle position.
type State int

const (
	StateInit State = iota
	StateActive
	StateCleared
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateActive:
		return "active"
	case StateCleared:
		return "cleared"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Store is the persistence behind a Manager.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Session is one signed-in terminal holding a value of type T.
type Session[T any] struct {
	ID        string
	Value     T
	OpenedAt  time.Time
	ExpiresAt time.Time
	state     State
}

// State reports where the session is in its lifecycle.
func (s *Session[T]) State() State { return s.state }

// Active reports whether the session may be used.
func (s *Session[T]) Active() bool { return s != nil && s.state == StateActive }

type record[T any] struct {
	Value     T         `json:"value"`
	OpenedAt  time.Time `json:"opened_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager opens, resumes and clears sessions.
type Manager[T any] struct {
	store Store
	ttl   time.Duration
	valid func(T) bool
	now   func() time.Time
}

// NewManager returns a Manager. valid may be nil.
func NewManager[T any](store Store, ttl time.Duration, valid func(T) bool) *Manager[T] {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if valid == nil {
		valid = func(T) bool { return true }
	}
	return &Manager[T]{store: store, ttl: ttl, valid: valid, now: time.Now}
}

// Key is the storage key for a session id.
func Key(id string) string { return KeyPrefix + ":" + id }

// Open persists v under a fresh id and returns the active session.
func (m *Manager[T]) Open(ctx context.Context, v T) (*Session[T], error) {
	if !m.valid(v) {
		return nil, errors.New("session: refusing to open invalid value")
	}

	now := m.now().UTC()
	rec := record[T]{Value: v, OpenedAt: now, ExpiresAt: now.Add(m.ttl)}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("session: encode: %w", err)
	}

	id := uuid.NewString()
	if err := m.store.Save(ctx, Key(id), data, m.ttl); err != nil {
		return nil, fmt.Errorf("session: save: %w", err)
	}

	return &Session[T]{ID: id, Value: v, OpenedAt: rec.OpenedAt, ExpiresAt: rec.ExpiresAt, state: StateActive}, nil
}

// Resume reads the session back from the store. Corrupt, expired or invalid
// records are deleted and yield ErrNoSession.
func (m *Manager[T]) Resume(ctx context.Context, id string) (*Session[T], error) {
	s := &Session[T]{ID: id, state: StateInit}
	if id == "" {
		return nil, ErrNoSession
	}

	data, err := m.store.Load(ctx, Key(id))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}

	var rec record[T]
	if err := json.Unmarshal(data, &rec); err != nil || !m.valid(rec.Value) || !m.now().Before(rec.ExpiresAt) {
		_ = m.store.Delete(ctx, Key(id))
		return nil, ErrNoSession
	}

	s.Value = rec.Value
	s.OpenedAt = rec.OpenedAt
	s.ExpiresAt = rec.ExpiresAt
	s.state = StateActive
	return s, nil
}

// Clear deletes the stored record and marks s cleared.
func (m *Manager[T]) Clear(ctx context.Context, s *Session[T]) error {
	if s == nil || s.state == StateCleared {
		return nil
	}
	if err := m.store.Delete(ctx, Key(s.ID)); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("session: delete: %w", err)
	}
	s.state = StateCleared
	return nil
}
