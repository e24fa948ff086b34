// Package session holds the process-wide authenticated identity: the
// bearer token and the cached profile of the signed-in user.
//
// A single Manager is created at startup and injected into every
// collaborator that needs the identity. Only the authentication flow and
// the profile refresh write to it; everything else reads.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Domenick1991/airdash/internal/domain"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrCorrupt  = errors.New("stored session is corrupt")
)

type Session struct {
	Token string       `json:"access_token"`
	User  *domain.User `json:"user"`
}

func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// UserID returns the signed-in user's id, or 0 when logged out.
func (s Session) UserID() int64 {
	if s.User == nil {
		return 0
	}
	return s.User.ID
}

func (s Session) clone() Session {
	if s.User == nil {
		return s
	}
	u := *s.User
	return Session{Token: s.Token, User: &u}
}

// Store persists a session between process runs.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

type Manager struct {
	mu      sync.RWMutex
	store   Store
	current Session
	gen     uint64
	logger  logrus.FieldLogger

	watchMu   sync.Mutex
	watchers  map[int]chan struct{}
	nextWatch int
}

func NewManager(store Store, logger logrus.FieldLogger) *Manager {
	return &Manager{
		store:    store,
		logger:   logger.WithField("component", "session"),
		watchers: make(map[int]chan struct{}),
	}
}

// Generation changes whenever a session is set or cleared, but not when
// only the cached profile is updated.
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

// Watch returns a channel that receives a tick after every change to the
// session, profile updates included. Ticks coalesce.
func (m *Manager) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	id := m.nextWatch
	m.nextWatch++
	m.watchers[id] = ch
	return ch, func() {
		m.watchMu.Lock()
		defer m.watchMu.Unlock()
		if _, ok := m.watchers[id]; ok {
			delete(m.watchers, id)
			close(ch)
		}
	}
}

func (m *Manager) changed() {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	for _, ch := range m.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Init restores the persisted session. A corrupt or half-written session is
// cleared and the manager starts logged out.
func (m *Manager) Init(ctx context.Context) error {
	loaded, err := m.store.Load(ctx)
	switch {
	case err == nil && loaded.Authenticated():
		m.mu.Lock()
		m.current = loaded.clone()
		m.gen++
		m.mu.Unlock()
		m.logger.WithField("user_id", loaded.UserID()).Info("session restored")
		return nil
	case err == nil, errors.Is(err, ErrCorrupt):
		m.logger.Warn("discarding unusable stored session")
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			return fmt.Errorf("clear stored session: %w", clearErr)
		}
		return nil
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return fmt.Errorf("load session: %w", err)
	}
}

func (m *Manager) Get() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.clone()
}

func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Token
}

func (m *Manager) Set(ctx context.Context, s Session) error {
	if !s.Authenticated() {
		return errors.New("session requires a token and a user")
	}
	m.mu.Lock()
	m.current = s.clone()
	m.gen++
	m.mu.Unlock()
	m.changed()
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SetUser replaces the cached profile, keeping the token.
func (m *Manager) SetUser(ctx context.Context, user domain.User) error {
	m.mu.Lock()
	if m.current.Token == "" {
		m.mu.Unlock()
		return errors.New("cannot update profile without a session")
	}
	m.current.User = &user
	snapshot := m.current.clone()
	m.mu.Unlock()
	m.changed()
	if err := m.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.current = Session{}
	m.gen++
	m.mu.Unlock()
	m.changed()
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
