package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/prompt-tavern/backend/internal/model/chat"
)

var (
	ErrPersonalityRequired = errors.New("personality id is required")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExpired      = errors.New("session expired")
	ErrCapacityExceeded    = errors.New("session capacity exceeded")
)

const (
	defaultMaxSessions = 100
	defaultTimeout     = 4 * time.Hour
	historyCapacity    = 16
)

// Option customises a Store.
type Option func(*Store)

// WithMaxSessions bounds the number of sessions held at once.
func WithMaxSessions(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithTimeout sets the idle period after which a session expires.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock replaces the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger attaches a logger for lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// entry holds one session. Its mutex guards history and lastActive; the
// immutable fields are safe to read without it.
type entry struct {
	mu            sync.Mutex
	id            string
	personalityID string
	createdAt     time.Time
	lastActive    time.Time
	history       []chat.Message
	evicted       bool
}

// Store is the in-memory session table. The store mutex only guards map
// membership, so operations on different sessions do not serialise on it.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*entry
	maxSessions int
	timeout     time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewStore builds an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions:    make(map[string]*entry),
		maxSessions: defaultMaxSessions,
		timeout:     defaultTimeout,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxSessions returns the configured capacity.
func (s *Store) MaxSessions() int { return s.maxSessions }

// Timeout returns the configured idle timeout.
func (s *Store) Timeout() time.Duration { return s.timeout }

// Create provisions a session bound to personalityID. When the store is
// full it sweeps expired sessions once before giving up.
func (s *Store) Create(_ context.Context, personalityID string) (chat.Session, error) {
	if personalityID == "" {
		return chat.Session{}, ErrPersonalityRequired
	}

	now := s.now().UTC()
	e := &entry{
		id:            uuid.NewString(),
		personalityID: personalityID,
		createdAt:     now,
		lastActive:    now,
		history:       make([]chat.Message, 0, historyCapacity),
	}

	s.mu.Lock()
	if len(s.sessions) >= s.maxSessions {
		if evicted := s.sweepLocked(now); evicted > 0 {
			s.logger.Info("evicted expired sessions to make room", zap.Int("evicted", evicted))
		}
		if len(s.sessions) >= s.maxSessions {
			s.mu.Unlock()
			return chat.Session{}, fmt.Errorf("%w: limit %d", ErrCapacityExceeded, s.maxSessions)
		}
	}
	for {
		if _, taken := s.sessions[e.id]; !taken {
			break
		}
		e.id = uuid.NewString()
	}
	s.sessions[e.id] = e
	s.mu.Unlock()

	s.logger.Debug("session created", zap.String("session", e.id), zap.String("personality", personalityID))
	return e.snapshot(now, s.timeout, false), nil
}

// Append adds msgs to the session history as one atomic step, marks the
// session active and returns the resulting history length. Expired sessions
// reject new messages instead of reviving.
func (s *Store) Append(_ context.Context, sessionID string, msgs ...chat.Message) (int, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.evicted {
		return 0, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	now := s.now().UTC()
	if e.expired(now, s.timeout) {
		return 0, fmt.Errorf("%w: %s", ErrSessionExpired, sessionID)
	}

	last := e.createdAt
	if n := len(e.history); n > 0 {
		last = e.history[n-1].Timestamp
	}
	for _, msg := range msgs {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		// History timestamps never go backwards.
		if msg.Timestamp.Before(last) {
			msg.Timestamp = last
		}
		last = msg.Timestamp
		e.history = append(e.history, msg)
	}
	e.lastActive = now
	return len(e.history), nil
}

// Get returns a snapshot of the session including its history.
func (s *Store) Get(_ context.Context, sessionID string) (chat.Session, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return chat.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return e.snapshot(s.now().UTC(), s.timeout, true), nil
}

// Meta returns the session without its history.
func (s *Store) Meta(_ context.Context, sessionID string) (chat.Session, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return chat.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return e.snapshot(s.now().UTC(), s.timeout, false), nil
}

// History returns a copy of the stored messages. Expired sessions stay
// readable until they are evicted.
func (s *Store) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.History, nil
}

// List returns summaries of all held sessions, oldest first.
func (s *Store) List(_ context.Context) []chat.Summary {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	now := s.now().UTC()
	out := make([]chat.Summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.evicted {
			out = append(out, chat.Summary{
				ID:            e.id,
				PersonalityID: e.personalityID,
				MessageCount:  len(e.history),
				CreatedAt:     e.createdAt,
				LastActive:    e.lastActive,
				State:         e.state(now, s.timeout),
			})
		}
		e.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete evicts one session.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	e.markEvicted()
	return nil
}

// Clear evicts every session and returns how many were removed.
func (s *Store) Clear(_ context.Context) int {
	s.mu.Lock()
	old := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range old {
		e.markEvicted()
	}
	return len(old)
}

// Len reports the number of sessions currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Active counts held sessions that have not expired yet.
func (s *Store) Active() int {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	now := s.now().UTC()
	active := 0
	for _, e := range entries {
		e.mu.Lock()
		if !e.evicted && !e.expired(now, s.timeout) {
			active++
		}
		e.mu.Unlock()
	}
	return active
}

// Sweep evicts every expired session and returns the count.
func (s *Store) Sweep(_ context.Context) int {
	now := s.now().UTC()

	s.mu.Lock()
	evicted := s.sweepLocked(now)
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Info("swept expired sessions", zap.Int("evicted", evicted))
	}
	return evicted
}

// Run sweeps on every tick of interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid sweep interval %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// sweepLocked requires s.mu held for writing.
func (s *Store) sweepLocked(now time.Time) int {
	evicted := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		if e.expired(now, s.timeout) {
			e.evicted = true
			delete(s.sessions, id)
			evicted++
		}
		e.mu.Unlock()
	}
	return evicted
}

func (s *Store) lookup(sessionID string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return e, nil
}

func (e *entry) expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(e.lastActive) > timeout
}

func (e *entry) state(now time.Time, timeout time.Duration) chat.State {
	if e.expired(now, timeout) {
		return chat.StateExpired
	}
	return chat.StateActive
}

func (e *entry) markEvicted() {
	e.mu.Lock()
	e.evicted = true
	e.mu.Unlock()
}

// snapshot requires e.mu held, or e not yet published.
func (e *entry) snapshot(now time.Time, timeout time.Duration, withHistory bool) chat.Session {
	session := chat.Session{
		ID:            e.id,
		PersonalityID: e.personalityID,
		CreatedAt:     e.createdAt,
		LastActive:    e.lastActive,
		State:         e.state(now, timeout),
	}
	if withHistory {
		session.History = make([]chat.Message, len(e.history))
		copy(session.History, e.history)
	}
	return session
}
