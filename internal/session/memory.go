package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/paintscheme/internal/metrics"
	"github.com/local/paintscheme/internal/pipeline"
)

// MemoryStore is the in-process session store used when no Redis is
// configured, and by tests. Same idle-TTL semantics as RedisStore.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]*memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	sess    Session
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:   ttl,
		items: make(map[string]*memoryEntry),
		now:   time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		Stage:     StageCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.items[sess.ID] = &memoryEntry{sess: sess, expires: now.Add(s.ttl)}
	out := sess
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok || s.now().After(e.expires) {
		delete(s.items, id)
		return nil, pipeline.New(pipeline.KindSessionNotFound, "session_id", "session %s not found", id)
	}
	e.expires = s.now().Add(s.ttl)
	out := e.sess
	return &out, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.UpdatedAt = s.now().UTC()
	s.items[sess.ID] = &memoryEntry{sess: *sess, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// Sweep drops expired sessions, reporting each to onExpired.
func (s *MemoryStore) Sweep(ctx context.Context, onExpired func(ctx context.Context, id string)) {
	s.mu.Lock()
	now := s.now()
	var expired []string
	for id, e := range s.items {
		if now.After(e.expires) {
			expired = append(expired, id)
			delete(s.items, id)
		}
	}
	alive := len(s.items)
	s.mu.Unlock()

	for _, id := range expired {
		if onExpired != nil {
			onExpired(ctx, id)
		}
		metrics.IncSessionsExpired()
		log.Info().Str("session", id).Msg("expired session swept")
	}
	metrics.SetActiveSessions(int64(alive))
}

// StartSweeper runs Sweep on the given interval until ctx is done.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration, onExpired func(ctx context.Context, id string)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx, onExpired)
			}
		}
	}()
}

func (s *MemoryStore) Close() error { return nil }
