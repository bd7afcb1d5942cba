package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"docgate/internal/model"
	"docgate/internal/repository"
)

// SessionRepository stores sessions in a go-cache instance. Entries expire
// with the session; the cache janitor purges them in the background.
type SessionRepository struct {
	cache *cache.Cache
	now   func() time.Time
	// mu serializes read-modify-write on cached sessions.
	mu sync.Mutex
}

func NewSessionRepository(cleanupInterval time.Duration) *SessionRepository {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &SessionRepository{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
		now:   time.Now,
	}
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

func (r *SessionRepository) Save(_ context.Context, s *model.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.SessionID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := cloneSession(s)
	// The action counter only moves forward, even when a stale copy is saved.
	if prev, ok := r.get(s.SessionID); ok && prev.ActionCount > stored.ActionCount {
		stored.ActionCount = prev.ActionCount
	}
	r.cache.Set(s.SessionID, stored, ttl)
	return nil
}

func (r *SessionRepository) Update(_ context.Context, s *model.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.get(s.SessionID)
	if !ok {
		return fmt.Errorf("session: %w", repository.ErrNotFound)
	}
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.SessionID)
	}
	stored := cloneSession(s)
	stored.ActionCount = prev.ActionCount
	r.cache.Set(s.SessionID, stored, ttl)
	return nil
}

func (r *SessionRepository) Find(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.get(id)
	if !ok {
		return nil, fmt.Errorf("session: %w", repository.ErrNotFound)
	}
	return cloneSession(s), nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(id)
	return nil
}

func (r *SessionRepository) IncrementActions(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.get(id)
	if !ok {
		return 0, fmt.Errorf("session: %w", repository.ErrNotFound)
	}
	// Cached values are private clones, so mutating in place is safe under mu.
	s.ActionCount++
	return s.ActionCount, nil
}

func (r *SessionRepository) FindByUser(_ context.Context, userID string) ([]model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var out []model.Session
	for _, item := range r.cache.Items() {
		s := item.Object.(*model.Session)
		if s.UserID == userID && !s.Expired(now) {
			out = append(out, *cloneSession(s))
		}
	}
	return out, nil
}

func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, item := range r.cache.Items() {
		if item.Object.(*model.Session).Expired(now) {
			r.cache.Delete(id)
			removed++
		}
	}
	return removed, nil
}

func (r *SessionRepository) get(id string) (*model.Session, bool) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	s := x.(*model.Session)
	if s.Expired(r.now()) {
		r.cache.Delete(id)
		return nil, false
	}
	return s, true
}

func cloneSession(s *model.Session) *model.Session {
	out := *s
	out.State = cloneAny(s.State)
	out.Metadata = copyStrings(s.Metadata)
	if s.Workflow != nil {
		wf := *s.Workflow
		wf.Data = cloneAny(s.Workflow.Data)
		out.Workflow = &wf
	}
	return &out
}

func cloneAny(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
