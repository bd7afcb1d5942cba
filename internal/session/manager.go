package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docgate/internal/model"
	"docgate/internal/repository"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrActionLimit     = errors.New("session action limit exceeded")
	ErrNoWorkflow      = errors.New("session has no workflow")
	ErrWorkflowDone    = errors.New("workflow already completed")
	ErrInvalidWorkflow = errors.New("workflow needs at least one step")
)

const idBytes = 32

type Config struct {
	TTL        time.Duration
	MaxActions int
}

func DefaultConfig() Config {
	return Config{TTL: 30 * time.Minute, MaxActions: 100}
}

// Auditor receives rate limit breaches.
type Auditor interface {
	RateLimitExceeded(ctx context.Context, userID, resource string, limit int)
}

// Manager issues and tracks short-lived user sessions.
type Manager struct {
	cfg   Config
	repo  repository.SessionRepository
	audit Auditor
	log   *zap.Logger
	now   func() time.Time
}

func NewManager(cfg Config, repo repository.SessionRepository, audit Auditor, log *zap.Logger) *Manager {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxActions <= 0 {
		cfg.MaxActions = def.MaxActions
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{cfg: cfg, repo: repo, audit: audit, log: log, now: time.Now}
}

func newID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CreateSession starts a session for userID.
func (m *Manager) CreateSession(ctx context.Context, userID string, metadata map[string]string) (*model.Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	s := &model.Session{
		SessionID: id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.TTL),
		State:     map[string]any{},
		Metadata:  metadata,
	}
	if err := m.repo.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// GetSession returns a live session or ErrNotFound.
func (m *Manager) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s, err := m.repo.Find(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// RecordAction counts one action against the session. Crossing the
// maximum destroys the session and returns ErrActionLimit.
func (m *Manager) RecordAction(ctx context.Context, id string) (int, error) {
	n, err := m.repo.IncrementActions(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("record action: %w", err)
	}
	if n <= m.cfg.MaxActions {
		return n, nil
	}

	userID := ""
	if s, err := m.repo.Find(ctx, id); err == nil {
		userID = s.UserID
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		m.log.Error("destroy session over action limit", zap.Error(err))
	}
	if m.audit != nil {
		m.audit.RateLimitExceeded(ctx, userID, "session", m.cfg.MaxActions)
	}
	return n, ErrActionLimit
}

// UpdateState merges values into the session state.
func (m *Manager) UpdateState(ctx context.Context, id string, values map[string]any) (*model.Session, error) {
	return m.mutate(ctx, id, func(s *model.Session) error {
		if s.State == nil {
			s.State = map[string]any{}
		}
		for k, v := range values {
			s.State[k] = v
		}
		return nil
	})
}

// ExtendSession pushes the expiry out by extra, or by the configured TTL
// when extra is zero.
func (m *Manager) ExtendSession(ctx context.Context, id string, extra time.Duration) (*model.Session, error) {
	if extra <= 0 {
		extra = m.cfg.TTL
	}
	return m.mutate(ctx, id, func(s *model.Session) error {
		s.ExpiresAt = s.ExpiresAt.Add(extra)
		return nil
	})
}

// DestroySession removes a session.
func (m *Manager) DestroySession(ctx context.Context, id string) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// GetUserSessions lists the live sessions of a user.
func (m *Manager) GetUserSessions(ctx context.Context, userID string) ([]model.Session, error) {
	out, err := m.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	return out, nil
}

// DestroyUserSessions removes every session of a user and returns how many.
func (m *Manager) DestroyUserSessions(ctx context.Context, userID string) (int, error) {
	sessions, err := m.GetUserSessions(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, s := range sessions {
		if err := m.repo.Delete(ctx, s.SessionID); err != nil {
			return 0, fmt.Errorf("destroy session: %w", err)
		}
	}
	return len(sessions), nil
}

// Cleanup sweeps expired sessions.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	n, err := m.repo.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	if n > 0 {
		m.log.Info("expired sessions removed", zap.Int("count", n))
	}
	return n, nil
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Cleanup(ctx); err != nil {
				m.log.Warn("session cleanup failed", zap.Error(err))
			}
		}
	}
}

// InitWorkflow attaches a fresh step workflow to the session.
func (m *Manager) InitWorkflow(ctx context.Context, id, name string, totalSteps int) (*model.Session, error) {
	if totalSteps < 1 {
		return nil, ErrInvalidWorkflow
	}
	return m.mutate(ctx, id, func(s *model.Session) error {
		s.Workflow = &model.WorkflowProgress{
			Name:       name,
			TotalSteps: totalSteps,
			Data:       map[string]any{},
			StartedAt:  m.now().UTC(),
		}
		return nil
	})
}

// AdvanceWorkflow merges step data and moves to the next step. Passing the
// final step marks the workflow completed.
func (m *Manager) AdvanceWorkflow(ctx context.Context, id string, data map[string]any) (*model.Session, error) {
	return m.mutate(ctx, id, func(s *model.Session) error {
		wf := s.Workflow
		if wf == nil {
			return ErrNoWorkflow
		}
		if wf.Completed {
			return ErrWorkflowDone
		}
		if wf.Data == nil {
			wf.Data = map[string]any{}
		}
		for k, v := range data {
			wf.Data[k] = v
		}
		wf.CurrentStep++
		if wf.CurrentStep >= wf.TotalSteps {
			wf.Completed = true
		}
		return nil
	})
}

func (m *Manager) mutate(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	s, err := m.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	err = m.repo.Update(ctx, s)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}
