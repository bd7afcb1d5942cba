package repository

import (
	"context"
	"time"

	"docgate/internal/model"
)

// SessionRepository stores sessions. Implementations must make
// IncrementActions atomic across concurrent callers.
type SessionRepository interface {
	// Save stores a new session.
	Save(ctx context.Context, s *model.Session) error

	// Update replaces a live session. It never recreates one: ErrNotFound
	// when the session was deleted or expired in the meantime. The stored
	// action counter is kept, whatever s.ActionCount says.
	Update(ctx context.Context, s *model.Session) error

	// Find returns a live session, or ErrNotFound when it is missing or expired.
	Find(ctx context.Context, id string) (*model.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// IncrementActions adds one to the action counter and returns the new value.
	IncrementActions(ctx context.Context, id string) (int, error)

	// FindByUser returns the live sessions of a user.
	FindByUser(ctx context.Context, userID string) ([]model.Session, error)

	// DeleteExpired removes sessions expired at now and returns how many went.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
