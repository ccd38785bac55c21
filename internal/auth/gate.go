package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bhandras/studyhall/internal/logger"
	"github.com/bhandras/studyhall/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrLookupFailed       = errors.New("user lookup failed")
)

// UserQueries is the subset of the user store the gate needs.
type UserQueries interface {
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	SetUserOnline(ctx context.Context, id int64, online bool, at time.Time) error
}

// Gate admits only existing, active users.
type Gate struct {
	users UserQueries
	now   func() time.Time
	// MarkOnline makes a successful check set the user's online hint.
	MarkOnline bool
}

// NewGate returns a gate backed by users.
func NewGate(users UserQueries, markOnline bool) *Gate {
	return &Gate{users: users, now: time.Now, MarkOnline: markOnline}
}

// Check loads the user for s. It returns ErrUserNotFound,
// ErrAccountDeactivated or an error wrapping ErrLookupFailed.
func (g *Gate) Check(ctx context.Context, s Subject) (models.User, error) {
	id, ok := s.Int64()
	if !ok {
		// External ids never match the integer primary key.
		return models.User{}, ErrUserNotFound
	}

	user, err := g.users.GetUserByID(ctx, id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return models.User{}, ErrUserNotFound
	case err != nil:
		return models.User{}, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}

	if !user.IsActive {
		return user, ErrAccountDeactivated
	}

	if g.MarkOnline {
		now := g.now()
		if err := g.users.SetUserOnline(ctx, id, true, now); err != nil {
			logger.Warnf("Failed to update online status for user %d: %v", id, err)
		} else {
			user.IsOnline = true
			user.LastSeenAt = &now
		}
	}

	return user, nil
}

// validationMessage explains a gate error to the client.
func validationMessage(s Subject, user models.User, err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return fmt.Sprintf("User validation failed: user with ID %s not found", s)
	case errors.Is(err, ErrAccountDeactivated):
		return fmt.Sprintf("User validation failed: user %s (ID: %s) account is deactivated", user.Name, s)
	default:
		return "User validation failed: database error during user validation"
	}
}
