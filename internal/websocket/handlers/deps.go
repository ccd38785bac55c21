package handlers

import (
	"context"
	"time"
)

// UserQueries is the subset of user queries used by websocket handlers.
type UserQueries interface {
	SetUserOnline(ctx context.Context, id int64, online bool, at time.Time) error
}

// NotificationQueries is the subset of notification queries used by websocket
// handlers.
type NotificationQueries interface {
	CountUnread(ctx context.Context, userID int64) (int64, error)
}

// Deps holds the narrow dependencies required by extracted websocket handlers.
type Deps struct {
	users         UserQueries
	notifications NotificationQueries
	now           func() time.Time
}

// NewDeps builds a dependency bundle for handler calls.
func NewDeps(users UserQueries, notifications NotificationQueries, now func() time.Time) Deps {
	return Deps{
		users:         users,
		notifications: notifications,
		now:           now,
	}
}

func (d Deps) Users() UserQueries                 { return d.users }
func (d Deps) Notifications() NotificationQueries { return d.notifications }
func (d Deps) Now() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}
