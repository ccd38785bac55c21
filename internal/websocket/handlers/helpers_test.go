package handlers

import (
	"context"
	"time"
)

type fakeUserQueries struct {
	setOnline func(ctx context.Context, id int64, online bool, at time.Time) error
}

func (f fakeUserQueries) SetUserOnline(ctx context.Context, id int64, online bool, at time.Time) error {
	if f.setOnline == nil {
		return nil
	}
	return f.setOnline(ctx, id, online, at)
}

type fakeNotificationQueries struct {
	countUnread func(ctx context.Context, userID int64) (int64, error)
}

func (f fakeNotificationQueries) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return f.countUnread(ctx, userID)
}

func fixedNow() time.Time {
	return time.UnixMilli(12345)
}
