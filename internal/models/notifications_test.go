package models_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bhandras/studyhall/internal/database"
	"github.com/bhandras/studyhall/internal/models"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func openQueries(t *testing.T) *models.Queries {
	t.Helper()
	db, err := database.Open(context.Background(), database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return models.New(db.DB)
}

func createUser(t *testing.T, q *models.Queries, name string, active bool) models.User {
	t.Helper()
	u, err := q.CreateUser(context.Background(), models.CreateUserParams{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", name),
		IsActive: active,
	})
	require.NoError(t, err)
	return u
}

func TestGetUserByID(t *testing.T) {
	ctx := context.Background()
	q := openQueries(t)
	u := createUser(t, q, "ann", true)

	got, err := q.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "ann", got.Name)
	require.Equal(t, "student", got.Role)
	require.True(t, got.IsActive)
	require.Nil(t, got.LastSeenAt)

	_, err = q.GetUserByID(ctx, u.ID+100)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestSetUserOnline(t *testing.T) {
	ctx := context.Background()
	q := openQueries(t)
	u := createUser(t, q, "ann", true)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, q.SetUserOnline(ctx, u.ID, true, at))

	got, err := q.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.IsOnline)
	require.NotNil(t, got.LastSeenAt)
	require.True(t, at.Equal(*got.LastSeenAt))
}

func TestNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	q := openQueries(t)
	u := createUser(t, q, "ann", true)
	now := time.Now().UTC()

	first, err := q.CreateNotification(ctx, models.CreateNotificationParams{
		UserID:    u.ID,
		Type:      models.TypeNewEnrollment,
		Title:     "New enrollment",
		Message:   "Alice enrolled in X",
		Data:      json.RawMessage(`{"courseId":3}`),
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	require.False(t, first.IsRead)

	second, err := q.CreateNotification(ctx, models.CreateNotificationParams{
		UserID: u.ID, Type: models.TypeSystem, Title: "t", Message: "m", CreatedAt: now.Add(time.Second),
	})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	unread, err := q.CountUnread(ctx, u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, unread)

	list, total, err := q.ListNotifications(ctx, models.ListNotificationsParams{UserID: u.ID, Limit: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, list, 1)
	require.Equal(t, second.ID, list[0].ID)
	require.Nil(t, list[0].Data)

	read, err := q.MarkNotificationRead(ctx, u.ID, first.ID, now)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.JSONEq(t, `{"courseId":3}`, string(read.Data))

	list, total, err = q.ListNotifications(ctx, models.ListNotificationsParams{UserID: u.ID, UnreadOnly: true})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, second.ID, list[0].ID)

	n, err := q.DeleteReadNotifications(ctx, u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = q.MarkAllRead(ctx, u.ID, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	require.NoError(t, q.DeleteNotification(ctx, u.ID, second.ID))
	require.ErrorIs(t, q.DeleteNotification(ctx, u.ID, second.ID), models.ErrNotFound)
}

func TestNotificationsAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	q := openQueries(t)
	owner := createUser(t, q, "ann", true)
	other := createUser(t, q, "bob", true)

	n, err := q.CreateNotification(ctx, models.CreateNotificationParams{
		UserID: owner.ID, Type: models.TypeSystem, Title: "t", Message: "m", CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	_, err = q.MarkNotificationRead(ctx, other.ID, n.ID, time.Now())
	require.ErrorIs(t, err, models.ErrNotFound)
	require.ErrorIs(t, q.DeleteNotification(ctx, other.ID, n.ID), models.ErrNotFound)
}

func TestCreateNotificationUnknownUserFails(t *testing.T) {
	q := openQueries(t)

	_, err := q.CreateNotification(context.Background(), models.CreateNotificationParams{
		UserID: 999, Type: models.TypeSystem, Title: "t", Message: "m", CreatedAt: time.Now(),
	})
	require.Error(t, err)
}
