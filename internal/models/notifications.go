package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
)

var notificationColumns = []string{
	"id", "user_id", "type", "title", "message", "data", "is_read", "created_at", "updated_at",
}

// CreateNotificationParams holds the columns of a new notification.
type CreateNotificationParams struct {
	UserID    int64
	Type      NotificationType
	Title     string
	Message   string
	Data      json.RawMessage
	CreatedAt time.Time
}

// CreateNotification inserts one unread notification and returns it.
func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	createdAt := arg.CreatedAt.UTC()
	query, args, err := q.sb.Insert("notifications").
		Columns("user_id", "type", "title", "message", "data", "is_read", "created_at", "updated_at").
		Values(arg.UserID, string(arg.Type), arg.Title, arg.Message, nullableJSON(arg.Data), false, createdAt, createdAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return Notification{}, fmt.Errorf("failed to build sql query: %w", err)
	}

	var id int64
	if err := q.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return Notification{}, err
	}

	n := Notification{
		ID:        id,
		UserID:    arg.UserID,
		Type:      arg.Type,
		Title:     arg.Title,
		Message:   arg.Message,
		IsRead:    false,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if nullableJSON(arg.Data) != nil {
		n.Data = arg.Data
	}
	return n, nil
}

// GetNotification returns a notification owned by userID.
func (q *Queries) GetNotification(ctx context.Context, userID, id int64) (Notification, error) {
	return q.getNotification(ctx, sq.Eq{"id": id, "user_id": userID})
}

func (q *Queries) getNotification(ctx context.Context, where sq.Sqlizer) (Notification, error) {
	query, args, err := q.sb.Select(notificationColumns...).
		From("notifications").
		Where(where).
		ToSql()
	if err != nil {
		return Notification{}, fmt.Errorf("failed to build sql query: %w", err)
	}

	var row notificationRow
	if err := q.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Notification{}, ErrNotFound
		}
		return Notification{}, err
	}
	return row.toModel(), nil
}

// DefaultPageSize applies when a listing does not ask for a page size.
const DefaultPageSize = 20

// ListNotificationsParams selects one page of a user's notifications.
type ListNotificationsParams struct {
	UserID     int64
	UnreadOnly bool
	Limit      uint64
	Offset     uint64
}

// ListNotifications returns a page of notifications, newest first, and the
// total number matching the filter.
func (q *Queries) ListNotifications(ctx context.Context, arg ListNotificationsParams) ([]Notification, int64, error) {
	if arg.Limit == 0 {
		arg.Limit = DefaultPageSize
	}
	where := sq.Eq{"user_id": arg.UserID}
	if arg.UnreadOnly {
		where["is_read"] = false
	}

	total, err := q.count(ctx, where)
	if err != nil {
		return nil, 0, err
	}

	query, args, err := q.sb.Select(notificationColumns...).
		From("notifications").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(arg.Limit).
		Offset(arg.Offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build sql query: %w", err)
	}

	var rows []notificationRow
	if err := q.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}

	out := make([]Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, total, nil
}

// CountUnread returns the number of unread notifications for userID.
func (q *Queries) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return q.count(ctx, sq.Eq{"user_id": userID, "is_read": false})
}

func (q *Queries) count(ctx context.Context, where sq.Sqlizer) (int64, error) {
	query, args, err := q.sb.Select("COUNT(*)").
		From("notifications").
		Where(where).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build sql query: %w", err)
	}

	var n int64
	if err := q.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// MarkNotificationRead marks one of userID's notifications as read and
// returns the updated row.
func (q *Queries) MarkNotificationRead(ctx context.Context, userID, id int64, at time.Time) (Notification, error) {
	query, args, err := q.sb.Update("notifications").
		Set("is_read", true).
		Set("updated_at", at.UTC()).
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return Notification{}, fmt.Errorf("failed to build sql query: %w", err)
	}

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Notification{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Notification{}, ErrNotFound
	}
	return q.GetNotification(ctx, userID, id)
}

// MarkAllRead marks every unread notification of userID as read and returns
// how many rows changed.
func (q *Queries) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	query, args, err := q.sb.Update("notifications").
		Set("is_read", true).
		Set("updated_at", at.UTC()).
		Where(sq.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build sql query: %w", err)
	}
	return q.exec(ctx, query, args)
}

// DeleteNotification removes one of userID's notifications.
func (q *Queries) DeleteNotification(ctx context.Context, userID, id int64) error {
	n, err := q.deleteWhere(ctx, sq.Eq{"id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReadNotifications removes every read notification of userID.
func (q *Queries) DeleteReadNotifications(ctx context.Context, userID int64) (int64, error) {
	return q.deleteWhere(ctx, sq.Eq{"user_id": userID, "is_read": true})
}

func (q *Queries) deleteWhere(ctx context.Context, where sq.Sqlizer) (int64, error) {
	query, args, err := q.sb.Delete("notifications").Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build sql query: %w", err)
	}
	return q.exec(ctx, query, args)
}

func (q *Queries) exec(ctx context.Context, query string, args []any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
