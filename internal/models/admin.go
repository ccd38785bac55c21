package models

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// AdminFilter narrows the cross-user notification listing.
type AdminFilter struct {
	UserID    *int64
	Type      NotificationType
	IsRead    *bool
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	SortBy    string
	SortDesc  bool
	Limit     uint64
	Offset    uint64
}

var adminSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"is_read":    true,
	"type":       true,
}

// AdminNotification is a notification joined with its recipient.
type AdminNotification struct {
	Notification
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

type adminRow struct {
	notificationRow
	UserName  *string `db:"user_name"`
	UserEmail *string `db:"user_email"`
}

func (r adminRow) toModel() AdminNotification {
	out := AdminNotification{Notification: r.notificationRow.toModel()}
	if r.UserName != nil {
		out.UserName = *r.UserName
	}
	if r.UserEmail != nil {
		out.UserEmail = *r.UserEmail
	}
	return out
}

func dateRange(start, end *time.Time) sq.And {
	var where sq.And
	if start != nil {
		where = append(where, sq.GtOrEq{"n.created_at": start.UTC()})
	}
	if end != nil {
		where = append(where, sq.LtOrEq{"n.created_at": end.UTC()})
	}
	return where
}

func (f AdminFilter) where() sq.And {
	where := dateRange(f.StartDate, f.EndDate)
	if f.UserID != nil {
		where = append(where, sq.Eq{"n.user_id": *f.UserID})
	}
	if f.Type != "" {
		where = append(where, sq.Eq{"n.type": string(f.Type)})
	}
	if f.IsRead != nil {
		where = append(where, sq.Eq{"n.is_read": *f.IsRead})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		where = append(where, sq.Or{
			sq.Expr("LOWER(n.title) LIKE ?", pattern),
			sq.Expr("LOWER(n.message) LIKE ?", pattern),
		})
	}
	return where
}

func (q *Queries) adminSelect(where sq.Sqlizer) sq.SelectBuilder {
	return q.sb.Select(
		"n.id", "n.user_id", "n.type", "n.title", "n.message", "n.data",
		"n.is_read", "n.created_at", "n.updated_at",
		"u.name AS user_name", "u.email AS user_email",
	).
		From("notifications n").
		LeftJoin("users u ON u.id = n.user_id").
		Where(where)
}

// AdminListNotifications lists notifications across all users.
func (q *Queries) AdminListNotifications(ctx context.Context, f AdminFilter) ([]AdminNotification, int64, error) {
	if f.Limit == 0 {
		f.Limit = DefaultPageSize
	}
	where := f.where()

	countQuery, countArgs, err := q.sb.Select("COUNT(*)").From("notifications n").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build sql query: %w", err)
	}
	var total int64
	if err := q.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}

	sortBy := f.SortBy
	if !adminSortColumns[sortBy] {
		sortBy = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}

	query, args, err := q.adminSelect(where).
		OrderBy(fmt.Sprintf("n.%s %s", sortBy, dir), "n.id "+dir).
		Limit(f.Limit).
		Offset(f.Offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build sql query: %w", err)
	}

	rows, err := q.selectAdmin(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (q *Queries) selectAdmin(ctx context.Context, query string, args []any) ([]AdminNotification, error) {
	var rows []adminRow
	if err := q.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]AdminNotification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// AdminGetNotification returns any notification by id.
func (q *Queries) AdminGetNotification(ctx context.Context, id int64) (Notification, error) {
	return q.getNotification(ctx, sq.Eq{"id": id})
}

// AdminDeleteNotification removes any notification by id.
func (q *Queries) AdminDeleteNotification(ctx context.Context, id int64) error {
	n, err := q.deleteWhere(ctx, sq.Eq{"id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TypeCount is the number of notifications of one type.
type TypeCount struct {
	Type  NotificationType `db:"type" json:"type"`
	Count int64            `db:"count" json:"count"`
}

// NotificationStats summarizes notifications created in a time range.
type NotificationStats struct {
	Total   int64               `json:"totalNotifications"`
	Unread  int64               `json:"unreadNotifications"`
	Read    int64               `json:"readNotifications"`
	ReadPct float64             `json:"readRate"`
	ByType  []TypeCount         `json:"notificationsByType"`
	Recent  []AdminNotification `json:"recentNotifications"`
}

// NotificationStatistics computes totals, the read rate, per-type counts and
// the ten most recent notifications.
func (q *Queries) NotificationStatistics(ctx context.Context, start, end *time.Time) (NotificationStats, error) {
	where := dateRange(start, end)
	var stats NotificationStats

	countWhere := func(extra sq.Sqlizer) (int64, error) {
		cond := append(sq.And{}, where...)
		if extra != nil {
			cond = append(cond, extra)
		}
		query, args, err := q.sb.Select("COUNT(*)").From("notifications n").Where(cond).ToSql()
		if err != nil {
			return 0, fmt.Errorf("failed to build sql query: %w", err)
		}
		var n int64
		err = q.db.GetContext(ctx, &n, query, args...)
		return n, err
	}

	var err error
	if stats.Total, err = countWhere(nil); err != nil {
		return stats, err
	}
	if stats.Unread, err = countWhere(sq.Eq{"n.is_read": false}); err != nil {
		return stats, err
	}
	if stats.Read, err = countWhere(sq.Eq{"n.is_read": true}); err != nil {
		return stats, err
	}
	if stats.Total > 0 {
		stats.ReadPct = math.Round(float64(stats.Read)/float64(stats.Total)*10000) / 100
	}

	query, args, err := q.sb.Select("n.type AS type", "COUNT(*) AS count").
		From("notifications n").
		Where(where).
		GroupBy("n.type").
		OrderBy("n.type").
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("failed to build sql query: %w", err)
	}
	stats.ByType = []TypeCount{}
	if err := q.db.SelectContext(ctx, &stats.ByType, query, args...); err != nil {
		return stats, err
	}

	query, args, err = q.adminSelect(where).
		OrderBy("n.created_at DESC", "n.id DESC").
		Limit(10).
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("failed to build sql query: %w", err)
	}
	if stats.Recent, err = q.selectAdmin(ctx, query, args); err != nil {
		return stats, err
	}
	return stats, nil
}

// CountUsers returns how many of ids exist.
func (q *Queries) CountUsers(ctx context.Context, ids []int64) (int64, error) {
	query, args, err := q.sb.Select("COUNT(*)").From("users").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build sql query: %w", err)
	}
	var n int64
	if err := q.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}
