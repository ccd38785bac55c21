package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var userColumns = []string{"id", "name", "email", "role", "is_active", "is_online", "last_seen_at"}

// GetUserByID returns the user projection or ErrNotFound.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	query, args, err := q.sb.Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return User{}, fmt.Errorf("failed to build sql query: %w", err)
	}

	var u User
	if err := q.db.GetContext(ctx, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// CreateUserParams holds the columns needed to insert a user.
type CreateUserParams struct {
	Name     string
	Email    string
	Role     string
	IsActive bool
}

// CreateUser inserts a user and returns the stored projection.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	role := arg.Role
	if role == "" {
		role = "student"
	}

	query, args, err := q.sb.Insert("users").
		Columns("name", "email", "role", "is_active", "is_online").
		Values(arg.Name, arg.Email, role, arg.IsActive, false).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return User{}, fmt.Errorf("failed to build sql query: %w", err)
	}

	var id int64
	if err := q.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, id)
}

// SetUserOnline updates the cached online flag and last-seen time. The flag
// is a hint for listings; live presence comes from socket rooms.
func (q *Queries) SetUserOnline(ctx context.Context, id int64, online bool, at time.Time) error {
	query, args, err := q.sb.Update("users").
		Set("is_online", online).
		Set("last_seen_at", at.UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %w", err)
	}

	_, err = q.db.ExecContext(ctx, query, args...)
	return err
}
