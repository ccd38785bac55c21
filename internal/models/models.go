// Package models holds the persisted records and the queries over them.
package models

import (
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a row does not exist or is not visible to the
// caller.
var ErrNotFound = errors.New("not found")

// User is the read projection of an account.
type User struct {
	ID         int64      `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Email      string     `db:"email" json:"email"`
	Role       string     `db:"role" json:"role"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	IsOnline   bool       `db:"is_online" json:"is_online"`
	LastSeenAt *time.Time `db:"last_seen_at" json:"last_seen_at"`
}

// NotificationType enumerates the kinds of notification a user can receive.
type NotificationType string

const (
	TypeNewEnrollment    NotificationType = "new_enrollment"
	TypePaymentConfirmed NotificationType = "payment_confirmed"
	TypeNewPayment       NotificationType = "new_payment"
	TypeFriendRequest    NotificationType = "friend_request"
	TypeFriendAccepted   NotificationType = "friend_accepted"
	TypeFriendDeclined   NotificationType = "friend_declined"
	TypeRoomInvite       NotificationType = "room_invite"
	TypeRoomCreated      NotificationType = "room_created"
	TypeMessage          NotificationType = "message"
	TypeSystem           NotificationType = "system"
	TypeAchievement      NotificationType = "achievement"
	TypeContest          NotificationType = "contest"
)

// NotificationTypes lists every known type in a stable order.
var NotificationTypes = []NotificationType{
	TypeNewEnrollment, TypePaymentConfirmed, TypeNewPayment,
	TypeFriendRequest, TypeFriendAccepted, TypeFriendDeclined,
	TypeRoomInvite, TypeRoomCreated, TypeMessage,
	TypeSystem, TypeAchievement, TypeContest,
}

// Valid reports whether t is one of NotificationTypes.
func (t NotificationType) Valid() bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Notification is a persisted message addressed to one user.
type Notification struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Data      json.RawMessage  `db:"data" json:"data"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// notificationRow is the scan target for notifications; data is nullable
// text on SQLite and JSONB on Postgres.
type notificationRow struct {
	ID        int64          `db:"id"`
	UserID    int64          `db:"user_id"`
	Type      string         `db:"type"`
	Title     string         `db:"title"`
	Message   string         `db:"message"`
	Data      sql.NullString `db:"data"`
	IsRead    bool           `db:"is_read"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r notificationRow) toModel() Notification {
	n := Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      NotificationType(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.Data.Valid {
		n.Data = json.RawMessage(r.Data.String)
	}
	return n
}

// Queries runs typed statements against the database. The placeholder
// format follows the driver: "?" for SQLite and "$n" for Postgres.
type Queries struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// New returns Queries bound to db.
func New(db *sqlx.DB) *Queries {
	ph := sq.PlaceholderFormat(sq.Question)
	if db.DriverName() == "pgx" || db.DriverName() == "postgres" {
		ph = sq.Dollar
	}
	return &Queries{db: db, sb: sq.StatementBuilder.PlaceholderFormat(ph)}
}

// nullableJSON maps an empty payload to SQL NULL.
func nullableJSON(data json.RawMessage) any {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return string(data)
}
