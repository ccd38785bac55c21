package types

import (
	"time"

	"github.com/google/uuid"
)

// NewRequestID generates a unique identifier for request correlation.
func NewRequestID() string {
	return uuid.NewString()
}

// Common response types

type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// Notification types

// NotificationPage is one page of a user's notifications.
type NotificationPage struct {
	Notifications any   `json:"notifications"`
	TotalCount    int64 `json:"totalCount"`
	CurrentPage   int   `json:"currentPage"`
	TotalPages    int   `json:"totalPages"`
}

// NewNotificationPage computes the page envelope for total rows at limit
// per page.
func NewNotificationPage(items any, total int64, page, limit int) NotificationPage {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return NotificationPage{
		Notifications: items,
		TotalCount:    total,
		CurrentPage:   page,
		TotalPages:    pages,
	}
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

type AffectedResponse struct {
	Success  bool  `json:"success"`
	Affected int64 `json:"affected"`
}

type PresenceResponse struct {
	UserID  int64 `json:"userId"`
	Online  bool  `json:"online"`
	Sockets int   `json:"sockets"`
}

// Domain event ingress

type CourseRef struct {
	ID    int64  `json:"id" binding:"required"`
	Title string `json:"title" binding:"required"`
}

type PersonRef struct {
	ID   int64  `json:"id" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type PaymentRef struct {
	ID     int64   `json:"id" binding:"required"`
	Amount float64 `json:"amount"`
}

// EventRequest is the body of POST /v1/events/:kind. Which fields are
// required depends on the kind.
type EventRequest struct {
	RecipientID    int64       `json:"recipientId" binding:"required,gt=0"`
	Course         *CourseRef  `json:"course"`
	Student        *PersonRef  `json:"student"`
	From           *PersonRef  `json:"from"`
	Payment        *PaymentRef `json:"payment"`
	EnrollmentType string      `json:"enrollmentType" binding:"omitempty,oneof=free paid"`
}

// Admin types

type AdminSendRequest struct {
	UserIDs []int64        `json:"user_ids" binding:"required,min=1,dive,gt=0"`
	Type    string         `json:"type" binding:"required"`
	Title   string         `json:"title" binding:"required,max=255"`
	Message string         `json:"message" binding:"required"`
	Data    map[string]any `json:"data"`
}

type AdminSendResponse struct {
	Success bool    `json:"success"`
	Sent    int     `json:"sent"`
	IDs     []int64 `json:"ids"`
}

type HealthResponse struct {
	Status  string    `json:"status"`
	Node    string    `json:"node"`
	Sockets int       `json:"sockets"`
	Time    time.Time `json:"time"`
}
