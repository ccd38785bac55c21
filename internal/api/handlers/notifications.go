package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bhandras/studyhall/internal/auth"
	"github.com/bhandras/studyhall/internal/logger"
	"github.com/bhandras/studyhall/internal/models"
	"github.com/bhandras/studyhall/pkg/types"
	"github.com/gin-gonic/gin"
)

// NotificationStore is the subset of queries the notification routes use.
type NotificationStore interface {
	ListNotifications(ctx context.Context, arg models.ListNotificationsParams) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkNotificationRead(ctx context.Context, userID, id int64, at time.Time) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
	DeleteNotification(ctx context.Context, userID, id int64) error
	DeleteReadNotifications(ctx context.Context, userID int64) (int64, error)
}

type NotificationsHandler struct {
	store NotificationStore
	rooms RoomEmitter
	now   func() time.Time
}

// NewNotificationsHandler builds the per-user notification routes. rooms may
// be nil; when set, other devices of the user get a fresh unread_count after
// every change.
func NewNotificationsHandler(store NotificationStore, rooms RoomEmitter) *NotificationsHandler {
	return &NotificationsHandler{store: store, rooms: rooms, now: time.Now}
}

// Register mounts the notification routes. PUT /notifications/read-all and
// DELETE /notifications/read/all are kept for older clients.
func (h *NotificationsHandler) Register(r gin.IRoutes) {
	r.GET("/notifications", h.List)
	r.GET("/notifications/unread-count", h.UnreadCount)
	r.PUT("/notifications/:id/read", h.MarkRead)
	r.POST("/notifications/read-all", h.MarkAllRead)
	r.PUT("/notifications/read-all", h.MarkAllRead)
	r.DELETE("/notifications/:id", h.Delete)
	r.DELETE("/notifications", h.DeleteRead)
	r.DELETE("/notifications/read/all", h.DeleteRead)
}

// List handles GET /v1/notifications?page&limit&unreadOnly.
func (h *NotificationsHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, limit := pagination(c)
	unreadOnly, _ := queryBool(c, "unreadOnly")

	items, total, err := h.store.ListNotifications(c.Request.Context(), models.ListNotificationsParams{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Limit:      uint64(limit),
		Offset:     offset(page, limit),
	})
	if err != nil {
		logger.Errorf("Failed to list notifications for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to list notifications"})
		return
	}

	c.JSON(http.StatusOK, types.NewNotificationPage(items, total, page, limit))
}

// UnreadCount handles GET /v1/notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	count, err := h.store.CountUnread(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("Failed to count unread notifications for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to get unread count"})
		return
	}
	c.JSON(http.StatusOK, types.UnreadCountResponse{Count: count})
}

// MarkRead handles PUT /v1/notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	n, err := h.store.MarkNotificationRead(c.Request.Context(), userID, id, h.now())
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "notification not found"})
		return
	}
	if err != nil {
		logger.Errorf("Failed to mark notification %d read: %v", id, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to mark notification as read"})
		return
	}

	h.pushUnreadCount(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"success": true, "notification": n})
}

// MarkAllRead handles POST /v1/notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.store.MarkAllRead(c.Request.Context(), userID, h.now())
	if err != nil {
		logger.Errorf("Failed to mark all notifications read for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to mark notifications as read"})
		return
	}

	h.pushUnreadCount(c.Request.Context(), userID)
	c.JSON(http.StatusOK, types.AffectedResponse{Success: true, Affected: n})
}

// Delete handles DELETE /v1/notifications/:id.
func (h *NotificationsHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	err := h.store.DeleteNotification(c.Request.Context(), userID, id)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "notification not found"})
		return
	}
	if err != nil {
		logger.Errorf("Failed to delete notification %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to delete notification"})
		return
	}

	h.pushUnreadCount(c.Request.Context(), userID)
	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// DeleteRead handles DELETE /v1/notifications.
func (h *NotificationsHandler) DeleteRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.store.DeleteReadNotifications(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("Failed to delete read notifications for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to delete notifications"})
		return
	}
	c.JSON(http.StatusOK, types.AffectedResponse{Success: true, Affected: n})
}

func (h *NotificationsHandler) pushUnreadCount(ctx context.Context, userID int64) {
	if h.rooms == nil {
		return
	}
	count, err := h.store.CountUnread(ctx, userID)
	if err != nil {
		logger.Warnf("Failed to refresh unread count for user %d: %v", userID, err)
		return
	}
	h.rooms.EmitToRoom(auth.NumericSubject(userID).Room(), "unread_count", types.UnreadCountResponse{Count: count})
}
