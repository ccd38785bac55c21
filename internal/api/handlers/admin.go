package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bhandras/studyhall/internal/logger"
	"github.com/bhandras/studyhall/internal/models"
	"github.com/bhandras/studyhall/internal/notify"
	"github.com/bhandras/studyhall/pkg/types"
	"github.com/gin-gonic/gin"
)

// AdminStore is the subset of queries the admin routes use.
type AdminStore interface {
	AdminListNotifications(ctx context.Context, f models.AdminFilter) ([]models.AdminNotification, int64, error)
	AdminGetNotification(ctx context.Context, id int64) (models.Notification, error)
	AdminDeleteNotification(ctx context.Context, id int64) error
	NotificationStatistics(ctx context.Context, start, end *time.Time) (models.NotificationStats, error)
	CountUsers(ctx context.Context, ids []int64) (int64, error)
}

// Dispatcher creates and delivers one notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipientID int64, typ models.NotificationType, title, message string, data any) (models.Notification, error)
}

type AdminHandler struct {
	store      AdminStore
	dispatcher Dispatcher
}

func NewAdminHandler(store AdminStore, dispatcher Dispatcher) *AdminHandler {
	return &AdminHandler{store: store, dispatcher: dispatcher}
}

// List handles GET /v1/admin/notifications.
func (h *AdminHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	filter := models.AdminFilter{
		Type:     models.NotificationType(c.Query("type")),
		Search:   c.Query("search"),
		SortBy:   c.DefaultQuery("sortBy", "created_at"),
		SortDesc: !strings.EqualFold(c.Query("sortOrder"), "asc"),
		Limit:    uint64(limit),
		Offset:   offset(page, limit),
	}

	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid user_id"})
			return
		}
		filter.UserID = &id
	}
	if isRead, ok := queryBool(c, "is_read"); ok {
		filter.IsRead = &isRead
	}

	var err error
	if filter.StartDate, err = queryTime(c, "start_date", false); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid start_date"})
		return
	}
	if filter.EndDate, err = queryTime(c, "end_date", true); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid end_date"})
		return
	}

	items, total, err := h.store.AdminListNotifications(c.Request.Context(), filter)
	if err != nil {
		logger.Errorf("Admin notification listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, types.NewNotificationPage(items, total, page, limit))
}

// Stats handles GET /v1/admin/notifications/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	start, err := queryTime(c, "start_date", false)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid start_date"})
		return
	}
	end, err := queryTime(c, "end_date", true)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid end_date"})
		return
	}

	stats, err := h.store.NotificationStatistics(c.Request.Context(), start, end)
	if err != nil {
		logger.Errorf("Notification statistics failed: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to compute statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Get handles GET /v1/admin/notifications/:id.
func (h *AdminHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.store.AdminGetNotification(c.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "notification not found"})
		return
	}
	if err != nil {
		logger.Errorf("Admin get notification %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to get notification"})
		return
	}
	c.JSON(http.StatusOK, n)
}

// Delete handles DELETE /v1/admin/notifications/:id.
func (h *AdminHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.store.AdminDeleteNotification(c.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "notification not found"})
		return
	}
	if err != nil {
		logger.Errorf("Admin delete notification %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to delete notification"})
		return
	}
	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// Send handles POST /v1/admin/notifications: one notification per listed
// user.
func (h *AdminHandler) Send(c *gin.Context) {
	var req types.AdminSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}
	typ := models.NotificationType(req.Type)
	if !typ.Valid() {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid notification type"})
		return
	}

	ids := slices.Clone(req.UserIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	ctx := c.Request.Context()
	found, err := h.store.CountUsers(ctx, ids)
	if err != nil {
		logger.Errorf("Failed to validate recipients: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to validate recipients"})
		return
	}
	if found != int64(len(ids)) {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "some users do not exist"})
		return
	}

	var data any
	if len(req.Data) > 0 {
		data = req.Data
	}

	resp := types.AdminSendResponse{IDs: make([]int64, 0, len(ids))}
	for _, userID := range ids {
		n, err := h.dispatcher.Dispatch(ctx, userID, typ, req.Title, req.Message, data)
		if err != nil {
			logger.Errorf("Admin send to user %d failed: %v", userID, err)
			resp.Sent = len(resp.IDs)
			status := http.StatusInternalServerError
			if !errors.Is(err, notify.ErrPersistenceFailed) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{
				"error":   "failed to send notification",
				"sent":    resp.Sent,
				"ids":     resp.IDs,
				"user_id": userID,
			})
			return
		}
		resp.IDs = append(resp.IDs, n.ID)
	}

	resp.Success = true
	resp.Sent = len(resp.IDs)
	c.JSON(http.StatusCreated, resp)
}
