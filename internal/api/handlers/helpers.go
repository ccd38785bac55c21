package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bhandras/studyhall/internal/api/middleware"
	"github.com/bhandras/studyhall/pkg/types"
	"github.com/gin-gonic/gin"
)

const (
	maxPageSize = 100
	// maxPage keeps (page-1)*limit well inside SQL's signed 64-bit OFFSET.
	maxPage = 1_000_000_000
)

// RoomEmitter pushes an event to a user's live sockets.
type RoomEmitter interface {
	EmitToRoom(room, event string, payload any) int
}

// pagination reads page/limit query parameters.
func pagination(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func offset(page, limit int) uint64 {
	return uint64(page-1) * uint64(limit)
}

func queryBool(c *gin.Context, key string) (bool, bool) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return false, false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}

// queryTime accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func queryTime(c *gin.Context, key string, endOfDay bool) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) (int64, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "authentication required"})
		return 0, false
	}
	return userID, true
}
