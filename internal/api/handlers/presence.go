package handlers

import (
	"net/http"

	"github.com/bhandras/studyhall/internal/auth"
	"github.com/bhandras/studyhall/pkg/types"
	"github.com/gin-gonic/gin"
)

// RoomCounter reports how many local sockets joined a room.
type RoomCounter interface {
	RoomSize(room string) int
}

type PresenceHandler struct {
	rooms RoomCounter
}

func NewPresenceHandler(rooms RoomCounter) *PresenceHandler {
	return &PresenceHandler{rooms: rooms}
}

// Get handles GET /v1/presence/:userId. Room membership on this node is
// authoritative; the persisted online flag is not consulted.
func (h *PresenceHandler) Get(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	sockets := h.rooms.RoomSize(auth.NumericSubject(userID).Room())
	c.JSON(http.StatusOK, types.PresenceResponse{
		UserID:  userID,
		Online:  sockets > 0,
		Sockets: sockets,
	})
}
