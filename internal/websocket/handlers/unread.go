package handlers

import (
	"context"

	"github.com/bhandras/studyhall/internal/logger"
)

// UnreadCountPayload answers a get_unread_count request.
type UnreadCountPayload struct {
	Count int64 `json:"count"`
}

// UnreadCountError is the ACK payload when the count cannot be read.
type UnreadCountError struct {
	Error string `json:"error"`
}

// UnreadCount replies to get_unread_count with the caller's unread total, both
// as an ACK and as an unread_count event.
func UnreadCount(ctx context.Context, deps Deps, auth AuthContext) EventResult {
	if auth.Anonymous() {
		return NewEventResult(UnreadCountError{Error: "Authentication required"}, nil)
	}

	count, err := deps.Notifications().CountUnread(ctx, auth.UserID())
	if err != nil {
		logger.Errorf("Failed to count unread notifications for user %d: %v", auth.UserID(), err)
		return NewEventResult(UnreadCountError{Error: "Failed to get unread count"}, nil)
	}

	payload := UnreadCountPayload{Count: count}
	return NewEventResult(payload, []EmitInstruction{
		newSelfEmit("unread_count", payload),
	})
}
