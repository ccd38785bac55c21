package handlers

import (
	"context"

	"github.com/bhandras/studyhall/internal/logger"
)

// DisconnectEffects applies disconnect-side effects for an authenticated
// socket. When it was the user's last socket the online flag is cleared and
// the remaining sockets are told the user went offline.
func DisconnectEffects(ctx context.Context, deps Deps, auth AuthContext, lastSession bool) EventResult {
	if auth.Anonymous() || !lastSession {
		return NewEventResult(nil, nil)
	}

	MarkOffline(ctx, deps, auth.UserID())

	return NewEventResult(nil, []EmitInstruction{
		newBroadcastSkippingSelf("user_offline", PresencePayload{
			UserID: auth.UserID(),
			Name:   auth.Name(),
		}),
	})
}

// MarkOffline clears the persisted online flag. Failures are logged only.
func MarkOffline(ctx context.Context, deps Deps, userID int64) {
	if deps.Users() == nil || userID <= 0 {
		return
	}
	if err := deps.Users().SetUserOnline(ctx, userID, false, deps.Now()); err != nil {
		logger.Warnf("Failed to clear online flag for user %d: %v", userID, err)
	}
}
