package handlers

import "context"

// AuthenticatedPayload is sent to a socket once its handshake is accepted.
type AuthenticatedPayload struct {
	UserID any    `json:"userId"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
}

// PresencePayload announces a user coming online or going offline.
type PresencePayload struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name,omitempty"`
}

// ConnectEffects builds the emissions for a freshly authenticated socket. The
// caller reports whether this socket is the first one of its user, in which
// case every other socket is told the user came online.
func ConnectEffects(ctx context.Context, deps Deps, auth AuthContext, firstSession bool) EventResult {
	if auth.Anonymous() {
		return NewEventResult(nil, []EmitInstruction{
			newSelfEmit("authenticated", AuthenticatedPayload{UserID: nil}),
		})
	}

	emits := []EmitInstruction{
		newSelfEmit("authenticated", AuthenticatedPayload{
			UserID: auth.UserID(),
			Name:   auth.Name(),
			Role:   auth.Role(),
		}),
	}
	if firstSession {
		emits = append(emits, newBroadcastSkippingSelf("user_online", PresencePayload{
			UserID: auth.UserID(),
			Name:   auth.Name(),
		}))
	}
	return NewEventResult(nil, emits)
}
