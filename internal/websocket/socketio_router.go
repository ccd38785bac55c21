package websocket

import (
	"context"

	"github.com/bhandras/studyhall/internal/logger"
	"github.com/bhandras/studyhall/internal/websocket/handlers"
)

func (s *SocketIOServer) emitHandlerResult(caller Conn, result handlers.EventResult) {
	for _, emit := range result.Emits() {
		switch {
		case emit.IsSelf():
			caller.Emit(emit.Event(), emit.Payload())
		case emit.IsAll():
			skipSocketID := ""
			if emit.SkipSelf() {
				skipSocketID = caller.ID()
			}
			s.rooms.BroadcastAll(emit.Event(), emit.Payload(), skipSocketID)
		}
	}
}

// onAuthedAck builds a listener that runs handler for sockets that finished
// authentication, ACKs the result and performs its emissions.
func (s *SocketIOServer) onAuthedAck(
	conn Conn,
	event string,
	handler func(context.Context, handlers.Deps, handlers.AuthContext) handlers.EventResult,
) func(...any) {
	return func(data ...any) {
		_, ack := getFirstAnyWithAck(data)

		sess := s.getSession(conn.ID())
		if sess == nil || sess.State() != StateAuthenticated {
			logger.Debugf("Ignoring %s from unauthenticated socket %s", event, conn.ID())
			if ack != nil {
				ack(map[string]string{"error": "Authentication required"})
			}
			return
		}

		result := handler(context.Background(), s.deps, authContext(sess.Identity(), conn.ID()))
		if ack != nil && result.Ack() != nil {
			ack(result.Ack())
		}
		s.emitHandlerResult(conn, result)
	}
}
