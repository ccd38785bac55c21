package websocket

import (
	"github.com/bhandras/studyhall/internal/websocket/handlers"
	socket "github.com/zishang520/socket.io/servers/socket/v3"
)

func (s *SocketIOServer) registerClientHandlers(client *socket.Socket, conn Conn) {
	client.On("get_unread_count", s.onAuthedAck(conn, "get_unread_count", handlers.UnreadCount))

	client.On("disconnect", func(data ...any) {
		reason := ""
		if len(data) > 0 {
			if r, ok := data[0].(string); ok {
				reason = r
			}
		}
		s.disconnect(conn, reason)
	})
}
