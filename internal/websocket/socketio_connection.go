package websocket

import (
	"context"
	"errors"
	"slices"

	"github.com/bhandras/studyhall/internal/auth"
	"github.com/bhandras/studyhall/internal/logger"
	"github.com/bhandras/studyhall/internal/metrics"
	"github.com/bhandras/studyhall/internal/websocket/handlers"
	socket "github.com/zishang520/socket.io/servers/socket/v3"
)

// clientConn is a live socket the server can also force-close.
type clientConn interface {
	Conn
	Disconnect()
}

type socketConn struct {
	client *socket.Socket
}

func (c socketConn) ID() string { return string(c.client.Id()) }

func (c socketConn) Emit(event string, args ...any) {
	c.client.Emit(event, args...)
}

func (c socketConn) Disconnect() {
	c.client.Disconnect(true)
}

func (s *SocketIOServer) handleConnection(client *socket.Socket) {
	conn := socketConn{client: client}
	s.serve(conn, handshakeFrom(client.Handshake()), func() {
		s.registerClientHandlers(client, conn)
	})
}

// serve stores the session, attaches listeners and then authenticates. A
// disconnect delivered as soon as listeners exist must find the session.
func (s *SocketIOServer) serve(conn clientConn, handshake auth.Handshake, listen func()) *Session {
	sess := s.open(conn, handshake)
	listen()
	s.startAuth(sess, conn, handshake)
	return sess
}

// accept creates the session and authenticates it in the background.
func (s *SocketIOServer) accept(conn clientConn, handshake auth.Handshake) *Session {
	return s.serve(conn, handshake, func() {})
}

func (s *SocketIOServer) open(conn clientConn, handshake auth.Handshake) *Session {
	socketID := conn.ID()
	sess := NewSession(socketID, s.deps.Now())
	s.sessions.Store(socketID, sess)

	logger.Infof("Socket.IO connection attempt (socket ID: %s, address: %s)", socketID, handshake.Address)
	return sess
}

func (s *SocketIOServer) startAuth(sess *Session, conn clientConn, handshake auth.Handshake) {
	s.authWG.Add(1)
	go func() {
		defer s.authWG.Done()
		s.authenticate(sess, conn, handshake)
	}()
}

func (s *SocketIOServer) authenticate(sess *Session, conn clientConn, handshake auth.Handshake) {
	if !sess.BeginAuth() {
		return
	}
	socketID := conn.ID()
	ctx := context.Background()

	var (
		id  auth.Identity
		err error
	)
	switch {
	case s.opts.Limiter != nil && !s.opts.Limiter.Allow(handshake.Address):
		metrics.RateLimited.WithLabelValues("socket").Inc()
		err = &auth.Failure{
			Type:    auth.FailureSystemError,
			Message: "Too many connection attempts - please retry later",
		}
	case s.opts.AllowAnonymous:
		id, err = s.authn.AuthenticateOptional(ctx, handshake)
	default:
		id, err = s.authn.Authenticate(ctx, handshake)
	}

	if err != nil {
		s.reject(sess, conn, err)
		return
	}

	var first bool
	accepted := sess.Accept(id, func() {
		if id.Anonymous {
			s.rooms.Register(conn)
			return
		}
		first = s.rooms.Join(id.Subject.Room(), conn)
	})
	if !accepted {
		// The socket left while the pipeline was running; undo the online
		// flag the gate may have set.
		logger.Debugf("Socket.IO authentication finished after disconnect (socket %s)", socketID)
		if !id.Anonymous && s.rooms.Count(id.Subject.Room()) == 0 {
			handlers.MarkOffline(ctx, s.deps, id.User.ID)
		}
		return
	}

	actx := authContext(id, socketID)
	if id.Anonymous {
		logger.Infof("Socket.IO anonymous client ready (socket %s)", socketID)
	} else {
		logger.Infof("Socket.IO client ready (user: %s, socket: %s)", id.Subject, socketID)
	}

	result := handlers.ConnectEffects(ctx, s.deps, actx, first)
	s.emitHandlerResult(conn, result)
}

func (s *SocketIOServer) reject(sess *Session, conn clientConn, err error) {
	if !sess.Reject() {
		return
	}

	var f *auth.Failure
	if !errors.As(err, &f) {
		f = &auth.Failure{Type: auth.FailureSystemError, Message: "Authentication system error", Err: err}
	}
	logger.Warnf("Socket.IO authentication rejected (socket %s): %s", conn.ID(), f.Type)

	conn.Emit("auth_error", f.ClientError(s.deps.Now()))
	metrics.SocketEmits.WithLabelValues("auth_error").Inc()
	conn.Disconnect()
	s.sessions.Delete(conn.ID())
}

// disconnect tears down a session. Only sessions that reached the
// authenticated state hold room membership.
func (s *SocketIOServer) disconnect(conn Conn, reason string) {
	socketID := conn.ID()
	sess := s.getSession(socketID)
	if sess == nil {
		return
	}

	sess.Close(func(prev SessionState, id auth.Identity) {
		logger.Infof("Socket.IO disconnected (socket %s, state: %s, reason: %s)", socketID, prev, reason)
		if prev != StateAuthenticated {
			return
		}

		emptied := s.rooms.Remove(socketID)
		last := !id.Anonymous && slices.Contains(emptied, id.Subject.Room())
		result := handlers.DisconnectEffects(context.Background(), s.deps, authContext(id, socketID), last)
		s.emitHandlerResult(conn, result)
	})
	s.sessions.Delete(socketID)
}

func authContext(id auth.Identity, socketID string) handlers.AuthContext {
	if id.Anonymous {
		return handlers.NewAnonymousContext(socketID)
	}
	return handlers.NewAuthContext(id.User.ID, id.User.Name, id.User.Role, socketID)
}

// SessionCount returns the number of sockets known to this node, in any
// state.
func (s *SocketIOServer) SessionCount() int {
	n := 0
	s.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
