package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/bhandras/studyhall/internal/auth"
	"github.com/bhandras/studyhall/internal/models"
	"github.com/bhandras/studyhall/internal/websocket/handlers"
)

type emission struct {
	event string
	args  []any
}

type fakeConn struct {
	id string

	mu       sync.Mutex
	emitted  []emission
	closed   bool
	closedCh chan struct{}
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, closedCh: make(chan struct{})}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Emit(event string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitted = append(c.emitted, emission{event: event, args: args})
}

func (c *fakeConn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.closedCh)
	}
}

func (c *fakeConn) events(name string) []emission {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []emission
	for _, e := range c.emitted {
		if e.event == name {
			out = append(out, e)
		}
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeAuthenticator struct {
	authenticate func(ctx context.Context, h auth.Handshake) (auth.Identity, error)
	optional     func(ctx context.Context, h auth.Handshake) (auth.Identity, error)
}

func (f fakeAuthenticator) Authenticate(ctx context.Context, h auth.Handshake) (auth.Identity, error) {
	return f.authenticate(ctx, h)
}

func (f fakeAuthenticator) AuthenticateOptional(ctx context.Context, h auth.Handshake) (auth.Identity, error) {
	return f.optional(ctx, h)
}

// tokenAuthenticator admits auth.token values found in its table.
func tokenAuthenticator(users map[string]auth.Identity) fakeAuthenticator {
	check := func(ctx context.Context, h auth.Handshake) (auth.Identity, error) {
		token, _ := h.Auth["token"].(string)
		if token == "" {
			return auth.Identity{}, &auth.Failure{Type: auth.FailureNoToken, Message: "Authentication required - no token provided"}
		}
		id, ok := users[token]
		if !ok {
			return auth.Identity{}, &auth.Failure{Type: auth.FailureMalformedToken, Message: "Malformed authentication token"}
		}
		return id, nil
	}
	return fakeAuthenticator{
		authenticate: check,
		optional: func(ctx context.Context, h auth.Handshake) (auth.Identity, error) {
			if _, ok := h.Auth["token"]; !ok {
				return auth.Identity{Anonymous: true}, nil
			}
			return check(ctx, h)
		},
	}
}

type onlineWrite struct {
	id     int64
	online bool
}

type fakeUserQueries struct {
	mu     sync.Mutex
	writes []onlineWrite
}

func (f *fakeUserQueries) SetUserOnline(ctx context.Context, id int64, online bool, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, onlineWrite{id: id, online: online})
	return nil
}

func (f *fakeUserQueries) snapshot() []onlineWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]onlineWrite(nil), f.writes...)
}

type fakeNotificationQueries struct {
	countUnread func(ctx context.Context, userID int64) (int64, error)
}

func (f fakeNotificationQueries) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return f.countUnread(ctx, userID)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (f *fakePublisher) Publish(room, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, room+"/"+event)
	return f.err
}

func identity(id int64, name string) auth.Identity {
	return auth.Identity{
		Subject: auth.NumericSubject(id),
		User:    models.User{ID: id, Name: name, Role: "student", IsActive: true, IsOnline: true},
	}
}

func newTestServer(authn Authenticator, users *fakeUserQueries, opts Options) *SocketIOServer {
	deps := handlers.NewDeps(users, fakeNotificationQueries{countUnread: func(ctx context.Context, userID int64) (int64, error) {
		return 4, nil
	}}, func() time.Time { return time.Unix(1700000000, 0) })
	return newSocketIOServer(authn, deps, NewRoomRegistry(), opts)
}

// connect runs a socket through authentication and waits for it to settle.
func connect(s *SocketIOServer, conn *fakeConn, token string) *Session {
	h := auth.Handshake{}
	if token != "" {
		h.Auth = map[string]any{"token": token}
	}
	sess := s.accept(conn, h)
	s.authWG.Wait()
	return sess
}
