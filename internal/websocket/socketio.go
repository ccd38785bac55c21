package websocket

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/bhandras/studyhall/internal/auth"
	"github.com/bhandras/studyhall/internal/logger"
	"github.com/bhandras/studyhall/internal/websocket/handlers"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	socket "github.com/zishang520/socket.io/servers/socket/v3"
	sockettypes "github.com/zishang520/socket.io/v3/pkg/types"
)

const (
	// DefaultPath is where the Socket.IO endpoint is mounted.
	DefaultPath = "/socket.io/"

	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
)

// Authenticator admits or rejects a handshake.
type Authenticator interface {
	Authenticate(ctx context.Context, h auth.Handshake) (auth.Identity, error)
	AuthenticateOptional(ctx context.Context, h auth.Handshake) (auth.Identity, error)
}

// HandshakeLimiter throttles connection attempts per client address.
type HandshakeLimiter interface {
	Allow(key string) bool
}

// Options configures the Socket.IO endpoint.
type Options struct {
	Path           string
	PingInterval   time.Duration
	PingTimeout    time.Duration
	AllowAnonymous bool
	AllowedOrigins []string
	Limiter        HandshakeLimiter
}

// SocketIOServer wraps the Socket.IO server: it authenticates every socket,
// keeps personal rooms and relays room broadcasts across the cluster.
type SocketIOServer struct {
	authn    Authenticator
	server   *socket.Server
	rooms    *RoomRegistry
	sessions sync.Map // socket ID -> *Session
	deps     handlers.Deps
	opts     Options

	mu      sync.RWMutex
	cluster RoomPublisher

	authWG sync.WaitGroup
}

// NewSocketIOServer creates a new Socket.IO v4 server.
func NewSocketIOServer(authn Authenticator, deps handlers.Deps, rooms *RoomRegistry, opts Options) *SocketIOServer {
	s := newSocketIOServer(authn, deps, rooms, opts)

	serverOpts := socket.DefaultServerOptions()

	// Origins are enforced in HandleSocketIO.
	serverOpts.SetCors(&sockettypes.Cors{
		Origin:      "*",
		Credentials: false,
	})
	serverOpts.SetPingInterval(s.opts.PingInterval)
	serverOpts.SetPingTimeout(s.opts.PingTimeout)
	serverOpts.SetPath(s.opts.Path)

	s.server = socket.NewServer(nil, serverOpts)
	s.setupHandlers()

	return s
}

func newSocketIOServer(authn Authenticator, deps handlers.Deps, rooms *RoomRegistry, opts Options) *SocketIOServer {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = defaultPingTimeout
	}
	if rooms == nil {
		rooms = NewRoomRegistry()
	}
	return &SocketIOServer{
		authn: authn,
		rooms: rooms,
		deps:  deps,
		opts:  opts,
	}
}

// setupHandlers configures Socket.IO event handlers
func (s *SocketIOServer) setupHandlers() {
	s.server.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		s.handleConnection(client)
	})
}

// SetCluster attaches the bus used to reach rooms on other nodes.
func (s *SocketIOServer) SetCluster(bus RoomPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cluster = bus
}

func (s *SocketIOServer) clusterBus() RoomPublisher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cluster
}

// Rooms exposes the local room registry.
func (s *SocketIOServer) Rooms() *RoomRegistry { return s.rooms }

// EmitToRoom emits an event to the room's local members and relays it to the
// other nodes. It returns the number of local sockets reached.
func (s *SocketIOServer) EmitToRoom(room, event string, payload any) int {
	n := s.rooms.Broadcast(room, event, payload)
	if bus := s.clusterBus(); bus != nil {
		if err := bus.Publish(room, event, payload); err != nil {
			logger.Warnf("Failed to relay %s to %s: %v", event, room, err)
		}
	}
	return n
}

// RoomSize returns the number of local sockets joined to a room.
func (s *SocketIOServer) RoomSize(room string) int {
	return s.rooms.Count(room)
}

// ApplyRemote delivers a broadcast received from another node to local
// members only.
func (s *SocketIOServer) ApplyRemote(room, event string, payload any) int {
	return s.rooms.Broadcast(room, event, payload)
}

func decodeAny(input any, out any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// handshakeFrom converts the library handshake into the transport-neutral
// form the auth pipeline reads.
func handshakeFrom(raw any) auth.Handshake {
	var wire struct {
		Headers map[string]any `json:"headers"`
		Query   map[string]any `json:"query"`
		Auth    map[string]any `json:"auth"`
		Address string         `json:"address"`
	}
	if err := decodeAny(raw, &wire); err != nil {
		logger.Debugf("Socket.IO handshake decode error: %v", err)
		return auth.Handshake{}
	}
	return auth.Handshake{
		Auth:    wire.Auth,
		Headers: stringValues(wire.Headers),
		Query:   stringValues(wire.Query),
		Address: wire.Address,
	}
}

func stringValues(in map[string]any) map[string][]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		switch v := v.(type) {
		case string:
			out[k] = []string{v}
		case []any:
			for _, item := range v {
				if str, ok := item.(string); ok {
					out[k] = append(out[k], str)
				}
			}
		}
	}
	return out
}

func getFirstAnyWithAck(data []any) (any, func(...any)) {
	var ack func(...any)
	if len(data) == 0 {
		return nil, nil
	}
	if cb, ok := data[len(data)-1].(func(...any)); ok {
		ack = cb
		data = data[:len(data)-1]
	} else if cb, ok := data[len(data)-1].(socket.Ack); ok {
		ack = func(args ...any) {
			cb(args, nil)
		}
		data = data[:len(data)-1]
	}
	if len(data) == 0 {
		return nil, ack
	}
	return data[0], ack
}

// getSession retrieves the session for a socket ID.
func (s *SocketIOServer) getSession(socketID string) *Session {
	if data, ok := s.sessions.Load(socketID); ok {
		if sess, ok := data.(*Session); ok {
			return sess
		}
	}
	return nil
}

func (s *SocketIOServer) originAllowed(origin string) bool {
	if len(s.opts.AllowedOrigins) == 0 || slices.Contains(s.opts.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.opts.AllowedOrigins, origin)
}

// HandleSocketIO creates a Gin handler for Socket.IO
func (s *SocketIOServer) HandleSocketIO() gin.HandlerFunc {
	// Get the HTTP handler from Socket.IO server
	httpHandler := s.server.ServeHandler(nil)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && !s.originAllowed(origin) {
			logger.Debugf("Socket.IO origin rejected: %s", origin)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		allowOrigin := "*"
		if origin != "" && len(s.opts.AllowedOrigins) > 0 {
			allowOrigin = origin
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "false")

		// Handle preflight
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusOK)
			return
		}

		logger.Tracef("Socket.IO request: %s %s", c.Request.Method, c.Request.URL.Path)

		httpHandler.ServeHTTP(c.Writer, c.Request)
	}
}

// Path returns the mount path of the endpoint.
func (s *SocketIOServer) Path() string { return s.opts.Path }

// Close shuts down the Socket.IO server and waits for in-flight
// authentications.
func (s *SocketIOServer) Close() error {
	if s.server != nil {
		s.server.Close(nil)
	}
	s.authWG.Wait()
	return nil
}
