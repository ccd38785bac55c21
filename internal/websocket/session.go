package websocket

import (
	"sync"
	"time"

	"github.com/bhandras/studyhall/internal/auth"
)

// SessionState is the lifecycle position of one socket.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateAuthenticating
	StateAuthenticated
	StateDisconnected
	StateRejected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateDisconnected:
		return "disconnected"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Session is the per-socket state. Transitions and the side effects attached
// to them run under the session lock, so a disconnect and a late
// authentication result can never interleave.
type Session struct {
	mu          sync.Mutex
	socketID    string
	state       SessionState
	identity    auth.Identity
	connectedAt time.Time
}

// NewSession starts a session in StateConnecting.
func NewSession(socketID string, now time.Time) *Session {
	return &Session{socketID: socketID, connectedAt: now}
}

// SocketID returns the socket id the session belongs to.
func (s *Session) SocketID() string { return s.socketID }

// ConnectedAt returns when the socket connected.
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the authenticated identity, zero until authenticated.
func (s *Session) Identity() auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// transition moves from one state to another if the session is currently in
// from.
func (s *Session) transition(from, to SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(from, to)
}

func (s *Session) transitionLocked(from, to SessionState) bool {
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

// BeginAuth moves a connecting session into authentication.
func (s *Session) BeginAuth() bool {
	return s.transition(StateConnecting, StateAuthenticating)
}

// Accept records the identity and runs join while still holding the lock. It
// returns false, without calling join, when the socket left in the meantime.
func (s *Session) Accept(id auth.Identity, join func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.transitionLocked(StateAuthenticating, StateAuthenticated) {
		return false
	}
	s.identity = id
	if join != nil {
		join()
	}
	return true
}

// Reject ends an in-flight authentication.
func (s *Session) Reject() bool {
	return s.transition(StateAuthenticating, StateRejected)
}

// Close marks the session disconnected and runs leave with the previous
// state and identity. Rejected sessions stay rejected.
func (s *Session) Close(leave func(prev SessionState, id auth.Identity)) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	switch prev {
	case StateDisconnected, StateRejected:
		return prev
	}
	s.state = StateDisconnected
	if leave != nil {
		leave(prev, s.identity)
	}
	return prev
}
