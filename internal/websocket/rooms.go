package websocket

import (
	"strings"
	"sync"

	"github.com/bhandras/studyhall/internal/auth"
	"github.com/bhandras/studyhall/internal/metrics"
)

// Conn is the part of a live socket the registry needs.
type Conn interface {
	ID() string
	Emit(event string, args ...any)
}

// RoomRegistry tracks registered connections and the rooms they joined.
type RoomRegistry struct {
	mu          sync.RWMutex
	connections map[string]Conn                // socketID -> connection
	rooms       map[string]map[string]Conn     // room -> socketID -> connection
	memberships map[string]map[string]struct{} // socketID -> rooms

	// personal counts non-empty user_ rooms.
	personal int
}

// NewRoomRegistry creates an empty registry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		connections: make(map[string]Conn),
		rooms:       make(map[string]map[string]Conn),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Register adds a connection to the set reached by BroadcastAll.
func (r *RoomRegistry) Register(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.connections[conn.ID()] = conn
	r.updateGauges()
}

// Join adds a connection to a room and registers it. It reports whether the
// room was empty before.
func (r *RoomRegistry) Join(room string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	r.connections[id] = conn

	members := r.rooms[room]
	first := len(members) == 0
	if members == nil {
		members = make(map[string]Conn)
		r.rooms[room] = members
		if isPersonal(room) {
			r.personal++
		}
	}
	members[id] = conn

	if r.memberships[id] == nil {
		r.memberships[id] = make(map[string]struct{})
	}
	r.memberships[id][room] = struct{}{}

	r.updateGauges()
	return first
}

// Leave removes a connection from one room. It reports whether the room is now
// empty.
func (r *RoomRegistry) Leave(room, socketID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	emptied := r.leaveLocked(room, socketID)
	r.updateGauges()
	return emptied
}

// Remove unregisters a connection and leaves every room it joined. It returns
// the rooms that became empty.
func (r *RoomRegistry) Remove(socketID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var emptied []string
	for room := range r.memberships[socketID] {
		if r.leaveLocked(room, socketID) {
			emptied = append(emptied, room)
		}
	}
	delete(r.memberships, socketID)
	delete(r.connections, socketID)

	r.updateGauges()
	return emptied
}

func (r *RoomRegistry) leaveLocked(room, socketID string) bool {
	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[socketID]; !ok {
		return false
	}
	delete(members, socketID)
	if rooms := r.memberships[socketID]; rooms != nil {
		delete(rooms, room)
	}

	// Clean up empty rooms
	if len(members) == 0 {
		delete(r.rooms, room)
		if isPersonal(room) {
			r.personal--
		}
		return true
	}
	return false
}

// Count returns the number of connections in a room.
func (r *RoomRegistry) Count(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[room])
}

// ConnectionCount returns the number of registered connections.
func (r *RoomRegistry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connections)
}

// PersonalRoomCount returns the number of users with at least one socket in
// their personal room.
func (r *RoomRegistry) PersonalRoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.personal
}

// Broadcast emits an event to every member of a room and returns the number
// of emits attempted.
func (r *RoomRegistry) Broadcast(room, event string, payload any) int {
	r.mu.RLock()
	members := make([]Conn, 0, len(r.rooms[room]))
	for _, conn := range r.rooms[room] {
		members = append(members, conn)
	}
	r.mu.RUnlock()

	for _, conn := range members {
		conn.Emit(event, payload)
	}
	if len(members) > 0 {
		metrics.SocketEmits.WithLabelValues(event).Add(float64(len(members)))
	}
	return len(members)
}

// BroadcastAll emits an event to every registered connection except skipID.
func (r *RoomRegistry) BroadcastAll(event string, payload any, skipID string) int {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.connections))
	for id, conn := range r.connections {
		if id == skipID {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		conn.Emit(event, payload)
	}
	if len(targets) > 0 {
		metrics.SocketEmits.WithLabelValues(event).Add(float64(len(targets)))
	}
	return len(targets)
}

func (r *RoomRegistry) updateGauges() {
	metrics.SocketSessions.Set(float64(len(r.connections)))
	metrics.OnlineUsers.Set(float64(r.personal))
}

func isPersonal(room string) bool {
	return strings.HasPrefix(room, auth.RoomPrefix)
}
