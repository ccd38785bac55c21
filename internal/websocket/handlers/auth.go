package handlers

// AuthContext carries authenticated socket identity information into handler
// functions. It intentionally excludes transport-specific types.
type AuthContext struct {
	userID    int64
	name      string
	role      string
	socketID  string
	anonymous bool
}

// NewAuthContext constructs an AuthContext for an authenticated user socket.
func NewAuthContext(userID int64, name, role, socketID string) AuthContext {
	return AuthContext{
		userID:   userID,
		name:     name,
		role:     role,
		socketID: socketID,
	}
}

// NewAnonymousContext constructs an AuthContext for a socket admitted without
// credentials.
func NewAnonymousContext(socketID string) AuthContext {
	return AuthContext{socketID: socketID, anonymous: true}
}

// UserID returns the authenticated user id. Zero for anonymous sockets.
func (a AuthContext) UserID() int64 {
	return a.userID
}

// Name returns the display name of the user.
func (a AuthContext) Name() string {
	return a.name
}

// Role returns the user's role.
func (a AuthContext) Role() string {
	return a.role
}

// SocketID returns the caller socket id.
func (a AuthContext) SocketID() string {
	return a.socketID
}

// Anonymous reports whether the socket has no user identity.
func (a AuthContext) Anonymous() bool {
	return a.anonymous
}
