package handlers_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bhandras/studyhall/internal/api/middleware"
	"github.com/bhandras/studyhall/internal/auth"
	"github.com/bhandras/studyhall/internal/database"
	"github.com/bhandras/studyhall/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenTable map[string]auth.Identity

func (t tokenTable) AuthenticateToken(ctx context.Context, token string) (auth.Identity, error) {
	id, ok := t[token]
	if !ok {
		return auth.Identity{}, &auth.Failure{Type: auth.FailureMalformedToken, Message: "Malformed authentication token"}
	}
	return id, nil
}

func tokenFor(u models.User) string {
	return fmt.Sprintf("token-%d", u.ID)
}

func tokensFor(users ...models.User) tokenTable {
	t := tokenTable{}
	for _, u := range users {
		t[tokenFor(u)] = auth.Identity{Subject: auth.NumericSubject(u.ID), User: u}
	}
	return t
}

func openQueries(t *testing.T) *models.Queries {
	t.Helper()
	db, err := database.Open(context.Background(), database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return models.New(db.DB)
}

func createUser(t *testing.T, q *models.Queries, name, role string) models.User {
	t.Helper()
	u, err := q.CreateUser(context.Background(), models.CreateUserParams{
		Name:     name,
		Email:    name + "@example.com",
		Role:     role,
		IsActive: true,
	})
	require.NoError(t, err)
	return u
}

type emitted struct {
	room    string
	event   string
	payload any
}

// fakeRooms records room emits and reports configurable room sizes.
type fakeRooms struct {
	mu    sync.Mutex
	sizes map[string]int
	sent  []emitted
}

func (f *fakeRooms) EmitToRoom(room, event string, payload any) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, emitted{room: room, event: event, payload: payload})
	return f.sizes[room]
}

func (f *fakeRooms) RoomSize(room string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sizes[room]
}

func (f *fakeRooms) emits() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.sent...)
}

func request(r http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authed(r *gin.Engine, tokens tokenTable) *gin.RouterGroup {
	return r.Group("/v1", middleware.AuthMiddleware(tokens))
}
