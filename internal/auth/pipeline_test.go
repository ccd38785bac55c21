package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bhandras/studyhall/internal/crypto"
	"github.com/bhandras/studyhall/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func tokenFor(t *testing.T, userID int64, ttl time.Duration) string {
	t.Helper()
	token, err := crypto.NewJWTManager(testSecret).IssueToken(userID, ttl)
	require.NoError(t, err)
	return token
}

func handshakeWith(token string) Handshake {
	return Handshake{Auth: map[string]any{"token": token}}
}

func requireFailure(t *testing.T, err error, want FailureType) *Failure {
	t.Helper()
	var f *Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, want, f.Type)
	return f
}

func newTestAuthenticator(users UserQueries) *Authenticator {
	return NewAuthenticator(crypto.NewJWTManager(testSecret), NewGate(users, true), time.Second)
}

func TestAuthenticateActiveUser(t *testing.T) {
	var onlineID int64
	users := activeUsers(models.User{ID: 42, Name: "Ann", Role: "student", IsActive: true})
	users.setOnline = func(ctx context.Context, id int64, online bool, at time.Time) error {
		require.True(t, online)
		onlineID = id
		return nil
	}

	id, err := newTestAuthenticator(users).Authenticate(context.Background(), handshakeWith(tokenFor(t, 42, time.Hour)))
	require.NoError(t, err)
	require.False(t, id.Anonymous)
	require.Equal(t, "user_42", id.Subject.Room())
	require.Equal(t, "Ann", id.User.Name)
	require.True(t, id.User.IsOnline)
	require.Equal(t, int64(42), onlineID)
}

func TestAuthenticateOnlineUpdateFailureIsSwallowed(t *testing.T) {
	users := activeUsers(models.User{ID: 42, IsActive: true})
	users.setOnline = func(ctx context.Context, id int64, online bool, at time.Time) error {
		return errors.New("disk full")
	}

	id, err := newTestAuthenticator(users).Authenticate(context.Background(), handshakeWith(tokenFor(t, 42, time.Hour)))
	require.NoError(t, err)
	require.False(t, id.User.IsOnline)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	called := false
	users := fakeUserQueries{getUser: func(ctx context.Context, id int64) (models.User, error) {
		called = true
		return models.User{}, nil
	}}

	_, err := newTestAuthenticator(users).Authenticate(context.Background(), handshakeWith(tokenFor(t, 42, -time.Minute)))
	f := requireFailure(t, err, FailureTokenExpired)
	require.Contains(t, f.Message, "expired")
	require.False(t, called)
}

func TestAuthenticateFailures(t *testing.T) {
	mgr := crypto.NewJWTManager(testSecret)
	noSubject, err := mgr.Sign(&crypto.Claims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	require.NoError(t, err)
	notYet, err := mgr.Sign(&crypto.Claims{UserID: 42, NotBefore: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	require.NoError(t, err)
	foreign, err := crypto.NewJWTManager("other").IssueToken(42, time.Hour)
	require.NoError(t, err)

	users := activeUsers(
		models.User{ID: 42, IsActive: true},
		models.User{ID: 43, Name: "Inactive", IsActive: false},
	)

	tests := []struct {
		name  string
		token string
		want  FailureType
	}{
		{"no token", "", FailureNoToken},
		{"garbage", "abc", FailureMalformedToken},
		{"wrong secret", foreign, FailureMalformedToken},
		{"not yet valid", notYet, FailureTokenNotActive},
		{"no subject", noSubject, FailureInvalidTokenStructure},
		{"inactive", tokenFor(t, 43, time.Hour), FailureUserValidation},
		{"unknown user", tokenFor(t, 44, time.Hour), FailureUserValidation},
	}

	a := newTestAuthenticator(users)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Authenticate(context.Background(), handshakeWith(tc.token))
			requireFailure(t, err, tc.want)
		})
	}
}

func TestAuthenticateInactiveNeverMarksOnline(t *testing.T) {
	users := activeUsers(models.User{ID: 43, IsActive: false})
	users.setOnline = func(ctx context.Context, id int64, online bool, at time.Time) error {
		t.Fatal("inactive user marked online")
		return nil
	}

	_, err := newTestAuthenticator(users).Authenticate(context.Background(), handshakeWith(tokenFor(t, 43, time.Hour)))
	f := requireFailure(t, err, FailureUserValidation)
	require.ErrorIs(t, f, ErrAccountDeactivated)
}

func TestAuthenticateLookupErrorIsDistinct(t *testing.T) {
	users := fakeUserQueries{getUser: func(ctx context.Context, id int64) (models.User, error) {
		return models.User{}, errors.New("connection refused")
	}}

	_, err := newTestAuthenticator(users).Authenticate(context.Background(), handshakeWith(tokenFor(t, 42, time.Hour)))
	f := requireFailure(t, err, FailureUserValidation)
	require.ErrorIs(t, f, ErrLookupFailed)
	require.NotErrorIs(t, f, ErrUserNotFound)
}

func TestAuthenticateExternalSubjectIsUnknown(t *testing.T) {
	token, err := crypto.NewJWTManager(testSecret).Sign(&crypto.Claims{Sub: "auth0|abc"})
	require.NoError(t, err)
	users := fakeUserQueries{getUser: func(ctx context.Context, id int64) (models.User, error) {
		t.Fatal("lookup for external subject")
		return models.User{}, nil
	}}

	_, err = newTestAuthenticator(users).Authenticate(context.Background(), handshakeWith(token))
	f := requireFailure(t, err, FailureUserValidation)
	require.ErrorIs(t, f, ErrUserNotFound)
}

func TestAuthenticateMissingSecret(t *testing.T) {
	a := NewAuthenticator(crypto.NewJWTManager(""), NewGate(activeUsers(), true), time.Second)

	_, err := a.Authenticate(context.Background(), handshakeWith(tokenFor(t, 42, time.Hour)))
	requireFailure(t, err, FailureServerConfig)
}

func TestAuthenticateTimeout(t *testing.T) {
	users := fakeUserQueries{getUser: func(ctx context.Context, id int64) (models.User, error) {
		<-ctx.Done()
		return models.User{}, ctx.Err()
	}}
	a := NewAuthenticator(crypto.NewJWTManager(testSecret), NewGate(users, true), 20*time.Millisecond)

	_, err := a.Authenticate(context.Background(), handshakeWith(tokenFor(t, 42, time.Hour)))
	requireFailure(t, err, FailureSystemError)
}

func TestAuthenticatePanicBecomesSystemError(t *testing.T) {
	a := NewAuthenticator(fakeVerifier{verify: func(string) (*crypto.Claims, error) {
		panic("boom")
	}}, NewGate(activeUsers(), true), time.Second)

	_, err := a.Authenticate(context.Background(), handshakeWith("tok"))
	requireFailure(t, err, FailureSystemError)
}

func TestAuthenticateOptional(t *testing.T) {
	a := newTestAuthenticator(activeUsers(models.User{ID: 42, IsActive: true}))

	id, err := a.AuthenticateOptional(context.Background(), Handshake{})
	require.NoError(t, err)
	require.True(t, id.Anonymous)
	require.True(t, id.Subject.IsZero())

	_, err = a.AuthenticateOptional(context.Background(), handshakeWith(tokenFor(t, 42, -time.Minute)))
	requireFailure(t, err, FailureTokenExpired)

	id, err = a.AuthenticateOptional(context.Background(), handshakeWith(tokenFor(t, 42, time.Hour)))
	require.NoError(t, err)
	require.False(t, id.Anonymous)
}

func TestFailureClientError(t *testing.T) {
	f := &Failure{Type: FailureNoToken, Message: "missing"}
	ce := f.ClientError(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	require.Equal(t, FailureNoToken, ce.Type)
	require.Equal(t, "missing", ce.Message)
	require.Equal(t, "2026-01-02T03:04:05Z", ce.Timestamp)
}
