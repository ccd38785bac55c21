package crypto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func requireReason(t *testing.T, err error, want Reason) {
	t.Helper()
	var verr *VerifyError
	require.True(t, errors.As(err, &verr), "expected VerifyError, got %v", err)
	require.Equal(t, want, verr.Reason)
}

func TestVerifyRoundTrip(t *testing.T) {
	m := NewJWTManager("secret")
	token, err := m.IssueToken(42, time.Hour)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, json.Number("42"), claims.UserID)
	require.NotNil(t, claims.ExpiresAt)
}

func TestVerifyExpired(t *testing.T) {
	m := NewJWTManager("secret")
	token, err := m.IssueToken(42, -time.Minute)
	require.NoError(t, err)

	_, err = m.Verify(token)
	requireReason(t, err, ReasonExpired)
}

func TestVerifyNotYetValid(t *testing.T) {
	m := NewJWTManager("secret")
	token, err := m.Sign(&Claims{
		UserID:    7,
		NotBefore: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)

	_, err = m.Verify(token)
	requireReason(t, err, ReasonNotYetValid)
}

func TestVerifyMalformed(t *testing.T) {
	m := NewJWTManager("secret")

	_, err := m.Verify("not-a-token")
	requireReason(t, err, ReasonMalformed)
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := NewJWTManager("one").IssueToken(1, time.Hour)
	require.NoError(t, err)

	_, err = NewJWTManager("two").Verify(token)
	requireReason(t, err, ReasonInvalid)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTManager("secret").Verify(token)
	require.Error(t, err)
	var verr *VerifyError
	require.ErrorAs(t, err, &verr)
	require.NotEqual(t, ReasonExpired, verr.Reason)
}

func TestVerifyWithoutSecret(t *testing.T) {
	_, err := NewJWTManager("").Verify("a.b.c")
	require.ErrorIs(t, err, ErrSecretNotConfigured)
}

func TestClaimsKeepStringAndNumberSubjects(t *testing.T) {
	m := NewJWTManager("secret")
	token, err := m.Sign(jwt.MapClaims{
		"sub":        "abc",
		"account_id": 9007199254740993,
	})
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "abc", claims.Sub)
	require.Equal(t, json.Number("9007199254740993"), claims.AccountAlt)
}
