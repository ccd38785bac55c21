package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSecretNotConfigured is returned by Verify when the manager has no
// signing secret. It is a server-side problem, never the client's fault.
var ErrSecretNotConfigured = errors.New("jwt secret not configured")

// Reason classifies why a token failed verification.
type Reason int

const (
	ReasonInvalid Reason = iota
	ReasonExpired
	ReasonMalformed
	ReasonNotYetValid
)

func (r Reason) String() string {
	switch r {
	case ReasonExpired:
		return "expired"
	case ReasonMalformed:
		return "malformed"
	case ReasonNotYetValid:
		return "not yet valid"
	default:
		return "invalid"
	}
}

// VerifyError reports a token that did not pass verification.
type VerifyError struct {
	Reason Reason
	Err    error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("token %s: %v", e.Reason, e.Err)
}

func (e *VerifyError) Unwrap() error { return e.Err }

// Claims is the decoded token payload. Every identifier field is optional and
// kept untyped because issuers disagree on both the name and the type of the
// user id. Numbers decode as json.Number.
type Claims struct {
	UserID     any `json:"userId,omitempty"`
	ID         any `json:"id,omitempty"`
	UserIDAlt  any `json:"user_id,omitempty"`
	Sub        any `json:"sub,omitempty"`
	UID        any `json:"uid,omitempty"`
	AccountID  any `json:"accountId,omitempty"`
	AccountAlt any `json:"account_id,omitempty"`

	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	NotBefore *jwt.NumericDate `json:"nbf,omitempty"`
}

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error)      { return c.NotBefore, nil }
func (c *Claims) GetIssuer() (string, error)                   { return "", nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

func (c *Claims) GetSubject() (string, error) {
	if c.Sub == nil {
		return "", nil
	}
	return fmt.Sprint(c.Sub), nil
}

var validMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// JWTManager verifies and issues HMAC signed tokens.
type JWTManager struct {
	secret []byte
	now    func() time.Time
}

// NewJWTManager creates a manager for the shared signing secret. An empty
// secret is accepted so that misconfiguration surfaces per connection
// through ErrSecretNotConfigured.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{secret: []byte(secret), now: time.Now}
}

// Configured reports whether a signing secret is present.
func (m *JWTManager) Configured() bool {
	return len(m.secret) > 0
}

// Verify checks the signature, expiry and not-before of the token and
// returns its claims. Failures are *VerifyError or ErrSecretNotConfigured.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	if !m.Configured() {
		return nil, ErrSecretNotConfigured
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods(validMethods),
		jwt.WithJSONNumber(),
		jwt.WithTimeFunc(m.now),
	)
	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, &VerifyError{Reason: classify(err), Err: err}
	}

	return claims, nil
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ReasonNotYetValid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	default:
		return ReasonInvalid
	}
}

// Sign signs arbitrary claims with HS256.
func (m *JWTManager) Sign(claims jwt.Claims) (string, error) {
	if !m.Configured() {
		return "", ErrSecretNotConfigured
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// IssueToken creates a token for userID that expires after ttl.
func (m *JWTManager) IssueToken(userID int64, ttl time.Duration) (string, error) {
	now := m.now()
	return m.Sign(&Claims{
		UserID:    userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
}
