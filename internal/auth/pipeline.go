package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bhandras/studyhall/internal/crypto"
	"github.com/bhandras/studyhall/internal/logger"
	"github.com/bhandras/studyhall/internal/metrics"
	"github.com/bhandras/studyhall/internal/models"
)

// DefaultTimeout bounds a whole authentication attempt.
const DefaultTimeout = 5 * time.Second

// TokenVerifier checks a credential and decodes its claims.
type TokenVerifier interface {
	Verify(token string) (*crypto.Claims, error)
}

// Identity is the outcome of a successful authentication.
type Identity struct {
	Subject   Subject
	User      models.User
	Anonymous bool
}

// Authenticator runs the extract, verify, resolve and gate steps.
type Authenticator struct {
	verifier TokenVerifier
	gate     *Gate
	timeout  time.Duration
}

// NewAuthenticator wires the pipeline. A non-positive timeout selects
// DefaultTimeout.
func NewAuthenticator(verifier TokenVerifier, gate *Gate, timeout time.Duration) *Authenticator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Authenticator{verifier: verifier, gate: gate, timeout: timeout}
}

// Authenticate requires a credential in the handshake.
func (a *Authenticator) Authenticate(ctx context.Context, h Handshake) (Identity, error) {
	return a.run(ctx, func(ctx context.Context) (Identity, error) {
		token := ExtractToken(h)
		if token == "" {
			return Identity{}, fail(FailureNoToken, "Authentication required - no token provided", nil)
		}
		return a.authenticateToken(ctx, token)
	})
}

// AuthenticateOptional admits handshakes without any credential as anonymous
// identities. A credential that is present but invalid is still rejected.
func (a *Authenticator) AuthenticateOptional(ctx context.Context, h Handshake) (Identity, error) {
	if ExtractToken(h) == "" {
		metrics.AuthAttempts.WithLabelValues("anonymous").Inc()
		return Identity{Anonymous: true}, nil
	}
	return a.Authenticate(ctx, h)
}

// AuthenticateToken runs the pipeline for an already extracted credential.
func (a *Authenticator) AuthenticateToken(ctx context.Context, token string) (Identity, error) {
	return a.run(ctx, func(ctx context.Context) (Identity, error) {
		if token == "" {
			return Identity{}, fail(FailureNoToken, "Authentication required - no token provided", nil)
		}
		return a.authenticateToken(ctx, token)
	})
}

type result struct {
	id  Identity
	err error
}

// run applies the timeout and converts panics and unexpected errors into
// SYSTEM_ERROR failures.
func (a *Authenticator) run(ctx context.Context, step func(context.Context) (Identity, error)) (Identity, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fail(FailureSystemError, "Authentication system error", fmt.Errorf("panic: %v", r))}
			}
		}()
		id, err := step(ctx)
		done <- result{id: id, err: err}
	}()

	var res result
	select {
	case res = <-done:
		if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.err = fail(FailureSystemError, "Authentication timed out", res.err)
		}
	case <-ctx.Done():
		res.err = fail(FailureSystemError, "Authentication timed out", ctx.Err())
	}

	if res.err != nil {
		var f *Failure
		if !errors.As(res.err, &f) {
			f = fail(FailureSystemError, "Authentication system error", res.err)
		}
		a.logFailure(f)
		metrics.AuthAttempts.WithLabelValues(string(f.Type)).Inc()
		return Identity{}, f
	}

	metrics.AuthAttempts.WithLabelValues("ok").Inc()
	metrics.AuthDuration.Observe(time.Since(start).Seconds())
	return res.id, nil
}

func (a *Authenticator) authenticateToken(ctx context.Context, token string) (Identity, error) {
	claims, err := a.verifier.Verify(token)
	if err != nil {
		return Identity{}, verifyFailure(err)
	}

	subject, ok := ResolveSubject(claims)
	if !ok {
		return Identity{}, fail(FailureInvalidTokenStructure, "Invalid token structure - no user ID found", nil)
	}

	user, err := a.gate.Check(ctx, subject)
	if err != nil {
		return Identity{}, fail(FailureUserValidation, validationMessage(subject, user, err), err)
	}

	return Identity{Subject: subject, User: user}, nil
}

func verifyFailure(err error) *Failure {
	if errors.Is(err, crypto.ErrSecretNotConfigured) {
		return fail(FailureServerConfig, "Server configuration error", err)
	}

	var verr *crypto.VerifyError
	if !errors.As(err, &verr) {
		return fail(FailureSystemError, "Authentication system error", err)
	}
	switch verr.Reason {
	case crypto.ReasonExpired:
		return fail(FailureTokenExpired, "Authentication token has expired - please login again", err)
	case crypto.ReasonNotYetValid:
		return fail(FailureTokenNotActive, "Token is not yet valid", err)
	default:
		return fail(FailureMalformedToken, "Malformed authentication token", err)
	}
}

func (a *Authenticator) logFailure(f *Failure) {
	switch f.Type {
	case FailureServerConfig:
		metrics.ServerConfigErrors.Inc()
		logger.Errorf("Authentication misconfigured: %v", f)
	case FailureInvalidTokenStructure, FailureSystemError:
		logger.Errorf("Authentication failed: %v", f)
	default:
		logger.Warnf("Authentication failed: %v", f)
	}
}
