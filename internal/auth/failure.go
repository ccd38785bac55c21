package auth

import (
	"fmt"
	"time"
)

// FailureType is the machine-readable reason sent to a rejected client.
type FailureType string

const (
	FailureNoToken               FailureType = "NO_TOKEN"
	FailureTokenExpired          FailureType = "TOKEN_EXPIRED"
	FailureMalformedToken        FailureType = "MALFORMED_TOKEN"
	FailureTokenNotActive        FailureType = "TOKEN_NOT_ACTIVE"
	FailureUserValidation        FailureType = "USER_VALIDATION_FAILED"
	FailureInvalidTokenStructure FailureType = "INVALID_TOKEN_STRUCTURE"
	FailureServerConfig          FailureType = "SERVER_CONFIG"
	FailureSystemError           FailureType = "SYSTEM_ERROR"
)

// Failure is the single error type returned by the pipeline.
type Failure struct {
	Type    FailureType
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Type, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Type, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// ClientError is the payload of the auth_error event.
type ClientError struct {
	Type      FailureType `json:"type"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
}

// ClientError renders the failure for the client at time now.
func (f *Failure) ClientError(now time.Time) ClientError {
	return ClientError{
		Type:      f.Type,
		Message:   f.Message,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

func fail(t FailureType, msg string, err error) *Failure {
	return &Failure{Type: t, Message: msg, Err: err}
}
