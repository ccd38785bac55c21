package auth

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/bhandras/studyhall/internal/crypto"
	"github.com/goccy/go-json"
)

// Subject identifies the authenticated user. It is either a positive integer
// id or an opaque external id.
type Subject struct {
	id  int64
	ext string
}

// NumericSubject wraps an integer user id.
func NumericSubject(id int64) Subject { return Subject{id: id} }

// ExternalSubject wraps a non-numeric user id.
func ExternalSubject(id string) Subject { return Subject{ext: id} }

// Int64 returns the numeric id, if the subject has one.
func (s Subject) Int64() (int64, bool) {
	return s.id, s.id > 0
}

// IsZero reports whether the subject is unset (anonymous).
func (s Subject) IsZero() bool {
	return s.id == 0 && s.ext == ""
}

func (s Subject) String() string {
	if s.id > 0 {
		return strconv.FormatInt(s.id, 10)
	}
	return s.ext
}

// Room is the name of the subject's personal room.
func (s Subject) Room() string {
	return RoomName(s.String())
}

// RoomPrefix starts every personal room name.
const RoomPrefix = "user_"

// RoomName builds the personal room name for a user id.
func RoomName(userID string) string {
	return RoomPrefix + userID
}

// MarshalJSON encodes numeric subjects as numbers and external ones as
// strings.
func (s Subject) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return []byte("null"), nil
	}
	if id, ok := s.Int64(); ok {
		return []byte(strconv.FormatInt(id, 10)), nil
	}
	return json.Marshal(s.ext)
}

// subjectFields lists the claim values in probing order.
func subjectFields(c *crypto.Claims) []any {
	return []any{c.UserID, c.ID, c.UserIDAlt, c.Sub, c.UID, c.AccountID, c.AccountAlt}
}

// ResolveSubject returns the user id carried by the claims. Fields are
// probed in order. A string field decides the outcome: numeric-looking
// strings are truncated to an integer and must be positive, other non-empty
// strings are external ids. Positive numbers are accepted; other numbers and
// non-string values fall through to the next field.
func ResolveSubject(c *crypto.Claims) (Subject, bool) {
	if c == nil {
		return Subject{}, false
	}
	for _, v := range subjectFields(c) {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			return subjectFromString(val)
		default:
			if s, ok := subjectFromNumber(val); ok {
				return s, true
			}
		}
	}
	return Subject{}, false
}

func subjectFromNumber(v any) (Subject, bool) {
	var f float64
	switch val := v.(type) {
	case json.Number:
		if id, err := val.Int64(); err == nil {
			return positive(id)
		}
		parsed, err := val.Float64()
		if err != nil {
			return Subject{}, false
		}
		f = parsed
	case float64:
		f = val
	case int64:
		return positive(val)
	case int:
		return positive(int64(val))
	default:
		return Subject{}, false
	}
	// Fractional ids never match a user row.
	if f > 0 && f == math.Trunc(f) && f <= math.MaxInt64 {
		return NumericSubject(int64(f)), true
	}
	return Subject{}, false
}

func subjectFromString(s string) (Subject, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || numericLooking(trimmed) {
		id, ok := leadingInt(trimmed)
		if !ok {
			return Subject{}, false
		}
		return positive(id)
	}
	return ExternalSubject(s), true
}

func positive(id int64) (Subject, bool) {
	if id <= 0 {
		return Subject{}, false
	}
	return NumericSubject(id), true
}

// numericLooking reports whether s reads as a number, e.g. "42", "1.5",
// "-3" or "1e3".
func numericLooking(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Is(err, strconv.ErrRange)
	}
	return !math.IsNaN(f)
}

// leadingInt parses the optional sign and decimal digits at the start of s,
// so "1.5" yields 1 and "1e3" yields 1.
func leadingInt(s string) (int64, bool) {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	id, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
