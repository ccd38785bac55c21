package auth

import (
	"encoding/json"
	"testing"

	"github.com/bhandras/studyhall/internal/crypto"
	"github.com/stretchr/testify/require"
)

func TestResolveSubjectEachField(t *testing.T) {
	set := map[string]func(c *crypto.Claims, v any){
		"userId":     func(c *crypto.Claims, v any) { c.UserID = v },
		"id":         func(c *crypto.Claims, v any) { c.ID = v },
		"user_id":    func(c *crypto.Claims, v any) { c.UserIDAlt = v },
		"sub":        func(c *crypto.Claims, v any) { c.Sub = v },
		"uid":        func(c *crypto.Claims, v any) { c.UID = v },
		"accountId":  func(c *crypto.Claims, v any) { c.AccountID = v },
		"account_id": func(c *crypto.Claims, v any) { c.AccountAlt = v },
	}

	for name, apply := range set {
		t.Run(name, func(t *testing.T) {
			c := &crypto.Claims{}
			apply(c, json.Number("42"))

			s, ok := ResolveSubject(c)
			require.True(t, ok)
			id, numeric := s.Int64()
			require.True(t, numeric)
			require.Equal(t, int64(42), id)
			require.Equal(t, "user_42", s.Room())
		})
	}

	_, ok := ResolveSubject(&crypto.Claims{})
	require.False(t, ok)
}

func TestResolveSubjectPriorityAndCoercion(t *testing.T) {
	s, ok := ResolveSubject(&crypto.Claims{UserID: "7", Sub: "99"})
	require.True(t, ok)
	require.Equal(t, "7", s.String())

	// Non-positive numbers and non-strings fall through to the next field.
	s, ok = ResolveSubject(&crypto.Claims{UserID: json.Number("0"), ID: json.Number("-1"), UserIDAlt: true, Sub: "ext-abc"})
	require.True(t, ok)
	_, numeric := s.Int64()
	require.False(t, numeric)
	require.Equal(t, "user_ext-abc", s.Room())

	s, ok = ResolveSubject(&crypto.Claims{UserID: json.Number("-1"), ID: "9"})
	require.True(t, ok)
	require.Equal(t, "9", s.String())

	s, ok = ResolveSubject(&crypto.Claims{UID: json.Number("12.0")})
	require.True(t, ok)
	require.Equal(t, "12", s.String())

	_, ok = ResolveSubject(&crypto.Claims{UserID: json.Number("1.5"), ID: "4"})
	require.False(t, ok)
	_, ok = ResolveSubject(nil)
	require.False(t, ok)
}

func TestResolveSubjectFirstStringDecides(t *testing.T) {
	// A string id that coerces to zero stops resolution.
	_, ok := ResolveSubject(&crypto.Claims{UserID: "0", ID: json.Number("5")})
	require.False(t, ok)

	_, ok = ResolveSubject(&crypto.Claims{UserID: "-3", ID: json.Number("5")})
	require.False(t, ok)

	_, ok = ResolveSubject(&crypto.Claims{UserID: "", Sub: "ext-abc"})
	require.False(t, ok)

	_, ok = ResolveSubject(&crypto.Claims{UserID: "   ", Sub: "ext-abc"})
	require.False(t, ok)

	s, ok := ResolveSubject(&crypto.Claims{UserID: "1.5", ID: json.Number("5")})
	require.True(t, ok)
	id, numeric := s.Int64()
	require.True(t, numeric)
	require.Equal(t, int64(1), id)

	s, ok = ResolveSubject(&crypto.Claims{ID: " 17 "})
	require.True(t, ok)
	require.Equal(t, "17", s.String())

	s, ok = ResolveSubject(&crypto.Claims{Sub: "auth0|abc", ID: json.Number("5")})
	require.True(t, ok)
	require.Equal(t, "5", s.String())

	s, ok = ResolveSubject(&crypto.Claims{UserID: "auth0|abc", ID: json.Number("5")})
	require.True(t, ok)
	require.Equal(t, "auth0|abc", s.String())
}

func TestSubjectJSON(t *testing.T) {
	b, err := json.Marshal(NumericSubject(42))
	require.NoError(t, err)
	require.Equal(t, "42", string(b))

	b, err = json.Marshal(ExternalSubject("abc"))
	require.NoError(t, err)
	require.Equal(t, `"abc"`, string(b))

	b, err = json.Marshal(Subject{})
	require.NoError(t, err)
	require.Equal(t, "null", string(b))
}
