// Package auth turns a connection handshake or HTTP request into a verified,
// active user.
//
// The pipeline runs four steps in order and stops at the first failure:
// credential extraction, signature verification, subject resolution and the
// user state gate. Every failure leaves the package as a *Failure carrying
// one of the FailureType values.
package auth

import (
	"strings"
)

// Handshake is the transport-neutral view of a connection attempt.
type Handshake struct {
	Auth    map[string]any      `json:"auth"`
	Headers map[string][]string `json:"headers"`
	Query   map[string][]string `json:"query"`
	Address string              `json:"address"`
}

func (h Handshake) authString(key string) string {
	if h.Auth == nil {
		return ""
	}
	s, _ := h.Auth[key].(string)
	return strings.TrimSpace(s)
}

func (h Handshake) header(name string) string {
	for _, key := range []string{name, strings.ToLower(name)} {
		if vals, ok := h.Headers[key]; ok && len(vals) > 0 {
			if v := strings.TrimSpace(vals[0]); v != "" {
				return v
			}
		}
	}
	return ""
}

func (h Handshake) query(name string) string {
	if vals, ok := h.Query[name]; ok && len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

func stripBearer(v string) string {
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return v
}

// ExtractToken returns the first non-empty credential in the handshake, or
// "" when there is none. Sources are probed in this order:
//
//  1. auth.token
//  2. Authorization / authorization header, without a "Bearer " prefix
//  3. auth.accessToken, auth.jwt
//  4. query token, jwt, access_token
//  5. headers token, jwt, x-auth-token, x-access-token
func ExtractToken(h Handshake) string {
	probes := []func() string{
		func() string { return h.authString("token") },
		func() string { return stripBearer(h.header("Authorization")) },
		func() string { return h.authString("accessToken") },
		func() string { return h.authString("jwt") },
		func() string { return h.query("token") },
		func() string { return h.query("jwt") },
		func() string { return h.query("access_token") },
		func() string { return h.header("token") },
		func() string { return h.header("jwt") },
		func() string { return h.header("x-auth-token") },
		func() string { return h.header("x-access-token") },
	}
	for _, probe := range probes {
		if v := probe(); v != "" {
			return v
		}
	}
	return ""
}

// RedactToken shortens a credential for logs.
func RedactToken(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return token[:8] + "..." + token[len(token)-4:]
}
