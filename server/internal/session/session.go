// Package session attaches a session identifier to each HTTP request.
//
// The identifier scopes the transient object cache; it is not an
// authentication credential. Middleware reads it from a cookie and mints a
// new random one when the cookie is absent.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
)

// DefaultCookie is the cookie name used when none is configured.
const DefaultCookie = "REPORTDESK_SESSION"

type ctxKey struct{}

// WithID returns a copy of ctx carrying the session id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the session id attached to ctx, or "" if none.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware resolves the session id from cookie and stores it in the request
// context before calling next.
func Middleware(cookie string, next http.Handler) http.Handler {
	if cookie == "" {
		cookie = DefaultCookie
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(cookie); err == nil && validID(c.Value) {
			id = c.Value
		} else {
			id, err = newID()
			if err != nil {
				// Serve without a session; the cache becomes a no-op.
				slog.Error("session: generate id", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     cookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

func newID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// validID accepts ids this package could have minted, plus any other short
// token of URL-safe characters set by a fronting session layer.
func validID(s string) bool {
	if s == "" || len(s) > 128 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
