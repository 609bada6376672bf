// Package identity consumes bearer credentials issued by the external
// identity collaborator. It only verifies: token issuance lives elsewhere.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoCredential  = errors.New("no bearer credential")
	ErrBadCredential = errors.New("invalid bearer credential")
)

type Principal struct {
	UserID string
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == "admin"
}

type Verifier struct {
	secret []byte
}

func NewVerifier(cfg *Config) *Verifier {
	return &Verifier{secret: []byte(cfg.Secret)}
}

// Verify parses and validates an HMAC-signed token and extracts the
// opaque user identifier and role.
func (v *Verifier) Verify(tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrBadCredential
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrBadCredential
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrBadCredential
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = "user"
	}

	return &Principal{UserID: sub, Role: role}, nil
}

// FromRequest extracts and verifies the Authorization header.
func (v *Verifier) FromRequest(r *http.Request) (*Principal, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil, ErrNoCredential
	}

	return v.Verify(strings.TrimPrefix(auth, "Bearer "))
}

type principalKey struct{}

// FromContext returns the principal attached by Middleware, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}

// Middleware attaches a verified principal to the request context when a
// valid credential is present. It never rejects: anonymous requests pass
// through without a principal.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := v.FromRequest(r)
		if err == nil {
			r = r.WithContext(context.WithValue(r.Context(), principalKey{}, p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthenticated gates a handler behind any verified principal,
// regardless of role.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin gates a handler behind an authenticated admin principal.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if !p.IsAdmin() {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
