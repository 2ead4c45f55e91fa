// Package auth provides optional bearer-token authentication for the API.
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Middleware validates HS256-signed bearer tokens. When disabled it passes
// every request through, which is the default for local use.
type Middleware struct {
	enabled bool
	secret  []byte
	logger  *zap.Logger
}

// NewMiddleware creates the auth middleware. The secret is only consulted
// when enabled is true.
func NewMiddleware(enabled bool, signingSecret string, logger *zap.Logger) *Middleware {
	return &Middleware{
		enabled: enabled,
		secret:  []byte(signingSecret),
		logger:  logger.Named("auth"),
	}
}

// RequireAuth wraps a handler with bearer-token validation.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	if !m.enabled {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.validateRequest(r); err != nil {
			m.logger.Debug("Rejected request", zap.Error(err))
			m.unauthorized(w)
			return
		}
		next(w, r)
	}
}

func (m *Middleware) validateRequest(r *http.Request) error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return fmt.Errorf("missing Authorization header")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return fmt.Errorf("malformed Authorization header")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

func (m *Middleware) unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": "Authentication required",
	})
}
