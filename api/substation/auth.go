package substation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for a missing or invalid operator token.
var ErrUnauthorized = errors.New("unauthorized")

type operatorKey struct{}

// NewToken signs an HS256 operator token for subject, valid for ttl.
func NewToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty token secret")
	}
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "substation",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// parseToken validates a "Bearer <jwt>" header and returns its subject.
func parseToken(secret []byte, header string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return claims.Subject, nil
}

// protect requires a valid operator token when the handler has a secret.
func (h *Handler) protect(next http.HandlerFunc) http.HandlerFunc {
	if len(h.secret) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := parseToken(h.secret, r.Header.Get("Authorization"))
		if err != nil {
			h.log.Warnf("%s %s rejected: %v", r.Method, r.URL.Path, err)
			h.writeError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), operatorKey{}, sub)))
	}
}

// source tags commands with the authenticated operator, if any.
func source(r *http.Request) string {
	if sub, ok := r.Context().Value(operatorKey{}).(string); ok {
		return "http:" + sub
	}
	return "http"
}
