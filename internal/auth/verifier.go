package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrNotConfigured = errors.New("auth provider is not configured")
)

// Claims identifies the caller of a protected route.
type Claims struct {
	Subject string
	Email   string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

type Config struct {
	URL       string
	AnonKey   string
	JwtSecret string
}

// New verifies tokens locally when the project's JWT secret is known, remotely otherwise.
func New(conf *Config) (Verifier, error) {
	if conf.JwtSecret != "" {
		return &JWTVerifier{Secret: []byte(conf.JwtSecret)}, nil
	}
	if conf.URL == "" || conf.AnonKey == "" {
		return nil, ErrNotConfigured
	}
	return NewSupabaseVerifier(conf.URL, conf.AnonKey), nil
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
