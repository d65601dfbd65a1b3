package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

const audience = "authenticated"

type supabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 access tokens signed with the project's JWT secret.
type JWTVerifier struct {
	Secret []byte
}

func (j *JWTVerifier) Verify(ctx context.Context, token string) (Claims, error) {

	if token == "" {
		return Claims{}, ErrMissingToken
	}

	parsed, err := jwt.ParseWithClaims(token, &supabaseClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*supabaseClaims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	if len(c.Audience) > 0 && !slices.Contains(c.Audience, audience) {
		return Claims{}, fmt.Errorf("%w: audience %v", ErrInvalidToken, c.Audience)
	}

	return Claims{Subject: c.Subject, Email: c.Email}, nil
}
