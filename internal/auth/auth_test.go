package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, secret string, claims supabaseClaims) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestJWTVerifier(t *testing.T) {

	v := &JWTVerifier{Secret: []byte("project-secret")}
	valid := supabaseClaims{
		Email: "a@b.c",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	t.Run("valid", func(t *testing.T) {
		c, err := v.Verify(context.Background(), signed(t, "project-secret", valid))
		require.NoError(t, err)
		assert.Equal(t, "user-1", c.Subject)
		assert.Equal(t, "a@b.c", c.Email)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Verify(context.Background(), signed(t, "other", valid))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := valid
		expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.Verify(context.Background(), signed(t, "project-secret", expired))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		anon := valid
		anon.Audience = jwt.ClaimStrings{"anon"}
		_, err := v.Verify(context.Background(), signed(t, "project-secret", anon))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "")
		assert.ErrorIs(t, err, ErrMissingToken)
	})
}

func TestSupabaseVerifier(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"id":"user-2","email":"x@y.z"}`)
	}))
	defer srv.Close()

	v := NewSupabaseVerifier(srv.URL+"/", "anon")

	c, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "user-2", c.Subject)

	_, err = v.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNew(t *testing.T) {
	v, err := New(&Config{JwtSecret: "s"})
	require.NoError(t, err)
	assert.IsType(t, &JWTVerifier{}, v)

	v, err = New(&Config{URL: "https://x.supabase.co", AnonKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &SupabaseVerifier{}, v)

	_, err = New(&Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken("abc"))
}
