package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const userTimeout = 10 * time.Second

// SupabaseVerifier asks the auth server who owns the token.
type SupabaseVerifier struct {
	url     string
	anonKey string
	client  *http.Client
	lg      zerolog.Logger
}

func NewSupabaseVerifier(url, anonKey string) *SupabaseVerifier {
	return &SupabaseVerifier{
		url:     strings.TrimRight(url, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: userTimeout},
		lg:      zerolog.New(os.Stdout).With().Str("Module", "Auth").Timestamp().Logger(),
	}
}

func (s *SupabaseVerifier) Verify(ctx context.Context, token string) (Claims, error) {

	if token == "" {
		return Claims{}, ErrMissingToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"/auth/v1/user", nil)
	if err != nil {
		return Claims{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", s.anonKey)

	res, err := s.client.Do(req)
	if err != nil {
		s.lg.Warn().Err(err).Msg("Auth server unreachable")
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return Claims{}, fmt.Errorf("%w: status %d", ErrInvalidToken, res.StatusCode)
	}

	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(res.Body).Decode(&user); err != nil || user.ID == "" {
		return Claims{}, ErrInvalidToken
	}

	return Claims{Subject: user.ID, Email: user.Email}, nil
}
