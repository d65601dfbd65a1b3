package handler

import (
	"errors"
	"testing"

	m "portfoliotracker/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestAuthHandler(t *testing.T) {

	app, ms := newTestApp(t)

	t.Run("profile", func(t *testing.T) {
		var resp m.Profile
		code := sendRequest(t, app, "GET", "/api/profile", aliceToken, nil, &resp)
		assert.Equal(t, 200, code)
		assert.Equal(t, "alice", resp.ID)
		assert.Equal(t, "alice@example.com", resp.Email)
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		code := sendRequest(t, app, "GET", "/api/profile", " ", nil, nil)
		assert.Equal(t, 401, code)
	})

	t.Run("store failure", func(t *testing.T) {
		ms.store.err = errors.New("db closed")
		defer func() { ms.store.err = nil }()

		var resp errorResponse
		code := sendRequest(t, app, "GET", "/api/profile", aliceToken, nil, &resp)
		assert.Equal(t, 500, code)
		assert.Equal(t, "Internal server error", resp.Error)
	})
}
