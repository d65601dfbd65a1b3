package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"portfoliotracker/app/middleware"
	"portfoliotracker/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const (
	aliceToken = "token-alice"
	bobToken   = "token-bob"
)

type mocks struct {
	tracker  *TrackerMock
	store    *StoreMock
	screener *ScreenerMock
	reviewer *ReviewerMock
	prices   *PriceFetcherMock
}

func newTestApp(t *testing.T) (*fiber.App, *mocks) {
	t.Helper()

	app := fiber.New()
	middleware.SetupMiddleware(app, "*")

	ms := &mocks{
		tracker:  &TrackerMock{},
		store:    &StoreMock{},
		screener: &ScreenerMock{},
		reviewer: &ReviewerMock{},
		prices:   &PriceFetcherMock{},
	}

	v := VerifierMock{tokens: map[string]auth.Claims{
		aliceToken: {Subject: "alice", Email: "alice@example.com"},
		bobToken:   {Subject: "bob", Email: "bob@example.com"},
	}}
	a := NewAuthHandler(v, ms.store)
	a.InitRoute(app)

	NewKrakenHandler(ms.tracker, ms.tracker, ms.tracker, a.AuthMiddleware).InitRoute(app)
	NewAssetHandler(ms.store, ms.store, a.AuthMiddleware).InitRoute(app)
	NewPortfolioHandler(ms.store, ms.store, a.AuthMiddleware).InitRoute(app)
	NewAnalysisHandler(ms.store, a.AuthMiddleware).InitRoute(app)
	NewAIHandler(ms.screener, ms.reviewer, ms.store, a.AuthMiddleware).InitRoute(app)
	NewMarketHandler(ms.prices).InitRoute(app)

	return app, ms
}

// sendRequest issues one JSON request and decodes the body into resp when given.
func sendRequest(t *testing.T, app *fiber.App, method, url, token string, body, resp any) int {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	if resp != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(resp))
	}
	return res.StatusCode
}
