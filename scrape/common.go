package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

var httpClient = &http.Client{}

// StatusError is returned for non-2xx responses. Body holds the start of the response body.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP request failed with status %d: %s", e.Code, e.Body)
}

/*
memo.
response is decoded even on a failed status, since some upstreams put their error list in the body.
the StatusError is still returned so callers decide which one wins.
*/
func sendRequest(ctx context.Context, lg *zerolog.Logger, timeout time.Duration, url string, method string, header map[string]string, body io.Reader, response any) error {

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("error making request\n%w", err)
	}

	for k, v := range header {
		req.Header.Set(k, v)
	}

	lg.Debug().Str("method", method).Str("url", url).Msg("Executing request")

	res, err := httpClient.Do(req)
	if err != nil {
		lg.Warn().Err(err).Str("url", url).Msg("Request failed")
		return fmt.Errorf("error sending request\n%w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	lg.Debug().Int("status", res.StatusCode).Int("bytes", len(raw)).Msg("Response received")

	decodeErr := json.Unmarshal(raw, response)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet := string(raw)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return &StatusError{Code: res.StatusCode, Body: snippet}
	}

	if decodeErr != nil {
		return fmt.Errorf("failed to unmarshal response: %w", decodeErr)
	}
	return nil
}
