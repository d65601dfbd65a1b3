package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"%s",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%q}}],
"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`

// openaiServer answers per model: a status code, or 200 with the given content.
func openaiServer(t *testing.T, status map[string]int, content string, calls *sync.Map) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model          string `json:"model"`
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "json_object", body.ResponseFormat.Type)

		n, _ := calls.LoadOrStore(body.Model, new(int))
		*n.(*int)++

		w.Header().Set("Content-Type", "application/json")
		if code, ok := status[body.Model]; ok {
			w.WriteHeader(code)
			fmt.Fprintf(w, `{"error":{"message":"status %d","type":"error","code":null}}`, code)
			return
		}
		fmt.Fprintf(w, completionBody, body.Model, content)
	}))
}

func newTestOpenAI(url string, models ...string) *OpenAI {
	o := NewOpenAI("sk-test", models, option.WithBaseURL(url+"/"))
	o.sleep = func(time.Duration) {}
	return o
}

func callCount(calls *sync.Map, model string) int {
	n, ok := calls.Load(model)
	if !ok {
		return 0
	}
	return *n.(*int)
}

func TestOpenAI(t *testing.T) {

	prompt := Prompt{System: "sys", User: "user", JSON: true, Temperature: 0.7, MaxTokens: 100}

	t.Run("falls through to the next model", func(t *testing.T) {
		var calls sync.Map
		srv := openaiServer(t, map[string]int{"gpt-4o-mini": http.StatusInternalServerError}, `{"ok":true}`, &calls)
		defer srv.Close()

		text, err := newTestOpenAI(srv.URL, "gpt-4o-mini", "gpt-4o").Complete(context.Background(), prompt)
		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, text)
		assert.Equal(t, 3, callCount(&calls, "gpt-4o-mini"))
		assert.Equal(t, 1, callCount(&calls, "gpt-4o"))
	})

	t.Run("invalid key stops at once", func(t *testing.T) {
		var calls sync.Map
		srv := openaiServer(t, map[string]int{"gpt-4o-mini": http.StatusUnauthorized}, "", &calls)
		defer srv.Close()

		_, err := newTestOpenAI(srv.URL, "gpt-4o-mini", "gpt-4o").Complete(context.Background(), prompt)
		assert.ErrorIs(t, err, ErrInvalidKey)
		assert.Equal(t, 1, callCount(&calls, "gpt-4o-mini"))
		assert.Equal(t, 0, callCount(&calls, "gpt-4o"))
	})

	t.Run("quota stops at once", func(t *testing.T) {
		var calls sync.Map
		srv := openaiServer(t, map[string]int{"gpt-4o-mini": http.StatusTooManyRequests}, "", &calls)
		defer srv.Close()

		_, err := newTestOpenAI(srv.URL, "gpt-4o-mini").Complete(context.Background(), prompt)
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, 1, callCount(&calls, "gpt-4o-mini"))
	})

	t.Run("empty content counts as a failure", func(t *testing.T) {
		var calls sync.Map
		srv := openaiServer(t, nil, "  ", &calls)
		defer srv.Close()

		_, err := newTestOpenAI(srv.URL, "gpt-4o-mini").Complete(context.Background(), prompt)
		assert.ErrorIs(t, err, ErrEmptyResponse)
		assert.Equal(t, 3, callCount(&calls, "gpt-4o-mini"))
	})
}

type failingCompleter struct {
	err error
}

func (f failingCompleter) Name() string {
	return "failing"
}

func (f failingCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	return "", f.err
}

func TestChain(t *testing.T) {

	t.Run("first success wins", func(t *testing.T) {
		second := &completerMock{text: "{}"}
		text, err := NewChain(failingCompleter{err: ErrRateLimited}, second).Complete(context.Background(), Prompt{})
		require.NoError(t, err)
		assert.Equal(t, "{}", text)
		assert.Len(t, second.prompts, 1)
	})

	t.Run("all failing keeps every cause", func(t *testing.T) {
		_, err := NewChain(failingCompleter{err: ErrInvalidKey}, failingCompleter{err: errors.New("boom")}).Complete(context.Background(), Prompt{})
		assert.ErrorIs(t, err, ErrInvalidKey)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("nothing configured", func(t *testing.T) {
		c, err := New(context.Background(), &Config{})
		require.NoError(t, err)
		_, err = c.Complete(context.Background(), Prompt{})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}
