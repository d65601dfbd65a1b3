package ai

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"
)

var (
	ErrNotConfigured = errors.New("AI service is not configured")
	ErrInvalidKey    = errors.New("invalid AI API key")
	ErrRateLimited   = errors.New("AI quota exceeded or rate limited")
	ErrEmptyResponse = errors.New("no response from AI service")
	ErrUnparseable   = errors.New("unparseable AI response")
	ErrBadPortfolio  = errors.New("portfolio is not a valid portfolio view")
)

type Config struct {
	OpenAIKey    string
	OpenAIModels []string
	GeminiKey    string
	GeminiModel  string
}

// Prompt is one system+user exchange with a language model.
type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
	JSON        bool
}

type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	Name() string
}

// Chain asks each completer in turn and returns the first answer.
type Chain struct {
	completers []Completer
	lg         zerolog.Logger
}

func NewChain(completers ...Completer) *Chain {
	return &Chain{
		completers: completers,
		lg:         zerolog.New(os.Stdout).With().Str("Module", "AI").Timestamp().Logger(),
	}
}

func (c *Chain) Name() string {
	return "chain"
}

func (c *Chain) Complete(ctx context.Context, p Prompt) (string, error) {

	if len(c.completers) == 0 {
		return "", ErrNotConfigured
	}

	var errs []error
	for _, cp := range c.completers {
		text, err := cp.Complete(ctx, p)
		if err == nil {
			return text, nil
		}
		c.lg.Warn().Err(err).Str("provider", cp.Name()).Msg("Completion failed")
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}

// New builds the provider chain from whichever keys are configured. OpenAI goes first.
func New(ctx context.Context, conf *Config) (*Chain, error) {

	var completers []Completer
	if conf.OpenAIKey != "" {
		completers = append(completers, NewOpenAI(conf.OpenAIKey, conf.OpenAIModels))
	}
	if conf.GeminiKey != "" {
		g, err := NewGemini(ctx, conf.GeminiKey, conf.GeminiModel)
		if err != nil {
			return nil, err
		}
		completers = append(completers, g)
	}

	return NewChain(completers...), nil
}
