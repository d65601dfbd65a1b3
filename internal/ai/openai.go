package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/rs/zerolog"
)

const (
	openaiAttempts = 3
	openaiBackoff  = 400 * time.Millisecond
)

var defaultOpenAIModels = []string{"gpt-4o-mini", "gpt-4o"}

type OpenAI struct {
	client openai.Client
	models []string
	sleep  func(time.Duration)
	lg     zerolog.Logger
}

func NewOpenAI(apiKey string, models []string, opts ...option.RequestOption) *OpenAI {

	if len(models) == 0 {
		models = defaultOpenAIModels
	}

	// retries are handled here so the backoff stays under our control
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)

	return &OpenAI{
		client: openai.NewClient(opts...),
		models: models,
		sleep:  time.Sleep,
		lg:     zerolog.New(os.Stdout).With().Str("Module", "OpenAI").Timestamp().Logger(),
	}
}

func (o *OpenAI) Name() string {
	return "openai"
}

// Complete walks the model list. Each model gets a few attempts with a growing pause; a rejected key or an exhausted quota ends the walk.
func (o *OpenAI) Complete(ctx context.Context, p Prompt) (string, error) {

	var lastErr error
	for _, model := range o.models {
		for attempt := 0; attempt < openaiAttempts; attempt++ {

			text, err := o.complete(ctx, model, p)
			if err == nil {
				return text, nil
			}

			err = classifyOpenAIError(err)
			if errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrRateLimited) {
				return "", err
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}

			lastErr = err
			o.lg.Warn().Err(err).Str("model", model).Int("attempt", attempt+1).Msg("Completion attempt failed")
			if attempt < openaiAttempts-1 {
				o.sleep(openaiBackoff * time.Duration(attempt+1))
			}
		}
	}
	return "", fmt.Errorf("openai completion failed. %w", lastErr)
}

func (o *OpenAI) complete(ctx context.Context, model string, p Prompt) (string, error) {

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
	}
	if p.Temperature > 0 {
		params.Temperature = openai.Float(p.Temperature)
	}
	if p.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(p.MaxTokens)
	}
	if p.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	o.lg.Debug().Str("model", model).Int64("tokens", resp.Usage.TotalTokens).Msg("Completion received")
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) error {

	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w. %s", ErrInvalidKey, apiErr.Message)
	case apiErr.StatusCode == http.StatusTooManyRequests, apiErr.Code == "insufficient_quota":
		return fmt.Errorf("%w. %s", ErrRateLimited, apiErr.Message)
	}
	return err
}
