package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/mcp-calculator-lab/internal/config"
	"github.com/mcp-calculator-lab/internal/logging"
)

// Client talks to an OpenAI-compatible chat-completions endpoint. A
// fallback model, when configured, is tried once after a transient failure.
type Client struct {
	api           openai.Client
	model         string
	fallback      string
	maxTokens     int
	fallbackDelay time.Duration
}

// ChatRequest is one chat-completions call. Zero Model and MaxTokens take
// the client defaults.
type ChatRequest struct {
	Model     string
	Messages  []openai.ChatCompletionMessageParamUnion
	Tools     []openai.ChatCompletionToolParam
	MaxTokens int
}

// ChatResponse is the first choice of a completion.
type ChatResponse struct {
	ID        string
	Model     string
	Content   string
	ToolCalls []ToolCall
}

// ToolCall is one function call requested by the model. Arguments is the
// raw JSON text the model produced.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

var (
	ErrPermanent = errors.New("permanent error")
	ErrTransient = errors.New("transient error")
)

// NewClient builds a client from the model section of the configuration.
func NewClient(cfg config.ModelConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = config.DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(base, "/") + "/"),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	model := cfg.Name
	if model == "" {
		model = config.DefaultModel
	}
	return &Client{
		api:           openai.NewClient(opts...),
		model:         model,
		fallback:      cfg.FallbackName,
		maxTokens:     cfg.MaxTokens,
		fallbackDelay: cfg.FallbackDelay,
	}
}

// Model returns the default model name.
func (c *Client) Model() string { return c.model }

// CreateChatCompletion sends req and returns the first choice.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	resp, err := c.create(ctx, model, req)
	if err == nil || !errors.Is(err, ErrTransient) {
		return resp, err
	}
	if c.fallback == "" || c.fallback == model {
		return resp, err
	}

	logging.Warnw("model call failed, trying fallback", "model", model, "fallback", c.fallback, "err", err)
	select {
	case <-ctx.Done():
		return ChatResponse{}, fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
	case <-time.After(c.fallbackDelay):
	}
	return c.create(ctx, c.fallback, req)
}

func (c *Client) create(ctx context.Context, model string, req ChatRequest) (ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: req.Messages,
	}
	if len(req.Tools) > 0 {
		params.Tools = req.Tools
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return ChatResponse{}, classify(model, err)
	}
	if len(completion.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("%w: model %s returned no choices", ErrTransient, model)
	}

	msg := completion.Choices[0].Message
	out := ChatResponse{
		ID:      completion.ID,
		Model:   completion.Model,
		Content: msg.Content,
	}
	for i, tc := range msg.ToolCalls {
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// classify maps an API error onto ErrTransient (network, 429, 5xx) or
// ErrPermanent (other statuses).
func classify(model string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return fmt.Errorf("%w: model %s: status %d: %v", ErrTransient, model, apiErr.StatusCode, err)
		}
		return fmt.Errorf("%w: model %s: status %d: %v", ErrPermanent, model, apiErr.StatusCode, err)
	}
	return fmt.Errorf("%w: model %s: %v", ErrTransient, model, err)
}
