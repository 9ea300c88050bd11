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

	"github.com/okian/codevoice/pkg/logger"
	"github.com/okian/codevoice/pkg/metrics"
)

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	log       logger.Logger
}

var _ Completer = (*OpenAI)(nil)

// OpenAIOption configures the OpenAI adapter.
type OpenAIOption func(*OpenAI)

// WithModel sets the model name.
func WithModel(model string) OpenAIOption {
	return func(o *OpenAI) {
		if model != "" {
			o.model = model
		}
	}
}

// WithMaxTokens sets the default response length ceiling.
func WithMaxTokens(n int) OpenAIOption {
	return func(o *OpenAI) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithTimeout bounds each call.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(o *OpenAI) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l logger.Logger) OpenAIOption {
	return func(o *OpenAI) {
		if l != nil {
			o.log = l
		}
	}
}

// NewOpenAI builds a client for baseURL. An empty apiKey is a configuration
// error reported up front rather than on the first call.
func NewOpenAI(baseURL, apiKey string, opts ...OpenAIOption) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredential
	}
	o := &OpenAI{
		model:     "gpt-oss-120b",
		maxTokens: 800,
		timeout:   30 * time.Second,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are owned by Retrying so they show up in metrics.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	o.client = openai.NewClient(clientOpts...)
	return o, nil
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	maxTokens := o.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages:    openai.F(messages),
		Model:       openai.F(openai.ChatModel(o.model)),
		MaxTokens:   openai.F(int64(maxTokens)),
		Temperature: openai.F(req.Temperature),
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	metrics.RecordLLMLatency(req.Purpose, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordLLMError(req.Purpose)
		o.log.Warn(ctx, "completion failed",
			logger.String("purpose", req.Purpose),
			logger.String("model", o.model),
			logger.Error(err))
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		metrics.RecordLLMError(req.Purpose)
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// PermanentError is a failure retrying cannot fix, such as a rejected key.
type PermanentError struct {
	StatusCode int
	Err        error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("status %d: %v", e.StatusCode, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		code := apiErr.StatusCode
		if code >= http.StatusBadRequest && code < http.StatusInternalServerError && code != http.StatusTooManyRequests {
			return &PermanentError{StatusCode: code, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
		}
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
