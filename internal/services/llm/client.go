package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"sheetlingo/internal/services"
)

const (
	defaultEndpoint    = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout = 15 * time.Second
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client talks to an OpenAI-compatible chat completion endpoint (OpenRouter by
// default). Every request asks for a JSON object reply.
type Client struct {
	cfg   Config
	http  *http.Client
	retry retryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetryMaxAttempts caps the number of attempts per request (default 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff overrides the first backoff delay and the delay ceiling.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = baseDelay
		c.retry.max = maxDelay
	}
}

// WithSleeper replaces the timer used between attempts.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.retry.sleep = sleeper
	}
}

// NewClient constructs a client from cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEndpoint
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: timeout},
		retry: defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Translate renders text in target using the tone directive. Source may be
// empty to let the model detect it. Blank text is returned unchanged without a
// request.
func (c *Client) Translate(ctx context.Context, text, source, target, tone string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return "", services.Wrap(services.ErrValidation, "translate", "llm translate", "target language required", nil)
	}
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "translate", "llm translate", "api key required", nil)
	}
	userPrompt, err := translationUserPrompt(text, source, target)
	if err != nil {
		return "", fmt.Errorf("llm translate: %w", err)
	}
	content, err := c.complete(ctx, "llm translate", TranslationSystemPrompt(source, target, tone), userPrompt)
	if err != nil {
		return "", classifyRequestError(err)
	}
	var reply struct {
		Translation *string `json:"translation"`
	}
	if err := decodeJSON(content, &reply); err != nil {
		return "", services.Wrap(services.ErrExternalService, "translate", "llm translate", "parse payload", err)
	}
	if reply.Translation == nil || strings.TrimSpace(*reply.Translation) == "" {
		return "", services.Wrap(services.ErrExternalService, "translate", "llm translate",
			"response missing translation (payload snippet: "+snippet(content)+")", nil)
	}
	return strings.TrimSpace(*reply.Translation), nil
}

func classifyRequestError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return services.Wrap(services.ErrTimeout, "translate", "llm translate", "", err)
	default:
		return services.Wrap(services.ErrExternalService, "translate", "llm translate", "", err)
	}
}

// HealthCheck issues a tiny request to verify the key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.complete(ctx, "llm health", "You must respond with JSON only.", `Respond with {"ok":true}`)
	if err != nil {
		return err
	}
	var reply struct {
		OK bool `json:"ok"`
	}
	if err := decodeJSON(content, &reply); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !reply.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// statusError is a non-2xx reply.
type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

func (e *statusError) retryable() bool {
	return e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// emptyReplyError is a 2xx reply without usable content. Models produce these
// sporadically, so they are retried.
type emptyReplyError struct {
	FinishReason string
	Refusal      string
	Body         string
}

func (e *emptyReplyError) Error() string {
	return fmt.Sprintf("empty content (finish_reason=%q, refusal=%q, response_snippet=%s)", e.FinishReason, e.Refusal, e.Body)
}

// complete sends one system/user exchange, retrying transient failures, and
// returns the reply content.
func (c *Client) complete(ctx context.Context, op, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%s: api key required", op)
	}
	if systemPrompt == "" || userPrompt == "" {
		return "", fmt.Errorf("%s: system and user prompts required", op)
	}
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("%s: encode request: %w", op, err)
	}

	for attempt := 1; ; attempt++ {
		content, err := c.post(ctx, body)
		if err == nil {
			return content, nil
		}
		delay, again := c.retry.next(ctx, err, attempt)
		if !again {
			if attempt > 1 {
				return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
			}
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if err := c.retry.wait(ctx, delay); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request (timeout=%s): %w", c.http.Timeout, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &statusError{
			Code:       resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var reply chatResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if reply.Error != nil {
		return "", fmt.Errorf("api error: %s", strings.TrimSpace(reply.Error.Message))
	}
	empty := &emptyReplyError{Body: snippet(string(raw))}
	for i, choice := range reply.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
		if i == 0 {
			empty.FinishReason = strings.TrimSpace(choice.FinishReason)
			empty.Refusal = strings.TrimSpace(choice.Message.Refusal)
		}
	}
	return "", empty
}
