package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Sentinel errors the engine classifies on. Safety blocks become filtered
// articles; everything else on this list becomes failed.
var (
	ErrSafetyBlocked     = errors.New("generation blocked by content safety filter")
	ErrQuotaExceeded     = errors.New("generation quota exceeded")
	ErrMalformedResponse = errors.New("malformed generation response")
)

const (
	defaultRequestTimeout = 60 * time.Second
	defaultMaxRetries     = 2
)

// ClientConfig configures the OpenAI-compatible chat-completions client.
type ClientConfig struct {
	Endpoint   string
	Model      string
	APIKey     string
	Timeout    time.Duration
	MaxRetries uint64
}

// ChatClient talks to an OpenAI-compatible chat-completions endpoint.
// Transient failures (timeouts, 429, 5xx) are retried with exponential
// backoff; safety blocks and quota exhaustion are permanent.
type ChatClient struct {
	cfg        ClientConfig
	httpClient *http.Client
}

func NewChatClient(cfg ClientConfig) *ChatClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &ChatClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Generate posts the prompt pair and returns the model's text.
func (c *ChatClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.cfg.Endpoint == "" || c.cfg.Model == "" {
		return "", fmt.Errorf("chat client misconfigured: endpoint and model are required")
	}

	var text string
	operation := func() error {
		var err error
		text, err = c.generateOnce(ctx, systemPrompt, userPrompt)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.cfg.MaxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}
	return text, nil
}

func (c *ChatClient) generateOnce(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("marshal chat payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("build chat request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// network-level failures are worth one more try
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTPFailure(resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", backoff.Permanent(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	if parsed.Error != nil {
		return "", backoff.Permanent(fmt.Errorf("%w: %s", ErrMalformedResponse, parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", backoff.Permanent(fmt.Errorf("%w: no choices", ErrMalformedResponse))
	}

	choice := parsed.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", backoff.Permanent(ErrSafetyBlocked)
	}

	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", backoff.Permanent(fmt.Errorf("%w: empty completion", ErrMalformedResponse))
	}
	return text, nil
}

func classifyHTTPFailure(status int, raw []byte) error {
	summary := strings.TrimSpace(string(raw))
	if len(summary) > 512 {
		summary = summary[:512]
	}

	switch {
	case status == http.StatusTooManyRequests:
		if strings.Contains(summary, "insufficient_quota") {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrQuotaExceeded, summary))
		}
		return fmt.Errorf("chat rate limited: %s", summary)
	case status >= 500:
		return fmt.Errorf("chat upstream error %d: %s", status, summary)
	default:
		return backoff.Permanent(fmt.Errorf("chat request rejected %d: %s", status, summary))
	}
}
