package enrich

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
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const (
	defaultSystemPrompt = "Be precise and concise. Reply ONLY with the requested information, no other text or explanation."
	maxCompletionTries  = 3
	initialBackoff      = 500 * time.Millisecond
)

// ErrBreakerOpen is returned while the completion circuit breaker is open.
var ErrBreakerOpen = errors.New("completion service unavailable")

// CompletionOptions configures NewCompletionClient.
type CompletionOptions struct {
	BaseURL      string // e.g. https://api.perplexity.ai
	APIKey       string
	Model        string
	Timeout      time.Duration // per HTTP attempt
	SystemPrompt string
	HTTPClient   *http.Client

	// HalfOpenRequests is how many calls the breaker admits while probing a
	// recovered upstream. A direct fan-out sends its whole batch at once, so
	// this must be at least the prompt count; zero means len(DefaultPrompts).
	HalfOpenRequests uint32
	// BreakerTimeout is how long the breaker stays open before probing.
	// Default 30s.
	BreakerTimeout time.Duration
}

// CompletionClient asks a chat-completions endpoint one question at a time.
// Calls run through a circuit breaker; HTTP 429 is retried with exponential
// backoff, every other failure is returned as-is.
type CompletionClient struct {
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker
	initial      time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// StatusError is a non-2xx reply from an upstream producer.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// NewCompletionClient builds a client with its own circuit breaker.
func NewCompletionClient(opts CompletionOptions) *CompletionClient {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	sys := opts.SystemPrompt
	if sys == "" {
		sys = defaultSystemPrompt
	}
	c := &CompletionClient{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		model:        opts.Model,
		systemPrompt: sys,
		httpClient:   hc,
		initial:      initialBackoff,
	}
	probe := opts.HalfOpenRequests
	if probe == 0 {
		probe = uint32(len(DefaultPrompts))
	}
	openFor := opts.BreakerTimeout
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "completion",
		MaxRequests: probe,
		Interval:    time.Minute,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about upstream health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	return c
}

// Available reports whether the breaker currently admits requests.
func (c *CompletionClient) Available() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

// Complete returns the model's answer to prompt. An empty answer is an error.
func (c *CompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.completeWithRetry(ctx, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", ErrBreakerOpen
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *CompletionClient) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initial
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, maxCompletionTries-1), ctx)

	var answer string
	err = backoff.Retry(func() error {
		a, err := c.do(ctx, body)
		if err == nil {
			answer = a
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusTooManyRequests {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	return answer, err
}

func (c *CompletionClient) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &StatusError{Status: resp.StatusCode, Body: string(b)}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	answer := strings.TrimSpace(cr.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("completion returned an empty answer")
	}
	return answer, nil
}
