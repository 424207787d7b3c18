package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxWebhookTries = 3

// DelegatedJob is the body posted to the automation engine. The engine must
// later call CallbackURL with the correlation id in X-Correlation-ID.
type DelegatedJob struct {
	Domain        string `json:"domain"`
	CorrelationID string `json:"correlationId"`
	CallbackURL   string `json:"callbackUrl"`
}

// WebhookClient hands jobs to an external automation engine.
type WebhookClient struct {
	url        string
	httpClient *http.Client
	initial    time.Duration
}

// NewWebhookClient posts to url using hc (or a 10s-timeout client when nil).
func NewWebhookClient(url string, hc *http.Client) *WebhookClient {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookClient{url: url, httpClient: hc, initial: initialBackoff}
}

// Trigger posts job to the engine. Network errors, 429 and 5xx are retried up
// to three attempts in total; other 4xx replies fail immediately.
func (w *WebhookClient) Trigger(ctx context.Context, job DelegatedJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = w.initial
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, maxWebhookTries-1), ctx)

	return backoff.Retry(func() error {
		err := w.post(ctx, body)
		var se *StatusError
		if errors.As(err, &se) && se.Status < 500 && se.Status != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (w *WebhookClient) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Status: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
