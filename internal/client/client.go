// Package client is a Go client for the enrichment API, including the polling
// loop a UI runs while a job is in flight.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tbourn/go-enrich-backend/internal/domain"
)

// ErrPending is returned by Result while no result is stored for the id.
var ErrPending = errors.New("result pending")

// APIError is a non-success reply carrying the server's error envelope.
type APIError struct {
	Status    int
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Client calls the API rooted at BaseURL, e.g. "https://api.example.com/api/v1".
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client; hc nil uses a 15s-timeout client.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

// Dispatch submits site for enrichment and returns its correlation id.
// idemKey is optional; repeating it for the same site returns the original id,
// reusing it for another site fails with an *APIError carrying 409.
func (c *Client) Dispatch(ctx context.Context, site, idemKey string) (string, error) {
	hdr := http.Header{}
	if idemKey != "" {
		hdr.Set("Idempotency-Key", idemKey)
	}
	var out struct {
		CorrelationID string `json:"correlationId"`
	}
	if err := c.do(ctx, http.MethodPost, "/jobs", hdr, map[string]string{"domain": site}, &out); err != nil {
		return "", err
	}
	return out.CorrelationID, nil
}

// Result fetches the stored result for correlationID. It returns ErrPending
// on 404.
func (c *Client) Result(ctx context.Context, correlationID string) (*domain.JobPayload, error) {
	var p domain.JobPayload
	err := c.do(ctx, http.MethodGet, "/results?correlationId="+url.QueryEscape(correlationID), nil, nil, &p)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, ErrPending
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Stage stores an edited profile before sign-in and returns its temp id.
func (c *Client) Stage(ctx context.Context, p domain.Profile) (string, error) {
	var out struct {
		TempID string `json:"tempId"`
	}
	if err := c.do(ctx, http.MethodPost, "/profiles/staged", nil, p, &out); err != nil {
		return "", err
	}
	return out.TempID, nil
}

// Associate moves the staged profile tempID onto the identity in token.
func (c *Client) Associate(ctx context.Context, token, tempID string) error {
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+token)
	return c.do(ctx, http.MethodPost, "/profiles/associate", hdr, map[string]string{"tempId": tempID}, nil)
}

// Profile returns the durable profile of the identity in token.
func (c *Client) Profile(ctx context.Context, token string) (domain.Profile, error) {
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+token)
	var p domain.Profile
	if err := c.do(ctx, http.MethodGet, "/profile", hdr, nil, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Client) do(ctx context.Context, method, path string, hdr http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vv := range hdr {
		req.Header[k] = vv
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(b, apiErr)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
