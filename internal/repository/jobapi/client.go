package jobapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/pkg/apperror"
	"go-jobportal-web/pkg/metrics"
)

type Config struct {
	BaseURL      string
	Timeout      time.Duration
	ForwardToken bool // send the session's access token as a bearer token
	HTTPClient   *http.Client
}

// Client is the shared transport for the jobs REST API. It never retries;
// every call is bound to the caller's context.
type Client struct {
	baseURL      string
	forwardToken bool
	httpClient   *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jobapi: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("jobapi: parse base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		forwardToken: cfg.ForwardToken,
		httpClient:   httpClient,
	}, nil
}

// WithAccessToken attaches the session's access token for forwarding.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, domain.KeyAccessToken, token)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("jobs_api", op, err, time.Since(start)) }()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return apperror.Internal(fmt.Errorf("jobapi: encode %s: %w", op, err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return apperror.Internal(fmt.Errorf("jobapi: build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := ctx.Value(domain.KeyAccessToken).(string); ok && c.forwardToken {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperror.Upstream(0, "Could not reach the jobs service. Please try again.", fmt.Errorf("jobapi: %s: %w", op, err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return apperror.Upstream(resp.StatusCode, "The requested item was not found.", fmt.Errorf("jobapi: %s: %w", op, domain.ErrNotFound))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperror.Upstream(resp.StatusCode,
			fmt.Sprintf("The jobs service returned an error (HTTP %d).", resp.StatusCode),
			fmt.Errorf("jobapi: %s: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Upstream(resp.StatusCode, "The jobs service returned an unexpected response.", fmt.Errorf("jobapi: decode %s: %w", op, err))
	}
	return nil
}
