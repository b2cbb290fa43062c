// ABOUTME: REST client for an Alfresco-compatible content repository
// ABOUTME: Basic auth, traced transport, circuit breaker and retries for reads only

package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nainya/contentmcp/pkg/repository"
)

const (
	corePath      = "/alfresco/api/-default-/public/alfresco/versions/1"
	searchPath    = "/alfresco/api/-default-/public/search/versions/1/search"
	discoveryPath = "/alfresco/api/discovery"
)

// Config describes how to reach the repository
type Config struct {
	BaseURL    string
	Username   string
	Password   string
	Timeout    time.Duration
	VerifySSL  bool
	MaxRetries int
	RetryDelay time.Duration
	Transport  http.RoundTripper // defaults to a cloned http.DefaultTransport
}

// Client talks to the repository over its public REST API
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
}

// New builds a client. BaseURL is the server root, e.g. http://localhost:8080.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("rest: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	base := cfg.Transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if !cfg.VerifySSL {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed servers
		}
		base = t
	}
	c := &Client{
		baseURL:  strings.TrimRight(u.String(), "/"),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "content-repository",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.ClientError()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c, nil
}

// BaseURL returns the server root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BreakerState reports the circuit breaker state
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// request is one API call
type request struct {
	method      string
	path        string // absolute path below the server root
	query       url.Values
	body        []byte
	contentType string
	lockOp      bool
	idempotent  bool
}

func jsonRequest(method, path string, payload any) (request, error) {
	r := request{method: method, path: path, idempotent: method == http.MethodGet}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return r, fmt.Errorf("marshal request: %w", err)
		}
		r.body = b
		r.contentType = "application/json"
	}
	return r, nil
}

// do runs r and returns the response body. Only idempotent requests retry.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	attempts := 1
	if r.idempotent {
		attempts += c.maxRetries
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.retryDelay
			if backoff > 5*time.Second {
				backoff = 5 * time.Second
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, transportError(r, ctx.Err())
			}
		}
		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.roundTrip(ctx, r)
		})
		if err == nil {
			return out.([]byte), nil
		}
		lastErr = err
		if !shouldRetry(err) {
			break
		}
	}
	var apiErr *APIError
	if errors.As(lastErr, &apiErr) {
		return nil, apiErr
	}
	return nil, transportError(r, lastErr)
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return true
}

func (c *Client) roundTrip(ctx context.Context, r request) ([]byte, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w: %w", errNotSent, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(r.method, r.path, resp.StatusCode, respBody, r.lockOp)
	}
	return respBody, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	r, _ := jsonRequest(http.MethodGet, path, nil)
	r.query = query
	return c.call(ctx, r, out)
}

func (c *Client) call(ctx context.Context, r request, out any) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %v: %w", r.method, r.path, err, repository.ErrUnavailable)
	}
	return nil
}

func nodePath(ref repository.NodeRef, suffix string) string {
	return corePath + "/nodes/" + url.PathEscape(ref.String()) + suffix
}

var _ repository.Client = (*Client)(nil)
