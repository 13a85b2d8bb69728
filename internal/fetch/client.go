// Package fetch issues GET requests against JSON HTTP APIs.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ajramos/asyncprobe/internal/logging"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the endpoint probed when none is configured
const DefaultBaseURL = "https://api.github.com"

var (
	// ErrUnexpectedStatus is wrapped by StatusError
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	// ErrInvalidPayload means the body was not a JSON object
	ErrInvalidPayload = errors.New("response is not a JSON object")
)

// StatusError reports a non-2xx response
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned %s", e.URL, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Options configures a Client
type Options struct {
	BaseURL   string
	Timeout   time.Duration // zero disables the client timeout
	UserAgent string
	// TokenSource adds an Authorization header when set
	TokenSource oauth2.TokenSource
	// Transport replaces http.DefaultTransport, mainly for tests
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client fetches JSON documents relative to a base URL
type Client struct {
	rc      *resty.Client
	baseURL string
	logger  *zap.Logger
}

// New creates a Client from opts
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := logging.OrNop(opts.Logger)

	var transport http.RoundTripper = http.DefaultTransport
	if opts.Transport != nil {
		transport = opts.Transport
	}
	if opts.TokenSource != nil {
		transport = &oauth2.Transport{Source: opts.TokenSource, Base: transport}
	}

	rc := resty.NewWithClient(&http.Client{Transport: transport}).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		rc.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Client{
		rc:      rc,
		baseURL: baseURL,
		logger:  logger.Named("fetch"),
	}
}

// BaseURL returns the normalized base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetJSON performs a single GET and decodes the body into a key/value map.
// There is no retry; any transport error is returned as is.
func (c *Client) GetJSON(ctx context.Context, path string) (map[string]any, error) {
	start := time.Now()
	resp, err := c.rc.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s%s: %w", c.baseURL, path, err)
	}

	c.logger.Debug("response received",
		zap.String("url", resp.Request.URL),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)))

	if !resp.IsSuccess() {
		return nil, &StatusError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			URL:        resp.Request.URL,
		}
	}

	var out map[string]any
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: null body", ErrInvalidPayload)
	}
	return out, nil
}
