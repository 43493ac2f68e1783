package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	InstallPath  = "/v1/events/install"
	PurchasePath = "/v1/events/purchase"
)

// RetryableStatus are the response codes that trigger a retry.
var RetryableStatus = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// ErrUnsupportedEvent is returned by Send for event types without an endpoint.
var ErrUnsupportedEvent = errors.New("sdk: unsupported event type")

// Config configures a Client.
type Config struct {
	BaseURL string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Timeout bounds each HTTP attempt, not the whole retry sequence.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BackoffFactor is the first retry delay; each later delay doubles it.
	BackoffFactor time.Duration
}

// DefaultConfig returns the standard settings for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		MaxRetries:    3,
		BackoffFactor: 500 * time.Millisecond,
	}
}

// Client sends events to the ingestion API. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *retryablehttp.Client
}

func NewClient(cfg Config) *Client {
	def := DefaultConfig(cfg.BaseURL)
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = def.BackoffFactor
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.BackoffFactor
	rc.RetryWaitMax = cfg.BackoffFactor << cfg.MaxRetries
	rc.Backoff = retryablehttp.DefaultBackoff
	rc.CheckRetry = retryPolicy
	// Hand back the last response once retries run out instead of an error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil

	return &Client{cfg: cfg, http: rc}
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return slices.Contains(RetryableStatus, resp.StatusCode), nil
}

// Response is the final HTTP response after any retries.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Ack decodes the acknowledgment body of a successful response.
func (r *Response) Ack() (Ack, error) {
	if !r.OK() {
		return Ack{}, fmt.Errorf("sdk: status %d: %s", r.StatusCode, bytes.TrimSpace(r.Body))
	}
	var ack Ack
	if err := json.Unmarshal(r.Body, &ack); err != nil {
		return Ack{}, fmt.Errorf("sdk: decode ack: %w", err)
	}
	return ack, nil
}

func (c *Client) SendInstall(ctx context.Context, e InstallEvent) (*Response, error) {
	return c.post(ctx, InstallPath, e)
}

func (c *Client) SendPurchase(ctx context.Context, e PurchaseEvent) (*Response, error) {
	return c.post(ctx, PurchasePath, e)
}

// Send routes e to the endpoint for its concrete type.
func (c *Client) Send(ctx context.Context, e Event) (*Response, error) {
	switch ev := e.(type) {
	case InstallEvent:
		return c.SendInstall(ctx, ev)
	case *InstallEvent:
		return c.SendInstall(ctx, *ev)
	case PurchaseEvent:
		return c.SendPurchase(ctx, ev)
	case *PurchaseEvent:
		return c.SendPurchase(ctx, *ev)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedEvent, e)
	}
}

func (c *Client) post(ctx context.Context, path string, e any) (*Response, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("sdk: encode event: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sdk: read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: out}, nil
}
