package equity

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

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lox/pokerrating/internal/retry"
)

const (
	WinPercentagePath      = "/holdem/calc/win/percentage"
	ShowdownPercentagePath = "/holdem/calc/showdown/percentage"

	maxResponseBytes = 1 << 20
)

// ErrOracle wraps every failed oracle call
var ErrOracle = errors.New("equity oracle")

// HTTPError is a non-2xx oracle response
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("oracle returned status %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ClientConfig configures the HTTP oracle client
type ClientConfig struct {
	Endpoint       string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	Retry          retry.Policy
	// RateLimit is requests per second across both endpoints, 0 disables it
	RateLimit float64
	Burst     int
}

// DefaultClientConfig mirrors the calculator service's documented limits
func DefaultClientConfig(endpoint string) ClientConfig {
	return ClientConfig{
		Endpoint:       endpoint,
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 120 * time.Second,
		Retry:          retry.Policy{Attempts: 5, MinDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond},
		RateLimit:      50,
		Burst:          10,
	}
}

// Client calls the holdem calculator over HTTP
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	clock   quartz.Clock
	logger  zerolog.Logger
}

// NewClient creates an oracle client. A nil clock uses the real clock.
func NewClient(cfg ClientConfig, logger zerolog.Logger, clock quartz.Clock) *Client {
	if clock == nil {
		clock = quartz.NewReal()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Transport: transport},
		limiter: limiter,
		clock:   clock,
		logger:  logger.With().Str("component", "oracle").Logger(),
	}
}

func (c *Client) WinPercentage(ctx context.Context, req WinRequest) (*WinResponse, error) {
	var resp WinResponse
	if err := c.post(ctx, WinPercentagePath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ShowdownPercentage(ctx context.Context, req ShowdownRequest) (*ShowdownResponse, error) {
	var resp ShowdownResponse
	if err := c.post(ctx, ShowdownPercentagePath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", ErrOracle, err)
	}
	url := strings.TrimRight(c.cfg.Endpoint, "/") + path

	attempt := 0
	err = retry.Do(ctx, c.clock, c.cfg.Retry, func(ctx context.Context) error {
		attempt++
		err := c.send(ctx, url, payload, out)
		if err == nil {
			return nil
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !httpErr.retryable() {
			return retry.Permanent(err)
		}
		c.logger.Warn().Err(err).Str("path", path).Int("attempt", attempt).Msg("Oracle call failed")
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOracle, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, url string, payload []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return retry.Permanent(err)
	}
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return retry.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
