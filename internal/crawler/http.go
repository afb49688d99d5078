package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/navid-fn/marketarchive/internal/models"
)

// maxBodyBytes bounds how much of a response we read.
const maxBodyBytes = 32 << 20

type HTTPConfig struct {
	BaseURL        string
	Proxy          string
	RateLimiter    *rate.Limiter
	RequestTimeout time.Duration
}

func DefaultHTTPConfig(baseURL string, requestsPerSecond float64) *HTTPConfig {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	return &HTTPConfig{
		BaseURL:        baseURL,
		RateLimiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), DefaultBurst),
		RequestTimeout: DefaultRequestTimeout,
	}
}

// HTTPConfigFromOptions applies driver options over the defaults.
func HTTPConfigFromOptions(defaultBaseURL string, opts Options) *HTTPConfig {
	baseURL := defaultBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	cfg := DefaultHTTPConfig(baseURL, opts.RequestsPerSecond)
	cfg.Proxy = opts.Proxy
	if opts.Timeout > 0 {
		cfg.RequestTimeout = opts.Timeout
	}
	return cfg
}

// Throttled lets a driver flag a 200 response whose body carries an
// exchange-level throttle code.
type Throttled func(status int, body []byte) bool

// Client is the GET-only HTTP capability shared by exchange drivers.
// It maps failures onto the models error taxonomy.
type Client struct {
	Config    *HTTPConfig
	Logger    logrus.FieldLogger
	Throttled Throttled

	http *http.Client
}

func NewClient(config *HTTPConfig, logger logrus.FieldLogger) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", config.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		Config: config,
		Logger: logger,
		http: &http.Client{
			Transport: transport,
			Timeout:   config.RequestTimeout,
		},
	}, nil
}

// URL joins the base URL, a path and query parameters.
func (c *Client) URL(path string, query url.Values) string {
	u := c.Config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// GetJSON performs a rate limited GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	body, err := c.Get(ctx, op, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &models.SchemaError{Op: op, Err: err}
	}
	return nil
}

// Get performs a rate limited GET and returns the raw body of a 2xx response.
func (c *Client) Get(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	if err := c.Config.RateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	target := c.URL(path, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &models.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.Logger.WithField("url", target).Debug("GET")
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &models.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &models.TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot ||
		(c.Throttled != nil && c.Throttled(resp.StatusCode, body)) {
		return nil, &models.RateLimitError{
			Op:         op,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        errors.New(snippet(body)),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(snippet(body))}
	}
	return body, nil
}

// parseRetryAfter understands both delta-seconds and HTTP-date values.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func snippet(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
