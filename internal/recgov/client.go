package recgov

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://www.recreation.gov"
	DefaultUserAgent = "rec-availability/0.1"
	DefaultTimeout   = 10 * time.Second
	DefaultRetries   = 2

	startDateLayout = "2006-01-02T00:00:00.000Z"
)

type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// Retries is how many times a transient failure is retried. Negative disables retry.
	Retries       int
	RetryInterval time.Duration
	Logger        *zap.Logger
}

// Client is a recreation.gov API client scoped to one run.
type Client struct {
	http          *resty.Client
	retries       int
	retryInterval time.Duration
	logger        *zap.Logger
}

// StatusError is a non-2xx API response.
type StatusError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	retryInterval := opts.RetryInterval
	if retryInterval <= 0 {
		retryInterval = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	return &Client{
		http:          httpClient,
		retries:       retries,
		retryInterval: retryInterval,
		logger:        logger,
	}
}

func (c *Client) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}

// get issues a GET and decodes the JSON body into out, retrying transient failures.
func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	bo.MaxInterval = 10 * c.retryInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.retries)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		c.logger.Debug("api request",
			zap.String("path", path),
			zap.Any("query", query),
			zap.Int("attempt", attempt))

		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(query).
			Get(path)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("request %s: %w", path, ctx.Err()))
			}
			return fmt.Errorf("request %s: %w", path, err)
		}

		if !res.IsSuccess() {
			statusErr := &StatusError{
				StatusCode: res.StatusCode(),
				Path:       path,
				Body:       summarizeBody(res.Body()),
			}
			if statusErr.Temporary() {
				c.logger.Debug("retryable api response", zap.String("path", path), zap.Int("status", statusErr.StatusCode))
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		if err := json.Unmarshal(res.Body(), out); err != nil {
			return backoff.Permanent(&ParseError{Path: path, Field: "body", Reason: err.Error()})
		}
		return nil
	}, policy)
}

func monthQuery(month time.Time) map[string]string {
	return map[string]string{"start_date": month.UTC().Format(startDateLayout)}
}

// IsParseError reports whether err carries a malformed-response failure.
func IsParseError(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr)
}

func summarizeBody(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 180 {
		return s[:180] + "..."
	}
	return s
}
