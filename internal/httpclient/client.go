package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
)

// Request represents an outbound HTTP request
type Request struct {
	Method   string
	URL      string
	Headers  map[string]string
	Body     []byte
	Username string
	Password string
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Client sends outbound requests with retries
type Client struct {
	client *retryablehttp.Client
}

// ClientConfig holds configuration for the HTTP client
type ClientConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryWait  time.Duration
}

// New creates a client retrying connection errors and 5xx/429 responses
func New(cfg ClientConfig, logger *logrus.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	if cfg.RetryWait > 0 {
		rc.RetryWaitMin = cfg.RetryWait
		rc.RetryWaitMax = 4 * cfg.RetryWait
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	rc.Logger = NewLogger(logger)
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return &Client{client: rc}
}

// Standard returns a net/http client backed by the same retry policy, for
// SDKs that accept their own *http.Client
func (c *Client) Standard() *http.Client {
	return c.client.StandardClient()
}

// Send makes the request and returns the response. Non-2xx responses are
// returned as *Error.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	var body any
	if req.Body != nil {
		body = req.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("error building request").
			Mark(ierr.ErrSystem)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Username != "" {
		httpReq.SetBasicAuth(req.Username, req.Password)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessagef("%s %s failed", req.Method, redact(req.URL)).
			Mark(ierr.ErrDependency)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("error reading response body").
			Mark(ierr.ErrDependency)
	}

	if resp.StatusCode >= 300 {
		return nil, NewError(resp.StatusCode, respBody)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    resp.Header,
	}, nil
}

// redact drops the query string so keys passed as parameters are not logged
func redact(raw string) string {
	base, _, _ := strings.Cut(raw, "?")
	return base
}

// Error represents a non-2xx response
type Error struct {
	StatusCode int
	Response   []byte
}

func (e *Error) Error() string {
	body := string(e.Response)
	if len([]rune(body)) > 200 {
		body = string([]rune(body)[:200])
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, body)
}

// NewError creates a new HTTP error
func NewError(statusCode int, response []byte) *Error {
	return &Error{StatusCode: statusCode, Response: response}
}

// IsHTTPError checks if an error is an HTTP response error
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if ierr.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
