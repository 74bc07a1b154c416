package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/observability"
)

// DefaultTimeout bounds a whole request, body included.
const DefaultTimeout = 5 * time.Minute

// Client performs GET requests with default headers, status classification
// and observability hooks.
type Client struct {
	http    *http.Client
	headers map[string]string
}

// NewClient creates a Client. A nil hc uses an http.Client with
// [DefaultTimeout]. Headers are applied to every request.
func NewClient(hc *http.Client, headers map[string]string) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{http: hc, headers: headers}
}

// Open issues a GET for url and returns the response body with its declared
// length (-1 when unknown). The caller must close the body.
//
// Transport failures, 5xx and 429 responses are [RetryableError]s; a 404 is
// FILE_NOT_FOUND; other non-200 statuses are NETWORK_ERROR.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid request url")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, Retryable(errs.Wrap(errs.ErrCodeNetwork, err, "GET %s", url))
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp, url); err != nil {
		resp.Body.Close()
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

// Get reads the whole response body of url.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	body, _, err := c.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, Retryable(errs.Wrap(errs.ErrCodeNetwork, err, "read %s", url))
	}
	return data, nil
}

func checkStatus(resp *http.Response, url string) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errs.New(errs.ErrCodeFileNotFound, "GET %s: status %d", url, code)
	case code == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return Retryable(errs.Wrap(errs.ErrCodeRateLimited, &errs.RateLimitedError{RetryAfter: retryAfter}, "GET %s", url))
	case code >= 500:
		return Retryable(errs.New(errs.ErrCodeNetwork, "GET %s: status %d", url, code))
	default:
		return errs.New(errs.ErrCodeNetwork, "GET %s: status %d", url, code)
	}
}
