// Package httpx builds the HTTP clients used by the metadata providers:
// bounded retries with exponential backoff, a shared request rate limit and
// JSON helpers.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultBackoff   = 500 * time.Millisecond
	defaultUserAgent = "renamer/1.0"
)

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error (status %d) from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("API error (status %d) from %s: %s", e.StatusCode, e.URL, e.Body)
}

// IsNotFound reports whether err is a 404 APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Transport retries idempotent requests that fail with a transport error,
// 429 or 5xx, and waits on Limiter before every attempt.
type Transport struct {
	Base      http.RoundTripper
	RetryMax  int
	Backoff   time.Duration
	Limiter   *rate.Limiter
	UserAgent string

	sleep func(ctx context.Context, d time.Duration) error
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	sleep := t.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	retries := t.RetryMax
	if retries < 0 || !canRetry {
		retries = 0
	}

	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; attempt <= retries; attempt++ {
		if t.Limiter != nil {
			if werr := t.Limiter.Wait(req.Context()); werr != nil {
				return nil, werr
			}
		}

		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			ua := t.UserAgent
			if ua == "" {
				ua = defaultUserAgent
			}
			r.Header.Set("User-Agent", ua)
		}

		resp, err = base.RoundTrip(r)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt == retries || req.Context().Err() != nil {
			break
		}
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if serr := sleep(req.Context(), t.backoff(attempt)); serr != nil {
			return nil, serr
		}
	}
	return resp, err
}

func (t *Transport) backoff(attempt int) time.Duration {
	b := t.Backoff
	if b <= 0 {
		b = defaultBackoff
	}
	return b << attempt
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options configures NewClient.
type Options struct {
	Timeout           time.Duration
	RetryMax          int
	Backoff           time.Duration
	RequestsPerSecond float64
	UserAgent         string
}

// NewClient returns an *http.Client with retry and rate limiting.
func NewClient(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &Transport{
			Base:      http.DefaultTransport,
			RetryMax:  opts.RetryMax,
			Backoff:   opts.Backoff,
			Limiter:   limiter,
			UserAgent: opts.UserAgent,
		},
	}
}

// GetJSON performs a GET and decodes a 2xx JSON body into out.
func GetJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, URL: req.URL.Host + req.URL.Path, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
