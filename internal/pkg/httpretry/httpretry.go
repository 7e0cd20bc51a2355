// Package httpretry provides an HTTP client with bounded retries,
// exponential backoff, and jitter for calls to external services.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/fractionalops/claire-backend/internal/pkg/logger"
)

// HTTPDoer is the interface for executing HTTP requests. Both *http.Client
// and *RetryClient satisfy it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient wraps an HTTPDoer with retry logic.
type RetryClient struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryClient wraps the given HTTPDoer. A nil client gets a default
// http.Client with a 30s timeout. maxRetries <= 0 defaults to 3.
func NewRetryClient(client HTTPDoer, maxRetries int) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  1 * time.Second,
		maxDelay:   30 * time.Second,
	}
}

// Do executes the request, retrying on 429/5xx responses and transient
// transport errors. Client errors (4xx other than 429) and context
// cancellation are returned immediately. The final response is returned
// as-is so callers can inspect status and body.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		if err := req.Context().Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: reset request body: %w", err)
				}
				req.Body = body
			}

			delay := rc.delayFor(attempt)
			logger.Warn("retrying request",
				"attempt", attempt,
				"max", rc.maxRetries,
				"method", req.Method,
				"host", req.URL.Host,
				"delay", delay.String())

			timer := time.NewTimer(delay)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if !retryableStatus(resp.StatusCode) || attempt == rc.maxRetries {
			return resp, nil
		}

		// Drain and close so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: status %d from %s", resp.StatusCode, req.URL.Host)
	}

	return nil, lastErr
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// delayFor returns exponential backoff with up to 25% jitter, capped at
// maxDelay.
func (rc *RetryClient) delayFor(attempt int) time.Duration {
	backoff := float64(rc.baseDelay) * math.Pow(2, float64(attempt-1))
	if backoff > float64(rc.maxDelay) {
		backoff = float64(rc.maxDelay)
	}
	jitter := backoff * 0.25 * rand.Float64()
	return time.Duration(backoff + jitter)
}
