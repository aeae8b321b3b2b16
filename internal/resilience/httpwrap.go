package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoClient is returned when HTTPClient has no underlying client.
var ErrNoClient = errors.New("resilience: http client not configured")

// HTTPClient guards calls to an outbound dependency with a per-attempt
// timeout, bounded retries and an optional circuit breaker. Responses with status
// 5xx or 429 count as failures and are retried; other statuses are handed
// back to the caller.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Timeout     time.Duration
	Target      string
	Fallback    func(context.Context, *http.Request, error) (*http.Response, error)
}

// Do sends req. The body is buffered so it can be replayed across attempts.
// ErrOpenCircuit is returned while the breaker refuses calls, unless a
// fallback is configured.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, ErrNoClient
	}
	breaker := cl.Breaker
	attempts := cl.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	base := cl.BaseBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if breaker != nil && !breaker.Allow(ctx) {
			cl.count("rejected")
			lastErr = ErrOpenCircuit
			break
		}
		resp, err := cl.attempt(ctx, req, body)
		switch {
		case err != nil:
			lastErr = err
			cl.count("error")
		case retryable(resp.StatusCode):
			lastErr = fmt.Errorf("%s responded %s", cl.targetName(), resp.Status)
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			_ = resp.Body.Close()
			cl.count("retryable_status")
		default:
			if breaker != nil {
				breaker.Report(ctx, true)
			}
			cl.count("ok")
			return resp, nil
		}
		if breaker != nil {
			breaker.Report(ctx, false)
		}
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(Backoff(base, attempt, cl.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if cl.Fallback != nil {
		return cl.Fallback(ctx, req, lastErr)
	}
	return nil, lastErr
}

func (cl HTTPClient) attempt(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		timeout = cl.Client.Timeout
	}
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	clone := req.Clone(ctx)
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	resp, err := cl.Client.Do(clone)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (cl HTTPClient) count(outcome string) {
	if DependencyAttempts != nil {
		DependencyAttempts.WithLabelValues(cl.targetName(), outcome).Inc()
	}
}

func (cl HTTPClient) targetName() string {
	if cl.Target == "" {
		return "dependency"
	}
	return cl.Target
}

func retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	src := req.Body
	if req.GetBody != nil {
		fresh, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		src = fresh
	}
	defer func() { _ = src.Close() }()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// cancelOnClose releases the attempt's timeout once the caller has
// finished reading the response.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
