package ai

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// retryPolicy is the backoff shared by both runtimes.
type retryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// retryable reports whether another attempt may help.
type retryable interface{ retry() (time.Duration, bool) }

// transient wraps an error the policy should retry, optionally after a fixed wait.
type transient struct {
	err  error
	wait time.Duration
}

func (t *transient) Error() string                { return t.err.Error() }
func (t *transient) Unwrap() error                { return t.err }
func (t *transient) retry() (time.Duration, bool) { return t.wait, true }

// do runs attempt until it succeeds, returns a non-transient error, the
// attempts are exhausted, or ctx is done. Sleeps honor ctx.
func (p retryPolicy) do(ctx context.Context, log *zap.Logger, attempt func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := p.BaseDelay
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	var err error
	for n := 1; n <= attempts; n++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = attempt()
		var r retryable
		if err == nil || !errors.As(err, &r) {
			return err
		}
		wait, _ := r.retry()
		if n == attempts {
			break
		}
		if wait <= 0 {
			wait = withJitter(backoff)
			if p.MaxDelay > 0 && wait > p.MaxDelay {
				wait = p.MaxDelay
			}
			backoff *= 2
		}
		log.Debug("Retrying request", zap.Int("attempt", n), zap.Duration("wait", wait), zap.Error(err))
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	var tr *transient
	if errors.As(err, &tr) {
		return tr.err
	}
	return err
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// retryAfter reads Retry-After as seconds or an HTTP date.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if s, err := strconv.Atoi(v); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}

// requestID pulls a best-effort request ID from common headers.
func requestID(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, k := range []string{"X-Request-Id", "OpenAI-Request-ID", "Openrouter-Request-ID", "X-Amzn-Requestid"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// withJitter returns d with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	out := time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
	if out <= 0 {
		return d
	}
	return out
}

// statusError converts a non-2xx response into a classified error, marking
// 429 and 5xx as transient.
func statusError(resp *http.Response) error {
	apiErr := readAPIError(resp)
	err := classify(apiErr, resp)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &transient{err: err, wait: retryAfter(resp)}
	}
	return err
}
