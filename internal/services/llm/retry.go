package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryPolicy decides whether and when a failed request is sent again.
// Delays double from base up to max; a Retry-After header wins when present.
type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
	sleep    func(time.Duration)
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: 5, base: time.Second, max: 10 * time.Second}
}

// next reports the delay before attempt+1, or false when err is final.
func (p retryPolicy) next(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= max(p.attempts, 1) || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var (
		empty  *emptyReplyError
		status *statusError
		netErr net.Error
	)
	switch {
	case errors.As(err, &empty):
		return p.backoff(attempt), true
	case errors.As(err, &status):
		if !status.retryable() {
			return 0, false
		}
		if status.RetryAfter > 0 {
			return p.clamp(status.RetryAfter), true
		}
		return p.backoff(attempt), true
	case errors.As(err, &netErr) && netErr.Timeout():
		return p.backoff(attempt), true
	}
	return 0, false
}

func (p retryPolicy) backoff(attempt int) time.Duration {
	if p.base <= 0 {
		return 0
	}
	delay := p.base
	for i := 1; i < attempt && delay < p.max; i++ {
		delay *= 2
	}
	return p.clamp(delay)
}

func (p retryPolicy) clamp(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if p.max > 0 && delay > p.max {
		return p.max
	}
	return delay
}

func (p retryPolicy) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if p.sleep != nil {
		p.sleep(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Unparseable or past
// values yield zero.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return max(time.Duration(seconds)*time.Second, 0)
	}
	if when, err := http.ParseTime(value); err == nil {
		return max(time.Until(when), 0)
	}
	return 0
}
