package oracle

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Policy is the one retry policy shared by every stage.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter is the fraction of the capped delay that is randomized: 1 sleeps
	// uniformly in [0, cap], 0 sleeps exactly cap.
	Jitter float64
}

// DefaultPolicy is 3 attempts, 1s base, 10s ceiling, full jitter.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second, Jitter: 1}
}

// Cap is the un-jittered delay before retry n (1-indexed):
// min(base·2^(n-1), max).
func (p Policy) Cap(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := p.BaseDelay
	for i := 1; i < n && d < p.MaxDelay; i++ {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Backoff returns the jittered delay before retry n.
func (p Policy) Backoff(n int) time.Duration {
	c := p.Cap(n)
	if c <= 0 {
		return 0
	}
	j := min(max(p.Jitter, 0), 1)
	fixed := time.Duration(float64(c) * (1 - j))
	spread := c - fixed
	if spread <= 0 {
		return fixed
	}
	return fixed + time.Duration(rand.Int64N(int64(spread)+1))
}

// Retrying wraps a Gateway with a Policy. Errors that are not
// RetryableError, and context cancellation, end the loop immediately.
type Retrying struct {
	next   Gateway
	policy Policy
	log    *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetrying(next Gateway, p Policy, log *slog.Logger) *Retrying {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	return &Retrying{next: next, policy: p, log: log, sleep: sleepCtx}
}

func (r *Retrying) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			d := r.policy.Backoff(attempt - 1)
			r.log.Warn("retrying oracle call", "task", req.Task, "attempt", attempt, "delay", d, "error", lastErr)
			if err := r.sleep(ctx, d); err != nil {
				return "", err
			}
		}
		text, err := r.next.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsRetryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
