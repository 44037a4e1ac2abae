package oracle

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Metered turns a Provider into a Gateway, recording latency and token usage
// for every call, failed ones included.
type Metered struct {
	provider Provider
	usage    *Usage
	stats    *Stats
	log      *slog.Logger
}

func NewMetered(p Provider, usage *Usage, stats *Stats, log *slog.Logger) *Metered {
	return &Metered{provider: p, usage: usage, stats: stats, log: log}
}

func (m *Metered) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	c, err := m.provider.Complete(ctx, req)
	elapsed := time.Since(start)

	if m.stats != nil {
		m.stats.Record(req.Task, elapsed, err != nil)
	}
	if err != nil {
		m.log.Debug("oracle call failed", "task", req.Task, "provider", m.provider.Name(), "ms", elapsed.Milliseconds(), "error", err)
		return "", err
	}
	if m.usage != nil {
		m.usage.Record(req.Task, c.InputTokens, c.OutputTokens)
	}
	m.log.Debug("oracle call",
		"task", req.Task,
		"provider", m.provider.Name(),
		"ms", elapsed.Milliseconds(),
		"input_tokens", c.InputTokens,
		"output_tokens", c.OutputTokens,
	)
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return "", &RetryableError{Message: "empty response from " + m.provider.Name()}
	}
	return text, nil
}

// Limited caps the number of calls in flight across every stage.
type Limited struct {
	next    Gateway
	sem     chan struct{}
	limiter *rate.Limiter
}

// NewLimited bounds concurrency to n and, when perSecond > 0, admission to
// perSecond calls with a burst of n.
func NewLimited(next Gateway, n int, perSecond float64) *Limited {
	if n <= 0 {
		n = 1
	}
	l := &Limited{next: next, sem: make(chan struct{}, n)}
	if perSecond > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(perSecond), n)
	}
	return l
}

func (l *Limited) Generate(ctx context.Context, req Request) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	return l.next.Generate(ctx, req)
}
