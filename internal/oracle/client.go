package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chriscarrollsmith/mindmap-generator/internal/config"
)

// Client is the configured gateway plus the telemetry it feeds.
type Client struct {
	Gateway
	Usage    *Usage
	Stats    *Stats
	provider Provider
}

// New builds the provider selected by cfg and wraps it, innermost first, in
// metering, the concurrency/rate gate and the retry policy.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*Client, error) {
	var p Provider
	switch cfg.Provider {
	case config.ProviderClaude:
		p = NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.Temperature)
	case config.ProviderOpenAI:
		p = NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.Temperature)
	case config.ProviderDeepSeek:
		p = NewDeepSeek(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL, cfg.DeepSeekModel, cfg.Temperature)
	case config.ProviderGemini:
		g, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	policy := Policy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Jitter:      cfg.RetryJitter,
	}
	return Wrap(p, policy, cfg.MaxConcurrent, cfg.RateLimit, cfg.Provider, log), nil
}

// Wrap assembles the middleware chain around any Provider.
func Wrap(p Provider, policy Policy, maxConcurrent int, perSecond float64, pricingKey string, log *slog.Logger) *Client {
	usage := NewUsage(PricingFor(pricingKey, p.Model()))
	stats := NewStats(time.Hour)
	var g Gateway = NewMetered(p, usage, stats, log)
	g = NewLimited(g, maxConcurrent, perSecond)
	g = NewRetrying(g, policy, log)
	log.Info("oracle ready", "provider", p.Name(), "model", p.Model())
	return &Client{Gateway: g, Usage: usage, Stats: stats, provider: p}
}

func (c *Client) ProviderName() string { return c.provider.Name() }
func (c *Client) Model() string        { return c.provider.Model() }
