package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic calls the Messages API.
type Anthropic struct {
	client      anthropicsdk.Client
	model       string
	temperature float64
}

func NewAnthropic(apiKey, model string, temperature float64) *Anthropic {
	return &Anthropic{
		client:      anthropicsdk.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0)),
		model:       model,
		temperature: temperature,
	}
}

func (a *Anthropic) Name() string  { return "claude" }
func (a *Anthropic) Model() string { return a.model }

func (a *Anthropic) Complete(ctx context.Context, req Request) (Completion, error) {
	msg, err := a.client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(a.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropicsdk.Float(a.temperature),
	})
	if err != nil {
		return Completion{}, classifyAnthropic(err)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return Completion{
		Text:         strings.Join(parts, ""),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

func classifyAnthropic(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		if retryableStatus(apiErr.StatusCode) {
			return &RetryableError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		}
		return fmt.Errorf("claude api status %d: %w", apiErr.StatusCode, err)
	}
	// Transport failures carry no status and are worth another attempt.
	return &RetryableError{Message: err.Error()}
}
