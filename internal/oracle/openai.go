package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAI calls Chat Completions. DeepSeek speaks the same protocol and is
// served by this client with a different base URL.
type OpenAI struct {
	client      openai.Client
	name        string
	model       string
	temperature float64
}

func NewOpenAI(apiKey, model string, temperature float64) *OpenAI {
	return &OpenAI{
		client:      openai.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0)),
		name:        "openai",
		model:       model,
		temperature: temperature,
	}
}

func NewDeepSeek(apiKey, baseURL, model string, temperature float64) *OpenAI {
	return &OpenAI{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
		),
		name:        "deepseek",
		model:       model,
		temperature: temperature,
	}
}

func (o *OpenAI) Name() string  { return o.name }
func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Complete(ctx context.Context, req Request) (Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(o.temperature),
	}
	// DeepSeek still expects the legacy max_tokens field.
	if o.name == "deepseek" {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	} else {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Completion{}, o.classify(err)
	}
	if len(completion.Choices) == 0 {
		return Completion{}, &RetryableError{Message: o.name + " returned no choices"}
	}
	return Completion{
		Text:         completion.Choices[0].Message.Content,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
	}, nil
}

func (o *OpenAI) classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if retryableStatus(apiErr.StatusCode) {
			return &RetryableError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		}
		return fmt.Errorf("%s api status %d: %w", o.name, apiErr.StatusCode, err)
	}
	return &RetryableError{Message: err.Error()}
}
