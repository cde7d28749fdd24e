package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hyperengineering/finsight/internal/types"
)

// Compile-time interface check
var _ Assistant = (*OpenAI)(nil)

// CompletionsService defines the interface for making chat completion calls.
// This abstraction enables testing without calling the real OpenAI API.
type CompletionsService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI implements Assistant with OpenAI chat completions.
type OpenAI struct {
	completions CompletionsService
	model       openai.ChatModel
	maxTokens   int64
	now         func() time.Time
}

// NewOpenAI creates an OpenAI-backed assistant.
func NewOpenAI(apiKey, model string, maxTokens int) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return newOpenAI(client.Chat.Completions, model, maxTokens)
}

func newOpenAI(svc CompletionsService, model string, maxTokens int) *OpenAI {
	return &OpenAI{
		completions: svc,
		model:       openai.ChatModel(model),
		maxTokens:   int64(maxTokens),
		now:         time.Now,
	}
}

// Summarize asks the model for a digest of items. An empty feed is
// answered locally without an API call.
func (o *OpenAI) Summarize(ctx context.Context, items []types.Insight) (*Digest, error) {
	d := &Digest{
		Model:       string(o.model),
		ItemCount:   len(items),
		GeneratedAt: o.now().UTC(),
	}
	if len(items) == 0 {
		d.Summary = "Nothing needs your attention right now."
		return d, nil
	}

	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(items)),
		}),
		Model: openai.F(o.model),
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(o.maxTokens)
	}

	resp, err := o.completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("digest generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("digest generation failed: no choices returned")
	}

	d.Summary = strings.TrimSpace(resp.Choices[0].Message.Content)
	if d.Summary == "" {
		return nil, fmt.Errorf("digest generation failed: empty summary")
	}
	return d, nil
}

// ModelName returns the chat model name
func (o *OpenAI) ModelName() string {
	return string(o.model)
}

func (o *OpenAI) Enabled() bool { return true }
