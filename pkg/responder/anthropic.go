package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"memoryecho/pkg/logger"
)

// DefaultModel is used when the config does not name one.
const DefaultModel = string(anthropic.ModelClaude3_7SonnetLatest)

// Anthropic generates replies through the Anthropic Messages API. The
// role's knowledge entries become the system prompt, newest first, so the
// model answers in the persona's voice.
type Anthropic struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropic returns a responder using API credentials from the
// environment (ANTHROPIC_API_KEY).
func NewAnthropic(model string, maxTokens int64) *Anthropic {
	c := anthropic.NewClient()
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Anthropic{client: &c, model: anthropic.Model(model), maxTokens: maxTokens}
}

// Generate sends one user turn with the assembled context as system text.
func (a *Anthropic) Generate(ctx context.Context, prompt string, contextEntries []string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if len(contextEntries) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt(contextEntries)},
		}
	}
	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		logger.Error("anthropic_generate_failed", "model", string(a.model), "error", err)
		return "", fmt.Errorf("anthropic generate: %w", err)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	out := sb.String()
	if out == "" {
		return "", fmt.Errorf("anthropic generate: empty completion: %w", ErrUnavailable)
	}
	return out, nil
}

func systemPrompt(entries []string) string {
	var sb strings.Builder
	sb.WriteString("You are a persona answering from the memories below. The most recent memories come first.\n")
	for _, e := range entries {
		sb.WriteString("\n- ")
		sb.WriteString(e)
	}
	return sb.String()
}
