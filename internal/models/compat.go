package models

import (
	"context"
	"strings"

	"github.com/meedamian/gptflo/internal/prompts"
	"github.com/meedamian/gptflo/internal/shared"
	"github.com/meedamian/gptflo/internal/types"
	"github.com/openai/openai-go"
)

// CompatModel implements Completer for OpenAI-compatible chat APIs
// (DeepSeek, Mistral, xAI)
type CompatModel struct {
	info   *types.ModelInfo
	client openai.Client
}

// NewCompatModel creates a new chat model against info.BaseURL
func NewCompatModel(info *types.ModelInfo) *CompatModel {
	return &CompatModel{
		info:   info,
		client: openai.NewClient(openAIOptions(info)...),
	}
}

// Complete implements types.Completer
func (m *CompatModel) Complete(ctx context.Context, prompt string) (types.Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.info.Name),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompts.CompletionInstruction),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(m.info.Temperature),
	}
	if m.info.MaxTokens > 0 {
		params.MaxTokens = openai.Int(m.info.MaxTokens)
	}

	result, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return types.Completion{}, openAIError(m.info, err)
	}

	var text string
	if len(result.Choices) > 0 {
		text = strings.TrimSpace(shared.PlainText(result.Choices[0].Message.Content))
	}

	return types.Completion{
		Text:   text,
		TokIn:  result.Usage.PromptTokens,
		TokOut: result.Usage.CompletionTokens,
	}, nil
}
