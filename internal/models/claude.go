package models

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	an "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/meedamian/gptflo/internal/prompts"
	"github.com/meedamian/gptflo/internal/shared"
	"github.com/meedamian/gptflo/internal/types"
)

// claudeMaxTokens is used when no limit is configured; the Messages API
// requires one
const claudeMaxTokens = 256

// ClaudeModel implements Completer for Anthropic Claude
type ClaudeModel struct {
	info   *types.ModelInfo
	client anthropic.Client
}

// NewClaudeModel creates a new Claude model instance
func NewClaudeModel(info *types.ModelInfo) *ClaudeModel {
	opts := []an.RequestOption{
		an.WithAPIKey(info.APIKey),
		an.WithMaxRetries(0),
		an.WithHTTPClient(shared.NewHTTPClient(info.RequestTimeout)),
	}
	if info.BaseURL != "" {
		opts = append(opts, an.WithBaseURL(info.BaseURL))
	}
	return &ClaudeModel{
		info:   info,
		client: anthropic.NewClient(opts...),
	}
}

// Complete implements types.Completer
func (m *ClaudeModel) Complete(ctx context.Context, prompt string) (types.Completion, error) {
	maxTokens := m.info.MaxTokens
	if maxTokens <= 0 {
		maxTokens = claudeMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.info.Name),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(m.info.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: prompts.CompletionInstruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	result, err := m.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return types.Completion{}, newUpstreamError(m.info, apiErr.StatusCode, []byte(apiErr.RawJSON()), err)
		}
		return types.Completion{}, newUpstreamError(m.info, 0, nil, err)
	}

	// First text block is the continuation
	var text string
	for _, block := range result.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	return types.Completion{
		Text:   strings.TrimSpace(shared.PlainText(text)),
		TokIn:  result.Usage.InputTokens,
		TokOut: result.Usage.OutputTokens,
	}, nil
}
