package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/meedamian/gptflo/internal/prompts"
	"github.com/meedamian/gptflo/internal/shared"
	"github.com/meedamian/gptflo/internal/types"
	"google.golang.org/genai"
)

// GeminiModel implements Completer for Google Gemini
type GeminiModel struct {
	info   *types.ModelInfo
	client *genai.Client
}

// NewGeminiModel creates a new Gemini model instance
func NewGeminiModel(info *types.ModelInfo) (*GeminiModel, error) {
	cfg := &genai.ClientConfig{
		APIKey:     info.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: shared.NewHTTPClient(info.RequestTimeout),
	}
	if info.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: info.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiModel{
		info:   info,
		client: client,
	}, nil
}

// Complete implements types.Completer
func (m *GeminiModel) Complete(ctx context.Context, prompt string) (types.Completion, error) {
	temperature := float32(m.info.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: prompts.CompletionInstruction}},
		},
	}
	if m.info.MaxTokens > 0 {
		config.MaxOutputTokens = int32(m.info.MaxTokens)
	}

	result, err := m.client.Models.GenerateContent(ctx, m.info.Name, genai.Text(prompt), config)
	if err != nil {
		return types.Completion{}, m.geminiError(err)
	}

	completion := types.Completion{
		Text: strings.TrimSpace(shared.PlainText(result.Text())),
	}
	if result.UsageMetadata != nil {
		completion.TokIn = int64(result.UsageMetadata.PromptTokenCount)
		completion.TokOut = int64(result.UsageMetadata.CandidatesTokenCount)
	}

	return completion, nil
}

func (m *GeminiModel) geminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return newUpstreamError(m.info, 0, nil, err)
	}

	// The SDK decodes the error body; re-encode it in the Google error envelope
	raw, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
			"status":  apiErr.Status,
		},
	})

	return newUpstreamError(m.info, apiErr.Code, raw, err)
}
