package models

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/meedamian/gptflo/internal/shared"
	"github.com/meedamian/gptflo/internal/types"
	"github.com/openai/openai-go"
	oa "github.com/openai/openai-go/option"
)

// OpenAIModel implements Completer on top of the OpenAI legacy completions endpoint
type OpenAIModel struct {
	info   *types.ModelInfo
	client openai.Client
}

// NewOpenAIModel creates a new OpenAI model instance
func NewOpenAIModel(info *types.ModelInfo) *OpenAIModel {
	return &OpenAIModel{
		info:   info,
		client: openai.NewClient(openAIOptions(info)...),
	}
}

// openAIOptions returns the request options shared by OpenAI and the
// OpenAI-compatible providers. SDK retries are off: a failed call aborts the
// generation.
func openAIOptions(info *types.ModelInfo) []oa.RequestOption {
	opts := []oa.RequestOption{
		oa.WithAPIKey(info.APIKey),
		oa.WithMaxRetries(0),
		oa.WithHTTPClient(shared.NewHTTPClient(info.RequestTimeout)),
	}
	if info.BaseURL != "" {
		opts = append(opts, oa.WithBaseURL(info.BaseURL))
	}
	return opts
}

// Complete implements types.Completer
func (m *OpenAIModel) Complete(ctx context.Context, prompt string) (types.Completion, error) {
	params := openai.CompletionNewParams{
		Model: openai.CompletionNewParamsModel(m.info.Name),
		Prompt: openai.CompletionNewParamsPromptUnion{
			OfString: openai.String(prompt),
		},
		Temperature: openai.Float(m.info.Temperature),
	}
	if m.info.MaxTokens > 0 {
		params.MaxTokens = openai.Int(m.info.MaxTokens)
	}

	result, err := m.client.Completions.New(ctx, params)
	if err != nil {
		return types.Completion{}, openAIError(m.info, err)
	}

	var text string
	if len(result.Choices) > 0 {
		text = strings.TrimSpace(result.Choices[0].Text)
	}

	return types.Completion{
		Text:   text,
		TokIn:  result.Usage.PromptTokens,
		TokOut: result.Usage.CompletionTokens,
	}, nil
}

func openAIError(info *types.ModelInfo, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return newUpstreamError(info, apiErr.StatusCode, errorBody(apiErr.Response, apiErr.RawJSON()), err)
	}
	return newUpstreamError(info, 0, nil, err)
}

// errorBody returns the full upstream error payload. The SDK keeps only the
// inner "error" object in RawJSON but leaves the body readable on the response.
func errorBody(resp *http.Response, inner string) []byte {
	if resp != nil && resp.Body != nil {
		if body, err := io.ReadAll(resp.Body); err == nil && len(body) > 0 {
			return body
		}
	}
	if inner != "" {
		return []byte(`{"error":` + inner + `}`)
	}
	return nil
}
