package models

import (
	"fmt"
	"slices"
	"sort"

	"github.com/meedamian/gptflo/internal/types"
)

const (
	GPT      = "openai"
	Claude   = "claude"
	Gemini   = "gemini"
	DeepSeek = "deepseek"
	Mistral  = "mistral"
	Grok     = "grok"
)

// ModelFamilies defines every supported provider.
//
// Only the openai family talks to a true text-completion endpoint. The others
// are chat APIs driven with prompts.CompletionInstruction.
var ModelFamilies = map[string]types.ModelFamily{
	// Legacy completions: https://platform.openai.com/docs/api-reference/completions
	GPT: {
		ID:       GPT,
		Provider: "OpenAI",
		BaseURL:  "https://api.openai.com/v1/",
		Default:  "gpt-3.5-turbo-instruct",
		Variants: []string{"gpt-3.5-turbo-instruct", "davinci-002", "babbage-002"},
	},

	// Models list: https://docs.claude.com/en/docs/about-claude/models/overview
	Claude: {
		ID:       Claude,
		Provider: "Anthropic",
		BaseURL:  "https://api.anthropic.com/",
		Chat:     true,
		Default:  "claude-haiku-4-5",
		Variants: []string{"claude-haiku-4-5", "claude-sonnet-4-5", "claude-3-5-haiku-latest"},
	},

	// Models list: https://ai.google.dev/gemini-api/docs/models
	Gemini: {
		ID:       Gemini,
		Provider: "Google",
		Chat:     true,
		Default:  "gemini-2.5-flash",
		Variants: []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-2.5-pro"},
	},

	// Models list: https://api-docs.deepseek.com/
	DeepSeek: {
		ID:       DeepSeek,
		Provider: "DeepSeek",
		BaseURL:  "https://api.deepseek.com/v1/",
		Chat:     true,
		Default:  "deepseek-chat",
		Variants: []string{"deepseek-chat"},
	},

	// Models list: https://docs.mistral.ai/getting-started/models/
	Mistral: {
		ID:       Mistral,
		Provider: "Mistral AI",
		BaseURL:  "https://api.mistral.ai/v1/",
		Chat:     true,
		Default:  "mistral-small-latest",
		Variants: []string{"mistral-small-latest", "mistral-medium-latest", "ministral-8b-latest"},
	},

	// Models list: https://docs.x.ai/docs/models
	Grok: {
		ID:       Grok,
		Provider: "xAI",
		BaseURL:  "https://api.x.ai/v1/",
		Chat:     true,
		Default:  "grok-3-mini",
		Variants: []string{"grok-3-mini", "grok-4-fast-non-reasoning"},
	},
}

// FamilyIDs returns the supported family IDs in stable order
func FamilyIDs() []string {
	ids := make([]string, 0, len(ModelFamilies))
	for id := range ModelFamilies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewModelInfo resolves a family and optional model name into runtime model
// info. An empty model selects the family default; unknown names are passed
// through so newly released models work without a code change.
func NewModelInfo(familyID, model string) (*types.ModelInfo, error) {
	family, ok := ModelFamilies[familyID]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %v)", ErrUnknownProvider, familyID, FamilyIDs())
	}

	if model == "" {
		model = family.Default
	}

	return &types.ModelInfo{
		ID:       family.ID,
		Name:     model,
		Provider: family.Provider,
		BaseURL:  family.BaseURL,
	}, nil
}

// IsKnownVariant reports whether model is one of the family's listed variants
func IsKnownVariant(familyID, model string) bool {
	return slices.Contains(ModelFamilies[familyID].Variants, model)
}

// NewModel creates the Completer for the given model info. Families with a
// dedicated SDK get their own client; the rest speak the OpenAI protocol,
// either the legacy completions endpoint or chat when the family is Chat.
func NewModel(info *types.ModelInfo) (types.Completer, error) {
	if info.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", info.Provider, ErrMissingAPIKey)
	}

	family, ok := ModelFamilies[info.ID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownProvider, info.ID)
	}

	switch {
	case family.ID == Claude:
		return NewClaudeModel(info), nil
	case family.ID == Gemini:
		return NewGeminiModel(info)
	case family.Chat:
		return NewCompatModel(info), nil
	default:
		return NewOpenAIModel(info), nil
	}
}
