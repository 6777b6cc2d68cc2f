package types

import (
	"context"
	"log/slog"
	"time"
)

// ModelFamily groups a provider with its known model variants
type ModelFamily struct {
	ID       string
	Provider string // Display name, used in user-facing messages
	BaseURL  string
	Chat     bool // Chat-style API that needs the completion instruction
	Default  string
	Variants []string
}

// ModelInfo contains the runtime configuration of the completion model
type ModelInfo struct {
	ID             string // Family ID
	Name           string // Model name sent to the provider
	Provider       string
	BaseURL        string
	APIKey         string
	Temperature    float64
	MaxTokens      int64
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Completion is the result of a single completion request
type Completion struct {
	Text   string // First choice, trimmed; may be empty
	TokIn  int64
	TokOut int64
}

// Completer sends one prompt to a provider and returns its continuation
type Completer interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}
