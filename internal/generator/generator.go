package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meedamian/gptflo/internal/metrics"
	"github.com/meedamian/gptflo/internal/prompts"
	"github.com/meedamian/gptflo/internal/retry"
	"github.com/meedamian/gptflo/internal/types"
)

// DefaultMaxEmptyAttempts bounds consecutive empty completions for one question
const DefaultMaxEmptyAttempts = 5

var (
	// ErrInvalidTopic is returned for an empty or whitespace-only topic
	ErrInvalidTopic = errors.New("topic is empty")

	// ErrEmptyCompletion means the model returned no text
	ErrEmptyCompletion = errors.New("completion returned no text")
)

// GenerationError reports which question the generation failed on
type GenerationError struct {
	Question int
	Attempt  int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("question %d, attempt %d: %v", e.Question, e.Attempt, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Options bound the work a single Generate call may do
type Options struct {
	MaxEmptyAttempts  int
	CompletionTimeout time.Duration // Per completion call; 0 disables
	GenerateTimeout   time.Duration // Whole generation; 0 disables
}

// Generator turns a topic into numbered questions by repeatedly asking a
// completion model to continue a growing Q&A prompt
type Generator struct {
	logger *slog.Logger
	client types.Completer
	model  string
	opts   Options
}

// New creates a new Generator
func New(logger *slog.Logger, client types.Completer, model string, opts Options) *Generator {
	if opts.MaxEmptyAttempts <= 0 {
		opts.MaxEmptyAttempts = DefaultMaxEmptyAttempts
	}
	return &Generator{
		logger: logger,
		client: client,
		model:  model,
		opts:   opts,
	}
}

type requestIDKey struct{}

// WithRequestID attaches a request ID that Generate uses for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID attached to ctx, or a fresh one
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Generate returns exactly prompts.QuestionCount numbered questions about
// topic, or an error and no questions at all
func (g *Generator) Generate(ctx context.Context, topic string) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrInvalidTopic
	}

	if g.opts.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.GenerateTimeout)
		defer cancel()
	}

	requestID := RequestID(ctx)
	logger := g.logger.With("request_id", requestID)
	genMetrics := metrics.NewGenerationMetrics(requestID, topic, g.model)

	logger.Info("starting generation", slog.String("topic", topic), slog.String("model", g.model))

	prompt := prompts.InitialPrompt(topic)
	questions := make([]string, 0, prompts.QuestionCount)

	for n := 1; len(questions) < prompts.QuestionCount; n++ {
		text, attempts, err := g.nextQuestion(ctx, logger, genMetrics, n, prompt)
		if err != nil {
			genErr := &GenerationError{Question: n, Attempt: attempts, Err: err}
			genMetrics.Complete(genErr)
			logger.Error("generation failed", slog.Any("error", genErr), slog.Any("metrics", genMetrics.Summary()))
			return nil, genErr
		}

		questions = append(questions, prompts.FormatQuestion(n, text))
		prompt = prompts.AppendQuestion(prompt, n, text)
	}

	genMetrics.Complete(nil)
	logger.Info("generation complete", slog.Any("metrics", genMetrics.Summary()))

	return questions, nil
}

// nextQuestion asks for completions of prompt until one is non-empty. Provider
// errors stop it at once; empty completions are re-attempted up to the cap.
func (g *Generator) nextQuestion(
	ctx context.Context,
	logger *slog.Logger,
	genMetrics *metrics.GenerationMetrics,
	n int,
	prompt string,
) (string, int, error) {
	var text string
	attempts := 0

	err := retry.Do(ctx, retry.Immediate(g.opts.MaxEmptyAttempts), func() error {
		attempts++

		start := time.Now()
		completion, err := g.complete(ctx, prompt)
		if err != nil {
			genMetrics.RecordAttempt(n, time.Since(start), 0, 0, false)
			return retry.Permanent(err)
		}

		text = prompts.NormalizeQuestion(completion.Text)
		genMetrics.RecordAttempt(n, time.Since(start), completion.TokIn, completion.TokOut, text == "")
		if text == "" {
			logger.Debug("empty completion", slog.Int("question", n), slog.Int("attempt", attempts))
			return ErrEmptyCompletion
		}

		logger.Debug("question accepted", slog.Int("question", n), slog.String("text", text))
		return nil
	})

	return text, attempts, err
}

func (g *Generator) complete(ctx context.Context, prompt string) (types.Completion, error) {
	if g.opts.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.CompletionTimeout)
		defer cancel()
	}
	return g.client.Complete(ctx, prompt)
}
