package metrics

import (
	"sync"
	"time"
)

// GenerationMetrics tracks metrics for a single generation request
type GenerationMetrics struct {
	RequestID string
	Topic     string
	Model     string
	StartTime time.Time
	EndTime   time.Time
	Questions []*QuestionMetrics
	Error     string
	mu        sync.RWMutex
}

// QuestionMetrics tracks the attempts spent on one question slot
type QuestionMetrics struct {
	Number   int
	Attempts int
	Empty    int
	Duration time.Duration
	Tokens   TokenCount
}

// TokenCount tracks input and output tokens
type TokenCount struct {
	Input  int64
	Output int64
}

// NewGenerationMetrics creates a new generation metrics tracker
func NewGenerationMetrics(requestID, topic, model string) *GenerationMetrics {
	return &GenerationMetrics{
		RequestID: requestID,
		Topic:     topic,
		Model:     model,
		StartTime: time.Now(),
		Questions: make([]*QuestionMetrics, 0),
	}
}

// RecordAttempt records one completion call made for question number n
func (gm *GenerationMetrics) RecordAttempt(n int, duration time.Duration, tokIn, tokOut int64, empty bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	qm := gm.question(n)
	qm.Attempts++
	if empty {
		qm.Empty++
	}
	qm.Duration += duration
	qm.Tokens.Input += tokIn
	qm.Tokens.Output += tokOut
}

// question returns the metrics for slot n, creating it on first use.
// Callers must hold gm.mu.
func (gm *GenerationMetrics) question(n int) *QuestionMetrics {
	for _, qm := range gm.Questions {
		if qm.Number == n {
			return qm
		}
	}
	qm := &QuestionMetrics{Number: n}
	gm.Questions = append(gm.Questions, qm)
	return qm
}

// Complete marks the generation as finished; err is nil on success
func (gm *GenerationMetrics) Complete(err error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	gm.EndTime = time.Now()
	if err != nil {
		gm.Error = err.Error()
	}
}

// Duration returns the total generation duration
func (gm *GenerationMetrics) Duration() time.Duration {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	return gm.duration()
}

// duration requires gm.mu to be held
func (gm *GenerationMetrics) duration() time.Duration {
	if gm.EndTime.IsZero() {
		return time.Since(gm.StartTime)
	}
	return gm.EndTime.Sub(gm.StartTime)
}

// Summary returns a summary map for logging
func (gm *GenerationMetrics) Summary() map[string]any {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	var attempts, empty int
	var tokensIn, tokensOut int64
	for _, qm := range gm.Questions {
		attempts += qm.Attempts
		empty += qm.Empty
		tokensIn += qm.Tokens.Input
		tokensOut += qm.Tokens.Output
	}

	return map[string]any{
		"request_id":        gm.RequestID,
		"topic":             gm.Topic,
		"model":             gm.Model,
		"duration_ms":       gm.duration().Milliseconds(),
		"questions":         len(gm.Questions),
		"attempts":          attempts,
		"empty_completions": empty,
		"total_tokens_in":   tokensIn,
		"total_tokens_out":  tokensOut,
		"error":             gm.Error,
	}
}
