package models

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/meedamian/gptflo/internal/types"
)

var (
	// ErrMissingAPIKey means the provider credential was not configured
	ErrMissingAPIKey = errors.New("api key not configured")

	// ErrUnknownProvider means the requested model family does not exist
	ErrUnknownProvider = errors.New("unknown provider")
)

// UpstreamError is returned for every failed provider call. StatusCode is 0
// when the request never got an HTTP response (network failure, timeout,
// cancellation).
type UpstreamError struct {
	Provider   string
	StatusCode int
	RawBody    []byte // Raw error payload from the provider, if any
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api returned status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s api request failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// newUpstreamError wraps a failed provider call and logs it on the model logger
func newUpstreamError(info *types.ModelInfo, status int, body []byte, err error) *UpstreamError {
	if info.Logger != nil {
		info.Logger.Warn("completion request failed",
			slog.String("provider", info.Provider),
			slog.Int("status", status),
			slog.Any("error", err))
	}
	return &UpstreamError{
		Provider:   info.Provider,
		StatusCode: status,
		RawBody:    body,
		Err:        err,
	}
}
