package games

import (
	"context"
	"errors"
	"fmt"

	"gamesort/internal/services"
)

// ErrorKind classifies why an item could not be reconciled.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindTransientFailure ErrorKind = "transient_failure"
	KindTimeout          ErrorKind = "timeout"
	KindInvalidInput     ErrorKind = "invalid_input"
)

// ItemError reports a per-item failure inside a batch. It never aborts siblings.
type ItemError struct {
	Index   int       `json:"index"`
	Input   string    `json:"input"`
	Kind    ErrorKind `json:"error_kind"`
	Stage   string    `json:"stage,omitempty"`
	Message string    `json:"message"`
	err     error
}

// NewItemError classifies err and wraps it as an ItemError for input.
func NewItemError(input string, err error) *ItemError {
	var existing *ItemError
	if errors.As(err, &existing) {
		clone := *existing
		if clone.Input == "" {
			clone.Input = input
		}
		return &clone
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &ItemError{Input: input, Kind: KindOf(err), Stage: services.StageOf(err), Message: msg, err: err}
}

func (e *ItemError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Input)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Input, e.Message)
}

func (e *ItemError) Unwrap() error { return e.err }

// ErrorKind satisfies classifiers that inspect errors by kind string.
func (e *ItemError) ErrorKind() string { return string(e.Kind) }

// KindOf maps service error markers onto item error kinds.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, services.ErrNotFound):
		return KindNotFound
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, services.ErrValidation):
		return KindInvalidInput
	default:
		return KindTransientFailure
	}
}
