package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"findoc-backend/internal/documents"
	"findoc-backend/internal/extract"
	"findoc-backend/internal/llm"
)

// Failure classification codes recorded with failed jobs.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExtraction = "EXTRACTION_ERROR"
	CodeLLMTimeout = "LLM_TIMEOUT"
	CodeLLM        = "LLM_ERROR"
	CodeStorage    = "STORAGE_ERROR"
	CodeCancelled  = "CANCELLED"
	CodeInternal   = "INTERNAL_ERROR"
)

// errCancelled aborts a run when cancellation was requested mid-flight.
var errCancelled = errors.New("cancellation requested")

// stageError ties a pipeline error to the stage that produced it.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

// classify maps a run error to its failure code.
func classify(err error) string {
	switch {
	case errors.Is(err, errCancelled):
		return CodeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeLLMTimeout
	case errors.Is(err, extract.ErrUnreadable):
		return CodeExtraction
	case errors.Is(err, documents.ErrNotFound), errors.Is(err, documents.ErrInvalidInput):
		return CodeValidation
	case errors.Is(err, llm.ErrEmptyResponse):
		return CodeLLM
	}
	var se *stageError
	if errors.As(err, &se) {
		switch se.stage {
		case stageFetching:
			return CodeStorage
		case stageExtracting:
			return CodeExtraction
		case stageAnalyzing:
			return CodeLLM
		case stagePersisting:
			return CodeStorage
		}
	}
	return CodeInternal
}

// failureDetail renders the error detail stored on the job.
func failureDetail(err error) string {
	code := classify(err)
	switch code {
	case CodeLLMTimeout:
		return "timeout"
	case CodeCancelled:
		return "cancelled"
	}
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return strings.ToLower(code) + ": " + msg
}
