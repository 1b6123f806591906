// Package errors defines the failure taxonomy for the sketchgraph pipeline.
//
// The taxonomy mirrors the stage boundaries:
//   - InputError: no usable input file in the job directory
//   - TransportError: vision backend unreachable, unauthorized, or malformed reply
//   - RateLimitError: backend throttling, retried by the vision adapter
//   - BuildError: inference cannot assemble a valid graph
//   - RenderError: render tool missing or failing, downgrades rather than aborts
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// InputError indicates the job directory holds no usable input file.
type InputError struct {
	JobID string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	return fmt.Sprintf("no input file found for job %s", e.JobID)
}

// TransportError indicates a non-retriable vision backend failure.
type TransportError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("vision backend HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("vision backend: %s", e.Message)
}

// RateLimitError indicates backend throttling. Terminal only once the
// retry bound in the vision adapter is exceeded.
type RateLimitError struct {
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("rate limit exceeded after %d retries: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RateLimitError) Unwrap() error { return e.Err }

// BuildError wraps any failure while assembling the canonical graph.
// Distinct from transport failures so callers can tell a bad backend
// from a bad payload.
type BuildError struct {
	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("graph build failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error { return e.Err }

// RenderError indicates the render tool is missing or errored.
// The coordinator catches it and downgrades the job instead of aborting,
// since the diagram text artifact already exists.
type RenderError struct {
	Format string
	Err    error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render to %s failed: %v", e.Format, e.Err)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error { return e.Err }

// Category represents how a pipeline error should be handled.
type Category int

const (
	// CategoryRetriable indicates the vision adapter may retry.
	CategoryRetriable Category = iota

	// CategoryTerminal aborts remaining stages and fails the job.
	CategoryTerminal

	// CategoryDowngrade completes the job with a warning instead of failing it.
	CategoryDowngrade
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryRetriable:
		return "retriable"
	case CategoryTerminal:
		return "terminal"
	case CategoryDowngrade:
		return "downgrade"
	default:
		return "unknown"
	}
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryTerminal // shouldn't happen, fail safe
	}

	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return CategoryDowngrade
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		// Exhausted retries carry the attempt count and are final.
		if rateErr.Attempts > 0 {
			return CategoryTerminal
		}
		return CategoryRetriable
	}

	if IsRateLimit(err) {
		return CategoryRetriable
	}

	return CategoryTerminal
}

// IsRateLimit reports whether the error is a throttling signal from the
// vision backend. Backends surface this either as HTTP 429 or as a
// RESOURCE_EXHAUSTED marker embedded in the error text.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var transErr *TransportError
	if errors.As(err, &transErr) && transErr.StatusCode == 429 {
		return true
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// IsRetryable reports whether the vision adapter should retry the call.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryRetriable
}
