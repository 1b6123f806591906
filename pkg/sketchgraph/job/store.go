// Package job owns job lifecycle state and drives the conversion
// pipeline from submission to a terminal status.
package job

import (
	"errors"
	"strings"

	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/progress"
)

// Canonical job states. During processing the vision stage may briefly
// overwrite the status with transient wait/retry markers that are not
// part of this set.
const (
	StateQueued                = "queued"
	StateProcessing            = "processing"
	StateCompleted             = "completed"
	StateCompletedWithWarnings = "completed_with_warnings"
	StateNotFound              = "not_found"
)

// failedPrefix starts every failure status; the remainder is the detail.
const failedPrefix = "failed: "

// StateFailed formats a failure status with its detail message.
func StateFailed(detail string) string {
	return failedPrefix + detail
}

// IsTerminal reports whether a status ends the job lifecycle.
func IsTerminal(status string) bool {
	return status == StateCompleted ||
		status == StateCompletedWithWarnings ||
		strings.HasPrefix(status, failedPrefix)
}

// IsInFlight reports whether a status belongs to a run that is still
// executing: queued, processing, or one of the transient wait/retry
// markers mirrored into the store during a rate-limit backoff.
func IsInFlight(status string) bool {
	return status == StateQueued ||
		status == StateProcessing ||
		progress.IsTransient(status)
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("job store closed")

// Store holds the current status per job id. No history is kept.
// Implementations must be safe for concurrent use and must make
// CompareAndSet atomic per key: the submitting caller and the job's own
// goroutine both write to the same entry.
type Store interface {
	// Get returns the current status for id, and whether the id exists.
	Get(id string) (string, bool, error)

	// Set unconditionally replaces the status for id.
	Set(id, status string) error

	// CompareAndSet replaces the status for id with next if allow
	// reports true for the currently stored value. Returns the status
	// observed before the swap and whether the swap happened.
	CompareAndSet(id, next string, allow func(current string, exists bool) bool) (string, bool, error)

	// Close releases any resources.
	Close() error
}
