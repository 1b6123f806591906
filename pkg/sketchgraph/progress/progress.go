// Package progress carries transient pipeline status over channels.
//
// The vision adapter publishes wait/resume events while it backs off on
// rate limits; the coordinator subscribes per job and mirrors the events
// into the job store. Publishing never blocks the publisher: if the
// consumer lags, events are dropped rather than stalling a retry loop.
package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Retrying is the status emitted after a rate-limit wait completes.
const Retrying = "processing_retrying"

// waitingPrefix starts every rate-limit wait status.
const waitingPrefix = "waiting_rate_limit_"

// WaitingStatus formats the status emitted before a rate-limit wait.
func WaitingStatus(wait time.Duration) string {
	return fmt.Sprintf("%s%ds", waitingPrefix, int(wait.Seconds()))
}

// IsTransient reports whether a status is one of the wait/retry markers
// published while the vision stage backs off. Transient statuses belong
// to a run that is still executing.
func IsTransient(status string) bool {
	return status == Retrying || strings.HasPrefix(status, waitingPrefix)
}

// Event is one transient status update for a job.
type Event struct {
	JobID  string
	Status string
	Wait   time.Duration // non-zero for wait announcements
}

// Sink receives progress events. Implementations must not block.
type Sink interface {
	Publish(evt Event)
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Stream is a single-job buffered event stream. The producing side
// publishes through the Sink interface; the consuming side ranges over
// Events until Close.
type Stream struct {
	mu     sync.Mutex
	events chan Event
	closed bool
}

// NewStream creates a stream with the given buffer size.
// A size <= 0 defaults to 16.
func NewStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = 16
	}
	return &Stream{events: make(chan Event, buffer)}
}

// Publish implements Sink. Drops the event if the buffer is full or the
// stream is closed.
func (s *Stream) Publish(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.events <- evt:
	default:
	}
}

// Events returns the receive side of the stream. The channel is closed
// by Close once pending events drain.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Close stops the stream; further Publish calls are no-ops.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}
