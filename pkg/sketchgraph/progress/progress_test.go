package progress_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/progress"
)

func TestWaitingStatus(t *testing.T) {
	assert.Equal(t, "waiting_rate_limit_11s", progress.WaitingStatus(11*time.Second))
	assert.Equal(t, "waiting_rate_limit_5s", progress.WaitingStatus(5*time.Second))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, progress.IsTransient(progress.Retrying))
	assert.True(t, progress.IsTransient(progress.WaitingStatus(11*time.Second)))
	assert.True(t, progress.IsTransient("waiting_rate_limit_48s"))
	assert.False(t, progress.IsTransient("processing"))
	assert.False(t, progress.IsTransient("completed"))
	assert.False(t, progress.IsTransient(""))
}

func TestStream_PublishConsume(t *testing.T) {
	s := progress.NewStream(4)

	s.Publish(progress.Event{JobID: "j", Status: "waiting_rate_limit_5s", Wait: 5 * time.Second})
	s.Publish(progress.Event{JobID: "j", Status: progress.Retrying})
	s.Close()

	var got []progress.Event
	for evt := range s.Events() {
		got = append(got, evt)
	}

	require.Len(t, got, 2)
	assert.Equal(t, "waiting_rate_limit_5s", got[0].Status)
	assert.Equal(t, progress.Retrying, got[1].Status)
}

func TestStream_DropsWhenFull(t *testing.T) {
	s := progress.NewStream(1)

	s.Publish(progress.Event{Status: "one"})
	s.Publish(progress.Event{Status: "two"}) // dropped, buffer full
	s.Close()

	var got []progress.Event
	for evt := range s.Events() {
		got = append(got, evt)
	}

	require.Len(t, got, 1)
	assert.Equal(t, "one", got[0].Status)
}

func TestStream_PublishAfterClose(t *testing.T) {
	s := progress.NewStream(4)
	s.Close()

	// Must not panic or block.
	s.Publish(progress.Event{Status: "late"})
	s.Close()

	_, open := <-s.Events()
	assert.False(t, open)
}
