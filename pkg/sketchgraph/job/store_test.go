package job_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/job"
)

// storeFactories lets every Store implementation share one test suite.
var storeFactories = map[string]func(t *testing.T) job.Store{
	"memory": func(_ *testing.T) job.Store {
		return job.NewMemoryStore()
	},
	"sqlite": func(t *testing.T) job.Store {
		s, err := job.NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
		require.NoError(t, err)
		return s
	},
}

func TestStore_GetSet(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			_, ok, err := store.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Set("job-1", job.StateQueued))

			status, ok, err := store.Get("job-1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, job.StateQueued, status)

			require.NoError(t, store.Set("job-1", job.StateProcessing))
			status, _, _ = store.Get("job-1")
			assert.Equal(t, job.StateProcessing, status)
		})
	}
}

func TestStore_CompareAndSet(t *testing.T) {
	submitGuard := func(current string, exists bool) bool {
		return !exists || (!job.IsInFlight(current) && current != job.StateCompleted)
	}

	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			// New id: swap succeeds.
			prev, swapped, err := store.CompareAndSet("job-1", job.StateQueued, submitGuard)
			require.NoError(t, err)
			assert.True(t, swapped)
			assert.Empty(t, prev)

			// Processing blocks resubmission and reports the observed state.
			require.NoError(t, store.Set("job-1", job.StateProcessing))
			prev, swapped, err = store.CompareAndSet("job-1", job.StateQueued, submitGuard)
			require.NoError(t, err)
			assert.False(t, swapped)
			assert.Equal(t, job.StateProcessing, prev)

			// Completed blocks as well.
			require.NoError(t, store.Set("job-1", job.StateCompleted))
			_, swapped, err = store.CompareAndSet("job-1", job.StateQueued, submitGuard)
			require.NoError(t, err)
			assert.False(t, swapped)

			// A transient rate-limit marker means the run is still alive.
			require.NoError(t, store.Set("job-1", "waiting_rate_limit_5s"))
			prev, swapped, err = store.CompareAndSet("job-1", job.StateQueued, submitGuard)
			require.NoError(t, err)
			assert.False(t, swapped)
			assert.Equal(t, "waiting_rate_limit_5s", prev)

			// Failed jobs may be resubmitted.
			require.NoError(t, store.Set("job-1", job.StateFailed("boom")))
			_, swapped, err = store.CompareAndSet("job-1", job.StateQueued, submitGuard)
			require.NoError(t, err)
			assert.True(t, swapped)
		})
	}
}

func TestStore_CompareAndSetAtomic(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			// Many goroutines race to claim the same id; exactly one wins.
			const contenders = 50
			var wg sync.WaitGroup
			wins := make(chan struct{}, contenders)

			for i := 0; i < contenders; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, swapped, err := store.CompareAndSet("job-1", job.StateQueued, func(_ string, exists bool) bool {
						return !exists
					})
					if err == nil && swapped {
						wins <- struct{}{}
					}
				}()
			}

			wg.Wait()
			close(wins)

			count := 0
			for range wins {
				count++
			}
			assert.Equal(t, 1, count)
		})
	}
}

func TestStore_Closed(t *testing.T) {
	store := job.NewMemoryStore()
	require.NoError(t, store.Close())

	_, _, err := store.Get("x")
	assert.ErrorIs(t, err, job.ErrStoreClosed)

	assert.ErrorIs(t, store.Set("x", job.StateQueued), job.ErrStoreClosed)

	_, _, err = store.CompareAndSet("x", job.StateQueued, func(string, bool) bool { return true })
	assert.ErrorIs(t, err, job.ErrStoreClosed)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, job.IsTerminal(job.StateCompleted))
	assert.True(t, job.IsTerminal(job.StateCompletedWithWarnings))
	assert.True(t, job.IsTerminal(job.StateFailed("no input")))
	assert.False(t, job.IsTerminal(job.StateQueued))
	assert.False(t, job.IsTerminal(job.StateProcessing))
	assert.False(t, job.IsTerminal("waiting_rate_limit_11s"))
}

func TestIsInFlight(t *testing.T) {
	assert.True(t, job.IsInFlight(job.StateQueued))
	assert.True(t, job.IsInFlight(job.StateProcessing))
	assert.True(t, job.IsInFlight("waiting_rate_limit_11s"))
	assert.True(t, job.IsInFlight("processing_retrying"))
	assert.False(t, job.IsInFlight(job.StateCompleted))
	assert.False(t, job.IsInFlight(job.StateCompletedWithWarnings))
	assert.False(t, job.IsInFlight(job.StateFailed("boom")))
	assert.False(t, job.IsInFlight(job.StateNotFound))
}
