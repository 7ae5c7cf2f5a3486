package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/olx/internal/models"
	"golang.org/x/time/rate"
)

// BulkSyncOpts contains configuration for running several sync kinds together.
type BulkSyncOpts struct {
	NumWorkers int     // Concurrent jobs (default: 2, max: 5)
	StartRate  float64 // Job starts per second (default: 1)
}

// BulkSyncResult aggregates the outcome of [SyncTracker.RunAll].
type BulkSyncResult struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []KindResult // Completion order
	Duration  time.Duration
}

// KindResult is the outcome of one job in a bulk run.
type KindResult struct {
	Kind   models.SyncKind
	Result *SyncResult
	Err    error
}

// RunAll runs kinds concurrently with a worker pool, pacing job starts.
//
// Each job reports through progress with its Kind set. A failed job does not stop the others.
// Kinds never started because ctx ended are reported with the context error.
func (t *SyncTracker) RunAll(ctx context.Context, kinds []models.SyncKind, opts BulkSyncOpts, progress chan<- ProgressUpdate) *BulkSyncResult {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > 5 {
		opts.NumWorkers = 5
	}
	if opts.StartRate <= 0 {
		opts.StartRate = 1
	}

	began := time.Now()
	result := &BulkSyncResult{Total: len(kinds), Results: make([]KindResult, 0, len(kinds))}
	limiter := rate.NewLimiter(rate.Limit(opts.StartRate), 1)

	jobs := make(chan models.SyncKind, len(kinds))
	results := make(chan KindResult, len(kinds))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go t.syncWorker(ctx, &wg, limiter, jobs, results, progress)
	}

	for _, kind := range kinds {
		jobs <- kind
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		result.Results = append(result.Results, res)
		if res.Err == nil {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	result.Duration = time.Since(began)
	return result
}

// syncWorker runs kinds from the jobs channel until it is drained.
func (t *SyncTracker) syncWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan models.SyncKind,
	results chan<- KindResult,
	progress chan<- ProgressUpdate,
) {
	defer wg.Done()

	for kind := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			results <- KindResult{Kind: kind, Err: err}
			continue
		}

		res, err := t.Run(ctx, kind, progress)
		results <- KindResult{Kind: kind, Result: res, Err: err}
	}
}
