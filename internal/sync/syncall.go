package sync

import (
	"context"
	"sync"

	"github.com/caldirhq/caldir/internal/provider"
)

// CalendarJob is one calendar directory to sync, paired with the remote
// it syncs against.
type CalendarJob struct {
	Dir          string
	RemoteConfig map[string]string
	Remote       provider.Remote
	Window       Window
	Options      PushOptions
}

// AllResult pairs a job's directory with its outcome, since results
// arrive out of order from the worker pool.
type AllResult struct {
	Dir    string
	Result *Result
	Err    error
}

// defaultConcurrency bounds how many calendars sync at once — each
// calendar is internally sequential (pull fully finishes before push
// starts), but independent calendars run concurrently.
const defaultConcurrency = 4

// RunAll fans jobs out across a bounded worker pool. Cancelling ctx stops
// new dispatch; jobs already in flight are allowed to finish so no
// calendar is left with a half-applied pull or push.
func RunAll(ctx context.Context, jobs []CalendarJob) []AllResult {
	return runAllWithConcurrency(ctx, jobs, defaultConcurrency)
}

func runAllWithConcurrency(ctx context.Context, jobs []CalendarJob, concurrency int) []AllResult {
	results := make([]AllResult, len(jobs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, job := range jobs {
		i, job := i, job
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = AllResult{Dir: job.Dir, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			res, err := RunCalendar(ctx, job.Dir, job.RemoteConfig, job.Remote, job.Window, job.Options)
			results[i] = AllResult{Dir: job.Dir, Result: res, Err: err}
		}()
	}

	wg.Wait()
	return results
}
