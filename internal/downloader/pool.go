package downloader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"wallscraper/pkg/logger"
	"wallscraper/pkg/storage"
)

// Job is a single wallpaper to download
type Job struct {
	URL   string
	Index int
	Path  string
}

// Result represents the outcome of a download job
type Result struct {
	Job      Job
	Started  bool
	Success  bool
	Error    error
	Size     int64
	Digest   string
	Duration time.Duration
}

// ImageFetcher streams a remote image into sink
type ImageFetcher interface {
	Download(ctx context.Context, url string, sink func(io.Reader) (int64, error)) (int64, error)
}

// ImageStore writes image data to a path
type ImageStore interface {
	Save(r io.Reader, path string) (*storage.SaveResult, error)
}

// WorkerPool downloads jobs with a bounded number of workers
type WorkerPool struct {
	numWorkers int
	client     ImageFetcher
	store      ImageStore
	logger     logger.Logger

	onResult func(Result)
	resultMu sync.Mutex
}

// NewWorkerPool creates a new download worker pool
func NewWorkerPool(numWorkers int, client ImageFetcher, store ImageStore, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers: numWorkers,
		client:     client,
		store:      store,
		logger:     log,
	}
}

// OnResult registers fn to be called as each job finishes. Calls never overlap.
func (wp *WorkerPool) OnResult(fn func(Result)) {
	wp.onResult = fn
}

// Run downloads every job and returns the results in job order.
// Jobs that had not started when ctx was cancelled come back with Started false.
func (wp *WorkerPool) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))

	wp.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
		"jobs":        len(jobs),
	})

	p := pool.New().WithMaxGoroutines(wp.numWorkers)
	for i, job := range jobs {
		p.Go(func() {
			results[i] = wp.processJob(ctx, job)
			wp.report(results[i])
		})
	}
	p.Wait()

	wp.logger.Info("Worker pool stopped")

	return results
}

func (wp *WorkerPool) report(r Result) {
	if wp.onResult == nil {
		return
	}
	wp.resultMu.Lock()
	defer wp.resultMu.Unlock()
	wp.onResult(r)
}

// processJob handles a single download job
func (wp *WorkerPool) processJob(ctx context.Context, job Job) Result {
	result := Result{Job: job}

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	result.Started = true
	start := time.Now()

	var saved *storage.SaveResult
	var rerr error
	recovered := panics.Try(func() {
		_, rerr = wp.client.Download(ctx, job.URL, func(r io.Reader) (int64, error) {
			res, err := wp.store.Save(r, job.Path)
			if err != nil {
				return 0, err
			}
			saved = res
			return res.Size, nil
		})
	})

	result.Duration = time.Since(start)

	switch {
	case recovered != nil:
		result.Error = fmt.Errorf("recovered: %w", recovered.AsError())
	case rerr != nil:
		result.Error = rerr
	case saved == nil:
		result.Error = fmt.Errorf("no data saved for %s", job.URL)
	default:
		result.Success = true
		result.Size = saved.Size
		result.Digest = saved.Digest
	}

	logger.LogDownload(wp.logger, job.URL, job.Path, result.Success, result.Size, result.Duration, result.Error)

	return result
}

// GetActiveWorkers returns the number of workers
func (wp *WorkerPool) GetActiveWorkers() int {
	return wp.numWorkers
}
