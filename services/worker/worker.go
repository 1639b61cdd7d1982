package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"sjsage522/shopcompare/internal/cascade"
	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/internal/scraper"
	"sjsage522/shopcompare/logger"
)

// Runner produces one platform's products for one query
type Runner interface {
	Run(ctx context.Context, platform product.Platform, query string, opts scraper.SearchOptions) cascade.Outcome
}

// Job is one (platform, query) retrieval
type Job struct {
	Platform product.Platform
	Query    string
	Options  scraper.SearchOptions
}

// Worker fans jobs out over a bounded number of goroutines
type Worker struct {
	runner   Runner
	limit    int
	deadline time.Duration
	log      *logger.Logger
}

// NewWorker creates a worker running at most limit jobs at once.
// deadline bounds a whole Run, zero leaves it to the caller's context.
func NewWorker(runner Runner, limit int, deadline time.Duration) *Worker {
	if limit < 1 {
		limit = 1
	}
	return &Worker{
		runner:   runner,
		limit:    limit,
		deadline: deadline,
		log:      logger.ForComponent("worker"),
	}
}

// Deadline reports the bound applied to each Run
func (w *Worker) Deadline() time.Duration {
	return w.deadline
}

// Run executes every job and returns their outcomes in job order.
// A failing job yields an empty outcome and never cancels its siblings.
func (w *Worker) Run(ctx context.Context, jobs []Job) []cascade.Outcome {
	outcomes := make([]cascade.Outcome, len(jobs))
	if len(jobs) == 0 {
		return outcomes
	}

	if w.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.deadline)
		defer cancel()
	}

	start := time.Now()
	// plain Group: the derived context of WithContext would cancel siblings on error
	var g errgroup.Group
	g.SetLimit(w.limit)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			outcomes[i] = w.runJob(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	if logger.IsDebugEnabled() {
		w.log.Debug().
			Int("jobs", len(jobs)).
			Dur("elapsed", time.Since(start)).
			Msg("Fan-out finished")
	}
	return outcomes
}

func (w *Worker) runJob(ctx context.Context, job Job) (out cascade.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogError("worker", fmt.Errorf("panic: %v", r), "Job for %s %q panicked", job.Platform, job.Query)
			out = cascade.Outcome{Platform: job.Platform, Query: job.Query, Tier: cascade.TierNone}
		}
	}()
	return w.runner.Run(ctx, job.Platform, job.Query, job.Options)
}
