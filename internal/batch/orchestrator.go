// Package batch scores a full set of pricing contexts in one run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/guarzo/autopricing/internal/model"
)

// Scorer decides a price for one context. *pricing.Engine satisfies it.
type Scorer interface {
	Decide(c *model.PricingContext) model.Decision
}

// Config holds configuration for the orchestrator
type Config struct {
	Workers       int           // Number of concurrent workers
	ProgressEvery time.Duration // Minimum interval between progress logs
}

// Result is the outcome of one run.
type Result struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Recommendations []model.Recommendation
	Counts          map[model.Change]int
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Orchestrator validates, scores and advances the change counter for a batch.
type Orchestrator struct {
	scorer   Scorer
	workers  int
	progress *rate.Sometimes
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates an orchestrator around scorer.
func New(scorer Scorer, cfg Config, logger zerolog.Logger) *Orchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	every := cfg.ProgressEvery
	if every == 0 {
		every = 5 * time.Second
	}

	return &Orchestrator{
		scorer:   scorer,
		workers:  workers,
		progress: &rate.Sometimes{First: 1, Interval: every},
		logger:   logger.With().Str("component", "batch").Logger(),
		now:      time.Now,
	}
}

// Run scores every context. If any context is structurally invalid nothing
// is scored and the joined validation errors are returned.
func (o *Orchestrator) Run(ctx context.Context, contexts []model.PricingContext) (*Result, error) {
	if err := Validate(contexts); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: o.now(),
		Counts:    make(map[model.Change]int),
	}
	log := o.logger.With().Str("run_id", result.RunID).Logger()
	log.Info().Int("records", len(contexts)).Int("workers", o.workers).Msg("starting pricing run")

	decisions, err := o.score(ctx, log, contexts)
	if err != nil {
		return nil, err
	}

	result.Recommendations = make([]model.Recommendation, len(contexts))
	for i := range contexts {
		d := decisions[i]
		result.Recommendations[i] = model.Recommendation{
			Context:            contexts[i],
			Decision:           d,
			LastChangedDaysAgo: NextDaysAgo(d.Change, contexts[i].LastChangedDaysAgo),
		}
		result.Counts[d.Change]++
	}
	result.FinishedAt = o.now()

	ev := log.Info().Dur("duration", result.Duration())
	for change, n := range result.Counts {
		ev = ev.Int(string(change), n)
	}
	ev.Msg("pricing run finished")

	return result, nil
}

// score fans the contexts out to the worker pool. Decisions keep input order.
func (o *Orchestrator) score(ctx context.Context, log zerolog.Logger, contexts []model.PricingContext) ([]model.Decision, error) {
	decisions := make([]model.Decision, len(contexts))
	if len(contexts) == 0 {
		return decisions, nil
	}

	jobs := make(chan int)
	var done atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < min(o.workers, len(contexts)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				decisions[i] = o.scorer.Decide(&contexts[i])

				n := done.Add(1)
				o.progress.Do(func() {
					log.Info().Int64("scored", n).Int("total", len(contexts)).Msg("pricing progress")
				})
			}
		}()
	}

	var cancelled error
send:
	for i := range contexts {
		select {
		case jobs <- i:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break send
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, fmt.Errorf("pricing run cancelled after %d of %d records: %w", done.Load(), len(contexts), cancelled)
	}
	return decisions, nil
}

// Validate checks every context and that no (style, country) key repeats,
// joining the failures.
func Validate(contexts []model.PricingContext) error {
	var errs []error
	first := make(map[model.Key]int, len(contexts))
	for i := range contexts {
		if err := contexts[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
		}
		key := contexts[i].Key()
		if j, ok := first[key]; ok {
			errs = append(errs, fmt.Errorf("record %d: duplicate %s/%s (first at record %d): %w",
				i, key.Style, key.CountryCode, j, model.ErrIncompleteContext))
			continue
		}
		first[key] = i
	}
	return errors.Join(errs...)
}

// NextDaysAgo advances the change counter: a price move resets it, anything
// else ages it by one run.
func NextDaysAgo(change model.Change, prev int) int {
	if change.IsPriceMove() {
		return 0
	}
	return prev + 1
}
