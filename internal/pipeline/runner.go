// Package pipeline runs one complete pricing pass: load, score, back up,
// record and export.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/guarzo/autopricing/internal/backup"
	"github.com/guarzo/autopricing/internal/batch"
	"github.com/guarzo/autopricing/internal/history"
	"github.com/guarzo/autopricing/internal/model"
	"github.com/guarzo/autopricing/internal/report"
)

const (
	StageLoad    = "load"
	StageScore   = "score"
	StageBackup  = "backup"
	StageHistory = "history"
	StageExport  = "export"
)

// StageMetrics tracks one stage of a run
type StageMetrics struct {
	Name      string
	Items     int
	StartTime time.Time
	Latency   time.Duration
}

// Metrics tracks a whole run
type Metrics struct {
	StartTime  time.Time
	EndTime    time.Time
	TotalItems int
	Throughput float64 // records per second
	Stages     []StageMetrics
}

// Summary is what a run produced.
type Summary struct {
	Result     *batch.Result
	BackupPath string
	Files      report.Files
	Metrics    Metrics
}

// Runner wires the stages. History, Backups and Exporter are optional;
// a nil one skips its stage.
type Runner struct {
	Orchestrator *batch.Orchestrator
	History      *history.Store
	Backups      *backup.Store
	Exporter     *report.Exporter
	ExportDir    string
	// Countries limits the run to these country codes when not empty.
	Countries []string
	Logger    zerolog.Logger
}

// Run executes every stage in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context, src Source) (*Summary, error) {
	log := r.Logger.With().Str("component", "pipeline").Str("source", src.Name()).Logger()
	s := &Summary{Metrics: Metrics{StartTime: time.Now()}}

	var contexts []model.PricingContext
	err := r.stage(&s.Metrics, StageLoad, func() (int, error) {
		state, err := r.state(ctx)
		if err != nil {
			return 0, err
		}
		contexts, err = src.Load(ctx, state)
		if err != nil {
			return 0, err
		}
		contexts = r.filter(contexts)
		return len(contexts), nil
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.TotalItems = len(contexts)

	err = r.stage(&s.Metrics, StageScore, func() (int, error) {
		res, err := r.Orchestrator.Run(ctx, contexts)
		if err != nil {
			return 0, err
		}
		s.Result = res
		return len(res.Recommendations), nil
	})
	if err != nil {
		return nil, err
	}
	recs := s.Result.Recommendations

	if r.Backups != nil {
		err = r.stage(&s.Metrics, StageBackup, func() (int, error) {
			path, err := r.Backups.Write(s.Result.RunID, s.Result.FinishedAt, recs)
			s.BackupPath = path
			return len(recs), err
		})
		if err != nil {
			return nil, err
		}
	}

	if r.History != nil {
		err = r.stage(&s.Metrics, StageHistory, func() (int, error) {
			return len(recs), r.History.SaveRun(ctx, s.Result)
		})
		if err != nil {
			return nil, err
		}
	}

	if r.Exporter != nil {
		err = r.stage(&s.Metrics, StageExport, func() (int, error) {
			files, err := r.Exporter.WriteFiles(r.ExportDir, s.Result.RunID, recs)
			s.Files = files
			return len(recs), err
		})
		if err != nil {
			return nil, err
		}
	}

	s.Metrics.EndTime = time.Now()
	if d := s.Metrics.EndTime.Sub(s.Metrics.StartTime); d > 0 {
		s.Metrics.Throughput = float64(s.Metrics.TotalItems) / d.Seconds()
	}

	log.Info().
		Str("run_id", s.Result.RunID).
		Int("records", s.Metrics.TotalItems).
		Dur("duration", s.Metrics.EndTime.Sub(s.Metrics.StartTime)).
		Str("backup", s.BackupPath).
		Str("export", s.Files.Export).
		Msg("pricing pipeline finished")
	return s, nil
}

func (r *Runner) stage(m *Metrics, name string, fn func() (int, error)) error {
	start := time.Now()
	items, err := fn()
	m.Stages = append(m.Stages, StageMetrics{
		Name:      name,
		Items:     items,
		StartTime: start,
		Latency:   time.Since(start),
	})
	if err != nil {
		return fmt.Errorf("%s stage: %w", name, err)
	}
	r.Logger.Debug().Str("stage", name).Int("items", items).Dur("latency", time.Since(start)).Msg("stage done")
	return nil
}

func (r *Runner) state(ctx context.Context) (State, error) {
	if r.History == nil {
		return State{}, nil
	}
	counters, err := r.History.LastChangedDaysAgo(ctx)
	if err != nil {
		return State{}, err
	}
	power, err := r.History.LastSellPowerWeek(ctx)
	if err != nil {
		return State{}, err
	}
	return State{Counters: counters, SellPower: power}, nil
}

func (r *Runner) filter(contexts []model.PricingContext) []model.PricingContext {
	if len(r.Countries) == 0 {
		return contexts
	}
	return slices.DeleteFunc(contexts, func(c model.PricingContext) bool {
		return !slices.Contains(r.Countries, c.CountryCode)
	})
}

// Job runs the pipeline from the scheduler.
type Job struct {
	Runner  *Runner
	Source  Source
	Timeout time.Duration
}

// Name returns the job name
func (j *Job) Name() string {
	return "pricing_run"
}

// Run executes one pipeline pass.
func (j *Job) Run() error {
	ctx := context.Background()
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	_, err := j.Runner.Run(ctx, j.Source)
	return err
}
