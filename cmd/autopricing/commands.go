package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/guarzo/autopricing/internal/backup"
	"github.com/guarzo/autopricing/internal/history"
	"github.com/guarzo/autopricing/internal/model"
	"github.com/guarzo/autopricing/internal/pipeline"
	"github.com/guarzo/autopricing/internal/pricing"
	"github.com/guarzo/autopricing/internal/scheduler"
)

func snapshotFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "snapshot",
			Aliases: []string{"s"},
			Usage:   "Raw observation snapshot (YAML or JSON) to assemble",
		},
		&cli.StringFlag{
			Name:  "pages",
			Usage: "Directory of saved competitor pages with a manifest.yaml",
		},
	}
}

// sourceFlags select the input of a pipeline run.
func sourceFlags(extra ...cli.Flag) []cli.Flag {
	flags := append([]cli.Flag{
		&cli.StringFlag{
			Name:  "contexts",
			Usage: "JSON array of assembled pricing contexts",
		},
	}, snapshotFlags()...)
	return append(flags, extra...)
}

// =============================================================================
// RUN COMMAND
// =============================================================================

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Score every context once, then back up, record and export",
		Flags: sourceFlags(
			&cli.BoolFlag{
				Name:  "no-export",
				Usage: "Skip the production export",
			},
		),
		Action: runOnce,
	}
}

func runOnce(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	src, err := e.source(c)
	if err != nil {
		return err
	}
	r, store, err := e.runner(!c.Bool("no-export"))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := r.Run(c.Context, src)
	if err != nil {
		return err
	}

	res := summary.Result
	fmt.Fprintf(c.App.Writer, "run %s: %d records in %s\n", res.RunID, len(res.Recommendations), res.Duration().Round(time.Millisecond))
	for _, change := range []model.Change{model.ChangeIncrease, model.ChangeDecrease, model.ChangeKeep, model.ChangeChangedLastDays, model.ChangeNotEnoughData} {
		fmt.Fprintf(c.App.Writer, "  %-18s %d\n", change, res.Counts[change])
	}
	if summary.Files.Export != "" {
		fmt.Fprintf(c.App.Writer, "export: %s\naudit:  %s\n", summary.Files.Export, summary.Files.Audit)
	}
	return nil
}

// =============================================================================
// ASSEMBLE COMMAND
// =============================================================================

func assembleCommand() *cli.Command {
	return &cli.Command{
		Name:  "assemble",
		Usage: "Assemble pricing contexts from a snapshot without scoring",
		Flags: append(snapshotFlags(),
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file, stdout when empty",
			},
		),
		Action: assemble,
	}
}

func assemble(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	if c.String("snapshot") == "" {
		return fmt.Errorf("--snapshot is required")
	}
	src, err := e.source(c)
	if err != nil {
		return err
	}

	store, err := history.Open(e.cfg.HistoryDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	counters, err := store.LastChangedDaysAgo(c.Context)
	if err != nil {
		return err
	}
	power, err := store.LastSellPowerWeek(c.Context)
	if err != nil {
		return err
	}

	contexts, err := src.Load(c.Context, pipeline.State{Counters: counters, SellPower: power})
	if err != nil {
		return err
	}

	out := c.App.Writer
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}
	return model.EncodeContexts(out, contexts)
}

// =============================================================================
// SCHEDULE COMMAND
// =============================================================================

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Run the pipeline on the configured cron schedule until interrupted",
		Flags: sourceFlags(
			&cli.BoolFlag{
				Name:  "run-now",
				Usage: "Run once immediately before waiting for the schedule",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 2 * time.Hour,
				Usage: "Maximum duration of one run",
			},
		),
		Action: schedule,
	}
}

func schedule(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	src, err := e.source(c)
	if err != nil {
		return err
	}
	r, store, err := e.runner(true)
	if err != nil {
		return err
	}
	defer store.Close()

	job := &pipeline.Job{Runner: r, Source: src, Timeout: c.Duration("timeout")}
	s := scheduler.New(e.log)
	if err := s.AddJob(e.cfg.Schedule, job); err != nil {
		return err
	}
	if c.Bool("run-now") {
		if err := s.RunNow(job); err != nil {
			e.log.Error().Err(err).Msg("immediate run failed")
		}
	}

	s.Start()
	defer s.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case got := <-sig:
		e.log.Info().Str("signal", got.String()).Msg("shutting down")
	case <-c.Context.Done():
	}
	return nil
}

// =============================================================================
// POLICY COMMAND
// =============================================================================

func policyCommand() *cli.Command {
	return &cli.Command{
		Name:  "policy",
		Usage: "Validate and print the effective policy as YAML",
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			engine, err := pricing.NewEngine(e.policy)
			if err != nil {
				return err
			}
			data, err := engine.Policy().YAML()
			if err != nil {
				return err
			}
			_, err = c.App.Writer.Write(data)
			return err
		},
	}
}

// =============================================================================
// HISTORY COMMAND
// =============================================================================

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent runs, or the recommendations of one style in one country",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "style", Usage: "Style to show"},
			&cli.StringFlag{Name: "country", Usage: "Country code to show"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum rows"},
		},
		Action: showHistory,
	}
}

func showHistory(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	store, err := history.Open(e.cfg.HistoryDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if style := c.String("style"); style != "" {
		if c.String("country") == "" {
			return fmt.Errorf("--country is required with --style")
		}
		entries, err := store.History(c.Context, model.Key{Style: style, CountryCode: c.String("country")}, c.Int("limit"))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "FINISHED\tSTRATEGY\tCHANGE\tPRICE\tRECOM\tPATH")
		for _, h := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%s\n",
				h.FinishedAt.Format(time.DateTime), h.Strategy, h.Change, h.Price, h.RecomPrice, h.Path)
		}
		return nil
	}

	runs, err := store.Runs(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "RUN\tFINISHED\tRECORDS\tINCREASES\tDECREASES")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", r.ID, r.FinishedAt.Format(time.DateTime), r.Records, r.Increases, r.Decreases)
	}
	return nil
}

// =============================================================================
// BACKUP COMMAND
// =============================================================================

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Show the recommendations kept in the latest backup, or in --file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Backup file to read instead of the latest"},
			&cli.StringFlag{Name: "style", Usage: "Only this style"},
			&cli.StringFlag{Name: "country", Usage: "Only this country code"},
		},
		Action: showBackup,
	}
}

func showBackup(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	path := c.String("file")
	if path == "" {
		if path, err = backup.NewStore(e.cfg.BackupDir).Latest(); err != nil {
			return fmt.Errorf("%s: %w", e.cfg.BackupDir, err)
		}
	}
	records, err := backup.Read(path)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	defer w.Flush()

	style, country := c.String("style"), c.String("country")
	if len(records) > 0 {
		fmt.Fprintf(w, "# run %s at %s\n", records[0].RunID, records[0].RunAt.Format(time.DateTime))
	}
	fmt.Fprintln(w, "STYLE\tCOUNTRY\tSTRATEGY\tCHANGE\tPRICE\tRECOM\tDAYS_AGO\tPATH")
	for i := range records {
		rec := records[i].Recommendation()
		if (style != "" && rec.Context.Style != style) || (country != "" && rec.Context.CountryCode != country) {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%d\t%s\n",
			rec.Context.Style, rec.Context.CountryCode, rec.Decision.Strategy, rec.Decision.Change,
			rec.Context.Price, rec.Decision.Price, rec.LastChangedDaysAgo, rec.Decision.Path)
	}
	return nil
}
