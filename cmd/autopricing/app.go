package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/guarzo/autopricing/internal/assembly"
	"github.com/guarzo/autopricing/internal/backup"
	"github.com/guarzo/autopricing/internal/batch"
	"github.com/guarzo/autopricing/internal/competitors"
	"github.com/guarzo/autopricing/internal/config"
	"github.com/guarzo/autopricing/internal/history"
	"github.com/guarzo/autopricing/internal/logger"
	"github.com/guarzo/autopricing/internal/pipeline"
	"github.com/guarzo/autopricing/internal/pricing"
	"github.com/guarzo/autopricing/internal/report"
)

// env is the configuration and the pieces every command shares.
type env struct {
	cfg      *config.Config
	log      zerolog.Logger
	policy   pricing.Policy
	settings *assembly.Settings
	rates    report.Rates
}

func loadEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.StringSlice("env-file")...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("policy") {
		cfg.PolicyPath = c.String("policy")
	}
	if c.IsSet("settings") {
		cfg.SettingsPath = c.String("settings")
	}
	if c.IsSet("rates") {
		cfg.RatesPath = c.String("rates")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: c.App.ErrWriter})
	logger.SetGlobalLogger(log)

	policy := pricing.DefaultPolicy()
	if cfg.PolicyPath != "" {
		if policy, err = pricing.LoadPolicy(cfg.PolicyPath); err != nil {
			return nil, err
		}
	}

	settings, err := assembly.LoadSettings(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}

	rates := report.Rates{report.BaseCurrency: 1}
	if cfg.RatesPath != "" {
		if rates, err = report.LoadRates(cfg.RatesPath); err != nil {
			return nil, err
		}
	}

	return &env{cfg: cfg, log: log, policy: policy, settings: settings, rates: rates}, nil
}

func (e *env) assembler() *assembly.Assembler {
	return &assembly.Assembler{
		Settings:       e.settings,
		LookbackDays:   e.cfg.LookbackDays,
		NewProductDays: e.cfg.NewProductDays,
		Logger:         logger.Component(e.log, "assembly"),
	}
}

func (e *env) pageLoader() *competitors.Loader {
	return &competitors.Loader{Rates: e.rates, Logger: logger.Component(e.log, "competitors")}
}

// source picks the input of a run from the command flags.
func (e *env) source(c *cli.Context) (pipeline.Source, error) {
	contexts, snapshot := c.String("contexts"), c.String("snapshot")
	switch {
	case contexts != "" && snapshot != "":
		return nil, fmt.Errorf("--contexts and --snapshot are exclusive")
	case contexts != "":
		return pipeline.ContextsFile{Path: contexts}, nil
	case snapshot != "":
		return pipeline.SnapshotSource{
			Path:      snapshot,
			PagesDir:  c.String("pages"),
			Assembler: e.assembler(),
			Pages:     e.pageLoader(),
		}, nil
	}
	return nil, fmt.Errorf("one of --contexts or --snapshot is required")
}

// runner opens the history store and builds the full pipeline. The caller
// closes the store.
func (e *env) runner(exportEnabled bool) (*pipeline.Runner, *history.Store, error) {
	engine, err := pricing.NewEngine(e.policy)
	if err != nil {
		return nil, nil, err
	}
	store, err := history.Open(e.cfg.HistoryDBPath)
	if err != nil {
		return nil, nil, err
	}

	r := &pipeline.Runner{
		Orchestrator: batch.New(engine, batch.Config{Workers: e.cfg.Workers}, e.log),
		History:      store,
		Backups:      backup.NewStore(e.cfg.BackupDir),
		ExportDir:    e.cfg.ExportDir,
		Countries:    e.cfg.Countries,
		Logger:       e.log,
	}
	if exportEnabled {
		r.Exporter = report.NewExporter(e.cfg.ExportPrefix, e.rates, e.log)
	}
	return r, store, nil
}
