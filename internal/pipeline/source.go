package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/guarzo/autopricing/internal/assembly"
	"github.com/guarzo/autopricing/internal/competitors"
	"github.com/guarzo/autopricing/internal/model"
)

// State is what the previous runs left behind.
type State struct {
	Counters  map[model.Key]int
	SellPower map[model.Key]float64
}

// Source produces the contexts for one run.
type Source interface {
	Name() string
	Load(ctx context.Context, state State) ([]model.PricingContext, error)
}

// ContextsFile reads already assembled contexts from a JSON file. The
// counters inside the file are used as they are.
type ContextsFile struct {
	Path string
}

func (s ContextsFile) Name() string { return "contexts:" + s.Path }

func (s ContextsFile) Load(_ context.Context, _ State) ([]model.PricingContext, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open contexts: %w", err)
	}
	defer f.Close()
	return model.DecodeContexts(f)
}

// SnapshotSource assembles contexts from a raw snapshot, optionally adding
// offers parsed from a directory of saved competitor pages.
type SnapshotSource struct {
	Path      string
	PagesDir  string
	Assembler *assembly.Assembler
	Pages     *competitors.Loader
}

func (s SnapshotSource) Name() string { return "snapshot:" + s.Path }

func (s SnapshotSource) Load(_ context.Context, state State) ([]model.PricingContext, error) {
	snap, err := assembly.LoadSnapshot(s.Path)
	if err != nil {
		return nil, err
	}

	if s.PagesDir != "" {
		if s.Pages == nil {
			return nil, fmt.Errorf("pages directory %s given without a page loader", s.PagesDir)
		}
		offers, err := s.Pages.LoadDir(s.PagesDir)
		if err != nil {
			return nil, fmt.Errorf("competitor pages: %w", err)
		}
		snap.Offers = append(snap.Offers, offers...)
	}

	a := *s.Assembler
	a.PreviousSellPower = state.SellPower
	return a.Build(snap, state.Counters)
}
