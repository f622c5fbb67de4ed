package assembly

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/guarzo/autopricing/internal/model"
)

// Observation is the raw data known about one style in one country.
// Pointers mark optional numbers.
type Observation struct {
	Style        string         `yaml:"style"`
	Brand        string         `yaml:"brand"`
	ProductName  string         `yaml:"product_name"`
	Country      string         `yaml:"country_code"`
	Category     model.Category `yaml:"category"`
	ItemCategory string         `yaml:"item_category"`
	Group0       string         `yaml:"group0"`
	Group1       string         `yaml:"group1"`
	Group2       string         `yaml:"group2"`

	Price         *float64 `yaml:"price"`
	BasePrice     *float64 `yaml:"base_price"`
	PurchasePrice *float64 `yaml:"purchase_price"`

	Inventory  *float64 `yaml:"inventory"`
	SoldToday  *float64 `yaml:"sold_today"`
	Sold7Days  *float64 `yaml:"sold_7_days"`
	SoldSeason *float64 `yaml:"sold_season"`

	ImpressionsRatio     *float64 `yaml:"impressions_ratio"`
	CTRRatio             *float64 `yaml:"ctr_ratio"`
	LastDaySellPowerWeek *float64 `yaml:"last_day_sell_power_week"`
	DiscountOverride     *float64 `yaml:"discount_override"`

	AddedAt string `yaml:"added_at"`
	Scored  *bool  `yaml:"scored"`
}

// Snapshot is everything assembly needs for one run.
type Snapshot struct {
	RunTime      string        `yaml:"run_time"`
	Observations []Observation `yaml:"observations"`
	Offers       []model.Offer `yaml:"offers"`
}

// LoadSnapshot reads a YAML or JSON snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", filepath.Base(path), err)
	}
	return &snap, nil
}

// Assembler builds pricing contexts from snapshots.
type Assembler struct {
	Settings       *Settings
	LookbackDays   int
	NewProductDays int
	Logger         zerolog.Logger

	// PreviousSellPower fills last_day_sell_power_week when an observation
	// does not carry it.
	PreviousSellPower map[model.Key]float64
}

// parseTime accepts a date or an RFC 3339 timestamp. Empty is the zero time.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func num(p *float64) float64 {
	if p == nil {
		return model.Undefined
	}
	return *p
}

// Build assembles one context per observation. counters carries the
// last-changed counters from the previous run; unknown keys start at 0.
func (a *Assembler) Build(snap *Snapshot, counters map[model.Key]int) ([]model.PricingContext, error) {
	settings := a.Settings
	if settings == nil {
		settings = &Settings{}
	}
	runTime := time.Now()
	if snap.RunTime != "" {
		t, err := parseTime(snap.RunTime)
		if err != nil {
			return nil, fmt.Errorf("run_time: %w", err)
		}
		runTime = t
	}

	basePrices := make(map[model.Key]float64, len(snap.Observations))
	for _, o := range snap.Observations {
		basePrices[model.Key{Style: o.Style, CountryCode: o.Country}] = num(o.BasePrice)
	}
	competitors := SummarizeCompetitors(snap.Offers, basePrices, DefaultWindow)

	groups := make([]groupMatch, len(snap.Observations))
	pool := demandPool{}
	for i, o := range snap.Observations {
		if o.Style == "" || o.Country == "" {
			return nil, fmt.Errorf("observation %d: style and country_code are required", i)
		}
		key, logic := settings.ResolveGroup(o.Style, o.ItemCategory, o.Group0, o.Group1, o.Group2)
		groups[i] = groupMatch{key: key, logic: logic, pooled: key != o.Style}
		if groups[i].pooled {
			pool.add(model.Key{Style: key, CountryCode: o.Country}, num(o.ImpressionsRatio), num(o.CTRRatio))
		}
	}

	contexts := make([]model.PricingContext, 0, len(snap.Observations))
	for i, o := range snap.Observations {
		added, err := parseTime(o.AddedAt)
		if err != nil {
			return nil, fmt.Errorf("observation %d (%s): added_at: %w", i, o.Style, err)
		}
		demand := TotalDemand(num(o.ImpressionsRatio), num(o.CTRRatio))
		if groups[i].pooled {
			demand = pool.total(model.Key{Style: groups[i].key, CountryCode: o.Country})
		}
		contexts = append(contexts, a.build(settings, runTime, added, o, groups[i], demand, competitors, counters))
	}

	a.Logger.Info().
		Int("observations", len(snap.Observations)).
		Int("offers", len(snap.Offers)).
		Int("competitor_groups", len(competitors)).
		Int("demand_groups", len(pool)).
		Msg("assembled pricing contexts")
	return contexts, nil
}

// groupMatch is the pricing group an observation resolved to. pooled is set
// when a configured group matched, so demand is shared across the group.
type groupMatch struct {
	key    string
	logic  model.GroupLogic
	pooled bool
}

type ratioSums struct {
	impressions, ctr   float64
	impressionsN, ctrN int
}

// demandPool accumulates demand ratios per (demand key, country).
type demandPool map[model.Key]*ratioSums

func (p demandPool) add(key model.Key, impressions, ctr float64) {
	sums, ok := p[key]
	if !ok {
		sums = &ratioSums{}
		p[key] = sums
	}
	if model.Defined(impressions) {
		sums.impressions += impressions
		sums.impressionsN++
	}
	if model.Defined(ctr) {
		sums.ctr += ctr
		sums.ctrN++
	}
}

// total averages each ratio over the group, then combines them like
// TotalDemand does for a single style.
func (p demandPool) total(key model.Key) float64 {
	sums, ok := p[key]
	if !ok {
		return model.Undefined
	}
	impressions, ctr := model.Undefined, model.Undefined
	if sums.impressionsN > 0 {
		impressions = sums.impressions / float64(sums.impressionsN)
	}
	if sums.ctrN > 0 {
		ctr = sums.ctr / float64(sums.ctrN)
	}
	return TotalDemand(impressions, ctr)
}

func (a *Assembler) build(s *Settings, runTime, added time.Time, o Observation, group groupMatch, demand float64, competitors map[model.Key]model.CompetitorSignals, counters map[model.Key]int) model.PricingContext {
	country := o.Country
	key := model.Key{Style: o.Style, CountryCode: country}

	_, destroyListed := s.DestroyDiscount(o.Style, country)
	category := ResolveCategory(o.Category, destroyListed, num(o.Inventory))

	seasonWeeks := model.Undefined
	if levels, ok := s.Levels(o.Brand, country); ok {
		seasonWeeks = levels.SeasonWeeks
	}
	_, powerDay := SellThroughAndPower(num(o.SoldToday), num(o.SoldSeason), num(o.Inventory), seasonWeeks)
	_, powerWeek := SellThroughAndPower(num(o.Sold7Days), num(o.SoldSeason), num(o.Inventory), seasonWeeks)

	minDiscount, maxDiscount := s.DiscountBounds(DiscountInput{
		Style:         o.Style,
		Brand:         o.Brand,
		Country:       country,
		Category:      category,
		Override:      num(o.DiscountOverride),
		SellPowerWeek: powerWeek,
		RatePct:       s.SellThroughRate(country, o.ItemCategory),
	})

	margin, hasMargin := s.Margin(country)
	target := model.Undefined
	if hasMargin {
		target = margin.TargetMargin
	}

	daysAgo := counters[key]
	lastPower := num(o.LastDaySellPowerWeek)
	if prev, ok := a.PreviousSellPower[key]; ok && !model.Defined(lastPower) {
		lastPower = prev
	}
	scored := o.Scored == nil || *o.Scored

	a.Logger.Debug().
		Str("style", o.Style).
		Str("country", country).
		Str("category", string(category)).
		Str("demand_key", group.key).
		Float64("total_demand", demand).
		Msg("assembled context")

	return model.PricingContext{
		Style:       o.Style,
		Brand:       o.Brand,
		ProductName: o.ProductName,
		CountryCode: country,
		Category:    category,
		GroupLogic:  group.logic,

		Price:       num(o.Price),
		BasePrice:   num(o.BasePrice),
		MinDiscount: minDiscount,
		MaxDiscount: maxDiscount,

		StyleCompetitors:   competitors[key],
		ProductCompetitors: competitors[model.Key{Style: o.ProductName, CountryCode: country}],

		SellPowerWeek:        powerWeek,
		SellPowerDay:         powerDay,
		LastDaySellPowerWeek: lastPower,
		TotalDemand:          demand,
		SoldItems7Days:       num(o.Sold7Days),

		DiffToExpectedMargin:       DiffToExpectedMargin(num(o.Price), num(o.PurchasePrice), target),
		ExpectedMarginUseInCountry: hasMargin && margin.UseInCountry,

		ChangedLastDays:    ChangedLastDays(s.Lookback(o.Style, a.LookbackDays), daysAgo),
		LastChangedDaysAgo: daysAgo,
		IsNewProduct:       IsNewProduct(added, runTime, s.Wait(o.Style, a.NewProductDays)),
		MasterSwitch:       scored,
	}
}
