package assembly

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/guarzo/autopricing/internal/model"
)

// DiscountRule bounds discounts for a brand, optionally narrowed to one
// country. Country-specific rules win over brand-wide ones.
type DiscountRule struct {
	Brand       string  `yaml:"brand"`
	Country     string  `yaml:"country,omitempty"`
	MinDiscount float64 `yaml:"min_discount"`
	MaxDiscount float64 `yaml:"max_discount"`
}

// DiscountLevels is the sell-through discount ladder of a brand. Level 1 is
// the smallest discount and also the minimum discount.
type DiscountLevels struct {
	Brand       string     `yaml:"brand"`
	Country     string     `yaml:"country,omitempty"`
	Levels      [5]float64 `yaml:"levels"`
	SeasonWeeks float64    `yaml:"season_weeks"`
}

// Bounds picks a ladder step from the weekly sell power relative to the
// target rate. Level 0 means the sell power was undefined.
func (l DiscountLevels) Bounds(sellPowerWeek, ratePct float64) (minDiscount, maxDiscount float64, level int) {
	minDiscount = l.Levels[0]
	switch {
	case !model.Defined(sellPowerWeek):
		return minDiscount, l.Levels[4], 0
	case sellPowerWeek > ratePct:
		level = 1
	case sellPowerWeek > ratePct*0.65:
		level = 2
	case sellPowerWeek > ratePct*0.4:
		level = 3
	case sellPowerWeek > ratePct*0.01:
		level = 4
	default:
		level = 5
	}
	return minDiscount, l.Levels[level-1], level
}

// StyleDiscount caps the discount of one style in one country.
type StyleDiscount struct {
	Style       string  `yaml:"style"`
	Country     string  `yaml:"country"`
	MaxDiscount float64 `yaml:"max_discount"`
}

// MarginTarget is the expected margin of a country.
type MarginTarget struct {
	TargetMargin float64 `yaml:"target_margin"`
	UseInCountry bool    `yaml:"use_in_country"`
}

// SellThroughRate is the weekly sell power target for an item category in a
// country.
type SellThroughRate struct {
	Country      string  `yaml:"country"`
	ItemCategory string  `yaml:"item_category"`
	RatePct      float64 `yaml:"rate_pct"`
}

// PricingGroup assigns a group logic and a shared demand key to styles
// matching its filters. "All" matches anything at a lower score.
type PricingGroup struct {
	Name     string           `yaml:"name"`
	Category string           `yaml:"item_category"`
	Group0   string           `yaml:"group0"`
	Group1   string           `yaml:"group1"`
	Group2   string           `yaml:"group2"`
	Logic    model.GroupLogic `yaml:"logic"`
}

// Settings are the operator-maintained tables feeding assembly.
type Settings struct {
	Discounts          map[model.Category][]DiscountRule `yaml:"discounts"`
	DiscountLevels     []DiscountLevels                  `yaml:"discount_levels"`
	DestroyCompetitors []StyleDiscount                   `yaml:"destroy_competitors"`
	Margins            map[string]MarginTarget           `yaml:"margins"`
	SellThroughRates   []SellThroughRate                 `yaml:"sell_through_rates"`
	PricingGroups      []PricingGroup                    `yaml:"pricing_groups"`
	LookbackDays       map[string]int                    `yaml:"lookback_days"`
	WaitAfterRelease   map[string]int                    `yaml:"wait_after_release"`
}

// ErrInvalidSettings is returned when an operator table breaks the discount
// bounds the engine relies on.
var ErrInvalidSettings = errors.New("invalid settings")

// LoadSettings reads and validates a settings YAML file. An empty path gives
// empty settings.
func LoadSettings(path string) (*Settings, error) {
	s := &Settings{}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

func isFraction(x float64) bool {
	return x >= 0 && x <= 1
}

// Validate checks every table: discounts are fractions with min <= max,
// ladders never shrink, rates are positive and every group is named.
func (s *Settings) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	for category, rules := range s.Discounts {
		for i, r := range rules {
			check(isFraction(r.MinDiscount) && isFraction(r.MaxDiscount) && r.MinDiscount <= r.MaxDiscount,
				"discounts.%s[%d] (%s): need 0 <= min_discount <= max_discount <= 1, got %v and %v",
				category, i, r.Brand, r.MinDiscount, r.MaxDiscount)
		}
	}

	for i, l := range s.DiscountLevels {
		for step, v := range l.Levels {
			check(isFraction(v), "discount_levels[%d] (%s): level %d must be in [0, 1], got %v", i, l.Brand, step+1, v)
			if step > 0 {
				check(v >= l.Levels[step-1], "discount_levels[%d] (%s): level %d is below level %d", i, l.Brand, step+1, step)
			}
		}
		check(l.SeasonWeeks >= 0, "discount_levels[%d] (%s): season_weeks must not be negative", i, l.Brand)
	}

	for i, d := range s.DestroyCompetitors {
		check(isFraction(d.MaxDiscount), "destroy_competitors[%d] (%s/%s): max_discount must be in [0, 1], got %v",
			i, d.Style, d.Country, d.MaxDiscount)
	}

	for i, r := range s.SellThroughRates {
		check(r.RatePct > 0, "sell_through_rates[%d] (%s/%s): rate_pct must be positive, got %v",
			i, r.Country, r.ItemCategory, r.RatePct)
	}

	for i, g := range s.PricingGroups {
		check(g.Name != "", "pricing_groups[%d]: name is required", i)
	}

	for style, days := range s.LookbackDays {
		check(days >= 0, "lookback_days.%s must not be negative, got %d", style, days)
	}
	for style, days := range s.WaitAfterRelease {
		check(days >= 0, "wait_after_release.%s must not be negative, got %d", style, days)
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %v", ErrInvalidSettings, problems)
}

func lookupRule(rules []DiscountRule, brand, country string) (DiscountRule, bool) {
	var fallback *DiscountRule
	for i, r := range rules {
		if r.Brand != brand {
			continue
		}
		if r.Country == country {
			return r, true
		}
		if r.Country == "" && fallback == nil {
			fallback = &rules[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return DiscountRule{}, false
}

// Levels returns the discount ladder for brand in country.
func (s *Settings) Levels(brand, country string) (DiscountLevels, bool) {
	var fallback *DiscountLevels
	for i, l := range s.DiscountLevels {
		if l.Brand != brand {
			continue
		}
		if l.Country == country {
			return l, true
		}
		if l.Country == "" && fallback == nil {
			fallback = &s.DiscountLevels[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return DiscountLevels{}, false
}

// DestroyDiscount returns the maximum discount of a style listed for
// destruction in country.
func (s *Settings) DestroyDiscount(style, country string) (float64, bool) {
	for _, d := range s.DestroyCompetitors {
		if d.Style == style && d.Country == country {
			return d.MaxDiscount, true
		}
	}
	return 0, false
}

// SellThroughRate returns the weekly sell power target, 100 when unset.
func (s *Settings) SellThroughRate(country, itemCategory string) float64 {
	if itemCategory == "" {
		itemCategory = "unknown"
	}
	for _, r := range s.SellThroughRates {
		if r.Country == country && r.ItemCategory == itemCategory {
			return r.RatePct
		}
	}
	return 100
}

// Margin returns the margin target of country.
func (s *Settings) Margin(country string) (MarginTarget, bool) {
	m, ok := s.Margins[country]
	return m, ok
}

// Lookback returns the anti-thrash lookback for style.
func (s *Settings) Lookback(style string, fallback int) int {
	if d, ok := s.LookbackDays[style]; ok {
		return d
	}
	return fallback
}

// Wait returns how many days a style counts as new.
func (s *Settings) Wait(style string, fallback int) int {
	if d, ok := s.WaitAfterRelease[style]; ok {
		return d
	}
	return fallback
}

// isSTFamily reports whether category is priced on the sell-through ladder.
func isSTFamily(c model.Category) bool {
	switch c {
	case model.CategoryST, model.CategoryHardSale, model.CategorySoftSale, model.CategoryEntrySale:
		return true
	}
	return false
}

// DiscountInput is what DiscountBounds needs to know about one style.
type DiscountInput struct {
	Style         string
	Brand         string
	Country       string
	Category      model.Category
	Override      float64
	SellPowerWeek float64
	RatePct       float64
}

// DiscountBounds resolves (min, max) discount for a style. An override wins
// as the maximum with no minimum. Unknown categories get (0, 0).
func (s *Settings) DiscountBounds(in DiscountInput) (float64, float64) {
	if model.Defined(in.Override) {
		return 0, in.Override
	}

	switch {
	case isSTFamily(in.Category):
		levels, ok := s.Levels(in.Brand, in.Country)
		if !ok {
			return 0, 0
		}
		minDiscount, maxDiscount, _ := levels.Bounds(in.SellPowerWeek, in.RatePct)
		return minDiscount, maxDiscount
	case in.Category == model.CategoryDestroyCompetitors:
		maxDiscount, _ := s.DestroyDiscount(in.Style, in.Country)
		return 0, maxDiscount
	}

	r, ok := lookupRule(s.Discounts[in.Category], in.Brand, in.Country)
	if !ok {
		return 0, 0
	}
	if in.Category == model.CategoryIMP {
		return 0, r.MaxDiscount
	}
	return r.MinDiscount, r.MaxDiscount
}

// group filter weights, most specific first
var groupScores = map[string]float64{
	"group2":   8,
	"group1":   4,
	"group0":   2,
	"category": 1,
	"All":      0.5,
}

// ResolveGroup finds the most specific pricing group matching the item
// classification. Every filter column must match exactly or be "All". The
// style itself is the demand key, with OFF logic, when nothing matches.
func (s *Settings) ResolveGroup(style, itemCategory, group0, group1, group2 string) (string, model.GroupLogic) {
	type match struct {
		group PricingGroup
		score float64
	}

	var matches []match
	for _, g := range s.PricingGroups {
		score, ok := 0.0, true
		for _, col := range []struct {
			name   string
			filter string
			value  string
		}{
			{"category", g.Category, itemCategory},
			{"group0", g.Group0, group0},
			{"group1", g.Group1, group1},
			{"group2", g.Group2, group2},
		} {
			switch col.filter {
			case col.value:
				score += groupScores[col.name]
			case "All":
				score += groupScores["All"]
			default:
				ok = false
			}
		}
		if ok {
			matches = append(matches, match{g, score})
		}
	}

	if len(matches) == 0 {
		return style, model.GroupOff
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	return matches[0].group.Name, matches[0].group.Logic
}
