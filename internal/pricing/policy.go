package pricing

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/guarzo/autopricing/internal/model"
)

// ErrInvalidPolicy is returned when a policy fails validation.
var ErrInvalidPolicy = errors.New("invalid pricing policy")

// IncreasePolicy holds the multipliers used by the increase rule. Every
// increase ends at least MinimumStep above the current price.
type IncreasePolicy struct {
	BaseBelowMinFactor float64 `yaml:"base_below_min_factor"`
	UndercutMinFactor  float64 `yaml:"undercut_min_factor"`
	AboveMinStep       float64 `yaml:"above_min_step"`
	AtMinStep          float64 `yaml:"at_min_step"`
	ProductStep        float64 `yaml:"product_step"`
	UndercutProductMax float64 `yaml:"undercut_product_max"`
	AloneStep          float64 `yaml:"alone_step"`
	MinimumStep        float64 `yaml:"minimum_step"`
}

// DecreasePolicy holds the multipliers used by the decrease rule.
type DecreasePolicy struct {
	FloorAboveMaxFactor float64 `yaml:"floor_above_max_factor"`
	UndercutFactor      float64 `yaml:"undercut_factor"`
	ProductStep         float64 `yaml:"product_step"`
	AloneOnMarketSale   float64 `yaml:"alone_on_market_sale"`
}

// SellPowerPolicy configures the sell power tree.
type SellPowerPolicy struct {
	KeepDayLow        float64 `yaml:"keep_day_low"`
	KeepDayHigh       float64 `yaml:"keep_day_high"`
	WeekDecreaseBelow float64 `yaml:"week_decrease_below"`
	AllowIncrease     bool    `yaml:"allow_increase"`
}

// MarginPolicy configures the margin tree, in percentage points.
type MarginPolicy struct {
	DecreaseAbove float64 `yaml:"decrease_above"`
	IncreaseBelow float64 `yaml:"increase_below"`
}

// DemandPolicy configures a total demand threshold tree.
type DemandPolicy struct {
	DecreaseBelow  float64 `yaml:"decrease_below"`
	SoftBelow      float64 `yaml:"soft_below"`
	SoldItemsBelow float64 `yaml:"sold_items_below"`
	IncreaseAbove  float64 `yaml:"increase_above"`
}

// SalePolicy configures the sale tree.
type SalePolicy struct {
	Demand            DemandPolicy `yaml:"demand"`
	AllowIncrease     bool         `yaml:"allow_increase"`
	AloneOnMarketSale float64      `yaml:"alone_on_market_sale"`
}

// DestroyPolicy configures the destroy competitors tree.
type DestroyPolicy struct {
	UndercutFactor float64 `yaml:"undercut_factor"`
}

// SnapPolicy normalizes tiny discounts. A price whose discount off base lies
// strictly between MinDiscount and SnapDiscount becomes exactly SnapDiscount off.
type SnapPolicy struct {
	MinDiscount  float64 `yaml:"min_discount"`
	SnapDiscount float64 `yaml:"snap_discount"`
}

// Policy collects every business constant used by the engine.
type Policy struct {
	Increase           IncreasePolicy  `yaml:"increase"`
	Decrease           DecreasePolicy  `yaml:"decrease"`
	SellPower          SellPowerPolicy `yaml:"sell_power"`
	Margin             MarginPolicy    `yaml:"margin"`
	TotalDemand        DemandPolicy    `yaml:"total_demand"`
	Sale               SalePolicy      `yaml:"sale"`
	DestroyCompetitors DestroyPolicy   `yaml:"destroy_competitors"`
	Snap               SnapPolicy      `yaml:"snap"`

	// Routes overrides the category router, category -> strategy name.
	Routes map[model.Category]string `yaml:"routes,omitempty"`
}

// DefaultPolicy returns the production constants.
func DefaultPolicy() Policy {
	return Policy{
		Increase: IncreasePolicy{
			BaseBelowMinFactor: 0.95,
			UndercutMinFactor:  0.98,
			AboveMinStep:       1.01,
			AtMinStep:          1.05,
			ProductStep:        1.01,
			UndercutProductMax: 0.99,
			AloneStep:          1.02,
			MinimumStep:        1.02,
		},
		Decrease: DecreasePolicy{
			FloorAboveMaxFactor: 0.9,
			UndercutFactor:      0.99,
			ProductStep:         0.98,
			AloneOnMarketSale:   0.98,
		},
		SellPower: SellPowerPolicy{
			KeepDayLow:        13,
			KeepDayHigh:       15,
			WeekDecreaseBelow: 20,
			AllowIncrease:     true,
		},
		Margin: MarginPolicy{
			DecreaseAbove: 2,
			IncreaseBelow: -2,
		},
		TotalDemand: DemandPolicy{
			DecreaseBelow:  0.75,
			SoftBelow:      1,
			SoldItemsBelow: 8,
			IncreaseAbove:  1,
		},
		Sale: SalePolicy{
			Demand: DemandPolicy{
				DecreaseBelow:  0.8,
				SoftBelow:      1,
				SoldItemsBelow: 8,
				IncreaseAbove:  1,
			},
			AllowIncrease:     true,
			AloneOnMarketSale: 0.95,
		},
		DestroyCompetitors: DestroyPolicy{
			UndercutFactor: 0.98,
		},
		Snap: SnapPolicy{
			MinDiscount:  0.001,
			SnapDiscount: 0.05,
		},
	}
}

// LoadPolicy overlays the YAML file at path on DefaultPolicy. An empty path
// returns the defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// YAML renders the policy as a YAML document.
func (p Policy) YAML() ([]byte, error) {
	return yaml.Marshal(p)
}

// Validate rejects policies that would break the engine's guarantees.
func (p Policy) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	inc := p.Increase
	check(inc.MinimumStep >= 1, "increase.minimum_step must be >= 1, got %v", inc.MinimumStep)
	for name, v := range map[string]float64{
		"base_below_min_factor": inc.BaseBelowMinFactor,
		"undercut_min_factor":   inc.UndercutMinFactor,
		"above_min_step":        inc.AboveMinStep,
		"at_min_step":           inc.AtMinStep,
		"product_step":          inc.ProductStep,
		"undercut_product_max":  inc.UndercutProductMax,
		"alone_step":            inc.AloneStep,
	} {
		check(v > 0, "increase.%s must be positive, got %v", name, v)
	}

	dec := p.Decrease
	for name, v := range map[string]float64{
		"floor_above_max_factor": dec.FloorAboveMaxFactor,
		"undercut_factor":        dec.UndercutFactor,
		"product_step":           dec.ProductStep,
		"alone_on_market_sale":   dec.AloneOnMarketSale,
	} {
		check(v > 0 && v <= 1, "decrease.%s must be in (0, 1], got %v", name, v)
	}
	check(p.Sale.AloneOnMarketSale > 0 && p.Sale.AloneOnMarketSale <= 1,
		"sale.alone_on_market_sale must be in (0, 1], got %v", p.Sale.AloneOnMarketSale)
	check(p.DestroyCompetitors.UndercutFactor > 0 && p.DestroyCompetitors.UndercutFactor <= 1,
		"destroy_competitors.undercut_factor must be in (0, 1], got %v", p.DestroyCompetitors.UndercutFactor)

	check(p.SellPower.KeepDayLow <= p.SellPower.KeepDayHigh,
		"sell_power.keep_day_low %v above keep_day_high %v", p.SellPower.KeepDayLow, p.SellPower.KeepDayHigh)
	check(p.Margin.IncreaseBelow <= p.Margin.DecreaseAbove,
		"margin.increase_below %v above decrease_above %v", p.Margin.IncreaseBelow, p.Margin.DecreaseAbove)
	check(p.Snap.MinDiscount >= 0 && p.Snap.MinDiscount < p.Snap.SnapDiscount && p.Snap.SnapDiscount < 1,
		"snap needs 0 <= min_discount < snap_discount < 1, got %v and %v", p.Snap.MinDiscount, p.Snap.SnapDiscount)

	for category, name := range p.Routes {
		check(isStrategyName(name), "routes.%s: unknown strategy %q", category, name)
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidPolicy, problems)
}
