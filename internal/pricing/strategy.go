package pricing

import (
	"github.com/guarzo/autopricing/internal/model"
)

// Strategy names, as used in policy routes and decision records.
const (
	StrategySellPower          = "sell_power"
	StrategyMargin             = "margin"
	StrategyTotalDemand        = "total_demand"
	StrategySale               = "sale"
	StrategyKeep               = "keep"
	StrategyIncrease           = "increase"
	StrategyDecrease           = "decrease"
	StrategyDestroyCompetitors = "destroy_competitors"
	StrategyMarginOrDemand     = "margin_or_total_demand"
)

func isStrategyName(name string) bool {
	switch name {
	case StrategySellPower, StrategyMargin, StrategyTotalDemand, StrategySale, StrategyKeep,
		StrategyIncrease, StrategyDecrease, StrategyDestroyCompetitors, StrategyMarginOrDemand:
		return true
	}
	return false
}

// Strategy decides a price for one context. Implementations must not modify
// the context.
type Strategy interface {
	Name() string
	Decide(c *model.PricingContext) model.Decision
}

// outcome is what a tree branch hands back before post-processing.
type outcome struct {
	change model.Change
	price  float64
	path   model.Trace
}

// guards controls which shared guards a tree runs.
type guards struct {
	antiThrash bool
	required   func(c *model.PricingContext) bool
}

// changedRecently is the anti-thrash condition: the price moved within the
// lookback and no competitor has moved since.
func changedRecently(c *model.PricingContext) bool {
	if !c.ChangedLastDays {
		return false
	}
	for _, d := range c.StyleCompetitors.PriceChangeDays {
		if d != 0 {
			return false
		}
	}
	return true
}

// missingData reports whether the context lacks what every tree needs.
func missingData(c *model.PricingContext) bool {
	return c.IsNewProduct ||
		!model.Defined(c.Price) ||
		!model.Defined(c.BasePrice) ||
		!model.Defined(c.MinDiscount) ||
		!model.Defined(c.MaxDiscount)
}

// decide runs the guards, then branch, then snap and clamp.
func decide(name string, snap SnapPolicy, g guards, c *model.PricingContext, branch func() outcome) model.Decision {
	if g.antiThrash && changedRecently(c) {
		return model.Decision{
			Strategy: name,
			Change:   model.ChangeChangedLastDays,
			Price:    c.Price,
			Path:     model.Trace{NodeChangedLastDays},
		}
	}

	if missingData(c) || (g.required != nil && !g.required(c)) {
		return model.Decision{
			Strategy: name,
			Change:   model.ChangeNotEnoughData,
			Price:    c.Price,
			Path:     model.Trace{NodeNotEnoughData},
		}
	}

	out := branch()
	return model.Decision{
		Strategy: name,
		Change:   out.change,
		Price:    Clamp(c, Snap(snap, c.BasePrice, out.price)),
		Path:     out.path,
	}
}

// Snap moves a price whose discount off base is strictly inside
// (MinDiscount, SnapDiscount) to exactly SnapDiscount off base.
func Snap(p SnapPolicy, base, price float64) float64 {
	if price < base*(1-p.MinDiscount) && price > base*(1-p.SnapDiscount) {
		return base * (1 - p.SnapDiscount)
	}
	return price
}

// Clamp bounds a price into [floor, ceiling] of the context.
func Clamp(c *model.PricingContext, price float64) float64 {
	price = max(price, c.Floor())
	return min(price, c.Ceiling())
}

func allDefined(values ...float64) bool {
	for _, v := range values {
		if !model.Defined(v) {
			return false
		}
	}
	return true
}

// SellPowerTree scores on sell power velocity.
type SellPowerTree struct {
	Policy        SellPowerPolicy
	AllowIncrease bool
	Snap          SnapPolicy
	Increase      IncreaseRule
	Decrease      DecreaseRule
}

func (t SellPowerTree) Name() string { return StrategySellPower }

func (t SellPowerTree) Decide(c *model.PricingContext) model.Decision {
	g := guards{
		antiThrash: true,
		required: func(c *model.PricingContext) bool {
			return allDefined(c.SellPowerWeek, c.SellPowerDay, c.LastDaySellPowerWeek)
		},
	}

	return decide(t.Name(), t.Snap, g, c, func() outcome {
		p := t.Policy
		switch {
		case c.SellPowerDay >= p.KeepDayLow && c.SellPowerDay <= p.KeepDayHigh:
			return outcome{model.ChangeKeep, c.Price, model.Trace{NodeSellPowerKeepBand}}
		case c.SellPowerWeek <= c.LastDaySellPowerWeek || c.SellPowerWeek < p.WeekDecreaseBelow:
			price, path := t.Decrease.Apply(c, t.Decrease.Policy.AloneOnMarketSale)
			return outcome{model.ChangeDecrease, price, append(model.Trace{NodeSellPowerDecrease}, path...)}
		case c.SellPowerWeek > c.LastDaySellPowerWeek && t.AllowIncrease:
			price, path := t.Increase.Apply(c)
			return outcome{model.ChangeIncrease, price, append(model.Trace{NodeSellPowerIncrease}, path...)}
		default:
			return outcome{model.ChangeKeep, c.Price, model.Trace{NodeSellPowerHold}}
		}
	})
}

// MarginTree scores on the distance to the expected margin.
type MarginTree struct {
	Policy   MarginPolicy
	Snap     SnapPolicy
	Increase IncreaseRule
	Decrease DecreaseRule
}

func (t MarginTree) Name() string { return StrategyMargin }

func (t MarginTree) Decide(c *model.PricingContext) model.Decision {
	g := guards{
		antiThrash: true,
		required: func(c *model.PricingContext) bool {
			return model.Defined(c.DiffToExpectedMargin)
		},
	}

	return decide(t.Name(), t.Snap, g, c, func() outcome {
		switch {
		case c.DiffToExpectedMargin > t.Policy.DecreaseAbove:
			price, path := t.Decrease.Apply(c, t.Decrease.Policy.AloneOnMarketSale)
			return outcome{model.ChangeDecrease, price, append(model.Trace{NodeMarginDecrease}, path...)}
		case c.DiffToExpectedMargin < t.Policy.IncreaseBelow:
			price, path := t.Increase.Apply(c)
			return outcome{model.ChangeIncrease, price, append(model.Trace{NodeMarginIncrease}, path...)}
		default:
			return outcome{model.ChangeKeep, c.Price, model.Trace{NodeMarginHold}}
		}
	})
}

func demandRequired(c *model.PricingContext) bool {
	return allDefined(c.TotalDemand, c.SoldItems7Days)
}

func lowDemand(p DemandPolicy, c *model.PricingContext) bool {
	return c.TotalDemand < p.DecreaseBelow ||
		(c.TotalDemand < p.SoftBelow && c.SoldItems7Days < p.SoldItemsBelow)
}

// TotalDemandTree scores on the total demand index.
type TotalDemandTree struct {
	Policy   DemandPolicy
	Snap     SnapPolicy
	Increase IncreaseRule
	Decrease DecreaseRule
}

func (t TotalDemandTree) Name() string { return StrategyTotalDemand }

func (t TotalDemandTree) Decide(c *model.PricingContext) model.Decision {
	g := guards{antiThrash: true, required: demandRequired}

	return decide(t.Name(), t.Snap, g, c, func() outcome {
		switch {
		case lowDemand(t.Policy, c):
			price, path := t.Decrease.Apply(c, t.Decrease.Policy.AloneOnMarketSale)
			return outcome{model.ChangeDecrease, price, append(model.Trace{NodeDemandDecrease}, path...)}
		case c.TotalDemand > t.Policy.IncreaseAbove:
			price, path := t.Increase.Apply(c)
			return outcome{model.ChangeIncrease, price, append(model.Trace{NodeDemandIncrease}, path...)}
		default:
			return outcome{model.ChangeKeep, c.Price, model.Trace{NodeDemandHold}}
		}
	})
}

// SaleTree is the sale variant of TotalDemandTree: a higher decrease
// threshold, an optional increase, and its own alone-on-market step.
type SaleTree struct {
	Policy            DemandPolicy
	AllowIncrease     bool
	AloneOnMarketSale float64
	Snap              SnapPolicy
	Increase          IncreaseRule
	Decrease          DecreaseRule
}

func (t SaleTree) Name() string { return StrategySale }

func (t SaleTree) Decide(c *model.PricingContext) model.Decision {
	g := guards{antiThrash: true, required: demandRequired}

	return decide(t.Name(), t.Snap, g, c, func() outcome {
		switch {
		case lowDemand(t.Policy, c):
			price, path := t.Decrease.Apply(c, t.AloneOnMarketSale)
			return outcome{model.ChangeDecrease, price, append(model.Trace{NodeSaleDecrease}, path...)}
		case c.TotalDemand > t.Policy.IncreaseAbove && t.AllowIncrease:
			price, path := t.Increase.Apply(c)
			return outcome{model.ChangeIncrease, price, append(model.Trace{NodeSaleIncrease}, path...)}
		default:
			return outcome{model.ChangeKeep, c.Price, model.Trace{NodeSaleHold}}
		}
	})
}

// KeepTree always holds the current price. No guards, no bounds.
type KeepTree struct{}

func (KeepTree) Name() string { return StrategyKeep }

func (KeepTree) Decide(c *model.PricingContext) model.Decision {
	return model.Decision{
		Strategy: StrategyKeep,
		Change:   model.ChangeKeep,
		Price:    c.Price,
		Path:     model.Trace{NodeKeep},
	}
}

// IncreaseTree applies the increase rule once the guards pass.
type IncreaseTree struct {
	Snap     SnapPolicy
	Increase IncreaseRule
}

func (t IncreaseTree) Name() string { return StrategyIncrease }

func (t IncreaseTree) Decide(c *model.PricingContext) model.Decision {
	return decide(t.Name(), t.Snap, guards{antiThrash: true}, c, func() outcome {
		price, path := t.Increase.Apply(c)
		return outcome{model.ChangeIncrease, price, append(model.Trace{NodeGroupIncrease}, path...)}
	})
}

// DecreaseTree applies the decrease rule once the guards pass.
type DecreaseTree struct {
	Snap     SnapPolicy
	Decrease DecreaseRule
}

func (t DecreaseTree) Name() string { return StrategyDecrease }

func (t DecreaseTree) Decide(c *model.PricingContext) model.Decision {
	return decide(t.Name(), t.Snap, guards{antiThrash: true}, c, func() outcome {
		price, path := t.Decrease.Apply(c, t.Decrease.Policy.AloneOnMarketSale)
		return outcome{model.ChangeDecrease, price, append(model.Trace{NodeGroupDecrease}, path...)}
	})
}

// DestroyCompetitorsTree undercuts every style competitor it can afford to.
// Only the missing data guard applies.
type DestroyCompetitorsTree struct {
	Policy DestroyPolicy
	Snap   SnapPolicy
}

func (t DestroyCompetitorsTree) Name() string { return StrategyDestroyCompetitors }

func (t DestroyCompetitorsTree) Decide(c *model.PricingContext) model.Decision {
	return decide(t.Name(), t.Snap, guards{}, c, func() outcome {
		competitors := c.StyleCompetitors.Prices
		if len(competitors) == 0 {
			return outcome{model.ChangeKeep, c.Price, model.Trace{NodeDestroyAlone}}
		}

		floor := c.Floor()
		best, found := 0.0, false
		for _, competitor := range competitors {
			undercut := competitor * t.Policy.UndercutFactor
			if undercut < floor {
				continue
			}
			if !found || undercut < best {
				best, found = undercut, true
			}
		}
		if !found {
			return outcome{model.ChangeDecrease, floor, model.Trace{NodeDestroyFloor}}
		}
		return outcome{model.ChangeDecrease, best, model.Trace{NodeDestroyUndercut}}
	})
}

// MarginOrDemand picks the margin tree when the margin signal is usable in
// the country and falls back to the total demand tree otherwise.
type MarginOrDemand struct {
	Margin MarginTree
	Demand TotalDemandTree
}

func (s MarginOrDemand) Name() string { return StrategyMarginOrDemand }

func (s MarginOrDemand) Decide(c *model.PricingContext) model.Decision {
	if model.Defined(c.DiffToExpectedMargin) && c.ExpectedMarginUseInCountry {
		return s.Margin.Decide(c)
	}
	return s.Demand.Decide(c)
}
