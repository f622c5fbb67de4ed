// Package pricing scores pricing contexts. It holds the increase and
// decrease rules, the strategy trees built on them, the category router and
// the group logic dispatcher. Everything here is pure and safe for
// concurrent use.
package pricing

import (
	"github.com/guarzo/autopricing/internal/model"
)

// Engine is the top-level entry point: it dispatches on group logic first
// and on category second.
type Engine struct {
	policy     Policy
	strategies map[string]Strategy
	groups     map[model.GroupLogic]Strategy
	router     *Router
}

// NewEngine validates the policy and wires every strategy from it.
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	strategies := buildStrategies(policy)
	router := NewRouter(strategies, policy.Routes)

	return &Engine{
		policy:     policy,
		strategies: strategies,
		router:     router,
		groups: map[model.GroupLogic]Strategy{
			model.GroupAuto:     strategies[StrategyTotalDemand],
			model.GroupIncrease: strategies[StrategyIncrease],
			model.GroupDecrease: strategies[StrategyDecrease],
			model.GroupKeep:     strategies[StrategyKeep],
		},
	}, nil
}

func buildStrategies(p Policy) map[string]Strategy {
	inc := IncreaseRule{Policy: p.Increase}
	dec := DecreaseRule{Policy: p.Decrease}

	margin := MarginTree{Policy: p.Margin, Snap: p.Snap, Increase: inc, Decrease: dec}
	demand := TotalDemandTree{Policy: p.TotalDemand, Snap: p.Snap, Increase: inc, Decrease: dec}

	list := []Strategy{
		SellPowerTree{Policy: p.SellPower, AllowIncrease: p.SellPower.AllowIncrease, Snap: p.Snap, Increase: inc, Decrease: dec},
		margin,
		demand,
		SaleTree{
			Policy:            p.Sale.Demand,
			AllowIncrease:     p.Sale.AllowIncrease,
			AloneOnMarketSale: p.Sale.AloneOnMarketSale,
			Snap:              p.Snap,
			Increase:          inc,
			Decrease:          dec,
		},
		KeepTree{},
		IncreaseTree{Snap: p.Snap, Increase: inc},
		DecreaseTree{Snap: p.Snap, Decrease: dec},
		DestroyCompetitorsTree{Policy: p.DestroyCompetitors, Snap: p.Snap},
		MarginOrDemand{Margin: margin, Demand: demand},
	}

	strategies := make(map[string]Strategy, len(list))
	for _, s := range list {
		strategies[s.Name()] = s
	}
	return strategies
}

// Select returns the strategy that will score c.
func (e *Engine) Select(c *model.PricingContext) Strategy {
	if s, ok := e.groups[c.GroupLogic]; ok {
		return s
	}
	return e.router.Route(c.Category)
}

// Decide scores one context.
func (e *Engine) Decide(c *model.PricingContext) model.Decision {
	return e.Select(c).Decide(c)
}

// Strategy returns a registered strategy by name.
func (e *Engine) Strategy(name string) (Strategy, bool) {
	s, ok := e.strategies[name]
	return s, ok
}

// Router exposes the category router.
func (e *Engine) Router() *Router {
	return e.router
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() Policy {
	return e.policy
}
