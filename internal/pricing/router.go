package pricing

import (
	"github.com/guarzo/autopricing/internal/model"
)

// marginCategories are priced on margin when the country uses the expected
// margin signal, on total demand otherwise.
var marginCategories = []model.Category{
	model.CategoryIMP,
	model.CategoryTeamSale,
	model.CategoryCarryovers,
	model.CategoryDropshipment,
	model.CategoryTeamsportOverstock,
	model.CategoryTotalClearance,
	model.CategoryIndoorShoes,
}

var saleCategories = []model.Category{
	model.CategoryHardSale,
	model.CategorySoftSale,
	model.CategoryEntrySale,
}

// Router selects a strategy by category.
type Router struct {
	routes   map[model.Category]Strategy
	fallback Strategy
}

// NewRouter builds the default category table from the registered strategies
// and applies overrides (category -> strategy name). Names must exist in
// strategies.
func NewRouter(strategies map[string]Strategy, overrides map[model.Category]string) *Router {
	r := &Router{
		routes:   make(map[model.Category]Strategy),
		fallback: strategies[StrategySellPower],
	}

	r.routes[model.CategoryDestroyCompetitors] = strategies[StrategyDestroyCompetitors]
	for _, c := range marginCategories {
		r.routes[c] = strategies[StrategyMarginOrDemand]
	}
	for _, c := range saleCategories {
		r.routes[c] = strategies[StrategySellPower]
	}

	for category, name := range overrides {
		if s, ok := strategies[name]; ok {
			r.routes[category] = s
		}
	}
	return r
}

// Route returns the strategy for category. Unknown categories get the
// sell power strategy.
func (r *Router) Route(category model.Category) Strategy {
	if s, ok := r.routes[category]; ok {
		return s
	}
	return r.fallback
}

// Name implements Strategy.
func (r *Router) Name() string { return "router" }

// Decide implements Strategy by delegating to the routed strategy.
func (r *Router) Decide(c *model.PricingContext) model.Decision {
	return r.Route(c.Category).Decide(c)
}
