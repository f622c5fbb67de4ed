package pricing

import (
	"slices"

	"github.com/guarzo/autopricing/internal/model"
)

// IncreaseRule raises a price using in-stock competitor prices. The result is
// never below price·MinimumStep.
type IncreaseRule struct {
	Policy IncreasePolicy
}

// Apply returns the increased price and the nodes visited.
func (r IncreaseRule) Apply(c *model.PricingContext) (float64, model.Trace) {
	p := r.Policy
	price := c.Price
	base := c.BasePrice

	var path model.Trace
	var candidate float64

	if styles := c.StyleCompetitors.InStockPrices(); len(styles) > 0 {
		path = append(path, NodeIncStyle)
		m := slices.Min(styles)

		switch {
		case base < m:
			path = append(path, NodeIncStyleBaseBelow)
			candidate = min(max(base*p.BaseBelowMinFactor, price), base)
		case price < m:
			path = append(path, NodeIncStyleBelowMin)
			candidate = min(max(m*p.UndercutMinFactor, price), base)
		case price > m:
			path = append(path, NodeIncStyleAboveMin)
			candidate = min(price*p.AboveMinStep, base)
		default:
			path = append(path, NodeIncStyleAtMin)
			candidate = min(base, price*p.AtMinStep)
		}
	} else if products := c.ProductCompetitors.InStockPrices(); len(products) > 0 {
		path = append(path, NodeIncProduct)
		m := slices.Max(products)

		switch {
		case price*p.ProductStep < m:
			path = append(path, NodeIncProductStep)
			candidate = min(price*p.ProductStep, base)
		case price < m:
			path = append(path, NodeIncProductBelowMax)
			candidate = min(max(m*p.UndercutProductMax, price), base)
		default:
			path = append(path, NodeIncProductAboveMax)
			candidate = min(price*p.ProductStep, base)
		}
	} else {
		path = append(path, NodeIncAlone)
		candidate = min(price*p.AloneStep, base)
	}

	return max(candidate, price*p.MinimumStep), path
}

// DecreaseRule lowers a price towards the cheapest competitors without going
// below the context floor. Style competitors are considered regardless of
// their stock flag; product competitors only when in stock.
type DecreaseRule struct {
	Policy DecreasePolicy
}

// Apply returns the decreased price and the nodes visited. aloneOnMarketSale
// is the step used when no competitor is known.
func (r DecreaseRule) Apply(c *model.PricingContext, aloneOnMarketSale float64) (float64, model.Trace) {
	p := r.Policy
	price := c.Price
	floor := c.Floor()

	var path model.Trace

	if styles := c.StyleCompetitors.Prices; len(styles) > 0 {
		path = append(path, NodeDecStyle)
		lo, hi := slices.Min(styles), slices.Max(styles)

		switch {
		case price < lo:
			// already the cheapest, hold
			path = append(path, NodeDecStyleCheapest)
			return max(floor, price), path
		case floor > hi:
			path = append(path, NodeDecStyleFloorAboveMax)
			return min(price, max(price*p.FloorAboveMaxFactor, floor)), path
		default:
			path = append(path, NodeDecStyleUndercut)
			best := price
			for _, competitor := range styles {
				if undercut := competitor * p.UndercutFactor; undercut >= floor {
					best = min(best, undercut)
				}
			}
			return best, path
		}
	}

	if len(c.ProductCompetitors.InStockPrices()) > 0 {
		path = append(path, NodeDecProduct)
		return min(price, max(price*p.ProductStep, floor)), path
	}

	path = append(path, NodeDecAlone)
	return min(price, max(price*aloneOnMarketSale, floor)), path
}
