// Package assembly turns raw observations into pricing contexts.
package assembly

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guarzo/autopricing/internal/model"
)

// Window is a half-open price range (Low, High] used to drop implausible
// competitor prices.
type Window struct {
	Low  float64
	High float64
}

// Contains reports whether p lies in (Low, High].
func (w Window) Contains(p float64) bool {
	return p > w.Low && p <= w.High
}

// DefaultWindow applies when the base price is unknown.
var DefaultWindow = Window{Low: 0, High: 1000}

// WindowFor returns (base·0.5, base·2], or fallback when base is undefined.
func WindowFor(base float64, fallback Window) Window {
	if !model.Defined(base) {
		return fallback
	}
	return Window{Low: base * 0.5, High: base * 2}
}

// SummarizeCompetitors groups important offers from other shops into
// aligned signals per (key, country). basePrices supplies the plausibility
// window per key; keys without a base price use fallback.
func SummarizeCompetitors(offers []model.Offer, basePrices map[model.Key]float64, fallback Window) map[model.Key]model.CompetitorSignals {
	out := make(map[model.Key]model.CompetitorSignals)
	for _, o := range offers {
		if o.OwnShop || !o.Important {
			continue
		}

		k := o.OfferKey()
		base, ok := basePrices[k]
		if !ok {
			base = model.Undefined
		}
		if !WindowFor(base, fallback).Contains(o.Price) {
			continue
		}

		s := out[k]
		s.Prices = append(s.Prices, o.Price)
		s.InStock = append(s.InStock, o.InStock)
		s.PriceChangeDays = append(s.PriceChangeDays, o.ChangeDay)
		out[k] = s
	}
	return out
}

// SellThroughAndPower returns the sell-through percentage of sold against
// the season's supply, and the sell power scaled by season length. A zero
// supply gives zero sell-through. Both are rounded to cents.
func SellThroughAndPower(sold, soldSeason, inventory, seasonWeeks float64) (float64, float64) {
	supply := soldSeason + inventory
	if !model.Defined(sold) || !model.Defined(supply) || !model.Defined(seasonWeeks) {
		return model.Undefined, model.Undefined
	}

	st := 0.0
	if supply != 0 {
		st = sold / supply * 100
	}
	return round2(st), round2(st * seasonWeeks)
}

func round2(x float64) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// TotalDemand is the mean of the defined demand ratios, Undefined if none
// is defined.
func TotalDemand(ratios ...float64) float64 {
	sum, n := 0.0, 0
	for _, r := range ratios {
		if model.Defined(r) {
			sum += r
			n++
		}
	}
	if n == 0 {
		return model.Undefined
	}
	return sum / float64(n)
}

// DiffToExpectedMargin returns the current margin in percent minus the
// target margin. Any undefined input, or a zero price, gives Undefined.
func DiffToExpectedMargin(price, purchase, target float64) float64 {
	if price == 0 {
		return model.Undefined
	}
	return (price-purchase)/price*100 - target
}

// ChangedLastDays reports whether the last price change is still inside the
// lookback.
func ChangedLastDays(lookbackDays, lastChangedDaysAgo int) bool {
	return lookbackDays > lastChangedDaysAgo
}

// defaultAdded is assumed for styles without a known listing date.
var defaultAdded = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

// IsNewProduct reports whether fewer than waitDays full days passed between
// the listing date and the run.
func IsNewProduct(added, runTime time.Time, waitDays int) bool {
	if added.IsZero() {
		added = defaultAdded
	}
	days := int(runTime.Sub(added).Hours() / 24)
	return days < waitDays
}

// ResolveCategory applies the run-time category overrides: styles listed
// for destruction are priced as DESTROY_COMPETITORS and ST styles that are
// nearly sold out fall back to IMP.
func ResolveCategory(base model.Category, destroyListed bool, inventory float64) model.Category {
	if destroyListed {
		return model.CategoryDestroyCompetitors
	}
	if base == model.CategoryST && model.Defined(inventory) && inventory <= 5 {
		return model.CategoryIMP
	}
	return base
}
