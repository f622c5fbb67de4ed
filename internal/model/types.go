package model

import "math"

// Category is the merchandising category a style is priced under.
type Category string

const (
	CategoryIMP                Category = "IMP"
	CategoryST                 Category = "ST"
	CategoryHardSale           Category = "HARD_SALE"
	CategorySoftSale           Category = "SOFT_SALE"
	CategoryEntrySale          Category = "ENTRY_SALE"
	CategoryTeamSale           Category = "TEAM_SALE"
	CategoryCarryovers         Category = "CARRYOVERS"
	CategoryDropshipment       Category = "DROPSHIPMENT"
	CategoryTeamsportOverstock Category = "TEAMSPORT_OVERSTOCK"
	CategoryTotalClearance     Category = "TOTAL_CLEARANCE"
	CategoryIndoorShoes        Category = "INDOOR_SHOES"
	CategoryDestroyCompetitors Category = "DESTROY_COMPETITORS"
)

// GroupLogic is an operator override that forces a pricing regime across a
// product group. Unknown values behave like GroupOff.
type GroupLogic string

const (
	GroupAuto     GroupLogic = "AUTO"
	GroupIncrease GroupLogic = "INCREASE"
	GroupDecrease GroupLogic = "DECREASE"
	GroupKeep     GroupLogic = "KEEP"
	GroupOff      GroupLogic = "OFF"
)

// Change is the tagged outcome of scoring one context.
type Change string

const (
	ChangeKeep            Change = "KEEP"
	ChangeIncrease        Change = "INCREASE"
	ChangeDecrease        Change = "DECREASE"
	ChangeNotEnoughData   Change = "NOT ENOUGH DATA"
	ChangeChangedLastDays Change = "CHANGED LAST DAYS"
)

// IsPriceMove reports whether the change moves the price.
func (c Change) IsPriceMove() bool {
	return c == ChangeIncrease || c == ChangeDecrease
}

// Undefined marks a missing numeric signal.
var Undefined = math.NaN()

// Defined reports whether x carries a value.
func Defined(x float64) bool {
	return !math.IsNaN(x)
}

// CompetitorSignals holds positionally aligned competitor observations for
// one scope (style or product name). Index i of every slice describes the
// same competitor offer.
type CompetitorSignals struct {
	Prices          []float64 `json:"prices"`
	InStock         []int     `json:"in_stock"`
	PriceChangeDays []float64 `json:"price_change_days"`
}

// InStockPrices returns the prices of offers flagged as in stock.
func (s CompetitorSignals) InStockPrices() []float64 {
	var out []float64
	for i, flag := range s.InStock {
		if flag == 1 && i < len(s.Prices) {
			out = append(out, s.Prices[i])
		}
	}
	return out
}

// Len is the number of observations.
func (s CompetitorSignals) Len() int {
	return len(s.Prices)
}

// PricingContext is the fully assembled input for one (style, country) pair.
// The engine treats it as read-only.
type PricingContext struct {
	Style       string
	Brand       string
	ProductName string
	CountryCode string
	Category    Category
	GroupLogic  GroupLogic

	Price       float64
	BasePrice   float64
	MinDiscount float64
	MaxDiscount float64

	StyleCompetitors   CompetitorSignals
	ProductCompetitors CompetitorSignals

	SellPowerWeek        float64
	SellPowerDay         float64
	LastDaySellPowerWeek float64
	TotalDemand          float64
	SoldItems7Days       float64

	DiffToExpectedMargin       float64
	ExpectedMarginUseInCountry bool

	ChangedLastDays    bool
	LastChangedDaysAgo int
	IsNewProduct       bool

	// MasterSwitch gates production export only; scoring ignores it.
	MasterSwitch bool

	// missingKeys lists required wire keys absent from the decoded input.
	missingKeys []string
}

// Floor is the lowest allowed price, base·(1-max discount).
func (c *PricingContext) Floor() float64 {
	return c.BasePrice * (1 - c.MaxDiscount)
}

// Ceiling is the highest allowed price, base·(1-min discount).
func (c *PricingContext) Ceiling() float64 {
	return c.BasePrice * (1 - c.MinDiscount)
}

// Key identifies the context across runs.
func (c *PricingContext) Key() Key {
	return Key{Style: c.Style, CountryCode: c.CountryCode}
}

// Key identifies a (style, country) pair.
type Key struct {
	Style       string
	CountryCode string
}
