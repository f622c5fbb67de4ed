package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/guarzo/autopricing/internal/model"
)

// TestDataFactory provides methods for generating dynamic test data
type TestDataFactory struct {
	rand *rand.Rand
}

// NewTestDataFactory creates a new test data factory with a seeded random generator
func NewTestDataFactory(seed int64) *TestDataFactory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &TestDataFactory{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// GenerateStyle generates a random style code
func (f *TestDataFactory) GenerateStyle() string {
	return fmt.Sprintf("test-%06d-%03d", f.rand.Intn(1000000), f.rand.Intn(1000))
}

// GenerateCountry generates a random country code
func (f *TestDataFactory) GenerateCountry() string {
	countries := []string{"DE", "AT", "CZ", "SK", "PL", "HU", "GB", "IE", "FR"}
	return countries[f.rand.Intn(len(countries))]
}

// GenerateCategory generates a random category, occasionally one the router
// does not know
func (f *TestDataFactory) GenerateCategory() model.Category {
	categories := []model.Category{
		model.CategoryIMP, model.CategoryST, model.CategoryHardSale, model.CategorySoftSale,
		model.CategoryEntrySale, model.CategoryTeamSale, model.CategoryCarryovers,
		model.CategoryDropshipment, model.CategoryTeamsportOverstock, model.CategoryTotalClearance,
		model.CategoryIndoorShoes, model.CategoryDestroyCompetitors, "TEST_UNKNOWN",
	}
	return categories[f.rand.Intn(len(categories))]
}

// GenerateGroupLogic generates a random group logic value
func (f *TestDataFactory) GenerateGroupLogic() model.GroupLogic {
	groups := []model.GroupLogic{
		model.GroupOff, model.GroupOff, model.GroupOff,
		model.GroupAuto, model.GroupIncrease, model.GroupDecrease, model.GroupKeep,
	}
	return groups[f.rand.Intn(len(groups))]
}

// GeneratePrice generates a random price between 5 and 500
func (f *TestDataFactory) GeneratePrice() float64 {
	return float64(f.rand.Intn(49500)+500) / 100
}

// GenerateCompetitors generates up to n aligned competitor observations
// priced around base
func (f *TestDataFactory) GenerateCompetitors(base float64, n int) model.CompetitorSignals {
	var s model.CompetitorSignals
	for i := 0; i < f.rand.Intn(n+1); i++ {
		s.Prices = append(s.Prices, base*(0.5+f.rand.Float64()))
		s.InStock = append(s.InStock, f.rand.Intn(2))
		s.PriceChangeDays = append(s.PriceChangeDays, float64(f.rand.Intn(3)))
	}
	return s
}

// maybe returns v, or Undefined one time in ten
func (f *TestDataFactory) maybe(v float64) float64 {
	if f.rand.Intn(10) == 0 {
		return model.Undefined
	}
	return v
}

// GenerateContext generates a structurally valid pricing context with a
// positive base price and defined discount bounds. Signals are occasionally
// undefined.
func (f *TestDataFactory) GenerateContext() model.PricingContext {
	base := f.GeneratePrice()
	minDiscount := float64(f.rand.Intn(10)) / 100
	maxDiscount := minDiscount + float64(f.rand.Intn(60))/100

	return model.PricingContext{
		Style:       f.GenerateStyle(),
		Brand:       "Test Brand",
		CountryCode: f.GenerateCountry(),
		Category:    f.GenerateCategory(),
		GroupLogic:  f.GenerateGroupLogic(),

		Price:       base * (0.4 + 0.7*f.rand.Float64()),
		BasePrice:   base,
		MinDiscount: minDiscount,
		MaxDiscount: maxDiscount,

		StyleCompetitors:   f.GenerateCompetitors(base, 5),
		ProductCompetitors: f.GenerateCompetitors(base, 3),

		SellPowerWeek:        f.maybe(f.rand.Float64() * 40),
		SellPowerDay:         f.maybe(f.rand.Float64() * 30),
		LastDaySellPowerWeek: f.maybe(f.rand.Float64() * 40),
		TotalDemand:          f.maybe(f.rand.Float64() * 2),
		SoldItems7Days:       f.maybe(float64(f.rand.Intn(20))),

		DiffToExpectedMargin:       f.maybe(f.rand.Float64()*10 - 5),
		ExpectedMarginUseInCountry: f.rand.Intn(2) == 0,

		ChangedLastDays:    f.rand.Intn(4) == 0,
		LastChangedDaysAgo: f.rand.Intn(30),
		IsNewProduct:       f.rand.Intn(20) == 0,
		MasterSwitch:       true,
	}
}

// GenerateContexts generates n contexts with distinct (style, country) keys
func (f *TestDataFactory) GenerateContexts(n int) []model.PricingContext {
	out := make([]model.PricingContext, n)
	seen := make(map[model.Key]bool, n)
	for i := range out {
		c := f.GenerateContext()
		for seen[c.Key()] {
			c.Style = f.GenerateStyle()
		}
		seen[c.Key()] = true
		out[i] = c
	}
	return out
}

// GenerateTestDate generates a random date within the last year
func (f *TestDataFactory) GenerateTestDate() time.Time {
	days := f.rand.Intn(365)
	return time.Now().AddDate(0, 0, -days)
}
