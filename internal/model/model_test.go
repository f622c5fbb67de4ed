package model

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validContext() PricingContext {
	return PricingContext{
		Style:       "dd1391-100",
		CountryCode: "DE",
		Category:    CategoryIMP,
		GroupLogic:  GroupOff,
		Price:       100,
		BasePrice:   120,
		MaxDiscount: 0.3,
		StyleCompetitors: CompetitorSignals{
			Prices:          []float64{90, 95},
			InStock:         []int{1, 0},
			PriceChangeDays: []float64{2, 0},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *PricingContext)
		wantErr  bool
		contains string
	}{
		{"valid", func(c *PricingContext) {}, false, ""},
		{"missing_style", func(c *PricingContext) { c.Style = "" }, true, "style is required"},
		{"missing_country", func(c *PricingContext) { c.CountryCode = "" }, true, "country_code is required"},
		{"missing_category", func(c *PricingContext) { c.Category = "" }, true, "category is required"},
		{"missing_group_logic", func(c *PricingContext) { c.GroupLogic = "" }, true, "group_logic is required"},
		{"unknown_category_is_fine", func(c *PricingContext) { c.Category = "SOMETHING_NEW" }, false, ""},
		{"misaligned_stock", func(c *PricingContext) { c.StyleCompetitors.InStock = []int{1} }, true, "2 prices but 1 stock flags"},
		{"misaligned_change_days", func(c *PricingContext) { c.StyleCompetitors.PriceChangeDays = []float64{1} }, true, "change days"},
		{"bad_stock_flag", func(c *PricingContext) { c.StyleCompetitors.InStock = []int{1, 3} }, true, "stock flag 3"},
		{"inverted_bounds", func(c *PricingContext) { c.MinDiscount = 0.3; c.MaxDiscount = 0.1 }, true, "discount bounds"},
		{"negative_min", func(c *PricingContext) { c.MinDiscount = -0.1 }, true, "discount bounds"},
		{"max_above_one", func(c *PricingContext) { c.MaxDiscount = 1.2 }, true, "discount bounds"},
		{"full_discount_is_fine", func(c *PricingContext) { c.MaxDiscount = 1 }, false, ""},
		{"one_bound_undefined_is_fine", func(c *PricingContext) { c.MinDiscount = 0.5; c.MaxDiscount = Undefined }, false, ""},
		{"missing_numbers_are_fine", func(c *PricingContext) { c.Price = Undefined; c.TotalDemand = Undefined }, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validContext()
			tt.mutate(&c)
			err := c.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIncompleteContext))
			assert.Contains(t, err.Error(), tt.contains)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, c.Style, verr.Style)
		})
	}
}

func TestInStockPrices(t *testing.T) {
	s := CompetitorSignals{
		Prices:  []float64{10, 20, 30},
		InStock: []int{0, 1, 1},
	}
	assert.Equal(t, []float64{20, 30}, s.InStockPrices())
	assert.Empty(t, CompetitorSignals{}.InStockPrices())
}

func TestFloorAndCeiling(t *testing.T) {
	c := PricingContext{BasePrice: 200, MinDiscount: 0.1, MaxDiscount: 0.4}
	assert.InDelta(t, 120.0, c.Floor(), 1e-9)
	assert.InDelta(t, 180.0, c.Ceiling(), 1e-9)
}

func TestChangeIsPriceMove(t *testing.T) {
	assert.True(t, ChangeIncrease.IsPriceMove())
	assert.True(t, ChangeDecrease.IsPriceMove())
	assert.False(t, ChangeKeep.IsPriceMove())
	assert.False(t, ChangeNotEnoughData.IsPriceMove())
	assert.False(t, ChangeChangedLastDays.IsPriceMove())
}

func TestTrace(t *testing.T) {
	tr := Trace{"a", "b", "c"}
	assert.Equal(t, "a>b>c", tr.String())
	assert.True(t, tr.Contains("b"))
	assert.False(t, tr.Contains("d"))
	assert.Equal(t, "", Trace(nil).String())
}

func TestDecodeContexts_NullsBecomeUndefined(t *testing.T) {
	input := `[{
		"style": "abc-1",
		"country_code": "AT",
		"category": "HARD_SALE",
		"group_logic": "OFF",
		"price": 80,
		"base_price": null,
		"style_important_competitors_prices": [70.5],
		"style_important_competitors_in_stock": [1],
		"style_important_competitors_price_change_day": [3],
		"changed_last_days": true,
		"last_changed_days_ago": 2
	}]`

	contexts, err := DecodeContexts(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, contexts, 1)

	c := contexts[0]
	assert.Equal(t, "abc-1", c.Style)
	assert.Equal(t, CategoryHardSale, c.Category)
	assert.Equal(t, 80.0, c.Price)
	assert.False(t, Defined(c.BasePrice))
	assert.False(t, Defined(c.SellPowerWeek))
	assert.True(t, c.ChangedLastDays)
	assert.Equal(t, 2, c.LastChangedDaysAgo)
	assert.True(t, c.MasterSwitch)
	assert.Equal(t, []float64{70.5}, c.StyleCompetitors.Prices)
	assert.NoError(t, c.Validate())
}

func TestDecodeContexts_AbsentIdentityFailsValidation(t *testing.T) {
	contexts, err := DecodeContexts(strings.NewReader(`[{"style": "x", "country_code": "DE", "category": "IMP", "price": 10, "base_price": 12}]`))
	require.NoError(t, err)
	err = contexts[0].Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group_logic is required")
}

func TestDecodeContexts_AbsentPriceKeysFailValidation(t *testing.T) {
	tests := []struct {
		name    string
		prices  string
		missing []string
	}{
		{"both_absent", ``, []string{"price key is missing", "base_price key is missing"}},
		{"base_price_absent", `, "price": 10`, []string{"base_price key is missing"}},
		{"price_absent", `, "base_price": 12`, []string{"price key is missing"}},
		{"explicit_nulls_are_fine", `, "price": null, "base_price": null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `[{"style": "x", "country_code": "DE", "category": "IMP", "group_logic": "OFF"` + tt.prices + `}]`
			contexts, err := DecodeContexts(strings.NewReader(doc))
			require.NoError(t, err)
			require.Len(t, contexts, 1)

			err = contexts[0].Validate()
			if tt.missing == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, ErrIncompleteContext)
			assert.Equal(t, tt.missing, verr.Problems)
		})
	}
}

func TestEncodeContexts_RendersUndefinedAsNull(t *testing.T) {
	c := validContext()
	c.TotalDemand = Undefined
	c.MasterSwitch = false

	var buf bytes.Buffer
	require.NoError(t, EncodeContexts(&buf, []PricingContext{c}))
	assert.Contains(t, buf.String(), `"total_demand": null`)

	back, err := DecodeContexts(&buf)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.False(t, Defined(back[0].TotalDemand))
	assert.False(t, back[0].MasterSwitch)
	assert.Equal(t, c.StyleCompetitors, back[0].StyleCompetitors)
}
