package model

import (
	"encoding/json"
	"fmt"
	"io"
)

// contextJSON is the wire form of a PricingContext. Pointers distinguish an
// absent field from a zero value.
type contextJSON struct {
	Style       *string `json:"style"`
	Brand       string  `json:"brand"`
	ProductName string  `json:"product_name"`
	CountryCode *string `json:"country_code"`
	Category    *string `json:"category"`
	GroupLogic  *string `json:"group_logic"`

	Price       *float64 `json:"price"`
	BasePrice   *float64 `json:"base_price"`
	MinDiscount *float64 `json:"min_discount"`
	MaxDiscount *float64 `json:"max_discount"`

	StyleCompetitorsPrices      []float64 `json:"style_important_competitors_prices"`
	StyleCompetitorsInStock     []int     `json:"style_important_competitors_in_stock"`
	StyleCompetitorsChangeDay   []float64 `json:"style_important_competitors_price_change_day"`
	ProductCompetitorsPrices    []float64 `json:"product_important_competitors_prices"`
	ProductCompetitorsInStock   []int     `json:"product_important_competitors_in_stock"`
	ProductCompetitorsChangeDay []float64 `json:"product_important_competitors_price_change_day"`

	SellPowerWeek        *float64 `json:"sell_power_week"`
	SellPowerDay         *float64 `json:"sell_power_day"`
	LastDaySellPowerWeek *float64 `json:"last_day_sell_power_week"`
	TotalDemand          *float64 `json:"total_demand"`
	SoldItems7Days       *float64 `json:"sold_items_7_days"`

	DiffToExpectedMargin       *float64 `json:"diff_to_expected_margin"`
	ExpectedMarginUseInCountry bool     `json:"expected_margin_use_in_country"`

	ChangedLastDays    bool  `json:"changed_last_days"`
	LastChangedDaysAgo int   `json:"last_changed_days_ago"`
	IsNewProduct       bool  `json:"is_new_product"`
	MasterSwitch       *bool `json:"master_switch,omitempty"`
}

// requiredKeys must be present on the wire, even if null.
var requiredKeys = []string{"price", "base_price"}

// UnmarshalJSON decodes the wire form. Absent or null numbers become
// Undefined. Absent identity fields are left empty and absent required keys
// are recorded, both for Validate to reject.
func (c *PricingContext) UnmarshalJSON(data []byte) error {
	var w contextJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	var missing []string
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			missing = append(missing, k)
		}
	}

	*c = PricingContext{
		Style:       deref(w.Style),
		Brand:       w.Brand,
		ProductName: w.ProductName,
		CountryCode: deref(w.CountryCode),
		Category:    Category(deref(w.Category)),
		GroupLogic:  GroupLogic(deref(w.GroupLogic)),

		Price:       num(w.Price),
		BasePrice:   num(w.BasePrice),
		MinDiscount: num(w.MinDiscount),
		MaxDiscount: num(w.MaxDiscount),

		StyleCompetitors: CompetitorSignals{
			Prices:          w.StyleCompetitorsPrices,
			InStock:         w.StyleCompetitorsInStock,
			PriceChangeDays: w.StyleCompetitorsChangeDay,
		},
		ProductCompetitors: CompetitorSignals{
			Prices:          w.ProductCompetitorsPrices,
			InStock:         w.ProductCompetitorsInStock,
			PriceChangeDays: w.ProductCompetitorsChangeDay,
		},

		SellPowerWeek:        num(w.SellPowerWeek),
		SellPowerDay:         num(w.SellPowerDay),
		LastDaySellPowerWeek: num(w.LastDaySellPowerWeek),
		TotalDemand:          num(w.TotalDemand),
		SoldItems7Days:       num(w.SoldItems7Days),

		DiffToExpectedMargin:       num(w.DiffToExpectedMargin),
		ExpectedMarginUseInCountry: w.ExpectedMarginUseInCountry,

		ChangedLastDays:    w.ChangedLastDays,
		LastChangedDaysAgo: w.LastChangedDaysAgo,
		IsNewProduct:       w.IsNewProduct,
		MasterSwitch:       true,

		missingKeys: missing,
	}
	if w.MasterSwitch != nil {
		c.MasterSwitch = *w.MasterSwitch
	}
	return nil
}

// MarshalJSON renders Undefined numbers as null.
func (c PricingContext) MarshalJSON() ([]byte, error) {
	master := c.MasterSwitch
	return json.Marshal(contextJSON{
		Style:       ptr(c.Style),
		Brand:       c.Brand,
		ProductName: c.ProductName,
		CountryCode: ptr(c.CountryCode),
		Category:    ptr(string(c.Category)),
		GroupLogic:  ptr(string(c.GroupLogic)),

		Price:       numPtr(c.Price),
		BasePrice:   numPtr(c.BasePrice),
		MinDiscount: numPtr(c.MinDiscount),
		MaxDiscount: numPtr(c.MaxDiscount),

		StyleCompetitorsPrices:      c.StyleCompetitors.Prices,
		StyleCompetitorsInStock:     c.StyleCompetitors.InStock,
		StyleCompetitorsChangeDay:   c.StyleCompetitors.PriceChangeDays,
		ProductCompetitorsPrices:    c.ProductCompetitors.Prices,
		ProductCompetitorsInStock:   c.ProductCompetitors.InStock,
		ProductCompetitorsChangeDay: c.ProductCompetitors.PriceChangeDays,

		SellPowerWeek:        numPtr(c.SellPowerWeek),
		SellPowerDay:         numPtr(c.SellPowerDay),
		LastDaySellPowerWeek: numPtr(c.LastDaySellPowerWeek),
		TotalDemand:          numPtr(c.TotalDemand),
		SoldItems7Days:       numPtr(c.SoldItems7Days),

		DiffToExpectedMargin:       numPtr(c.DiffToExpectedMargin),
		ExpectedMarginUseInCountry: c.ExpectedMarginUseInCountry,

		ChangedLastDays:    c.ChangedLastDays,
		LastChangedDaysAgo: c.LastChangedDaysAgo,
		IsNewProduct:       c.IsNewProduct,
		MasterSwitch:       &master,
	})
}

// DecodeContexts reads a JSON array of contexts.
func DecodeContexts(r io.Reader) ([]PricingContext, error) {
	var out []PricingContext
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode contexts: %w", err)
	}
	return out, nil
}

// EncodeContexts writes contexts as an indented JSON array.
func EncodeContexts(w io.Writer, contexts []PricingContext) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(contexts); err != nil {
		return fmt.Errorf("encode contexts: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string {
	return &s
}

func num(f *float64) float64 {
	if f == nil {
		return Undefined
	}
	return *f
}

func numPtr(f float64) *float64 {
	if !Defined(f) {
		return nil
	}
	return &f
}
