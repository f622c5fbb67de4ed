package pricing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/autopricing/internal/model"
	"github.com/guarzo/autopricing/internal/testutil"
)

// baseContext is priced at 100 against a base of 120, floor 84, ceiling 120,
// with every signal defined and neutral.
func baseContext() model.PricingContext {
	return model.PricingContext{
		Style:                "st-1",
		CountryCode:          "DE",
		Category:             model.CategoryHardSale,
		GroupLogic:           model.GroupOff,
		Price:                100,
		BasePrice:            120,
		MinDiscount:          0,
		MaxDiscount:          0.3,
		SellPowerWeek:        25,
		SellPowerDay:         5,
		LastDaySellPowerWeek: 25,
		TotalDemand:          1,
		SoldItems7Days:       10,
		DiffToExpectedMargin: 0,
		MasterSwitch:         true,
	}
}

func mustEngine(t *testing.T, p Policy) *Engine {
	t.Helper()
	e, err := NewEngine(p)
	require.NoError(t, err)
	return e
}

func strategy(t *testing.T, name string) Strategy {
	t.Helper()
	s, ok := mustEngine(t, DefaultPolicy()).Strategy(name)
	require.True(t, ok, name)
	return s
}

func TestSellPowerTree_IncreaseAlone(t *testing.T) {
	c := baseContext()
	c.SellPowerWeek = 25
	c.LastDaySellPowerWeek = 10

	d := strategy(t, StrategySellPower).Decide(&c)
	assert.Equal(t, model.ChangeIncrease, d.Change)
	assert.InDelta(t, 102.0, d.Price, 1e-9)
	assert.Equal(t, model.Trace{NodeSellPowerIncrease, NodeIncAlone}, d.Path)
}

func TestIncreaseTree_AboveCheapestCompetitor(t *testing.T) {
	c := baseContext()
	c.StyleCompetitors = inStock(90, 95)

	d := strategy(t, StrategyIncrease).Decide(&c)
	assert.Equal(t, model.ChangeIncrease, d.Change)
	assert.InDelta(t, 102.0, d.Price, 1e-9)
	assert.True(t, d.Path.Contains(NodeIncStyleAboveMin))
}

func TestGuards_ChangedLastDaysKeepsPrice(t *testing.T) {
	for _, name := range []string{StrategySellPower, StrategyMargin, StrategyTotalDemand, StrategySale, StrategyIncrease, StrategyDecrease} {
		t.Run(name, func(t *testing.T) {
			c := baseContext()
			c.ChangedLastDays = true
			c.SellPowerWeek = 1
			c.DiffToExpectedMargin = 50
			c.TotalDemand = 0.1

			d := strategy(t, name).Decide(&c)
			assert.Equal(t, model.ChangeChangedLastDays, d.Change)
			assert.Equal(t, 100.0, d.Price)
			assert.Equal(t, model.Trace{NodeChangedLastDays}, d.Path)
		})
	}
}

func TestChangedLastDays_CompetitorMovement(t *testing.T) {
	s := strategy(t, StrategyDecrease)

	c := baseContext()
	c.ChangedLastDays = true
	c.StyleCompetitors = model.CompetitorSignals{
		Prices:          []float64{90, 95},
		InStock:         []int{1, 1},
		PriceChangeDays: []float64{0, 0},
	}
	assert.Equal(t, model.ChangeChangedLastDays, s.Decide(&c).Change, "no competitor moved")

	c.StyleCompetitors.PriceChangeDays = []float64{0, 2}
	assert.Equal(t, model.ChangeDecrease, s.Decide(&c).Change, "a competitor moved")
}

func TestGuards_NewProductNotEnoughData(t *testing.T) {
	for _, name := range []string{StrategySellPower, StrategyMargin, StrategyTotalDemand, StrategySale, StrategyIncrease, StrategyDecrease, StrategyDestroyCompetitors} {
		t.Run(name, func(t *testing.T) {
			c := baseContext()
			c.IsNewProduct = true

			d := strategy(t, name).Decide(&c)
			assert.Equal(t, model.ChangeNotEnoughData, d.Change)
			assert.Equal(t, 100.0, d.Price)
			assert.Equal(t, model.Trace{NodeNotEnoughData}, d.Path)
		})
	}
}

func TestEngine_DestroyCompetitorsUndercut(t *testing.T) {
	c := baseContext()
	c.Category = model.CategoryDestroyCompetitors
	c.Price = 55
	c.BasePrice = 60
	c.MaxDiscount = 0.2 // floor 48
	c.StyleCompetitors = inStock(50, 55)

	d := mustEngine(t, DefaultPolicy()).Decide(&c)
	assert.Equal(t, StrategyDestroyCompetitors, d.Strategy)
	assert.Equal(t, model.ChangeDecrease, d.Change)
	assert.InDelta(t, 49.0, d.Price, 1e-9)
	assert.Equal(t, model.Trace{NodeDestroyUndercut}, d.Path)
}

func TestDestroyCompetitors(t *testing.T) {
	s := strategy(t, StrategyDestroyCompetitors)

	t.Run("every_competitor_below_floor", func(t *testing.T) {
		c := baseContext()
		c.StyleCompetitors = inStock(40, 45)
		d := s.Decide(&c)
		assert.Equal(t, model.ChangeDecrease, d.Change)
		assert.InDelta(t, 84.0, d.Price, 1e-9)
		assert.Equal(t, model.Trace{NodeDestroyFloor}, d.Path)
	})

	t.Run("alone", func(t *testing.T) {
		c := baseContext()
		d := s.Decide(&c)
		assert.Equal(t, model.ChangeKeep, d.Change)
		assert.Equal(t, 100.0, d.Price)
	})

	t.Run("ignores_anti_thrash", func(t *testing.T) {
		c := baseContext()
		c.ChangedLastDays = true
		c.StyleCompetitors = inStock(90)
		d := s.Decide(&c)
		assert.Equal(t, model.ChangeDecrease, d.Change)
		assert.InDelta(t, 88.2, d.Price, 1e-9)
	})
}

func TestMissingRequiredSignals(t *testing.T) {
	tests := []struct {
		strategy string
		mutate   func(c *model.PricingContext)
	}{
		{StrategySellPower, func(c *model.PricingContext) { c.SellPowerWeek = model.Undefined }},
		{StrategySellPower, func(c *model.PricingContext) { c.SellPowerDay = model.Undefined }},
		{StrategySellPower, func(c *model.PricingContext) { c.LastDaySellPowerWeek = model.Undefined }},
		{StrategyMargin, func(c *model.PricingContext) { c.DiffToExpectedMargin = model.Undefined }},
		{StrategyTotalDemand, func(c *model.PricingContext) { c.TotalDemand = model.Undefined }},
		{StrategyTotalDemand, func(c *model.PricingContext) { c.SoldItems7Days = model.Undefined }},
		{StrategySale, func(c *model.PricingContext) { c.TotalDemand = model.Undefined }},
		{StrategyIncrease, func(c *model.PricingContext) { c.Price = model.Undefined }},
		{StrategyDecrease, func(c *model.PricingContext) { c.BasePrice = model.Undefined }},
		{StrategyDestroyCompetitors, func(c *model.PricingContext) { c.MaxDiscount = model.Undefined }},
		{StrategyMargin, func(c *model.PricingContext) { c.MinDiscount = model.Undefined }},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.strategy, i), func(t *testing.T) {
			c := baseContext()
			tt.mutate(&c)
			d := strategy(t, tt.strategy).Decide(&c)
			assert.Equal(t, model.ChangeNotEnoughData, d.Change)
			assert.Equal(t, model.Trace{NodeNotEnoughData}, d.Path)
		})
	}
}

func TestSellPowerTree(t *testing.T) {
	tests := []struct {
		name       string
		week, last float64
		day        float64
		allow      bool
		want       model.Change
		first      model.Node
	}{
		{"keep_band", 5, 30, 14, true, model.ChangeKeep, NodeSellPowerKeepBand},
		{"keep_band_edges", 50, 10, 13, true, model.ChangeKeep, NodeSellPowerKeepBand},
		{"slowing_down", 25, 30, 5, true, model.ChangeDecrease, NodeSellPowerDecrease},
		{"weak_week", 15, 10, 5, true, model.ChangeDecrease, NodeSellPowerDecrease},
		{"speeding_up", 25, 10, 5, true, model.ChangeIncrease, NodeSellPowerIncrease},
		{"speeding_up_increase_disabled", 25, 10, 5, false, model.ChangeKeep, NodeSellPowerHold},
	}

	p := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := SellPowerTree{
				Policy:        p.SellPower,
				AllowIncrease: tt.allow,
				Snap:          p.Snap,
				Increase:      IncreaseRule{Policy: p.Increase},
				Decrease:      DecreaseRule{Policy: p.Decrease},
			}
			c := baseContext()
			c.SellPowerWeek = tt.week
			c.LastDaySellPowerWeek = tt.last
			c.SellPowerDay = tt.day

			d := tree.Decide(&c)
			assert.Equal(t, tt.want, d.Change)
			assert.Equal(t, tt.first, d.Path[0])
		})
	}
}

func TestMarginTree(t *testing.T) {
	tests := []struct {
		diff  float64
		want  model.Change
		price float64
	}{
		{3, model.ChangeDecrease, 98},
		{-3, model.ChangeIncrease, 102},
		{2, model.ChangeKeep, 100},
		{-2, model.ChangeKeep, 100},
		{0, model.ChangeKeep, 100},
	}

	s := strategy(t, StrategyMargin)
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.diff), func(t *testing.T) {
			c := baseContext()
			c.DiffToExpectedMargin = tt.diff
			d := s.Decide(&c)
			assert.Equal(t, tt.want, d.Change)
			assert.InDelta(t, tt.price, d.Price, 1e-9)
		})
	}
}

func TestDemandTrees(t *testing.T) {
	tests := []struct {
		name      string
		td, sold  float64
		wantTotal model.Change
		wantSale  model.Change
	}{
		{"very_low", 0.5, 20, model.ChangeDecrease, model.ChangeDecrease},
		{"between_thresholds", 0.78, 20, model.ChangeKeep, model.ChangeDecrease},
		{"soft_and_few_sold", 0.9, 5, model.ChangeDecrease, model.ChangeDecrease},
		{"soft_and_selling", 0.9, 10, model.ChangeKeep, model.ChangeKeep},
		{"exactly_one", 1, 5, model.ChangeKeep, model.ChangeKeep},
		{"high", 1.5, 0, model.ChangeIncrease, model.ChangeIncrease},
	}

	total := strategy(t, StrategyTotalDemand)
	sale := strategy(t, StrategySale)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseContext()
			c.TotalDemand = tt.td
			c.SoldItems7Days = tt.sold
			assert.Equal(t, tt.wantTotal, total.Decide(&c).Change, "total demand")
			assert.Equal(t, tt.wantSale, sale.Decide(&c).Change, "sale")
		})
	}
}

func TestSaleTree_AloneOnMarketStep(t *testing.T) {
	c := baseContext()
	c.TotalDemand = 0.5

	assert.InDelta(t, 98.0, strategy(t, StrategyTotalDemand).Decide(&c).Price, 1e-9)
	assert.InDelta(t, 95.0, strategy(t, StrategySale).Decide(&c).Price, 1e-9)

	p := DefaultPolicy()
	p.Sale.AllowIncrease = false
	s, _ := mustEngine(t, p).Strategy(StrategySale)
	c.TotalDemand = 1.5
	d := s.Decide(&c)
	assert.Equal(t, model.ChangeKeep, d.Change)
	assert.Equal(t, model.Trace{NodeSaleHold}, d.Path)
}

func TestKeepTree(t *testing.T) {
	c := baseContext()
	c.Price = 500 // above ceiling, Keep does not clamp
	c.IsNewProduct = true
	c.ChangedLastDays = true
	c.BasePrice = model.Undefined

	d := KeepTree{}.Decide(&c)
	assert.Equal(t, model.ChangeKeep, d.Change)
	assert.Equal(t, 500.0, d.Price)
	assert.Equal(t, model.Trace{NodeKeep}, d.Path)
}

func TestSnap(t *testing.T) {
	p := DefaultPolicy().Snap
	tests := []struct {
		price float64
		want  float64
	}{
		{120, 120},
		{99.95, 99.95},
		{99, 95},
		{97, 95},
		{95, 95},
		{94, 94},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Snap(p, 100, tt.price), 1e-9, "price %v", tt.price)
	}
}

func TestSnapThenClamp(t *testing.T) {
	c := baseContext()
	c.Price = 94
	c.BasePrice = 100
	c.MaxDiscount = 0.5

	// 94 * 1.02 = 95.88 is a 4.12% discount, snapped to 5%
	d := strategy(t, StrategyIncrease).Decide(&c)
	assert.Equal(t, model.ChangeIncrease, d.Change)
	assert.InDelta(t, 95.0, d.Price, 1e-9)

	// snap lands below the floor, clamp wins
	c.MaxDiscount = 0.04
	d = strategy(t, StrategyIncrease).Decide(&c)
	assert.InDelta(t, 96.0, d.Price, 1e-9)
}

func TestBoundInvariant(t *testing.T) {
	engine := mustEngine(t, DefaultPolicy())
	factory := testutil.NewTestDataFactory(testutil.GetTestSeed())

	for i := 0; i < testutil.GetTestPropertyRuns(); i++ {
		c := factory.GenerateContext()
		d := engine.Decide(&c)
		if d.Strategy == StrategyKeep {
			continue
		}
		if d.Change == model.ChangeNotEnoughData || d.Change == model.ChangeChangedLastDays {
			assert.Equal(t, c.Price, d.Price)
			continue
		}
		assert.GreaterOrEqual(t, d.Price, c.Floor()-1e-9, "%s %+v", d.Path, c)
		assert.LessOrEqual(t, d.Price, c.Ceiling()+1e-9, "%s %+v", d.Path, c)
	}
}

func TestKeepIdempotent(t *testing.T) {
	factory := testutil.NewTestDataFactory(testutil.GetTestSeed())
	for i := 0; i < 200; i++ {
		c := factory.GenerateContext()
		first := KeepTree{}.Decide(&c)
		c.Price = first.Price
		second := KeepTree{}.Decide(&c)
		assert.Equal(t, first, second)
	}
}

func TestDecideDoesNotModifyContext(t *testing.T) {
	engine := mustEngine(t, DefaultPolicy())
	factory := testutil.NewTestDataFactory(testutil.GetTestSeed())

	for i := 0; i < 200; i++ {
		c := factory.GenerateContext()
		before := fmt.Sprintf("%+v", c)
		engine.Decide(&c)
		require.Equal(t, before, fmt.Sprintf("%+v", c))
	}
}

func TestPolicyDrivesThresholds(t *testing.T) {
	p := DefaultPolicy()
	p.SellPower.KeepDayLow = 0
	p.SellPower.KeepDayHigh = 1000
	engine := mustEngine(t, p)

	factory := testutil.NewTestDataFactory(testutil.GetTestSeed())
	for i := 0; i < 200; i++ {
		c := factory.GenerateContext()
		c.GroupLogic = model.GroupOff
		c.Category = model.CategoryHardSale
		d := engine.Decide(&c)
		assert.NotEqual(t, model.ChangeIncrease, d.Change)
		assert.NotEqual(t, model.ChangeDecrease, d.Change)
	}
}
