package pricing

import "github.com/guarzo/autopricing/internal/model"

// Decision tree nodes. Trees record the nodes they pass through so an
// audit can tell which branch produced a price.
const (
	NodeChangedLastDays model.Node = "guard.changed-last-days"
	NodeNotEnoughData   model.Node = "guard.not-enough-data"

	NodeSellPowerKeepBand model.Node = "sell-power.keep-band"
	NodeSellPowerDecrease model.Node = "sell-power.decrease"
	NodeSellPowerIncrease model.Node = "sell-power.increase"
	NodeSellPowerHold     model.Node = "sell-power.hold"

	NodeMarginDecrease model.Node = "margin.decrease"
	NodeMarginIncrease model.Node = "margin.increase"
	NodeMarginHold     model.Node = "margin.hold"

	NodeDemandDecrease model.Node = "demand.decrease"
	NodeDemandIncrease model.Node = "demand.increase"
	NodeDemandHold     model.Node = "demand.hold"

	NodeSaleDecrease model.Node = "sale.decrease"
	NodeSaleIncrease model.Node = "sale.increase"
	NodeSaleHold     model.Node = "sale.hold"

	NodeKeep model.Node = "keep"

	NodeGroupIncrease model.Node = "group.increase"
	NodeGroupDecrease model.Node = "group.decrease"

	NodeDestroyUndercut model.Node = "destroy.undercut"
	NodeDestroyFloor    model.Node = "destroy.floor"
	NodeDestroyAlone    model.Node = "destroy.alone"

	NodeIncStyle           model.Node = "inc.style"
	NodeIncStyleBaseBelow  model.Node = "inc.style.base-below-min"
	NodeIncStyleBelowMin   model.Node = "inc.style.below-min"
	NodeIncStyleAboveMin   model.Node = "inc.style.above-min"
	NodeIncStyleAtMin      model.Node = "inc.style.at-min"
	NodeIncProduct         model.Node = "inc.product"
	NodeIncProductStep     model.Node = "inc.product.step"
	NodeIncProductBelowMax model.Node = "inc.product.below-max"
	NodeIncProductAboveMax model.Node = "inc.product.above-max"
	NodeIncAlone           model.Node = "inc.alone"

	NodeDecStyle              model.Node = "dec.style"
	NodeDecStyleCheapest      model.Node = "dec.style.cheapest"
	NodeDecStyleFloorAboveMax model.Node = "dec.style.floor-above-max"
	NodeDecStyleUndercut      model.Node = "dec.style.undercut"
	NodeDecProduct            model.Node = "dec.product.step"
	NodeDecAlone              model.Node = "dec.alone"
)
