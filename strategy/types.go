package strategy

import "pmm-quoter-go/indicator"

// Level 单边报价：价格与数量。
type Level struct {
	Price float64
	Size  float64
}

// Decision 一个周期的目标挂单集合。
// 任一边可为 nil：被风控或库存约束压制的一边不挂单，而不是挂零量单。
type Decision struct {
	Bid *Level
	Ask *Level
}

// Empty reports whether both sides are suppressed.
func (d Decision) Empty() bool {
	return d.Bid == nil && d.Ask == nil
}

// Inputs 决策输入，由调用方在每个周期前物化好，核心只读。
type Inputs struct {
	ReferencePrice float64
	Indicators     indicator.State
	InventoryPct   float64
	BaseBalance    float64
	Halted         bool
}
