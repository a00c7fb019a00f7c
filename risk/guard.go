package risk

// Guard 下单前校验接口，库存上限、名义上限等各自实现。
type Guard interface {
	PreOrder(symbol string, deltaQty, price float64) error
}

// MultiGuard 顺序执行多个 Guard，任意一个返回错误则中止。
type MultiGuard struct {
	Guards []Guard
}

func (m MultiGuard) PreOrder(symbol string, deltaQty, price float64) error {
	for _, g := range m.Guards {
		if g == nil {
			continue
		}
		if err := g.PreOrder(symbol, deltaQty, price); err != nil {
			return err
		}
	}
	return nil
}

// HaltSource 报告当前是否处于止损熔断。
type HaltSource interface {
	Halted() bool
}

// HaltGuard 熔断期间拒绝任何新单。
type HaltGuard struct {
	Source HaltSource
}

func (g *HaltGuard) PreOrder(symbol string, deltaQty, price float64) error {
	if g == nil || g.Source == nil {
		return nil
	}
	if g.Source.Halted() {
		return ErrHalted
	}
	return nil
}

// BaseBalanceSource 提供当前基础币余额。
type BaseBalanceSource interface {
	BaseBalance() float64
}

// InventoryCapGuard 基础币绝对上限：余额已达上限时拒绝继续买入。
type InventoryCapGuard struct {
	MaxInventory float64 // 基础币绝对数量上限，0 表示不限制
	Source       BaseBalanceSource
}

func (g *InventoryCapGuard) PreOrder(symbol string, deltaQty, price float64) error {
	if g == nil || g.Source == nil || g.MaxInventory <= 0 {
		return nil
	}
	if deltaQty > 0 && g.Source.BaseBalance() >= g.MaxInventory {
		return ErrInventoryCap
	}
	return nil
}

// NotionalGuard 单笔名义金额上限。
type NotionalGuard struct {
	MaxNotional float64 // 0 表示不限制
}

func (g *NotionalGuard) PreOrder(symbol string, deltaQty, price float64) error {
	if g == nil || g.MaxNotional <= 0 {
		return nil
	}
	notional := deltaQty * price
	if notional < 0 {
		notional = -notional
	}
	if notional > g.MaxNotional {
		return ErrNotionalExceed
	}
	return nil
}
