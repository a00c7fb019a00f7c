package inventory

import "sync"

// Tracker 维护基础币/计价币余额，由成交回报驱动。
// sim 与引擎在没有外部账户流时用它充当账户快照来源。
type Tracker struct {
	mu    sync.RWMutex
	base  float64
	quote float64
	cost  float64 // 基础币加权平均成本
}

// NewTracker seeds the tracker with starting balances.
func NewTracker(base, quote float64) *Tracker {
	return &Tracker{base: base, quote: quote}
}

// OnFill 根据成交调整余额：买入加基础币减计价币，卖出相反。
// qty 为正表示买入基础币。
func (t *Tracker) OnFill(qty, price float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if qty > 0 {
		totalCost := t.cost*t.base + price*qty
		t.base += qty
		if t.base != 0 {
			t.cost = totalCost / t.base
		}
	} else {
		t.base += qty
		if t.base <= 0 {
			t.base = 0
			t.cost = 0
		}
	}
	t.quote -= qty * price
	if t.quote < 0 {
		t.quote = 0
	}
}

// SetBalances 用外部账户流覆盖余额（对账用）。
func (t *Tracker) SetBalances(base, quote float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base = base
	t.quote = quote
}

// BaseBalance 返回当前基础币余额（风控绝对上限检查用）。
func (t *Tracker) BaseBalance() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.base
}

// Snapshot materializes the read-only view the quoting cycle consumes.
func (t *Tracker) Snapshot(mid float64) Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		BaseBalance:  t.base,
		QuoteBalance: t.quote,
		MidPrice:     mid,
	}
}

// Valuation 按当前 mid 计算基础币仓位的未实现盈亏。
func (t *Tracker) Valuation(mid float64) (base float64, pnl float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.base, (mid - t.cost) * t.base
}
