package risk

import (
	"sync"
	"time"
)

// State 止损闸门的单次评估结果。
type State struct {
	LastPrice float64
	HasLast   bool
	Halted    bool
	HaltedAt  time.Time
}

// StopLossGate halts quoting when price drops more than stopLossPct
// against the previous observation. The halt is monotonic for the
// session: once set it survives any later price recovery and only an
// explicit Reset clears it. The engine never calls Reset; that is an
// operator action.
type StopLossGate struct {
	stopLossPct float64
	clock       Clock

	mu        sync.Mutex
	lastPrice float64
	hasLast   bool
	halted    bool
	haltedAt  time.Time
}

// NewStopLossGate 构造止损闸门；stopLossPct 必须落在 (0,1)。
func NewStopLossGate(stopLossPct float64) (*StopLossGate, error) {
	if stopLossPct <= 0 || stopLossPct >= 1 {
		return nil, ErrInvalidThreshold
	}
	return &StopLossGate{stopLossPct: stopLossPct, clock: NowUTC}, nil
}

// Evaluate 用当前价格推进闸门状态。
// 第一个价格只做初始化，不触发阈值判断；已熔断则短路返回。
func (g *StopLossGate) Evaluate(price float64) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.halted {
		return g.snapshot()
	}
	if !g.hasLast {
		g.lastPrice = price
		g.hasLast = true
		return g.snapshot()
	}

	change := (price - g.lastPrice) / g.lastPrice
	g.lastPrice = price
	if change < -g.stopLossPct {
		g.halted = true
		g.haltedAt = g.clock.Now()
	}
	return g.snapshot()
}

// Halted reports the current halt flag without advancing state.
func (g *StopLossGate) Halted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.halted
}

// Reset 人工复位：清除熔断并重新进入冷启动（丢弃 lastPrice）。
func (g *StopLossGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.halted = false
	g.haltedAt = time.Time{}
	g.hasLast = false
	g.lastPrice = 0
}

func (g *StopLossGate) snapshot() State {
	return State{
		LastPrice: g.lastPrice,
		HasLast:   g.hasLast,
		Halted:    g.halted,
		HaltedAt:  g.haltedAt,
	}
}
