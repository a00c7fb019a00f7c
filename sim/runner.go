// Package sim replays a price series through the full quoting stack with
// a paper gateway: no network, no clock, deterministic output. 用于离线
// 验证参数与回归测试。
package sim

import (
	"context"
	"fmt"
	"time"

	"pmm-quoter-go/indicator"
	"pmm-quoter-go/infrastructure/logger"
	"pmm-quoter-go/internal/engine"
	"pmm-quoter-go/inventory"
	"pmm-quoter-go/order"
	"pmm-quoter-go/posttrade"
	"pmm-quoter-go/risk"
	"pmm-quoter-go/strategy"
)

// Config 回放参数。
type Config struct {
	Symbol       string
	Quote        strategy.Config
	SMAPeriod    int
	ATRPeriod    int
	StopLossPct  float64
	InitialBase  float64
	InitialQuote float64
	Constraints  order.Constraints
	Step         time.Duration // 两个价格点之间的模拟时间间隔
	FillOnCross  bool          // 价格穿过挂单价时模拟成交
}

// Report 一次回放的结果汇总。
type Report struct {
	Cycles     int
	Fills      int
	Halted     bool
	FinalState engine.EngineState
	FinalBase  float64
	FinalPnL   float64
	FillStats  posttrade.Stats
}

// Runner 驱动回放。
type Runner struct {
	cfg      Config
	eng      *engine.QuoteEngine
	mgr      *order.Manager
	inv      *inventory.Tracker
	gw       *PaperGateway
	analyzer *posttrade.Analyzer
	fills    int
}

// replayPrices 提供价格序列给引擎；回放按索引推进。
type replayPrices struct {
	price float64
}

func (r *replayPrices) MidPrice() (float64, bool) {
	return r.price, r.price > 0
}

// NewRunner 组装完整的内存组件栈。
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if cfg.SMAPeriod <= 0 {
		cfg.SMAPeriod = 20
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = 14
	}
	if cfg.StopLossPct <= 0 || cfg.StopLossPct >= 1 {
		cfg.StopLossPct = 0.1
	}
	if cfg.Step <= 0 {
		cfg.Step = time.Second
	}

	quoter, err := strategy.NewQuoter(cfg.Quote)
	if err != nil {
		return nil, fmt.Errorf("quoter: %w", err)
	}
	gate, err := risk.NewStopLossGate(cfg.StopLossPct)
	if err != nil {
		return nil, fmt.Errorf("stop loss gate: %w", err)
	}

	gw := &PaperGateway{}
	mgr := order.NewManager(gw)
	inv := inventory.NewTracker(cfg.InitialBase, cfg.InitialQuote)
	analyzer := posttrade.NewAnalyzer()
	mgr.OnFill(func(side order.Side, price, qty float64) {
		inv.OnFill(qty, price)
		analyzer.OnFill(side, price)
	})

	rec := order.NewReconciler(mgr, order.ReconcilerConfig{
		Symbol:      cfg.Symbol,
		Constraints: cfg.Constraints,
	})

	log, err := logger.New(logger.Config{Level: "error", Outputs: []string{"stdout"}, Format: "json"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	guards := risk.MultiGuard{Guards: []risk.Guard{
		&risk.HaltGuard{Source: gate},
		&risk.InventoryCapGuard{Source: inv, MaxInventory: cfg.Quote.MaxInventory},
	}}

	eng, err := engine.New(engine.Config{
		Symbol:          cfg.Symbol,
		RefreshInterval: cfg.Step,
	}, engine.Components{
		Quoter:     quoter,
		Indicators: indicator.NewTracker(cfg.SMAPeriod, cfg.ATRPeriod),
		Inventory:  inv,
		Gate:       gate,
		Guards:     guards,
		Reconciler: rec,
		Prices:     &replayPrices{},
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &Runner{cfg: cfg, eng: eng, mgr: mgr, inv: inv, gw: gw, analyzer: analyzer}, nil
}

// Run 按序回放价格，返回汇总结果。单点错误不中断回放。
func (r *Runner) Run(prices []float64) (Report, error) {
	if len(prices) == 0 {
		return Report{}, fmt.Errorf("empty price series")
	}

	ctx := context.Background()
	ts := time.Unix(0, 0).UTC()
	cycles := 0
	for _, p := range prices {
		// 先用新参考价标记此前的成交，再模拟本价位的穿越成交；
		// 成交不能被自己的成交价标记。
		r.analyzer.OnReference(p)
		if r.cfg.FillOnCross {
			r.fillCrossed(p)
		}
		if err := r.eng.Cycle(ctx, p, ts); err != nil {
			ts = ts.Add(r.cfg.Step)
			continue
		}
		cycles++
		ts = ts.Add(r.cfg.Step)
	}

	base, pnl := r.inv.Valuation(prices[len(prices)-1])
	return Report{
		Cycles:     cycles,
		Fills:      r.fills,
		Halted:     r.eng.GetState() == engine.StateHalted,
		FinalState: r.eng.GetState(),
		FinalBase:  base,
		FinalPnL:   pnl,
		FillStats:  r.analyzer.Stats(),
	}, nil
}

// fillCrossed 模拟成交：新价格穿过挂单价的订单视为完全成交。
func (r *Runner) fillCrossed(price float64) {
	for _, o := range r.mgr.Active() {
		crossed := (o.Side == order.SideBuy && price <= o.Price) ||
			(o.Side == order.SideSell && price >= o.Price)
		if crossed {
			if err := r.mgr.Update(o.ID, order.StatusFilled); err == nil {
				r.fills++
			}
		}
	}
}
