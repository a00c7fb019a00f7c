package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pmm-quoter-go/indicator"
	"pmm-quoter-go/infrastructure/alert"
	"pmm-quoter-go/infrastructure/logger"
	"pmm-quoter-go/inventory"
	"pmm-quoter-go/market"
	"pmm-quoter-go/metrics"
	"pmm-quoter-go/order"
	"pmm-quoter-go/risk"
	"pmm-quoter-go/strategy"
)

// EngineState 引擎状态
type EngineState int

const (
	// StateColdStart 冷启动：尚未观察到任何参考价
	StateColdStart EngineState = iota
	// StateActive 正常双边报价
	StateActive
	// StateHalted 止损熔断，只撤不挂
	StateHalted
	// StateStopped 已停止
	StateStopped
)

// String 返回状态名称
func (s EngineState) String() string {
	switch s {
	case StateColdStart:
		return "COLD_START"
	case StateActive:
		return "ACTIVE"
	case StateHalted:
		return "HALTED"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// PriceSource 提供每个周期的参考价。行情断开时 ok 返回 false，
// 引擎跳过该周期而不是用陈旧价格报价。
type PriceSource interface {
	MidPrice() (price float64, ok bool)
}

// Config 引擎配置
type Config struct {
	Symbol          string        // 交易对
	RefreshInterval time.Duration // 重报价周期
}

// Components 引擎依赖组件
type Components struct {
	Quoter     *strategy.Quoter
	Indicators *indicator.Tracker
	Inventory  *inventory.Tracker
	Gate       *risk.StopLossGate
	Guards     risk.Guard
	Reconciler *order.Reconciler
	Prices     PriceSource
	Klines     *market.KlineAggregator // 可选：配置后用蜡烛真实波幅驱动 ATR
	Alerts     *alert.Manager          // 可选：熔断等事件通知值班
	Logger     *logger.Logger
}

// QuoteEngine 将指标、库存、风控与决策核心串成一个报价周期，
// 周期之间不保留决策状态，所有输入在周期开始时物化。
type QuoteEngine struct {
	config Config

	quoter     *strategy.Quoter
	indicators *indicator.Tracker
	inv        *inventory.Tracker
	gate       *risk.StopLossGate
	guards     risk.Guard
	reconciler *order.Reconciler
	prices     PriceSource
	klines     *market.KlineAggregator
	alerts     *alert.Manager
	logger     *logger.Logger

	state EngineState
	mu    sync.RWMutex

	stopChan chan struct{}
	doneChan chan struct{}

	stats Statistics
}

// Statistics 引擎统计信息
type Statistics struct {
	StartTime     time.Time
	TotalCycles   int64
	TotalPlaced   int64
	TotalCanceled int64
	TotalSkipped  int64
	TotalErrors   int64
	LastCycleTime time.Time
	mu            sync.RWMutex
}

// New 创建报价引擎
func New(cfg Config, components Components) (*QuoteEngine, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := validateComponents(components); err != nil {
		return nil, fmt.Errorf("invalid components: %w", err)
	}

	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 15 * time.Second
	}

	return &QuoteEngine{
		config:     cfg,
		quoter:     components.Quoter,
		indicators: components.Indicators,
		inv:        components.Inventory,
		gate:       components.Gate,
		guards:     components.Guards,
		reconciler: components.Reconciler,
		prices:     components.Prices,
		klines:     components.Klines,
		alerts:     components.Alerts,
		logger:     components.Logger,
		state:      StateColdStart,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}, nil
}

// Start 启动引擎主循环
func (e *QuoteEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateStopped {
		e.stopChan = make(chan struct{})
		e.doneChan = make(chan struct{})
	} else if e.state != StateColdStart {
		e.mu.Unlock()
		return fmt.Errorf("engine already started (state: %s)", e.state)
	}
	e.stats.StartTime = time.Now()
	e.mu.Unlock()

	e.logger.Info("Quote engine starting",
		zap.String("symbol", e.config.Symbol),
		zap.Duration("refresh_interval", e.config.RefreshInterval))

	go e.run(ctx)

	return nil
}

// Stop 停止引擎并撤销所有挂单
func (e *QuoteEngine) Stop() error {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	select {
	case <-e.stopChan:
	default:
		close(e.stopChan)
	}

	select {
	case <-e.doneChan:
	case <-time.After(10 * time.Second):
		e.logger.Warn("Timeout waiting for engine to stop")
	}

	// 退出前清空挂单
	cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := e.reconciler.Apply(cancelCtx, strategy.Decision{}); err != nil {
		e.logger.Error("Failed to cancel orders on shutdown", zap.Error(err))
	}

	e.mu.Lock()
	e.state = StateStopped
	e.mu.Unlock()

	e.logger.Info("Quote engine stopped")

	return nil
}

// run 主事件循环
func (e *QuoteEngine) run(ctx context.Context) {
	defer close(e.doneChan)

	ticker := time.NewTicker(e.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Context done, stopping engine")
			return
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.onTick(ctx)
		}
	}
}

// onTick 从行情源取参考价并执行一个周期
func (e *QuoteEngine) onTick(ctx context.Context) {
	price, ok := e.prices.MidPrice()
	if !ok {
		e.logger.Debug("No reference price available, skipping cycle")
		e.recordSkip()
		return
	}
	if err := e.Cycle(ctx, price, time.Now().UTC()); err != nil {
		e.logger.LogError(err, map[string]interface{}{"stage": "cycle"})
	}
}

// Cycle 执行一个完整的报价周期：
// 指标推进 → 止损评估 → 库存快照 → 决策 → 风控预检 → 对账执行。
// 回放与实时路径共用同一入口。
func (e *QuoteEngine) Cycle(ctx context.Context, price float64, ts time.Time) error {
	if price <= 0 {
		e.recordSkip()
		return fmt.Errorf("invalid reference price: %f", price)
	}

	metrics.CyclesTotal.Inc()
	e.stats.mu.Lock()
	e.stats.TotalCycles++
	e.stats.LastCycleTime = ts
	e.stats.mu.Unlock()

	// 1. 指标推进
	var ind indicator.State
	if e.klines != nil {
		if closed := e.klines.OnPrice(price, ts); closed != nil {
			ind = e.indicators.UpdateKline(*closed)
		} else {
			ind = e.currentIndicators()
		}
	} else {
		ind = e.indicators.UpdatePrice(price, ts)
	}
	if ind.ATRReady {
		metrics.ATRCurrent.Set(ind.ATR)
	}
	if ind.SMAReady && ind.SMA > 0 {
		metrics.TrendFactor.Set((price - ind.SMA) / ind.SMA)
	}

	// 2. 止损评估
	wasHalted := e.gate.Halted()
	riskState := e.gate.Evaluate(price)
	if riskState.Halted && !wasHalted {
		metrics.HaltsTotal.Inc()
		metrics.HaltState.Set(1)
		e.logger.LogRisk("stop_loss_halt", map[string]interface{}{
			"symbol":     e.config.Symbol,
			"last_price": riskState.LastPrice,
			"price":      price,
		})
		if e.alerts != nil {
			_ = e.alerts.SendCritical("stop loss halt", map[string]interface{}{
				"symbol": e.config.Symbol,
				"price":  price,
			})
		}
	}
	e.setState(riskState, ind)

	// 3. 库存快照：熔断时不需要组合估值，直接清空挂单
	if riskState.Halted {
		return e.apply(ctx, strategy.Decision{}, price, 0, 0)
	}

	snap := e.inv.Snapshot(price)
	pct, err := inventory.Ratio(snap)
	if err != nil {
		// 组合无法估值，保守起见跳过本周期，保留现有挂单
		e.recordSkip()
		metrics.CycleErrors.WithLabelValues("inventory").Inc()
		return fmt.Errorf("inventory snapshot: %w", err)
	}

	// 4. 决策
	d := e.quoter.Decide(strategy.Inputs{
		ReferencePrice: price,
		Indicators:     ind,
		InventoryPct:   pct,
		BaseBalance:    snap.BaseBalance,
		Halted:         false,
	})

	// 5. 风控预检：任一边未过检直接压制该边
	d = e.applyGuards(d)

	// 6. 对账执行
	cfg := e.quoter.Config()
	spread := strategy.EffectiveSpread(cfg.BaseSpreadPct, ind.ATR, price, cfg.VolatilityMultiplier, ind.ATRReady)
	return e.apply(ctx, d, price, pct, spread)
}

// apply 将决策交给对账器并刷新统计指标
func (e *QuoteEngine) apply(ctx context.Context, d strategy.Decision, price, pct, spread float64) error {
	res, err := e.reconciler.Apply(ctx, d)

	e.stats.mu.Lock()
	e.stats.TotalPlaced += int64(res.Placed)
	e.stats.TotalCanceled += int64(res.Canceled)
	e.stats.mu.Unlock()

	if res.Placed > 0 {
		metrics.QuotesPlaced.Add(float64(res.Placed))
	}
	if res.Canceled > 0 {
		metrics.QuotesCanceled.Add(float64(res.Canceled))
	}
	metrics.UpdateQuoteMetrics(price, spread, pct)

	if err != nil {
		e.recordError()
		metrics.CycleErrors.WithLabelValues("reconcile").Inc()
		return fmt.Errorf("reconcile: %w", err)
	}

	e.logger.LogQuote("cycle", map[string]interface{}{
		"symbol":   e.config.Symbol,
		"price":    price,
		"placed":   res.Placed,
		"canceled": res.Canceled,
		"kept":     res.Kept,
		"empty":    d.Empty(),
	})
	return nil
}

// applyGuards 对每一边做下单前风控检查，未通过的一边被压制
func (e *QuoteEngine) applyGuards(d strategy.Decision) strategy.Decision {
	if e.guards == nil {
		return d
	}
	if d.Bid != nil {
		if err := e.guards.PreOrder(e.config.Symbol, d.Bid.Size, d.Bid.Price); err != nil {
			e.logger.LogRisk("bid_rejected", map[string]interface{}{"error": err.Error()})
			metrics.SidesSuppressed.WithLabelValues("BUY").Inc()
			d.Bid = nil
		}
	}
	if d.Ask != nil {
		if err := e.guards.PreOrder(e.config.Symbol, -d.Ask.Size, d.Ask.Price); err != nil {
			e.logger.LogRisk("ask_rejected", map[string]interface{}{"error": err.Error()})
			metrics.SidesSuppressed.WithLabelValues("SELL").Inc()
			d.Ask = nil
		}
	}
	return d
}

// ResetHalt 人工复位止损熔断，引擎回到冷启动状态重新预热。
func (e *QuoteEngine) ResetHalt() {
	e.gate.Reset()
	e.mu.Lock()
	e.state = StateColdStart
	e.mu.Unlock()
	metrics.HaltState.Set(0)
	e.logger.LogRisk("halt_reset", map[string]interface{}{"symbol": e.config.Symbol})
}

// setState 按止损与指标状态推进引擎状态机。
// 指标窗口未满前保持 COLD_START，此阶段仍会以中性参数报价。
func (e *QuoteEngine) setState(rs risk.State, ind indicator.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case rs.Halted:
		e.state = StateHalted
	case rs.HasLast && ind.SMAReady && ind.ATRReady:
		e.state = StateActive
	default:
		e.state = StateColdStart
	}
}

func (e *QuoteEngine) currentIndicators() indicator.State {
	var st indicator.State
	st.SMA, st.SMAReady = e.indicators.SMA()
	st.ATR, st.ATRReady = e.indicators.ATR()
	return st
}

// GetState 获取引擎状态
func (e *QuoteEngine) GetState() EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// GetStatistics 获取统计信息
func (e *QuoteEngine) GetStatistics() Statistics {
	e.stats.mu.RLock()
	defer e.stats.mu.RUnlock()
	return Statistics{
		StartTime:     e.stats.StartTime,
		TotalCycles:   e.stats.TotalCycles,
		TotalPlaced:   e.stats.TotalPlaced,
		TotalCanceled: e.stats.TotalCanceled,
		TotalSkipped:  e.stats.TotalSkipped,
		TotalErrors:   e.stats.TotalErrors,
		LastCycleTime: e.stats.LastCycleTime,
	}
}

func (e *QuoteEngine) recordError() {
	e.stats.mu.Lock()
	e.stats.TotalErrors++
	e.stats.mu.Unlock()
}

func (e *QuoteEngine) recordSkip() {
	e.stats.mu.Lock()
	e.stats.TotalSkipped++
	e.stats.mu.Unlock()
}

// validateConfig 验证配置
func validateConfig(cfg Config) error {
	if cfg.Symbol == "" {
		return errors.New("symbol is required")
	}
	if cfg.RefreshInterval < 0 {
		return errors.New("refresh_interval must be >= 0")
	}
	return nil
}

// validateComponents 验证组件
func validateComponents(comp Components) error {
	if comp.Quoter == nil {
		return errors.New("quoter is required")
	}
	if comp.Indicators == nil {
		return errors.New("indicators is required")
	}
	if comp.Inventory == nil {
		return errors.New("inventory is required")
	}
	if comp.Gate == nil {
		return errors.New("stop loss gate is required")
	}
	if comp.Reconciler == nil {
		return errors.New("reconciler is required")
	}
	if comp.Prices == nil {
		return errors.New("price source is required")
	}
	if comp.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}
