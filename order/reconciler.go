package order

import (
	"context"
	"fmt"

	"pmm-quoter-go/strategy"
)

// Reconciler 将决策核心输出的目标挂单与本地挂单对齐：
// 目标缺席的一边全部撤掉，价格漂移超出容忍度的挂单先撤后补。
type Reconciler struct {
	symbol      string
	mgr         *Manager
	constraints Constraints
	// 容忍的价格偏差（tick 数）；在容忍范围内保留原挂单以减少撤换。
	toleranceTicks float64
}

// ReconcilerConfig 对齐器配置。
type ReconcilerConfig struct {
	Symbol         string
	Constraints    Constraints
	ToleranceTicks float64
}

func NewReconciler(mgr *Manager, cfg ReconcilerConfig) *Reconciler {
	if cfg.ToleranceTicks < 0 {
		cfg.ToleranceTicks = 0
	}
	return &Reconciler{
		symbol:         cfg.Symbol,
		mgr:            mgr,
		constraints:    cfg.Constraints,
		toleranceTicks: cfg.ToleranceTicks,
	}
}

// Result 一次对齐的动作统计。
type Result struct {
	Placed   int
	Canceled int
	Kept     int
}

// Apply 用一个周期的决策驱动撤单/下单。
// 决策双边缺席（冷却或熔断）意味着撤掉所有挂单后空仓等待。
func (r *Reconciler) Apply(ctx context.Context, d strategy.Decision) (Result, error) {
	var res Result
	var firstErr error

	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(r.applySide(ctx, SideBuy, d.Bid, &res))
	record(r.applySide(ctx, SideSell, d.Ask, &res))
	return res, firstErr
}

func (r *Reconciler) applySide(ctx context.Context, side Side, desired *strategy.Level, res *Result) error {
	resting := r.mgr.ActiveBySide(side)

	if desired == nil {
		return r.cancelAll(ctx, resting, res)
	}

	price, qty := r.constraints.Normalize(side, desired.Price, desired.Size)
	if err := r.constraints.Check(price, qty); err != nil {
		// 归一化后不满足最小限制：该边放弃报价，但已有挂单要撤掉。
		if cerr := r.cancelAll(ctx, resting, res); cerr != nil {
			return cerr
		}
		return fmt.Errorf("constraint for %s: %w", side, err)
	}

	// 已有一笔价格在容忍范围内且数量一致的挂单时保留它。
	kept := false
	for _, o := range resting {
		if !kept && r.withinTolerance(o.Price, price) && o.Quantity == qty {
			kept = true
			res.Kept++
			continue
		}
		if err := r.mgr.Cancel(ctx, o.ID); err != nil {
			return fmt.Errorf("cancel %s: %w", o.ID, err)
		}
		res.Canceled++
	}
	if kept {
		return nil
	}

	if _, err := r.mgr.Submit(ctx, Order{
		Symbol:   r.symbol,
		Side:     side,
		Price:    price,
		Quantity: qty,
	}); err != nil {
		return fmt.Errorf("place %s: %w", side, err)
	}
	res.Placed++
	return nil
}

func (r *Reconciler) cancelAll(ctx context.Context, resting []Order, res *Result) error {
	for _, o := range resting {
		if err := r.mgr.Cancel(ctx, o.ID); err != nil {
			return fmt.Errorf("cancel %s: %w", o.ID, err)
		}
		res.Canceled++
	}
	return nil
}

func (r *Reconciler) withinTolerance(restingPrice, desiredPrice float64) bool {
	diff := restingPrice - desiredPrice
	if diff < 0 {
		diff = -diff
	}
	if r.constraints.TickSize <= 0 {
		return diff == 0
	}
	return diff <= r.toleranceTicks*r.constraints.TickSize+epsilon
}
