// Package strategy holds the quote decision core: a pure computation
// from market/portfolio state to the pair of desired resting orders.
// It owns no I/O and no clock; the engine feeds it one Inputs value per
// cycle and applies the Decision through the order layer.
package strategy

import (
	"errors"
	"fmt"
)

// Config 决策核心参数，进程生命周期内只读；调参等同于重建实例。
type Config struct {
	BaseSpreadPct        float64 // 基础价差（比例，如 0.002 = 0.2%）
	BaseOrderSize        float64 // 双边基础下单数量（基础币）
	VolatilityMultiplier float64 // ATR 价差放大系数
	MaxInventoryPct      float64 // 库存占比上限，(0,1)
	MaxInventory         float64 // 基础币绝对上限，0 表示不启用
}

var errConfig = errors.New("invalid quoter config")

// Validate 在构造时做一次域检查；配置不可变，之后不会再失败。
func (c Config) Validate() error {
	if c.BaseSpreadPct < 0 {
		return fmt.Errorf("%w: baseSpreadPct must be >= 0", errConfig)
	}
	if c.BaseOrderSize <= 0 {
		return fmt.Errorf("%w: baseOrderSize must be > 0", errConfig)
	}
	if c.VolatilityMultiplier < 0 {
		return fmt.Errorf("%w: volatilityMultiplier must be >= 0", errConfig)
	}
	if c.MaxInventoryPct <= 0 || c.MaxInventoryPct >= 1 {
		return fmt.Errorf("%w: maxInventoryPct must be in (0,1)", errConfig)
	}
	if c.MaxInventory < 0 {
		return fmt.Errorf("%w: maxInventory must be >= 0", errConfig)
	}
	return nil
}

// Quoter 报价决策核心。
type Quoter struct {
	cfg Config
}

func NewQuoter(cfg Config) (*Quoter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Quoter{cfg: cfg}, nil
}

// Decide computes the desired order pair for one cycle.
//
// Order of operations: halt short-circuit, volatility spread, price
// placement, trend damping, inventory-ratio caps, absolute cap. The
// computation is pure; identical inputs yield identical decisions.
func (q *Quoter) Decide(in Inputs) Decision {
	if in.Halted {
		return Decision{}
	}

	spread := EffectiveSpread(
		q.cfg.BaseSpreadPct,
		in.Indicators.ATR,
		in.ReferencePrice,
		q.cfg.VolatilityMultiplier,
		in.Indicators.ATRReady,
	)
	// spread 为 0 时 bid == ask == ref，允许的退化情形。
	bidPrice := in.ReferencePrice * (1 - spread/2)
	askPrice := in.ReferencePrice * (1 + spread/2)

	buySize := q.cfg.BaseOrderSize
	sellSize := q.cfg.BaseOrderSize

	// 趋势衰减：上涨趋势减买、下跌趋势减卖，tf=0 时无影响。
	if in.Indicators.SMAReady && in.Indicators.SMA > 0 {
		tf := (in.ReferencePrice - in.Indicators.SMA) / in.Indicators.SMA
		buySize *= clamp01(1 - tf)
		sellSize *= clamp01(1 + tf)
	}

	// 库存占比约束。maxPct < 0.5 配置下两个条件可能同时成立，
	// 此时双边都被压制（宁可停止报价，不视为错误）。
	if in.InventoryPct > q.cfg.MaxInventoryPct {
		buySize = 0
	}
	if in.InventoryPct < 1-q.cfg.MaxInventoryPct {
		sellSize = 0
	}

	// 基础币绝对上限优先于占比规则。
	if q.cfg.MaxInventory > 0 && in.BaseBalance >= q.cfg.MaxInventory {
		buySize = 0
	}

	var d Decision
	if buySize > 0 {
		d.Bid = &Level{Price: bidPrice, Size: buySize}
	}
	if sellSize > 0 {
		d.Ask = &Level{Price: askPrice, Size: sellSize}
	}
	return d
}

// Config returns the immutable configuration the quoter was built with.
func (q *Quoter) Config() Config {
	return q.cfg
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
