// Package metrics provides Prometheus metrics for the quoting engine
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CyclesTotal 报价周期总数
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_cycles_total",
		Help: "策略评估周期总数",
	})

	// QuotesPlaced 下单数量
	QuotesPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_orders_placed_total",
		Help: "策略下单数量",
	})

	// QuotesCanceled 撤单数量
	QuotesCanceled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_orders_canceled_total",
		Help: "策略撤单数量",
	})

	// SidesSuppressed 被库存约束压制的方向数量
	SidesSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quoter_sides_suppressed_total",
		Help: "被库存或风控压制的报价方向数量",
	}, []string{"side"})

	// HaltState 止损状态(0=active,1=halted)
	HaltState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_halt_state",
		Help: "止损状态(0=active,1=halted)",
	})

	// HaltsTotal 止损触发次数
	HaltsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_halts_total",
		Help: "止损触发总次数",
	})

	// EffectiveSpread 当前有效价差比例
	EffectiveSpread = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_effective_spread",
		Help: "当前有效价差比例",
	})

	// ReferencePrice 策略使用的参考价
	ReferencePrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_reference_price",
		Help: "策略使用的参考价格",
	})

	// InventoryPct 当前基础资产占组合价值比例
	InventoryPct = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_inventory_pct",
		Help: "基础资产占组合价值比例",
	})

	// ATRCurrent 当前 ATR 值
	ATRCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_atr",
		Help: "当前平均真实波幅",
	})

	// TrendFactor 当前趋势因子
	TrendFactor = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_trend_factor",
		Help: "当前趋势因子((price-sma)/sma)",
	})

	// CycleErrors 周期执行错误数量
	CycleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quoter_cycle_errors_total",
		Help: "周期执行错误数量",
	}, []string{"stage"})

	// FeedReconnects 行情重连次数
	FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_feed_reconnects_total",
		Help: "行情连接重连次数",
	})
)

// UpdateQuoteMetrics 批量更新一次评估周期的观测指标
func UpdateQuoteMetrics(refPrice, spread, inventoryPct float64) {
	ReferencePrice.Set(refPrice)
	EffectiveSpread.Set(spread)
	InventoryPct.Set(inventoryPct)
}

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
