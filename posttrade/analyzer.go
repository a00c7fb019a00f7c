// Package posttrade measures fill quality after the fact: for every fill
// it records the next reference price and reports how often the market
// moved against the quote (adverse selection).
package posttrade

import (
	"sync"

	"pmm-quoter-go/order"
)

// FillRecord 一笔成交及其后续标记价。
type FillRecord struct {
	Side      order.Side
	FillPrice float64
	Markout   float64 // 成交后首个参考价相对成交价的有利方向收益
	marked    bool
}

// Stats 汇总指标。
type Stats struct {
	TotalFills    int
	AnalyzedFills int
	// AdverseRate 成交后价格继续向不利方向移动的比例
	AdverseRate float64
	// AvgMarkout 平均标记收益（比例，正为有利）
	AvgMarkout float64
}

// Analyzer 逐笔登记成交，用随后到达的参考价做标记。
// 回放与实时路径都可驱动：OnFill 在成交回报时调用，
// OnReference 在每个新参考价到达时调用。
type Analyzer struct {
	mu    sync.Mutex
	fills []*FillRecord
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// OnFill 登记一笔成交，等待下一个参考价标记。
func (a *Analyzer) OnFill(side order.Side, price float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fills = append(a.fills, &FillRecord{Side: side, FillPrice: price})
}

// OnReference 用新参考价标记所有未标记的成交。
func (a *Analyzer) OnReference(ref float64) {
	if ref <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.fills {
		if r.marked {
			continue
		}
		if r.Side == order.SideBuy {
			// 买入后价格上行为有利
			r.Markout = (ref - r.FillPrice) / r.FillPrice
		} else {
			r.Markout = (r.FillPrice - ref) / r.FillPrice
		}
		r.marked = true
	}
}

// Stats 计算汇总指标。
func (a *Analyzer) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Stats{TotalFills: len(a.fills)}
	if len(a.fills) == 0 {
		return stats
	}

	var adverse int
	var total float64
	for _, r := range a.fills {
		if !r.marked {
			continue
		}
		stats.AnalyzedFills++
		total += r.Markout
		if r.Markout < 0 {
			adverse++
		}
	}
	if stats.AnalyzedFills > 0 {
		stats.AdverseRate = float64(adverse) / float64(stats.AnalyzedFills)
		stats.AvgMarkout = total / float64(stats.AnalyzedFills)
	}
	return stats
}

// Reset 清空记录。
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fills = nil
}
