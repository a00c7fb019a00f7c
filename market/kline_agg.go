package market

import (
	"sync"
	"time"
)

// KlineAggregator 从参考价流生成固定周期的 Kline，供指标层计算真实波幅。
// 报价引擎只有一路价格流，没有逐笔成交，因此按价格采样聚合。
type KlineAggregator struct {
	Interval time.Duration
	mu       sync.Mutex
	current  *Kline
}

func NewKlineAggregator(interval time.Duration) *KlineAggregator {
	return &KlineAggregator{Interval: interval}
}

// OnPrice 用一个参考价样本更新当前 Kline；跨越周期边界时返回闭合的 Kline，否则返回 nil。
func (a *KlineAggregator) OnPrice(price float64, ts time.Time) *Kline {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil && ts.Sub(a.current.Ts) < a.Interval {
		if price > a.current.High {
			a.current.High = price
		}
		if price < a.current.Low {
			a.current.Low = price
		}
		a.current.Close = price
		return nil
	}

	closed := a.current
	a.current = &Kline{
		Open:  price,
		High:  price,
		Low:   price,
		Close: price,
		Ts:    ts,
	}
	return closed
}

// Current 返回正在聚合中的未闭合 Kline 的副本。
func (a *KlineAggregator) Current() (Kline, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return Kline{}, false
	}
	return *a.current, true
}
