// Package indicator maintains the rolling statistics the quoter consumes:
// a simple moving average over closing prices and an average true range
// over per-step true ranges. Until a window is full the corresponding
// indicator is reported as absent; callers treat absence as "no
// adjustment", it is the normal cold-start state rather than an error.
package indicator

import (
	"sync"
	"time"

	"pmm-quoter-go/market"
)

// State is the tracker output for one update.
type State struct {
	SMA      float64
	SMAReady bool
	ATR      float64
	ATRReady bool
}

// Tracker 维护 SMA 与 ATR 两个滚动窗口。
// ATR 采用真实波幅的简单移动平均（非指数平滑）。
type Tracker struct {
	mu        sync.Mutex
	closes    *window
	ranges    *window
	prevClose float64
	hasPrev   bool
}

// NewTracker creates a tracker with the given window lengths. Periods
// must be >= 1; config validation rejects anything else before the
// tracker is built.
func NewTracker(smaPeriod, atrPeriod int) *Tracker {
	return &Tracker{
		closes: newWindow(smaPeriod),
		ranges: newWindow(atrPeriod),
	}
}

// UpdatePrice 用单一价格流更新两个窗口。
// 没有蜡烛数据时以 |price-prevPrice| 作为真实波幅的近似。
func (t *Tracker) UpdatePrice(price float64, ts time.Time) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closes.Add(price)
	if t.hasPrev {
		tr := price - t.prevClose
		if tr < 0 {
			tr = -tr
		}
		t.ranges.Add(tr)
	}
	t.prevClose = price
	t.hasPrev = true
	return t.state()
}

// UpdateKline feeds a closed OHLC candle. The first candle only seeds
// prevClose; no true range exists without a prior close.
func (t *Tracker) UpdateKline(k market.Kline) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closes.Add(k.Close)
	if t.hasPrev {
		t.ranges.Add(k.TrueRange(t.prevClose))
	}
	t.prevClose = k.Close
	t.hasPrev = true
	return t.state()
}

// SMA returns the current simple moving average; ok is false before
// smaPeriod closes have been seen.
func (t *Tracker) SMA() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closes.Full() {
		return 0, false
	}
	return t.closes.Mean(), true
}

// ATR returns the current average true range; ok is false before
// atrPeriod true ranges (atrPeriod+1 prices) have been seen.
func (t *Tracker) ATR() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ranges.Full() {
		return 0, false
	}
	return t.ranges.Mean(), true
}

// state assembles the snapshot; caller must hold t.mu.
func (t *Tracker) state() State {
	s := State{}
	if t.closes.Full() {
		s.SMA = t.closes.Mean()
		s.SMAReady = true
	}
	if t.ranges.Full() {
		s.ATR = t.ranges.Mean()
		s.ATRReady = true
	}
	return s
}
