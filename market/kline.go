package market

import "time"

// Kline represents one closed OHLC candle.
type Kline struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
	Ts    time.Time
}

// TrueRange 计算相对上一根收盘价的真实波幅。
func (k Kline) TrueRange(prevClose float64) float64 {
	tr := k.High - k.Low
	if d := abs(k.High - prevClose); d > tr {
		tr = d
	}
	if d := abs(k.Low - prevClose); d > tr {
		tr = d
	}
	return tr
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
