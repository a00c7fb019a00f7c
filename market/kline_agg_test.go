package market

import (
	"testing"
	"time"
)

func TestKlineAggregator(t *testing.T) {
	agg := NewKlineAggregator(time.Minute)
	ts := time.Unix(0, 0)
	if closed := agg.OnPrice(100, ts); closed != nil {
		t.Fatalf("should not close on first sample")
	}
	agg.OnPrice(102, ts.Add(10*time.Second))
	agg.OnPrice(99, ts.Add(20*time.Second))
	closed := agg.OnPrice(101, ts.Add(70*time.Second))
	if closed == nil {
		t.Fatalf("expected kline close")
	}
	if closed.Open != 100 || closed.High != 102 || closed.Low != 99 || closed.Close != 99 {
		t.Fatalf("unexpected kline %+v", closed)
	}

	cur, ok := agg.Current()
	if !ok || cur.Open != 101 {
		t.Fatalf("new candle should open at 101, got %+v ok=%v", cur, ok)
	}
}

func TestKlineTrueRange(t *testing.T) {
	cases := []struct {
		name      string
		k         Kline
		prevClose float64
		want      float64
	}{
		{"range dominates", Kline{High: 105, Low: 100}, 102, 5},
		{"gap up", Kline{High: 120, Low: 115}, 100, 20},
		{"gap down", Kline{High: 92, Low: 90}, 100, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.k.TrueRange(tc.prevClose); got != tc.want {
				t.Fatalf("TrueRange=%v want %v", got, tc.want)
			}
		})
	}
}
