package posttrade

import (
	"testing"

	"pmm-quoter-go/order"
)

func TestAnalyzerMarksFillsOnNextReference(t *testing.T) {
	a := NewAnalyzer()
	a.OnFill(order.SideBuy, 100)
	a.OnReference(101)

	stats := a.Stats()
	if stats.TotalFills != 1 || stats.AnalyzedFills != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.AvgMarkout <= 0 {
		t.Fatalf("buy marked at higher price should be favorable, got %v", stats.AvgMarkout)
	}
	if stats.AdverseRate != 0 {
		t.Fatalf("no adverse fills expected, got %v", stats.AdverseRate)
	}
}

func TestAnalyzerAdverseSelection(t *testing.T) {
	a := NewAnalyzer()
	// 买入后价格下跌、卖出后价格上涨都是不利成交
	a.OnFill(order.SideBuy, 100)
	a.OnReference(99)
	a.OnFill(order.SideSell, 99)
	a.OnReference(100)

	stats := a.Stats()
	if stats.AnalyzedFills != 2 {
		t.Fatalf("expected 2 analyzed, got %d", stats.AnalyzedFills)
	}
	if stats.AdverseRate != 1 {
		t.Fatalf("both fills adverse, rate=%v", stats.AdverseRate)
	}
}

func TestAnalyzerUnmarkedFillsExcluded(t *testing.T) {
	a := NewAnalyzer()
	a.OnFill(order.SideBuy, 100)

	stats := a.Stats()
	if stats.TotalFills != 1 || stats.AnalyzedFills != 0 {
		t.Fatalf("unmarked fill should not be analyzed: %+v", stats)
	}
}

func TestAnalyzerReset(t *testing.T) {
	a := NewAnalyzer()
	a.OnFill(order.SideSell, 100)
	a.Reset()
	if got := a.Stats().TotalFills; got != 0 {
		t.Fatalf("expected empty after reset, got %d", got)
	}
}
