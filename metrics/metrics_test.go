package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestUpdateQuoteMetrics(t *testing.T) {
	ReferencePrice.Set(0)
	EffectiveSpread.Set(0)
	InventoryPct.Set(0)

	UpdateQuoteMetrics(100.5, 0.012, 0.6)

	if testutil.ToFloat64(ReferencePrice) != 100.5 {
		t.Errorf("Expected ReferencePrice to be 100.5, got %f", testutil.ToFloat64(ReferencePrice))
	}

	if testutil.ToFloat64(EffectiveSpread) != 0.012 {
		t.Errorf("Expected EffectiveSpread to be 0.012, got %f", testutil.ToFloat64(EffectiveSpread))
	}

	if testutil.ToFloat64(InventoryPct) != 0.6 {
		t.Errorf("Expected InventoryPct to be 0.6, got %f", testutil.ToFloat64(InventoryPct))
	}
}

func TestHaltStateGauge(t *testing.T) {
	HaltState.Set(0)
	HaltState.Set(1)
	if testutil.ToFloat64(HaltState) != 1 {
		t.Errorf("Expected HaltState to be 1, got %f", testutil.ToFloat64(HaltState))
	}
}
