package strategy_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmm-quoter-go/indicator"
	"pmm-quoter-go/strategy"
)

func baseConfig() strategy.Config {
	return strategy.Config{
		BaseSpreadPct:        0.002,
		BaseOrderSize:        10,
		VolatilityMultiplier: 2,
		MaxInventoryPct:      0.5,
	}
}

func newQuoter(t *testing.T, cfg strategy.Config) *strategy.Quoter {
	t.Helper()
	q, err := strategy.NewQuoter(cfg)
	require.NoError(t, err)
	return q
}

// 对应基准用例：ref=100, sma=100, atr 缺失, spread=0.002, 库存恰在边界。
func TestDecideBaseline(t *testing.T) {
	q := newQuoter(t, baseConfig())
	d := q.Decide(strategy.Inputs{
		ReferencePrice: 100,
		Indicators:     indicator.State{SMA: 100, SMAReady: true},
		InventoryPct:   0.5,
	})

	require.NotNil(t, d.Bid)
	require.NotNil(t, d.Ask)
	assert.InDelta(t, 99.9, d.Bid.Price, 1e-9)
	assert.InDelta(t, 100.1, d.Ask.Price, 1e-9)
	assert.Equal(t, 10.0, d.Bid.Size)
	assert.Equal(t, 10.0, d.Ask.Size)
}

func TestDecideHaltedShortCircuits(t *testing.T) {
	q := newQuoter(t, baseConfig())
	d := q.Decide(strategy.Inputs{
		ReferencePrice: 100,
		InventoryPct:   0.5,
		Halted:         true,
	})
	assert.True(t, d.Empty())
}

func TestDecideVolatilityWidensSpread(t *testing.T) {
	q := newQuoter(t, baseConfig())
	in := strategy.Inputs{
		ReferencePrice: 100,
		Indicators:     indicator.State{ATR: 0.5, ATRReady: true},
		InventoryPct:   0.5,
	}
	d := q.Decide(in)
	require.NotNil(t, d.Bid)
	require.NotNil(t, d.Ask)

	// volSpread = (0.5/100)*2 = 0.01；有效价差 0.012。
	assert.InDelta(t, 100*(1-0.012/2), d.Bid.Price, 1e-9)
	assert.InDelta(t, 100*(1+0.012/2), d.Ask.Price, 1e-9)

	// ATR 未就绪时必须退回基础价差。
	in.Indicators.ATRReady = false
	dCold := q.Decide(in)
	assert.InDelta(t, 99.9, dCold.Bid.Price, 1e-9)
}

func TestDecideBidBelowAsk(t *testing.T) {
	q := newQuoter(t, baseConfig())
	for _, ref := range []float64{0.01, 1, 100, 50000} {
		d := q.Decide(strategy.Inputs{ReferencePrice: ref, InventoryPct: 0.5})
		require.NotNil(t, d.Bid)
		require.NotNil(t, d.Ask)
		assert.Less(t, d.Bid.Price, ref)
		assert.Greater(t, d.Ask.Price, ref)
	}
}

func TestDecideZeroSpreadDegenerate(t *testing.T) {
	cfg := baseConfig()
	cfg.BaseSpreadPct = 0
	q := newQuoter(t, cfg)
	d := q.Decide(strategy.Inputs{ReferencePrice: 100, InventoryPct: 0.5})
	require.NotNil(t, d.Bid)
	require.NotNil(t, d.Ask)
	// 价差为 0 时两边价格重合，数量仍按常规计算。
	assert.Equal(t, 100.0, d.Bid.Price)
	assert.Equal(t, 100.0, d.Ask.Price)
	assert.Equal(t, 10.0, d.Bid.Size)
}

func TestDecideTrendDamping(t *testing.T) {
	q := newQuoter(t, baseConfig())

	// 上涨趋势：ref 高于 SMA 10%，买量按 1-tf 衰减，卖量不变。
	up := q.Decide(strategy.Inputs{
		ReferencePrice: 110,
		Indicators:     indicator.State{SMA: 100, SMAReady: true},
		InventoryPct:   0.5,
	})
	require.NotNil(t, up.Bid)
	require.NotNil(t, up.Ask)
	assert.InDelta(t, 9, up.Bid.Size, 1e-9)
	assert.Equal(t, 10.0, up.Ask.Size)

	// 下跌趋势对称。
	down := q.Decide(strategy.Inputs{
		ReferencePrice: 90,
		Indicators:     indicator.State{SMA: 100, SMAReady: true},
		InventoryPct:   0.5,
	})
	require.NotNil(t, down.Bid)
	require.NotNil(t, down.Ask)
	assert.Equal(t, 10.0, down.Bid.Size)
	assert.InDelta(t, 9, down.Ask.Size, 1e-9)
}

func TestDecideExtremeTrendSuppressesSide(t *testing.T) {
	q := newQuoter(t, baseConfig())
	// tf = 1.2 → 买量衰减到 0，该边直接缺席。
	d := q.Decide(strategy.Inputs{
		ReferencePrice: 220,
		Indicators:     indicator.State{SMA: 100, SMAReady: true},
		InventoryPct:   0.5,
	})
	assert.Nil(t, d.Bid)
	require.NotNil(t, d.Ask)
}

func TestDecideTrendDampingMonotone(t *testing.T) {
	q := newQuoter(t, baseConfig())
	prev := math.Inf(1)
	for _, ref := range []float64{100, 102, 105, 110, 150} {
		d := q.Decide(strategy.Inputs{
			ReferencePrice: ref,
			Indicators:     indicator.State{SMA: 100, SMAReady: true},
			InventoryPct:   0.5,
		})
		size := 0.0
		if d.Bid != nil {
			size = d.Bid.Size
		}
		assert.LessOrEqual(t, size, prev, "buy size must not grow with the trend at ref=%f", ref)
		prev = size
	}
}

func TestDecideInventoryCaps(t *testing.T) {
	q := newQuoter(t, baseConfig())

	// 基础币过重：停买。
	heavy := q.Decide(strategy.Inputs{ReferencePrice: 100, InventoryPct: 0.6})
	assert.Nil(t, heavy.Bid)
	require.NotNil(t, heavy.Ask)

	// 计价币过重：停卖。
	light := q.Decide(strategy.Inputs{ReferencePrice: 100, InventoryPct: 0.3})
	require.NotNil(t, light.Bid)
	assert.Nil(t, light.Ask)

	// 边界值恰好不触发。
	edge := q.Decide(strategy.Inputs{ReferencePrice: 100, InventoryPct: 0.5})
	assert.NotNil(t, edge.Bid)
	assert.NotNil(t, edge.Ask)
}

// maxPct < 0.5 属于配置失误：两个占比条件可同时命中，双边压制而非报错。
func TestDecideMisconfiguredPctSuppressesBoth(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxInventoryPct = 0.3
	q := newQuoter(t, cfg)
	d := q.Decide(strategy.Inputs{ReferencePrice: 100, InventoryPct: 0.5})
	assert.True(t, d.Empty())
}

func TestDecideAbsoluteCap(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxInventory = 5
	q := newQuoter(t, cfg)

	d := q.Decide(strategy.Inputs{ReferencePrice: 100, InventoryPct: 0.5, BaseBalance: 5})
	assert.Nil(t, d.Bid, "absolute cap must force buy off even at neutral ratio")
	require.NotNil(t, d.Ask)

	d = q.Decide(strategy.Inputs{ReferencePrice: 100, InventoryPct: 0.5, BaseBalance: 4.9})
	assert.NotNil(t, d.Bid)
}

func TestDecideIdempotent(t *testing.T) {
	q := newQuoter(t, baseConfig())
	in := strategy.Inputs{
		ReferencePrice: 123.45,
		Indicators:     indicator.State{SMA: 120, SMAReady: true, ATR: 0.8, ATRReady: true},
		InventoryPct:   0.42,
		BaseBalance:    3,
	}
	first := q.Decide(in)
	second := q.Decide(in)
	assert.Equal(t, first, second)
}

func TestNewQuoterValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*strategy.Config)
	}{
		{"zero size", func(c *strategy.Config) { c.BaseOrderSize = 0 }},
		{"negative spread", func(c *strategy.Config) { c.BaseSpreadPct = -0.001 }},
		{"negative multiplier", func(c *strategy.Config) { c.VolatilityMultiplier = -1 }},
		{"pct zero", func(c *strategy.Config) { c.MaxInventoryPct = 0 }},
		{"pct one", func(c *strategy.Config) { c.MaxInventoryPct = 1 }},
		{"negative cap", func(c *strategy.Config) { c.MaxInventory = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(&cfg)
			_, err := strategy.NewQuoter(cfg)
			assert.Error(t, err)
		})
	}
}
