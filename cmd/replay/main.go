package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"pmm-quoter-go/order"
	"pmm-quoter-go/sim"
	"pmm-quoter-go/strategy"
)

// 离线回放：随机游走或外部序列驱动完整报价链路，纸面网关成交。
// 用于参数调优与回归验证，不连接任何外部系统。
func main() {
	symbol := flag.String("symbol", "BTCUSDT", "trading symbol")
	ticks := flag.Int("ticks", 200, "number of price points to simulate")
	start := flag.Float64("start", 100, "starting price")
	vol := flag.Float64("vol", 0.3, "per-tick gaussian noise stddev")
	baseSpread := flag.Float64("baseSpread", 0.002, "base spread ratio")
	baseSize := flag.Float64("baseSize", 1, "base order size")
	volMult := flag.Float64("volMult", 1, "volatility spread multiplier")
	maxInvPct := flag.Float64("maxInvPct", 0.9, "max inventory ratio")
	stopLoss := flag.Float64("stopLoss", 0.1, "stop loss threshold")
	seed := flag.Int64("seed", 1, "random seed")
	fills := flag.Bool("fills", true, "simulate fills when price crosses a quote")
	flag.Parse()

	runner, err := sim.NewRunner(sim.Config{
		Symbol: *symbol,
		Quote: strategy.Config{
			BaseSpreadPct:        *baseSpread,
			BaseOrderSize:        *baseSize,
			VolatilityMultiplier: *volMult,
			MaxInventoryPct:      *maxInvPct,
		},
		StopLossPct:  *stopLoss,
		InitialBase:  1000,
		InitialQuote: 1000 * *start,
		Constraints: order.Constraints{
			TickSize: 0.01,
			StepSize: 0.001,
		},
		FillOnCross: *fills,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "build runner: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	prices := make([]float64, 0, *ticks)
	p := *start
	for i := 0; i < *ticks; i++ {
		p += rng.NormFloat64() * *vol
		if p < 1 {
			p = 1
		}
		prices = append(prices, p)
	}

	report, err := runner.Run(prices)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("cycles=%d fills=%d halted=%v state=%s\n",
		report.Cycles, report.Fills, report.Halted, report.FinalState)
	fmt.Printf("final base=%.4f unrealized pnl=%.4f\n", report.FinalBase, report.FinalPnL)
	if report.FillStats.AnalyzedFills > 0 {
		fmt.Printf("markout avg=%.6f adverse=%.2f%% (%d fills)\n",
			report.FillStats.AvgMarkout,
			report.FillStats.AdverseRate*100,
			report.FillStats.AnalyzedFills)
	}
}
