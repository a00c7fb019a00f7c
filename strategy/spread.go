package strategy

// EffectiveSpread 由基础价差与波动率项合成本周期的有效价差（比例）。
// ATR 未就绪时波动率项为 0，退化为基础价差。
func EffectiveSpread(basePct, atr, refPrice, volMultiplier float64, atrReady bool) float64 {
	spread := basePct
	if atrReady && refPrice > 0 {
		spread += (atr / refPrice) * volMultiplier
	}
	if spread < 0 {
		return 0
	}
	return spread
}
