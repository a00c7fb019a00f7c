package order

import (
	"fmt"
	"math"
)

// Constraints 描述交易对的精度与最小名义限制。
type Constraints struct {
	TickSize    float64
	StepSize    float64
	MinQty      float64
	MinNotional float64
}

// epsilon 吸收除法产生的浮点误差，避免恰好整数倍时多退一格。
const epsilon = 1e-9

// Normalize 将目标价格/数量对齐到 tick/step：
// 买价向下、卖价向上取整，数量向下取整，避免越过目标价或超出预算。
func (c Constraints) Normalize(side Side, price, qty float64) (float64, float64) {
	if c.TickSize > 0 {
		ticks := price / c.TickSize
		if side == SideBuy {
			price = math.Floor(ticks+epsilon) * c.TickSize
		} else {
			price = math.Ceil(ticks-epsilon) * c.TickSize
		}
	}
	if c.StepSize > 0 {
		qty = math.Floor(qty/c.StepSize+epsilon) * c.StepSize
	}
	return price, qty
}

// Check 验证订单是否满足最小数量与最小名义。
func (c Constraints) Check(price, qty float64) error {
	if c.MinQty > 0 && qty < c.MinQty {
		return fmt.Errorf("qty %.8f < minQty %.8f", qty, c.MinQty)
	}
	if c.MinNotional > 0 && price*qty < c.MinNotional {
		return fmt.Errorf("notional %.8f < minNotional %.8f", price*qty, c.MinNotional)
	}
	return nil
}
