// Package inventory computes how much of the portfolio sits in the base
// asset versus the quote asset. The ratio drives the quoter's
// inventory-skew adjustment.
package inventory

import "errors"

// ErrInvalidPortfolio 表示两边余额均为零，库存占比无定义；当周期跳过报价。
var ErrInvalidPortfolio = errors.New("invalid portfolio: both balances are zero")

// Snapshot 某一周期的账户快照，由外部喂入，核心只读。
type Snapshot struct {
	BaseBalance  float64
	QuoteBalance float64
	MidPrice     float64
}

// Ratio returns the base-asset share of total portfolio value:
// base*mid / (base*mid + quote). Returns ErrInvalidPortfolio when both
// balances are zero.
func Ratio(s Snapshot) (float64, error) {
	baseValue := s.BaseBalance * s.MidPrice
	total := baseValue + s.QuoteBalance
	if total == 0 {
		return 0, ErrInvalidPortfolio
	}
	return baseValue / total, nil
}
