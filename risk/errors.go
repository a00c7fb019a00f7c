package risk

import "errors"

var (
	ErrHalted           = errors.New("trading halted by stop loss")
	ErrInventoryCap     = errors.New("absolute inventory cap reached")
	ErrNotionalExceed   = errors.New("order notional exceed")
	ErrInvalidThreshold = errors.New("invalid risk threshold")
)
