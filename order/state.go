package order

// Status represents order lifecycle.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusAck      Status = "ACK"
	StatusPartial  Status = "PARTIAL"
	StatusFilled   Status = "FILLED"
	StatusCanceled Status = "CANCELED"
	StatusRejected Status = "REJECTED"
)

// Side 订单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Order holds a resting quote order.
type Order struct {
	ID         string
	ExchangeID string // 交易所回传的订单号，撤单时优先使用
	Symbol     string
	Side       Side
	Price      float64
	Quantity   float64
	Status     Status
	LastError  string
}

// Active reports whether the order may still rest on the book.
func (o *Order) Active() bool {
	switch o.Status {
	case StatusNew, StatusAck, StatusPartial:
		return true
	default:
		return false
	}
}
