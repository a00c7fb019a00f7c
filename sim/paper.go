package sim

import (
	"context"
	"sync"

	"pmm-quoter-go/order"
)

// PaperGateway 纸面网关：下单/撤单只记数，不触达任何外部系统。
// 订单号由本地 Manager 分配（Place 返回空串）。
type PaperGateway struct {
	mu       sync.Mutex
	placed   int
	canceled int
}

func (g *PaperGateway) Place(ctx context.Context, o order.Order) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.placed++
	return "", nil
}

func (g *PaperGateway) Cancel(ctx context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.canceled++
	return nil
}

// Stats 返回累计下单/撤单次数。
func (g *PaperGateway) Stats() (placed, canceled int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.placed, g.canceled
}
