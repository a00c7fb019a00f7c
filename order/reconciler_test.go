package order

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"pmm-quoter-go/strategy"
)

// paperGateway 纸面网关：记录动作，不触达任何交易所。
type paperGateway struct {
	mu       sync.Mutex
	placed   []Order
	canceled []string
	failNext error
}

func (g *paperGateway) Place(ctx context.Context, o Order) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failNext != nil {
		err := g.failNext
		g.failNext = nil
		return "", err
	}
	g.placed = append(g.placed, o)
	return o.ID, nil
}

func (g *paperGateway) Cancel(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.canceled = append(g.canceled, id)
	return nil
}

func newTestReconciler(gw *paperGateway) (*Reconciler, *Manager) {
	mgr := NewManager(gw)
	rec := NewReconciler(mgr, ReconcilerConfig{
		Symbol:         "ETHUSDT",
		Constraints:    Constraints{TickSize: 0.1, StepSize: 0.001},
		ToleranceTicks: 1,
	})
	return rec, mgr
}

func level(p, s float64) *strategy.Level { return &strategy.Level{Price: p, Size: s} }

func TestReconcilerPlacesBothSides(t *testing.T) {
	gw := &paperGateway{}
	rec, _ := newTestReconciler(gw)

	res, err := rec.Apply(context.Background(), strategy.Decision{Bid: level(99.93, 10), Ask: level(100.17, 10)})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if res.Placed != 2 || res.Canceled != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	// 价格按 tick 对齐：买向下、卖向上。
	for _, o := range gw.placed {
		switch o.Side {
		case SideBuy:
			if math.Abs(o.Price-99.9) > 1e-9 {
				t.Fatalf("bid not floored to tick: %f", o.Price)
			}
		case SideSell:
			if math.Abs(o.Price-100.2) > 1e-9 {
				t.Fatalf("ask not ceiled to tick: %f", o.Price)
			}
		}
	}
}

func TestReconcilerKeepsOrderWithinTolerance(t *testing.T) {
	gw := &paperGateway{}
	rec, _ := newTestReconciler(gw)

	if _, err := rec.Apply(context.Background(), strategy.Decision{Bid: level(99.9, 10), Ask: level(100.2, 10)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// 目标价移动一个 tick 以内：保留原挂单。
	res, err := rec.Apply(context.Background(), strategy.Decision{Bid: level(99.8, 10), Ask: level(100.2, 10)})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if res.Kept != 2 || res.Placed != 0 || res.Canceled != 0 {
		t.Fatalf("expected both kept, got %+v", res)
	}
}

func TestReconcilerReplacesDriftedOrder(t *testing.T) {
	gw := &paperGateway{}
	rec, _ := newTestReconciler(gw)

	if _, err := rec.Apply(context.Background(), strategy.Decision{Bid: level(99.9, 10), Ask: level(100.2, 10)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := rec.Apply(context.Background(), strategy.Decision{Bid: level(98.5, 10), Ask: level(100.2, 10)})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if res.Canceled != 1 || res.Placed != 1 || res.Kept != 1 {
		t.Fatalf("expected bid replaced and ask kept, got %+v", res)
	}
}

func TestReconcilerAbsentSideCancelsAll(t *testing.T) {
	gw := &paperGateway{}
	rec, mgr := newTestReconciler(gw)

	if _, err := rec.Apply(context.Background(), strategy.Decision{Bid: level(99.9, 10), Ask: level(100.2, 10)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// 熔断周期：双边缺席，全部撤掉。
	res, err := rec.Apply(context.Background(), strategy.Decision{})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if res.Canceled != 2 || res.Placed != 0 {
		t.Fatalf("expected all canceled, got %+v", res)
	}
	if got := len(mgr.Active()); got != 0 {
		t.Fatalf("expected no resting orders, got %d", got)
	}
}

func TestReconcilerMinNotional(t *testing.T) {
	gw := &paperGateway{}
	mgr := NewManager(gw)
	rec := NewReconciler(mgr, ReconcilerConfig{
		Symbol:      "ETHUSDT",
		Constraints: Constraints{TickSize: 0.1, StepSize: 0.001, MinNotional: 10},
	})
	_, err := rec.Apply(context.Background(), strategy.Decision{Bid: level(99.9, 0.05)})
	if err == nil {
		t.Fatalf("expected min notional rejection")
	}
	if len(gw.placed) != 0 {
		t.Fatalf("undersized order must not reach the gateway")
	}
}

func TestManagerFillCallback(t *testing.T) {
	gw := &paperGateway{}
	mgr := NewManager(gw)

	var gotSide Side
	var gotQty float64
	mgr.OnFill(func(side Side, price, qty float64) {
		gotSide = side
		gotQty = qty
	})

	o, err := mgr.Submit(context.Background(), Order{Symbol: "ETHUSDT", Side: SideSell, Price: 100, Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if err := mgr.Update(o.ID, StatusFilled); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if gotSide != SideSell || gotQty != -2 {
		t.Fatalf("fill callback got side=%s qty=%f", gotSide, gotQty)
	}
}

// exchangeGateway 模拟交易所分配订单号的网关。
type exchangeGateway struct {
	placeID    string
	canceledID string
}

func (g *exchangeGateway) Place(ctx context.Context, o Order) (string, error) {
	return g.placeID, nil
}

func (g *exchangeGateway) Cancel(ctx context.Context, id string) error {
	g.canceledID = id
	return nil
}

func TestManagerCancelsWithExchangeID(t *testing.T) {
	gw := &exchangeGateway{placeID: "987654321"}
	mgr := NewManager(gw)

	o, err := mgr.Submit(context.Background(), Order{Symbol: "ETHUSDT", Side: SideBuy, Price: 100, Quantity: 1})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if o.ExchangeID != "987654321" {
		t.Fatalf("exchange id not recorded: %+v", o)
	}
	// 撤单必须携带交易所订单号，而不是本地编号
	if err := mgr.Cancel(context.Background(), o.ID); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if gw.canceledID != "987654321" {
		t.Fatalf("cancel sent local id %q to the exchange", gw.canceledID)
	}
}

func TestManagerPrunesTerminalOrders(t *testing.T) {
	gw := &paperGateway{}
	mgr := NewManager(gw)

	a, _ := mgr.Submit(context.Background(), Order{Symbol: "ETHUSDT", Side: SideBuy, Price: 100, Quantity: 1})
	b, _ := mgr.Submit(context.Background(), Order{Symbol: "ETHUSDT", Side: SideSell, Price: 101, Quantity: 1})

	if err := mgr.Cancel(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if err := mgr.Update(b.ID, StatusFilled); err != nil {
		t.Fatalf("unexpected: %v", err)
	}

	// 终态订单出表：后续查询视为未知
	if err := mgr.Update(a.ID, StatusFilled); !errors.Is(err, ErrUnknownOrder) {
		t.Fatalf("canceled order still tracked: %v", err)
	}
	if err := mgr.Update(b.ID, StatusCanceled); !errors.Is(err, ErrUnknownOrder) {
		t.Fatalf("filled order still tracked: %v", err)
	}
	if len(mgr.Active()) != 0 {
		t.Fatalf("expected empty book")
	}
}

func TestManagerRejectedOrderNotActive(t *testing.T) {
	gw := &paperGateway{failNext: errors.New("down")}
	mgr := NewManager(gw)
	if _, err := mgr.Submit(context.Background(), Order{Symbol: "ETHUSDT", Side: SideBuy, Price: 100, Quantity: 1}); err == nil {
		t.Fatalf("expected gateway error")
	}
	if len(mgr.Active()) != 0 {
		t.Fatalf("rejected order must not be active")
	}
}
