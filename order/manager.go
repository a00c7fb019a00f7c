package order

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Gateway 下单/撤单抽象；真实网关或 sim 的纸面网关均可实现。
// Place 返回交易所订单号，纸面网关返回空串由本地编号代替。
type Gateway interface {
	Place(ctx context.Context, o Order) (string, error)
	Cancel(ctx context.Context, orderID string) error
}

var ErrUnknownOrder = errors.New("unknown order")

// FillHandler 成交回调；qty 为正表示买入基础币。
type FillHandler func(side Side, price, qty float64)

// Manager 维护本地订单状态并通过 Gateway 下发。
type Manager struct {
	gw     Gateway
	mu     sync.RWMutex
	orders map[string]*Order
	onFill FillHandler
	seq    atomic.Int64
}

func NewManager(gw Gateway) *Manager {
	return &Manager{
		gw:     gw,
		orders: make(map[string]*Order),
	}
}

// OnFill 注册成交回调（如库存跟踪）。
func (m *Manager) OnFill(h FillHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFill = h
}

// Submit 同步下单并登记状态；交易所回传的订单号随单保存。
func (m *Manager) Submit(ctx context.Context, o Order) (*Order, error) {
	if o.ID == "" {
		o.ID = m.nextID()
	}
	o.Status = StatusNew
	stored := o
	m.mu.Lock()
	m.orders[o.ID] = &stored
	m.mu.Unlock()

	if m.gw != nil {
		eid, err := m.gw.Place(ctx, o)
		if err != nil {
			m.updateStatus(o.ID, StatusRejected, err)
			return nil, err
		}
		o.ExchangeID = eid
		o.Status = StatusAck
		m.mu.Lock()
		stored.ExchangeID = eid
		stored.Status = StatusAck
		m.mu.Unlock()
	}
	return &o, nil
}

// Cancel 撤单并标记状态。交易所侧用其回传的订单号撤，
// 本地编号只在交易所未分配编号时（纸面网关）使用。
func (m *Manager) Cancel(ctx context.Context, id string) error {
	m.mu.RLock()
	o, ok := m.orders[id]
	gwID := id
	if ok && o.ExchangeID != "" {
		gwID = o.ExchangeID
	}
	m.mu.RUnlock()
	if !ok {
		return ErrUnknownOrder
	}
	if m.gw != nil {
		if err := m.gw.Cancel(ctx, gwID); err != nil {
			return err
		}
	}
	return m.updateStatus(id, StatusCanceled, nil)
}

// Update 收到回报后更新状态；FILLED 触发成交回调。
func (m *Manager) Update(id string, st Status) error {
	m.mu.Lock()
	o, ok := m.orders[id]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownOrder
	}
	o.Status = st
	onFill := m.onFill
	filled := st == StatusFilled
	side, price, qty := o.Side, o.Price, o.Quantity
	if !o.Active() {
		delete(m.orders, id)
	}
	m.mu.Unlock()

	if filled && onFill != nil {
		signed := qty
		if side == SideSell {
			signed = -qty
		}
		onFill(side, price, signed)
	}
	return nil
}

// Active 返回仍挂在盘口的订单快照。
func (m *Manager) Active() []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		if o.Active() {
			out = append(out, *o)
		}
	}
	return out
}

// ActiveBySide 返回指定方向的挂单快照。
func (m *Manager) ActiveBySide(side Side) []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Order
	for _, o := range m.orders {
		if o.Active() && o.Side == side {
			out = append(out, *o)
		}
	}
	return out
}

func (m *Manager) updateStatus(id string, st Status, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrUnknownOrder
	}
	o.Status = st
	if err != nil {
		o.LastError = err.Error()
	}
	// 终态订单出表，长时间运行下表只保留在场挂单。
	if !o.Active() {
		delete(m.orders, id)
	}
	return nil
}

func (m *Manager) nextID() string {
	n := m.seq.Add(1)
	return "q-" + time.Now().UTC().Format("20060102150405") + "-" + strconv.FormatInt(n, 10)
}
