package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pmm-quoter-go/metrics"
)

// 行情超过该时长未更新视为陈旧，MidPrice 返回 ok=false。
const defaultStaleAfter = 10 * time.Second

// 重连退避参数；连接存活超过 feedHealthyAge 视为已恢复，退避归位。
const (
	feedInitialBackoff = time.Second
	feedMaxBackoff     = 30 * time.Second
	feedHealthyAge     = time.Minute
)

// BookTickerFeed 订阅单一交易对的 bookTicker 流并维护最新买卖价。
// 连接断开后按指数退避自动重连；读取循环与消费方通过快照解耦。
type BookTickerFeed struct {
	endpoint   string // 例如 wss://fstream.binance.com
	symbol     string
	staleAfter time.Duration
	dialer     *websocket.Dialer
	logger     *zap.Logger

	mu        sync.RWMutex
	bestBid   float64
	bestAsk   float64
	updatedAt time.Time

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewBookTickerFeed 创建行情订阅。endpoint 为 WS 基地址。
func NewBookTickerFeed(endpoint, symbol string, logger *zap.Logger) (*BookTickerFeed, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint required")
	}
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookTickerFeed{
		endpoint:   endpoint,
		symbol:     symbol,
		staleAfter: defaultStaleAfter,
		dialer:     websocket.DefaultDialer,
		logger:     logger,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}, nil
}

// Start 启动后台读取循环。
func (f *BookTickerFeed) Start(ctx context.Context) {
	go f.run(ctx)
}

// Stop 关闭读取循环。
func (f *BookTickerFeed) Stop() {
	select {
	case <-f.stopChan:
	default:
		close(f.stopChan)
	}
	<-f.doneChan
}

// MidPrice 返回 (bid+ask)/2；行情陈旧或尚未收到任何报价时 ok=false。
func (f *BookTickerFeed) MidPrice() (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.bestBid <= 0 || f.bestAsk <= 0 {
		return 0, false
	}
	if time.Since(f.updatedAt) > f.staleAfter {
		return 0, false
	}
	return (f.bestBid + f.bestAsk) / 2, true
}

// BestBidAsk 返回最优买卖价快照。
func (f *BookTickerFeed) BestBidAsk() (bid, ask float64, updatedAt time.Time) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bestBid, f.bestAsk, f.updatedAt
}

func (f *BookTickerFeed) streamURL() string {
	stream := strings.ToLower(f.symbol) + "@bookTicker"
	u := url.URL{
		Scheme: "wss",
		Host:   strings.TrimPrefix(f.endpoint, "wss://"),
		Path:   "/stream",
	}
	q := u.Query()
	q.Set("streams", stream)
	u.RawQuery = q.Encode()
	return u.String()
}

// run 带退避的重连循环。
func (f *BookTickerFeed) run(ctx context.Context) {
	defer close(f.doneChan)

	var backoff time.Duration

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopChan:
			return
		default:
		}

		connectedAt := time.Now()
		if err := f.readLoop(ctx); err != nil {
			f.logger.Warn("bookTicker stream disconnected",
				zap.String("symbol", f.symbol),
				zap.Error(err))
			metrics.FeedReconnects.Inc()
		}
		backoff = nextBackoff(backoff, time.Since(connectedAt))

		select {
		case <-ctx.Done():
			return
		case <-f.stopChan:
			return
		case <-time.After(backoff):
		}
	}
}

// nextBackoff 计算下一次重连前的等待时长。
// 连接存活够久说明此前已恢复正常，从初始退避重来；否则翻倍封顶。
func nextBackoff(cur, connectedFor time.Duration) time.Duration {
	if connectedFor >= feedHealthyAge {
		return feedInitialBackoff
	}
	next := cur * 2
	if next < feedInitialBackoff {
		next = feedInitialBackoff
	}
	if next > feedMaxBackoff {
		next = feedMaxBackoff
	}
	return next
}

// readLoop 建立一次连接并持续读取，返回时由外层决定重连。
func (f *BookTickerFeed) readLoop(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	f.logger.Info("bookTicker stream connected", zap.String("symbol", f.symbol))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.stopChan:
			return nil
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		symbol, bid, ask, err := ParseBookTicker(message)
		if err != nil {
			f.logger.Debug("skipping unparseable message", zap.Error(err))
			continue
		}
		if !strings.EqualFold(symbol, f.symbol) {
			continue
		}

		f.mu.Lock()
		f.bestBid = bid
		f.bestAsk = ask
		f.updatedAt = time.Now()
		f.mu.Unlock()
	}
}
