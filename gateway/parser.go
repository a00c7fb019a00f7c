package gateway

import (
	"encoding/json"
	"fmt"
)

// CombinedMessage 对应 binance combined stream 包装。
type CombinedMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// BookTicker 提取 bookTicker 消息的核心字段。
type BookTicker struct {
	Symbol string      `json:"s"`
	Bid    json.Number `json:"b"`
	Ask    json.Number `json:"a"`
}

// ParseBookTicker 解析 combined stream 的 bookTicker 消息，返回符号与最优买卖价。
func ParseBookTicker(raw []byte) (symbol string, bestBid, bestAsk float64, err error) {
	var msg CombinedMessage
	if err = json.Unmarshal(raw, &msg); err != nil {
		return
	}
	var bt BookTicker
	if err = json.Unmarshal(msg.Data, &bt); err != nil {
		return
	}
	symbol = bt.Symbol
	if bt.Bid != "" {
		if bestBid, err = bt.Bid.Float64(); err != nil {
			return
		}
	}
	if bt.Ask != "" {
		if bestAsk, err = bt.Ask.Float64(); err != nil {
			return
		}
	}
	if bestBid <= 0 || bestAsk <= 0 {
		err = fmt.Errorf("bookTicker missing prices: bid=%f ask=%f", bestBid, bestAsk)
	}
	return
}
