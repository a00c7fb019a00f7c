package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"pmm-quoter-go/order"
)

// timeNowMillis 签名时间戳来源，测试可替换。
var timeNowMillis = func() int64 { return time.Now().UnixMilli() }

// RESTGateway 通过签名 REST 接口下单/撤单，实现 order.Gateway。
// 默认不发起真实网络调用，HTTPClient 可注入 httptest。
type RESTGateway struct {
	BaseURL    string
	APIKey     string
	Secret     string
	Symbol     string
	HTTPClient *http.Client
	Limiter    RateLimiter // 可选：限制请求速率
}

type placeResp struct {
	OrderID string `json:"orderId"`
}

// Place 调用 /fapi/v1/order 下限价单，返回交易所订单号。
func (g *RESTGateway) Place(ctx context.Context, o order.Order) (string, error) {
	if g == nil || g.HTTPClient == nil {
		return "", fmt.Errorf("http client not set")
	}
	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}
	params := map[string]string{
		"symbol":      g.Symbol,
		"side":        string(o.Side),
		"type":        "LIMIT",
		"timeInForce": "GTX", // post-only，避免吃单
		"price":       strconv.FormatFloat(o.Price, 'f', -1, 64),
		"quantity":    strconv.FormatFloat(o.Quantity, 'f', -1, 64),
	}
	if o.ID != "" {
		params["newClientOrderId"] = o.ID
	}
	query, sig := signParams(params, g.Secret)
	endpoint := g.BaseURL + "/fapi/v1/order?" + query + "&signature=" + url.QueryEscape(sig)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(nil))
	if err != nil {
		return "", err
	}
	req.Header.Set("X-MBX-APIKEY", g.APIKey)
	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("place order status %d", resp.StatusCode)
	}
	var pr placeResp
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", err
	}
	if pr.OrderID == "" {
		return "", fmt.Errorf("empty orderId")
	}
	return pr.OrderID, nil
}

// Cancel 调用 /fapi/v1/order 取消，orderID 为 Place 回传的交易所订单号。
func (g *RESTGateway) Cancel(ctx context.Context, orderID string) error {
	if g == nil || g.HTTPClient == nil {
		return fmt.Errorf("http client not set")
	}
	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	params := map[string]string{
		"symbol":  g.Symbol,
		"orderId": orderID,
	}
	query, sig := signParams(params, g.Secret)
	endpoint := g.BaseURL + "/fapi/v1/order?" + query + "&signature=" + url.QueryEscape(sig)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, bytes.NewBuffer(nil))
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", g.APIKey)
	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("cancel status %d", resp.StatusCode)
	}
	return nil
}

// signParams 按 key 排序拼接查询串并附加时间戳，返回查询串与 HMAC-SHA256 签名。
func signParams(params map[string]string, secret string) (query, signature string) {
	params["timestamp"] = strconv.FormatInt(timeNowMillis(), 10)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		values.Set(k, params[k])
	}
	query = values.Encode()

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	signature = hex.EncodeToString(mac.Sum(nil))
	return query, signature
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
