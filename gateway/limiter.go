package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter 限制对交易所私有接口的请求速率。
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// TokenBucketLimiter 令牌桶：按恒定速率补充，突发上限 burst。
// 等待期间响应 ctx 取消，停机时不会卡在限流上。
type TokenBucketLimiter struct {
	mu     sync.Mutex
	rate   float64 // 每秒补充令牌数
	burst  float64
	tokens float64 // 预约制，可为负
	last   time.Time
	now    func() time.Time // 测试可替换
}

func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketLimiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
		now:    time.Now,
	}
}

// Wait 取一枚令牌，不足时阻塞到补满或 ctx 取消。
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	return l.WaitN(ctx, 1)
}

// WaitN 一次预约 n 枚令牌；撤换对（撤单+下单）可整体预约，
// 避免撤掉旧单后在限流上卡住而盘口单边裸奔。
// ctx 取消时预约不退还，速率只会偏保守。
func (l *TokenBucketLimiter) WaitN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	need := float64(n)
	if need > l.burst {
		return fmt.Errorf("waitn %d exceeds burst %d", n, int(l.burst))
	}

	l.mu.Lock()
	l.refill()
	l.tokens -= need
	var wait time.Duration
	if l.tokens < 0 {
		wait = time.Duration(-l.tokens / l.rate * float64(time.Second))
	}
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// refill 按流逝时间补充令牌，封顶 burst。调用方持锁。
func (l *TokenBucketLimiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.last).Seconds()
	l.last = now
	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}
