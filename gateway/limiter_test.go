package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestLimiter(rate float64, burst int) (*TokenBucketLimiter, *time.Time) {
	l := NewTokenBucketLimiter(rate, burst)
	now := time.Unix(0, 0)
	l.last = now
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiterBurstThenBlocks(t *testing.T) {
	l, _ := newTestLimiter(1, 2)
	ctx := context.Background()

	// 突发额度内立即返回
	for i := 0; i < 2; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("burst wait %d: %v", i, err)
		}
	}

	// 令牌耗尽后取消的 ctx 立刻中断等待
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.Wait(canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLimiterRefills(t *testing.T) {
	l, now := newTestLimiter(2, 2)
	ctx := context.Background()

	if err := l.WaitN(ctx, 2); err != nil {
		t.Fatalf("drain: %v", err)
	}
	// 1 秒补回 2 枚
	*now = now.Add(time.Second)
	if err := l.WaitN(ctx, 2); err != nil {
		t.Fatalf("after refill: %v", err)
	}
}

func TestLimiterWaitNExceedsBurst(t *testing.T) {
	l, _ := newTestLimiter(1, 2)
	if err := l.WaitN(context.Background(), 3); err == nil {
		t.Fatalf("expected error when n exceeds burst")
	}
}
