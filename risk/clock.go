package risk

import "time"

// Clock 抽象时间来源，便于测试固定时间。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// NowUTC 默认时钟，始终返回 UTC。
var NowUTC Clock = realClock{}

// FixedClock 返回固定时间，测试用。
type FixedClock struct{ T time.Time }

func (f FixedClock) Now() time.Time { return f.T }
