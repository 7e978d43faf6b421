package sim

import (
	"math"
	"time"
)

// Tick 权威模拟的离散时间刻度（所有参与者共享同一刻度域）
type Tick uint64

// TickRate 每秒 Tick 数，决定固定步长
type TickRate int

// DeltaSeconds 单个 Tick 的时长（秒）
func (r TickRate) DeltaSeconds() float64 {
	if r <= 0 {
		return 0
	}
	return 1 / float64(r)
}

// Interval 单个 Tick 的时长，用于驱动 time.Ticker
func (r TickRate) Interval() time.Duration {
	if r <= 0 {
		return 0
	}
	return time.Second / time.Duration(r)
}

// TicksFor 将秒数换算为 Tick 数（向上取整，0.5s@20TPS = 10）
func (r TickRate) TicksFor(seconds float64) Tick {
	if seconds <= 0 || r <= 0 {
		return 0
	}
	// 减去极小量，避免 0.5*60 这类浮点误差被 Ceil 多算一个 Tick
	return Tick(math.Ceil(seconds*float64(r) - 1e-9))
}

// TickTimer 以“在 Tick T 到期”表示的计时器；零值表示从未启动
type TickTimer struct {
	Target  Tick `json:"target" msgpack:"target"`
	Running bool `json:"running" msgpack:"running"`
}

// TimerFromTicks 从 now 起 ticks 个 Tick 后到期
func TimerFromTicks(now, ticks Tick) TickTimer {
	return TickTimer{Target: now + ticks, Running: true}
}

// TimerFromSeconds 从 now 起 seconds 秒后到期（按 rate 换算）
func TimerFromSeconds(now Tick, rate TickRate, seconds float64) TickTimer {
	return TimerFromTicks(now, rate.TicksFor(seconds))
}

// Expired 已启动且 now >= Target（相等视为到期）
func (t TickTimer) Expired(now Tick) bool {
	return t.Running && now >= t.Target
}

// ExpiredOrNotRunning 从未启动或已到期
func (t TickTimer) ExpiredOrNotRunning(now Tick) bool {
	return !t.Running || now >= t.Target
}

// RemainingTicks 剩余 Tick 数，未启动或已到期返回 0
func (t TickTimer) RemainingTicks(now Tick) Tick {
	if t.ExpiredOrNotRunning(now) {
		return 0
	}
	return t.Target - now
}
