package render

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
)

var (
	// FlashColor 技能触发时重置到的颜色
	FlashColor = colorful.Color{R: 1, G: 1, B: 1}
	// RestColor 持续逼近的目标颜色
	RestColor = colorful.Color{R: 0, G: 0, B: 1}
)

// approachFactor 每帧逼近比例 = rate * dt，裁剪到 [0,1]
func approachFactor(rate float64, dt time.Duration) float64 {
	return math.Max(0, math.Min(1, rate*dt.Seconds()))
}

// ColorFader 每帧把当前颜色向目标颜色移动剩余距离的一部分（按墙钟时间缩放）
type ColorFader struct {
	Current colorful.Color
	Target  colorful.Color
	Rate    float64 // 每秒比例
}

// NewColorFader 从 target 开始，rate 默认 1
func NewColorFader(target colorful.Color) *ColorFader {
	return &ColorFader{Current: target, Target: target, Rate: 1}
}

// Reset 立即跳到 c
func (f *ColorFader) Reset(c colorful.Color) {
	f.Current = c
}

// Advance 推进 dt 并返回当前颜色
func (f *ColorFader) Advance(dt time.Duration) colorful.Color {
	f.Current = f.Current.BlendRgb(f.Target, approachFactor(f.Rate, dt))
	return f.Current
}

// Smoother 连续位置的指数逼近，把离散的权威更新呈现为平滑运动
type Smoother struct {
	Current mgl64.Vec3
	Rate    float64
	primed  bool
}

// NewSmoother rate 为每秒逼近比例
func NewSmoother(rate float64) *Smoother {
	return &Smoother{Rate: rate}
}

// Advance 首次调用直接对齐目标
func (s *Smoother) Advance(target mgl64.Vec3, dt time.Duration) mgl64.Vec3 {
	if !s.primed {
		s.Current = target
		s.primed = true
		return s.Current
	}
	t := approachFactor(s.Rate, dt)
	s.Current = s.Current.Add(target.Sub(s.Current).Mul(t))
	return s.Current
}
