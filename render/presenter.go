package render

import (
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"

	"tickhost/sim"
)

// 被观察字段名
const (
	FieldAbilityToggle = "abilityToggle"
	FieldFacing        = "facing"
)

// PositionRate 位置平滑的每秒逼近比例
const PositionRate = 12

// Frame 单个 Actor 一帧的表现结果
type Frame struct {
	Actor    sim.ActorID
	Position mgl64.Vec3
	Facing   mgl64.Vec3
	Color    colorful.Color
	Changed  []string
	Flashed  bool
}

// Presenter 单个 Actor 的表现状态（本地，不复制）
type Presenter struct {
	detector Detector[sim.ActorState]
	color    *ColorFader
	position *Smoother
}

// NewPresenter 颜色从 RestColor 开始
func NewPresenter() *Presenter {
	p := &Presenter{
		color:    NewColorFader(RestColor),
		position: NewSmoother(PositionRate),
	}
	Watch(&p.detector, FieldAbilityToggle, func(s sim.ActorState) bool { return s.AbilityToggle })
	Watch(&p.detector, FieldFacing, func(s sim.ActorState) mgl64.Vec3 { return s.Facing })
	return p
}

// Frame 先处理边沿事件（技能翻转 → 颜色重置为 FlashColor），再按 dt 逼近目标
func (p *Presenter) Frame(s sim.ActorState, dt time.Duration) Frame {
	f := Frame{Actor: s.ID, Facing: s.Facing}
	f.Changed = p.detector.DetectChanges(s)
	for _, name := range f.Changed {
		switch name {
		case FieldAbilityToggle:
			p.color.Reset(FlashColor)
			f.Flashed = true
		}
	}
	f.Color = p.color.Advance(dt)
	f.Position = p.position.Advance(s.Position, dt)
	return f
}

// Scene 按 Actor 维护 Presenter；快照中消失的 Actor 随之丢弃
type Scene struct {
	presenters map[sim.ActorID]*Presenter
}

func NewScene() *Scene {
	return &Scene{presenters: make(map[sim.ActorID]*Presenter)}
}

// Frame 对快照中的全部 Actor 渲染一帧，结果按 ID 排序
func (sc *Scene) Frame(actors []sim.ActorState, dt time.Duration) []Frame {
	seen := make(map[sim.ActorID]bool, len(actors))
	out := make([]Frame, 0, len(actors))
	for _, s := range actors {
		seen[s.ID] = true
		p, ok := sc.presenters[s.ID]
		if !ok {
			p = NewPresenter()
			p.detector.Prime(s)
			sc.presenters[s.ID] = p
		}
		out = append(out, p.Frame(s, dt))
	}
	for id := range sc.presenters {
		if !seen[id] {
			delete(sc.presenters, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Actor < out[j].Actor })
	return out
}
