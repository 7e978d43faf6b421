package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	TemplateBall      TemplateID = "ball"
	TemplatePhysxBall TemplateID = "physx-ball"
)

const (
	// Gravity 物理球的竖直加速度（u/s²）
	Gravity = 9.81
	// GroundFriction 着地后水平速度每秒衰减的比例
	GroundFriction = 4.0
	// RestSpeed 着地后水平速度低于该值即静止
	RestSpeed = 0.05
)

// Projectile 由 Actor 生成的子网络实体
type Projectile struct {
	ID          string        `json:"id" msgpack:"id"`
	Template    TemplateID    `json:"template" msgpack:"template"`
	Owner       ParticipantID `json:"owner" msgpack:"owner"`
	Position    mgl64.Vec3    `json:"position" msgpack:"position"`
	Orientation mgl64.Quat    `json:"orientation" msgpack:"orientation"`
	Velocity    mgl64.Vec3    `json:"velocity" msgpack:"velocity"`
	Life        TickTimer     `json:"life" msgpack:"life"`
}

// Forward 实体朝向对应的前向单位向量
func (p Projectile) Forward() mgl64.Vec3 {
	return p.Orientation.Rotate(Forward)
}

// Template 子实体模板：运动方式与寿命
type Template struct {
	ID          TemplateID
	LifeSeconds float64
	// Speed > 0 时沿朝向匀速飞行；否则按速度积分并受重力影响
	Speed float64
}

// DefaultTemplates 普通球沿朝向 5u/s 飞行，物理球由初始速度驱动；均存活 5s
func DefaultTemplates() map[TemplateID]Template {
	return map[TemplateID]Template{
		TemplateBall:      {ID: TemplateBall, LifeSeconds: 5, Speed: 5},
		TemplatePhysxBall: {ID: TemplatePhysxBall, LifeSeconds: 5},
	}
}

func (t Template) step(p *Projectile, dt float64) {
	if t.Speed > 0 {
		p.Position = p.Position.Add(p.Forward().Mul(t.Speed * dt))
		return
	}
	p.Velocity = p.Velocity.Sub(mgl64.Vec3{0, Gravity * dt, 0})
	p.Position = p.Position.Add(p.Velocity.Mul(dt))
	if p.Position.Y() > 0 {
		return
	}
	// 着地：竖直分量清零，水平分量受摩擦衰减直至静止
	p.Position = mgl64.Vec3{p.Position.X(), 0, p.Position.Z()}
	h := mgl64.Vec3{p.Velocity.X(), 0, p.Velocity.Z()}.Mul(math.Max(0, 1-GroundFriction*dt))
	if h.Len() < RestSpeed {
		h = mgl64.Vec3{}
	}
	p.Velocity = h
}
