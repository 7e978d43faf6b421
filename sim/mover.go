package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/solarlune/resolv"
)

const epsilon = 1e-6

const tagSolid = "solid"

// Mover 移动原语（角色控制器）：接收世界空间位移，解析碰撞后返回新位置
type Mover interface {
	Move(from, displacement mgl64.Vec3) mgl64.Vec3
}

// FreeMover 不做碰撞的移动原语
type FreeMover struct{}

func (FreeMover) Move(from, displacement mgl64.Vec3) mgl64.Vec3 {
	return from.Add(displacement)
}

// Arena 基于 resolv 空间的方形竞技场，在 XZ 平面上解析静态障碍碰撞。
// 世界坐标以原点为中心；仅在房间 Tick 协程内使用，非并发安全。
type Arena struct {
	size     float64
	bodySize float64
	space    *resolv.Space
	ghost    *resolv.Object
}

// NewArena size 为边长，bodySize 为 Actor 碰撞盒边长
func NewArena(size, bodySize float64) *Arena {
	cell := 2
	space := resolv.NewSpace(int(math.Ceil(size)), int(math.Ceil(size)), cell, cell)
	ghost := resolv.NewObject(size/2, size/2, bodySize, bodySize, "ghost")
	space.Add(ghost)
	return &Arena{size: size, bodySize: bodySize, space: space, ghost: ghost}
}

// Size 竞技场边长
func (a *Arena) Size() float64 { return a.size }

// AddObstacle 在 XZ 平面添加一个轴对齐障碍，min/max 为世界坐标
func (a *Arena) AddObstacle(min, max mgl64.Vec3) {
	x0, z0 := math.Min(min.X(), max.X()), math.Min(min.Z(), max.Z())
	w, h := math.Abs(max.X()-min.X()), math.Abs(max.Z()-min.Z())
	a.space.Add(resolv.NewObject(x0+a.size/2, z0+a.size/2, w, h, tagSolid))
}

// Move 分段位移（每段不超过半个碰撞盒，防止穿透），每段先 X 后 Z 逐轴扫掠，
// 碰到障碍即贴边停止，最后裁剪到边界内
func (a *Arena) Move(from, displacement mgl64.Vec3) mgl64.Vec3 {
	half := a.bodySize / 2
	a.ghost.X = from.X() + a.size/2 - half
	a.ghost.Y = from.Z() + a.size/2 - half
	a.ghost.Update()

	steps := int(math.Ceil(math.Hypot(displacement.X(), displacement.Z()) / half))
	if steps < 1 {
		steps = 1
	}
	sx := displacement.X() / float64(steps)
	sz := displacement.Z() / float64(steps)
	for i := 0; i < steps; i++ {
		dx, _ := a.sweep(sx, 0)
		a.ghost.X += dx
		a.ghost.Update()
		_, dz := a.sweep(0, sz)
		a.ghost.Y += dz
		a.ghost.Update()
	}

	limit := a.size/2 - half
	x := clamp(a.ghost.X+half-a.size/2, -limit, limit)
	z := clamp(a.ghost.Y+half-a.size/2, -limit, limit)
	// 角色只在地面平面上移动，忽略竖直位移
	y := math.Max(0, from.Y())
	return mgl64.Vec3{x, y, z}
}

// sweep 返回在不穿透障碍的前提下可移动的最大位移
func (a *Arena) sweep(dx, dy float64) (float64, float64) {
	if dx == 0 && dy == 0 {
		return 0, 0
	}
	c := a.ghost.Check(dx, dy, tagSolid)
	if c == nil {
		return dx, dy
	}
	p := a.ghost
	for _, o := range c.Objects {
		if dx != 0 && overlaps(p.Y, p.H, o.Y, o.H) {
			if dx > 0 && o.X >= p.X+p.W-epsilon {
				dx = math.Min(dx, o.X-(p.X+p.W))
			}
			if dx < 0 && o.X+o.W <= p.X+epsilon {
				dx = math.Max(dx, o.X+o.W-p.X)
			}
		}
		if dy != 0 && overlaps(p.X, p.W, o.X, o.W) {
			if dy > 0 && o.Y >= p.Y+p.H-epsilon {
				dy = math.Min(dy, o.Y-(p.Y+p.H))
			}
			if dy < 0 && o.Y+o.H <= p.Y+epsilon {
				dy = math.Max(dy, o.Y+o.H-p.Y)
			}
		}
	}
	return dx, dy
}

func overlaps(a, aw, b, bw float64) bool {
	return a < b+bw && b < a+aw
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
