package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// SpawnCoordinator 生成协调器边界（*Spawner 实现）
type SpawnCoordinator interface {
	Spawn(by ParticipantID, now Tick, req SpawnRequest) (Handle, error)
}

// Config 模拟参数
type Config struct {
	Speed           float64 // 移动速度 u/s
	CooldownSeconds float64 // 两个技能共享的冷却
	SpawnOffset     float64 // 生成点沿朝向的偏移
	LaunchSpeed     float64 // 物理球初速度 = LaunchSpeed * facing
}

// DefaultConfig 与客户端预期一致的默认值
func DefaultConfig() Config {
	return Config{
		Speed:           5,
		CooldownSeconds: 0.5,
		SpawnOffset:     1,
		LaunchSpeed:     10,
	}
}

// Ability 动作位 → 模板与初始化载荷；按切片顺序决定优先级
type Ability struct {
	Bit      ActionBits
	Template TemplateID
	// Payload 基于当前朝向构造初始化函数，nil 表示无额外载荷
	Payload func(cfg Config, facing mgl64.Vec3) func(*Projectile)
}

// DefaultAbilities 主键生成普通球，副键生成带初速度的物理球
func DefaultAbilities() []Ability {
	return []Ability{
		{Bit: ActionPrimary, Template: TemplateBall},
		{Bit: ActionSecondary, Template: TemplatePhysxBall, Payload: func(cfg Config, facing mgl64.Vec3) func(*Projectile) {
			v := facing.Mul(cfg.LaunchSpeed)
			return func(p *Projectile) { p.Velocity = v }
		}},
	}
}

// StepResult 单个 Tick 的触发结果
type StepResult struct {
	Fired    bool
	Ability  ActionBits
	Handle   Handle
	SpawnErr error
}

// Engine 固定步长模拟：只在持有状态权威的进程上推进规范状态
type Engine struct {
	local     ParticipantID
	rate      TickRate
	cfg       Config
	abilities []Ability
	mover     Mover
	spawner   SpawnCoordinator
	log       *zap.Logger
}

// NewEngine local 为本进程参与者；mover 为 nil 时使用 FreeMover
func NewEngine(local ParticipantID, rate TickRate, cfg Config, mover Mover, spawner SpawnCoordinator, log *zap.Logger) *Engine {
	if mover == nil {
		mover = FreeMover{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		local:     local,
		rate:      rate,
		cfg:       cfg,
		abilities: DefaultAbilities(),
		mover:     mover,
		spawner:   spawner,
		log:       log,
	}
}

// Config 当前参数
func (e *Engine) Config() Config { return e.cfg }

// SetConfig 热更新参数，下一 Tick 生效
func (e *Engine) SetConfig(cfg Config) { e.cfg = cfg }

// Step 消费本 Tick 的意图帧（nil 表示本 Tick 无输入）并推进 Actor。
// 冷却只在迭代动作前检查一次：每个 Tick 至多触发一次，主键优先。
func (e *Engine) Step(a *Actor, now Tick, frame *IntentFrame) (StepResult, error) {
	var res StepResult
	auth := a.Authority()
	if err := auth.Guard(e.local, "simulate"); err != nil {
		e.log.Debug("step rejected", zap.String("actor", string(a.ID())), zap.Error(err))
		return res, err
	}

	var in IntentFrame
	if frame != nil {
		in = *frame
	}

	// 意图方向投影到 XZ 平面
	dir := mgl64.Vec3{in.Direction.X(), 0, in.Direction.Z()}
	if dir.Len() > epsilon {
		dir = dir.Normalize()
	} else {
		dir = mgl64.Vec3{}
	}

	disp := dir.Mul(e.cfg.Speed * e.rate.DeltaSeconds())
	if err := a.SetPosition(e.local, e.mover.Move(a.Position(), disp)); err != nil {
		return res, err
	}
	if dir.Len() > 0 {
		if err := a.SetFacing(e.local, dir); err != nil {
			return res, err
		}
	}

	if !a.Cooldown().ExpiredOrNotRunning(now) {
		return res, nil
	}
	for _, ab := range e.abilities {
		if !in.Actions.IsSet(ab.Bit) {
			continue
		}
		return e.fire(a, now, ab)
	}
	return res, nil
}

func (e *Engine) fire(a *Actor, now Tick, ab Ability) (StepResult, error) {
	res := StepResult{Fired: true, Ability: ab.Bit}
	if err := a.StartCooldown(e.local, TimerFromSeconds(now, e.rate, e.cfg.CooldownSeconds)); err != nil {
		return StepResult{}, err
	}

	facing := a.Facing()
	req := SpawnRequest{
		Template:       ab.Template,
		Position:       a.Position().Add(facing.Mul(e.cfg.SpawnOffset)),
		Orientation:    LookRotation(facing),
		InputAuthority: a.Authority().Input,
	}
	if ab.Payload != nil {
		req.Init = ab.Payload(e.cfg, facing)
	}

	if e.spawner != nil {
		h, err := e.spawner.Spawn(e.local, now, req)
		if err != nil {
			// 冷却不退还，也不重试
			e.log.Warn("spawn failed",
				zap.String("actor", string(a.ID())),
				zap.String("template", string(ab.Template)),
				zap.Error(err))
			res.SpawnErr = err
		}
		res.Handle = h
	}

	if err := a.FlipAbilityToggle(e.local); err != nil {
		return StepResult{}, err
	}
	return res, nil
}

// LookRotation 从 +Z 转到 dir 的旋转；dir 为零时返回单位四元数
func LookRotation(dir mgl64.Vec3) mgl64.Quat {
	if dir.Len() < epsilon {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatBetweenVectors(Forward, dir.Normalize())
}
