package sim

import "github.com/go-gl/mathgl/mgl64"

// ActorID 网络 Actor 标识
type ActorID string

// Forward 默认朝向（+Z）
var Forward = mgl64.Vec3{0, 0, 1}

// Actor 受控网络实体。规范状态只有一个写者（状态权威），
// 所有写入口都经 Authority.Guard 校验，不依赖锁。
type Actor struct {
	id   ActorID
	auth Authority

	position      mgl64.Vec3
	facing        mgl64.Vec3
	abilityToggle bool
	cooldown      TickTimer
}

// ActorState Actor 规范状态的只读副本（用于复制与渲染）
type ActorState struct {
	ID            ActorID    `json:"id" msgpack:"id"`
	Authority     Authority  `json:"authority" msgpack:"authority"`
	Position      mgl64.Vec3 `json:"position" msgpack:"position"`
	Facing        mgl64.Vec3 `json:"facing" msgpack:"facing"`
	AbilityToggle bool       `json:"abilityToggle" msgpack:"abilityToggle"`
	Cooldown      TickTimer  `json:"cooldown" msgpack:"cooldown"`
}

// NewActor 参与者加入时创建；facing 为零向量时取 Forward
func NewActor(id ActorID, auth Authority, position, facing mgl64.Vec3) *Actor {
	if facing.Len() < epsilon {
		facing = Forward
	} else {
		facing = facing.Normalize()
	}
	return &Actor{id: id, auth: auth, position: position, facing: facing}
}

func (a *Actor) ID() ActorID { return a.id }
func (a *Actor) Authority() Authority { return a.auth }
func (a *Actor) Position() mgl64.Vec3 { return a.position }
func (a *Actor) Facing() mgl64.Vec3 { return a.facing }
func (a *Actor) AbilityToggle() bool { return a.abilityToggle }
func (a *Actor) Cooldown() TickTimer { return a.cooldown }

// State 当前规范状态快照
func (a *Actor) State() ActorState {
	return ActorState{
		ID:            a.id,
		Authority:     a.auth,
		Position:      a.position,
		Facing:        a.facing,
		AbilityToggle: a.abilityToggle,
		Cooldown:      a.cooldown,
	}
}

// SetPosition 仅状态权威可写
func (a *Actor) SetPosition(by ParticipantID, p mgl64.Vec3) error {
	if err := a.auth.Guard(by, "set position"); err != nil {
		return err
	}
	a.position = p
	return nil
}

// SetFacing 仅状态权威可写；零向量被忽略（朝向保持最后一次非零方向）
func (a *Actor) SetFacing(by ParticipantID, f mgl64.Vec3) error {
	if err := a.auth.Guard(by, "set facing"); err != nil {
		return err
	}
	if f.Len() < epsilon {
		return nil
	}
	a.facing = f.Normalize()
	return nil
}

// FlipAbilityToggle 翻转边沿信号，仅供渲染端检测变化
func (a *Actor) FlipAbilityToggle(by ParticipantID) error {
	if err := a.auth.Guard(by, "flip ability toggle"); err != nil {
		return err
	}
	a.abilityToggle = !a.abilityToggle
	return nil
}

// StartCooldown 重新开始冷却；不可取消，只能被下一次 Start 覆盖
func (a *Actor) StartCooldown(by ParticipantID, t TickTimer) error {
	if err := a.auth.Guard(by, "start cooldown"); err != nil {
		return err
	}
	a.cooldown = t
	return nil
}
