package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oklog/ulid/v2"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
	"go.uber.org/zap"
)

var (
	// ErrPoolExhausted 已发布实体数达到上限，请求被丢弃
	ErrPoolExhausted = errors.New("sim: spawn pool exhausted")
	// ErrUnknownTemplate 未注册的实体模板
	ErrUnknownTemplate = errors.New("sim: unknown spawn template")
)

// TemplateID 子实体模板标识
type TemplateID string

// SpawnRequest 一次性生成描述：由模拟引擎构造，立即交给 Spawner 消费
type SpawnRequest struct {
	Template       TemplateID
	Position       mgl64.Vec3
	Orientation    mgl64.Quat
	InputAuthority ParticipantID
	// Init 在实体首次复制之前、于私有作用域内同步执行
	Init func(p *Projectile)
}

// Handle 已发布实体的句柄
type Handle struct {
	ID     string
	Entity donburi.Entity
}

// ProjectileComponent 已发布（可被复制）的子实体组件
var ProjectileComponent = donburi.NewComponentType[Projectile]()

// Spawner 生成协调器：只有状态权威可以生成；实体先在本地构造并初始化，
// 之后才写入 donburi World（World 中的实体即对外可见的已复制集合）。
type Spawner struct {
	authority ParticipantID
	rate      TickRate
	capacity  int
	templates map[TemplateID]Template

	world donburi.World
	query *donburi.Query
	log   *zap.Logger
}

// NewSpawner authority 为本进程持有状态权威的参与者
func NewSpawner(authority ParticipantID, rate TickRate, capacity int, log *zap.Logger) *Spawner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Spawner{
		authority: authority,
		rate:      rate,
		capacity:  capacity,
		templates: DefaultTemplates(),
		world:     donburi.NewWorld(),
		query:     donburi.NewQuery(filter.Contains(ProjectileComponent)),
		log:       log,
	}
}

// Register 注册或覆盖模板
func (s *Spawner) Register(t Template) {
	s.templates[t.ID] = t
}

// SetCapacity 调整实体上限（热更新）
func (s *Spawner) SetCapacity(n int) {
	s.capacity = n
}

// Len 已发布实体数量
func (s *Spawner) Len() int {
	return s.query.Count(s.world)
}

// Spawn 在给定变换处生成实体：私有构造 → 执行 Init → 发布。
// 创建失败时直接丢弃请求，不重试。
func (s *Spawner) Spawn(by ParticipantID, now Tick, req SpawnRequest) (Handle, error) {
	if by != s.authority {
		return Handle{}, fmt.Errorf("%w: spawn by %q", ErrAuthorityViolation, by)
	}
	tpl, ok := s.templates[req.Template]
	if !ok {
		return Handle{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, req.Template)
	}
	if s.capacity > 0 && s.Len() >= s.capacity {
		s.log.Debug("spawn dropped", zap.String("template", string(req.Template)), zap.Int("capacity", s.capacity))
		return Handle{}, ErrPoolExhausted
	}

	orientation := req.Orientation
	if orientation.Len() < epsilon {
		orientation = mgl64.QuatIdent()
	}
	p := Projectile{
		ID:          ulid.Make().String(),
		Template:    tpl.ID,
		Owner:       req.InputAuthority,
		Position:    req.Position,
		Orientation: orientation.Normalize(),
		Life:        TimerFromSeconds(now, s.rate, tpl.LifeSeconds),
	}
	if req.Init != nil {
		req.Init(&p)
	}

	e := s.world.Create(ProjectileComponent)
	ProjectileComponent.SetValue(s.world.Entry(e), p)
	s.log.Debug("spawned",
		zap.String("id", p.ID),
		zap.String("template", string(p.Template)),
		zap.String("owner", string(p.Owner)),
		zap.Uint64("tick", uint64(now)))
	return Handle{ID: p.ID, Entity: e}, nil
}

// Get 读取已发布实体
func (s *Spawner) Get(h Handle) (Projectile, bool) {
	if !s.world.Valid(h.Entity) {
		return Projectile{}, false
	}
	entry := s.world.Entry(h.Entity)
	if !entry.HasComponent(ProjectileComponent) {
		return Projectile{}, false
	}
	return *ProjectileComponent.Get(entry), true
}

// Advance 推进全部已发布实体一个 Tick，寿命到期的实体被销毁；仅状态权威执行
func (s *Spawner) Advance(by ParticipantID, now Tick) (despawned int, err error) {
	if by != s.authority {
		return 0, fmt.Errorf("%w: advance projectiles by %q", ErrAuthorityViolation, by)
	}
	dt := s.rate.DeltaSeconds()
	var expired []donburi.Entity
	s.query.Each(s.world, func(entry *donburi.Entry) {
		p := ProjectileComponent.Get(entry)
		if p.Life.Expired(now) {
			expired = append(expired, entry.Entity())
			return
		}
		tpl, ok := s.templates[p.Template]
		if !ok {
			return
		}
		tpl.step(p, dt)
	})
	for _, e := range expired {
		s.world.Remove(e)
	}
	return len(expired), nil
}

// Snapshot 已发布实体的只读副本，按 ID 排序
func (s *Spawner) Snapshot() []Projectile {
	out := make([]Projectile, 0, s.Len())
	s.query.Each(s.world, func(entry *donburi.Entry) {
		out = append(out, *ProjectileComponent.Get(entry))
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DespawnOwned 销毁某参与者拥有的全部实体（参与者断开时调用）
func (s *Spawner) DespawnOwned(by, owner ParticipantID) (int, error) {
	if by != s.authority {
		return 0, fmt.Errorf("%w: despawn by %q", ErrAuthorityViolation, by)
	}
	var owned []donburi.Entity
	s.query.Each(s.world, func(entry *donburi.Entry) {
		if ProjectileComponent.Get(entry).Owner == owner {
			owned = append(owned, entry.Entity())
		}
	})
	for _, e := range owned {
		s.world.Remove(e)
	}
	return len(owned), nil
}
