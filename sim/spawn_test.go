package sim

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestSpawnRunsInitBeforePublish(t *testing.T) {
	s := NewSpawner(HostID, 20, 8, nil)
	initCalls := 0

	h, err := s.Spawn(HostID, 1, SpawnRequest{
		Template:       TemplatePhysxBall,
		Position:       mgl64.Vec3{0, 1, 1},
		Orientation:    LookRotation(Forward),
		InputAuthority: "alice",
		Init: func(p *Projectile) {
			initCalls++
			// 初始化期间实体尚未对外可见
			if s.Len() != 0 {
				t.Fatalf("entity published before init finished")
			}
			p.Velocity = mgl64.Vec3{0, 0, 10}
		},
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if initCalls != 1 {
		t.Fatalf("init called %d times, want 1", initCalls)
	}

	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot len = %d, want 1", len(snap))
	}
	if snap[0].Velocity != (mgl64.Vec3{0, 0, 10}) {
		t.Fatalf("first external read saw pre-init velocity %v", snap[0].Velocity)
	}
	if snap[0].Owner != "alice" || snap[0].ID != h.ID {
		t.Fatalf("unexpected projectile %+v", snap[0])
	}
	if got, ok := s.Get(h); !ok || got.ID != h.ID {
		t.Fatalf("Get(handle) = %+v, %v", got, ok)
	}
}

func TestSpawnPoolExhaustedDropsRequest(t *testing.T) {
	s := NewSpawner(HostID, 20, 1, nil)
	req := SpawnRequest{Template: TemplateBall, InputAuthority: "alice"}

	if _, err := s.Spawn(HostID, 1, req); err != nil {
		t.Fatalf("first spawn: %v", err)
	}
	called := false
	req.Init = func(*Projectile) { called = true }
	if _, err := s.Spawn(HostID, 1, req); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("err = %v, want ErrPoolExhausted", err)
	}
	if called || s.Len() != 1 {
		t.Fatalf("dropped request must not init or publish")
	}
}

func TestSpawnRejectsNonAuthorityAndUnknownTemplate(t *testing.T) {
	s := NewSpawner(HostID, 20, 0, nil)
	if _, err := s.Spawn("alice", 1, SpawnRequest{Template: TemplateBall}); !errors.Is(err, ErrAuthorityViolation) {
		t.Fatalf("err = %v, want ErrAuthorityViolation", err)
	}
	if _, err := s.Spawn(HostID, 1, SpawnRequest{Template: "rocket"}); !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("err = %v, want ErrUnknownTemplate", err)
	}
	if s.Len() != 0 {
		t.Fatalf("rejected spawns published entities")
	}
}

func TestAdvanceMovesAndDespawnsAfterLife(t *testing.T) {
	const rate TickRate = 10
	s := NewSpawner(HostID, rate, 0, nil)
	if _, err := s.Spawn(HostID, 0, SpawnRequest{
		Template:    TemplateBall,
		Position:    mgl64.Vec3{0, 0, 0},
		Orientation: LookRotation(mgl64.Vec3{1, 0, 0}),
	}); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	if _, err := s.Advance(HostID, 1); err != nil {
		t.Fatalf("advance: %v", err)
	}
	p := s.Snapshot()[0]
	if !vecNear(p.Position, mgl64.Vec3{0.5, 0, 0}) {
		t.Fatalf("ball position = %v, want (0.5,0,0)", p.Position)
	}

	life := rate.TicksFor(5)
	for now := Tick(2); now < life; now++ {
		if n, _ := s.Advance(HostID, now); n != 0 {
			t.Fatalf("despawned early at tick %d", now)
		}
	}
	if n, _ := s.Advance(HostID, life); n != 1 || s.Len() != 0 {
		t.Fatalf("expected despawn at tick %d, got n=%d len=%d", life, n, s.Len())
	}
}

func TestPhysxBallFallsAndRests(t *testing.T) {
	s := NewSpawner(HostID, 20, 0, nil)
	if _, err := s.Spawn(HostID, 0, SpawnRequest{
		Template: TemplatePhysxBall,
		Position: mgl64.Vec3{0, 1, 0},
		Init:     func(p *Projectile) { p.Velocity = mgl64.Vec3{0, 0, 10} },
	}); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	for now := Tick(1); now <= 40; now++ {
		if _, err := s.Advance(HostID, now); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	p := s.Snapshot()[0]
	if p.Position.Y() != 0 || p.Velocity != (mgl64.Vec3{}) {
		t.Fatalf("physx ball should rest on ground, got pos=%v vel=%v", p.Position, p.Velocity)
	}
	if p.Position.Z() <= 1 {
		t.Fatalf("physx ball should travel along its launch velocity, z=%f", p.Position.Z())
	}
}

func TestDespawnOwned(t *testing.T) {
	s := NewSpawner(HostID, 20, 0, nil)
	for _, owner := range []ParticipantID{"alice", "bob", "alice"} {
		if _, err := s.Spawn(HostID, 0, SpawnRequest{Template: TemplateBall, InputAuthority: owner}); err != nil {
			t.Fatalf("spawn: %v", err)
		}
	}
	n, err := s.DespawnOwned(HostID, "alice")
	if err != nil || n != 2 || s.Len() != 1 {
		t.Fatalf("DespawnOwned = %d, %v; len=%d", n, err, s.Len())
	}
}

func TestPhysxBallLaunchedFromGroundRollsThenRests(t *testing.T) {
	const rate TickRate = 20
	s := NewSpawner(HostID, rate, 0, nil)
	e := NewEngine(HostID, rate, DefaultConfig(), nil, s, nil)
	a := NewActor("a1", Authority{State: HostID, Input: "alice"}, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0})

	res, err := e.Step(a, 1, &IntentFrame{Actions: ActionSecondary})
	if err != nil || res.SpawnErr != nil {
		t.Fatalf("step: %v %v", err, res.SpawnErr)
	}
	start, _ := s.Get(res.Handle)
	if !vecNear(start.Position, mgl64.Vec3{1, 0, 0}) || !vecNear(start.Velocity, mgl64.Vec3{10, 0, 0}) {
		t.Fatalf("spawned pos=%v vel=%v", start.Position, start.Velocity)
	}

	for now := Tick(2); now <= 3; now++ {
		if _, err := s.Advance(HostID, now); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	p, _ := s.Get(res.Handle)
	if p.Position.Y() != 0 || p.Velocity.Y() != 0 {
		t.Fatalf("ball should stay on the ground, pos=%v vel=%v", p.Position, p.Velocity)
	}
	if p.Position.X() <= 1.5+1e-9 || p.Velocity.X() <= 0 {
		t.Fatalf("ball lost its launch velocity: pos=%v vel=%v", p.Position, p.Velocity)
	}

	for now := Tick(4); now <= 80; now++ {
		if _, err := s.Advance(HostID, now); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	p, _ = s.Get(res.Handle)
	if p.Velocity != (mgl64.Vec3{}) {
		t.Fatalf("ball should come to rest, vel=%v", p.Velocity)
	}
	// 摩擦衰减下滚动约 2.5 个单位
	if p.Position.X() < 3 {
		t.Fatalf("ball rolled only to x=%v", p.Position.X())
	}
}
