package server

import (
	"errors"
	"time"

	"tickhost/protocol"
	"tickhost/render"
	"tickhost/sim"
)

// StartTicker 启动房间协程（单线程推进世界）与主机侧渲染循环
func (r *Room) StartTicker() {
	if r.tickerStarted {
		return
	}
	r.tickerStarted = true
	go r.run()
	if r.renderHz > 0 {
		go r.present()
	}
}

func (r *Room) run() {
	ticker := time.NewTicker(r.rate.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-r.quit:
			r.shutdown()
			return
		case req := <-r.joinChan:
			p, err := r.join(req.id, req.conn)
			req.reply <- joinResult{player: p, err: err}
		case pid := <-r.leaveChan:
			r.LeavePlayer(pid)
		case in := <-r.inputChan:
			r.acceptInput(in)
		case c := <-r.chatChan:
			r.relayChat(c)
		case <-ticker.C:
			// 核心循环：推进 Tick → 消费意图 → 更新世界 → 发布/广播结果
			start := time.Now()
			r.BeginTick()
			r.ProcessInputs()
			r.UpdateWorld()
			r.BroadcastDelta()
			r.metrics.AddTick(time.Since(start).Nanoseconds())
		}
	}
}

// BeginTick 推进 Tick 并应用热更新的规则
func (r *Room) BeginTick() {
	r.tick++
	cfg := r.Config()
	sc := r.engine.Config()
	sc.Speed = cfg.Speed
	sc.CooldownSeconds = cfg.CooldownSeconds
	r.engine.SetConfig(sc)
	r.spawner.SetCapacity(cfg.MaxProjectiles)
}

// ProcessInputs 每个 Actor 消费本 Tick 的意图帧（缺失即零输入），随后清空
func (r *Room) ProcessInputs() {
	for _, p := range r.Players {
		a, ok := r.actors[p.ActorID]
		if !ok {
			continue
		}
		frame := p.pending
		p.pending = nil
		res, err := r.engine.Step(a, r.tick, frame)
		if err != nil {
			if errors.Is(err, sim.ErrAuthorityViolation) {
				r.metrics.IncAuthorityRejected()
			}
			Log.Debugf("step failed: room=%s actor=%s err=%v", r.ID, a.ID(), err)
			continue
		}
		if !res.Fired {
			continue
		}
		if res.SpawnErr != nil {
			r.metrics.IncSpawnFailures()
		} else {
			r.metrics.IncSpawns()
		}
	}
}

// UpdateWorld 推进子实体并销毁寿命到期者
func (r *Room) UpdateWorld() {
	if _, err := r.spawner.Advance(sim.HostID, r.tick); err != nil {
		Log.Warnf("advance projectiles: room=%s err=%v", r.ID, err)
	}
}

// BroadcastDelta 每 Tick 发布最新快照供本地渲染读取；每 broadcastEvery 个 Tick 下发一次
func (r *Room) BroadcastDelta() {
	r.version++
	snap := r.snapshot()
	r.latest.Publish(snap)
	if int(r.tick)%r.broadcastEvery == 0 {
		r.broadcast(protocol.MsgState, snap)
	}
}

func (r *Room) snapshot() protocol.State {
	s := protocol.State{
		Tick:        r.tick,
		Actors:      make([]sim.ActorState, 0, len(r.actors)),
		Projectiles: r.spawner.Snapshot(),
		Version:     r.version,
	}
	for _, a := range r.actors {
		s.Actors = append(s.Actors, a.State())
	}
	return s
}

// broadcast 按连接的编解码器各编码一次后入队
func (r *Room) broadcast(t string, payload any) {
	// 每种编解码器只编码一次；编码失败记为 nil，跳过该编解码器的接收者
	encoded := make(map[string][]byte, 2)
	for _, p := range r.Players {
		if p.Conn == nil {
			continue
		}
		c := p.Conn.Codec()
		b, ok := encoded[c.Name()]
		if !ok {
			var err error
			b, err = c.Encode(t, payload)
			if err != nil {
				Log.Errorf("encode %s: room=%s codec=%s err=%v", t, r.ID, c.Name(), err)
				b = nil
			}
			encoded[c.Name()] = b
		}
		if b == nil {
			continue
		}
		if !p.Conn.Enqueue(b) {
			r.metrics.IncSendDropped()
		}
	}
}

func (r *Room) send(p *Player, t string, payload any) {
	if p.Conn == nil {
		return
	}
	b, err := p.Conn.Codec().Encode(t, payload)
	if err != nil {
		Log.Errorf("encode %s: room=%s err=%v", t, r.ID, err)
		return
	}
	if !p.Conn.Enqueue(b) {
		r.metrics.IncSendDropped()
	}
}

// present 主机侧渲染循环：只读最新快照，不驱动模拟
func (r *Room) present() {
	ticker := time.NewTicker(time.Second / time.Duration(r.renderHz))
	defer ticker.Stop()
	scene := render.NewScene()
	last := time.Now()
	for {
		select {
		case <-r.quit:
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			snap, ok := r.latest.Load()
			if !ok {
				continue
			}
			flashes := 0
			for _, f := range scene.Frame(snap.Value.Actors, dt) {
				if f.Flashed {
					flashes++
				}
			}
			if flashes > 0 {
				r.metrics.AddFlashes(flashes)
			}
		}
	}
}
