package server

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"tickhost/protocol"
	"tickhost/relay"
	"tickhost/render"
	"tickhost/sim"
)

// ErrDuplicatePlayer 同一房间内参与者标识重复
var ErrDuplicatePlayer = errors.New("server: player already in room")

// ErrRoomClosed 房间已停止
var ErrRoomClosed = errors.New("server: room closed")

// Room 房间世界：本进程对房间内全部 Actor 持有状态权威，
// 规范状态只在房间协程内修改（单写者由角色分配保证，不加锁）。
type Room struct {
	ID string

	Players map[PlayerID]*Player
	actors  map[sim.ActorID]*sim.Actor
	joined  int

	rate           sim.TickRate
	renderHz       int
	broadcastEvery int
	tick           sim.Tick
	version        uint64

	engine  *sim.Engine
	spawner *sim.Spawner
	arena   *sim.Arena
	relay   *relay.Relay

	cfgMu sync.RWMutex
	cfg   RoomConfig
	rng   *rand.Rand

	joinChan  chan joinRequest
	inputChan chan Input
	chatChan  chan chatRequest
	leaveChan chan PlayerID
	quit      chan struct{}
	stopOnce  sync.Once

	latest  render.Latest[protocol.State]
	metrics *RoomMetrics

	tickerStarted bool
}

type joinRequest struct {
	id    PlayerID
	conn  Conn
	reply chan joinResult
}

type joinResult struct {
	player *Player
	err    error
}

// NewRoom 创建房间，初始化数据结构
func NewRoom(id string, c Config) *Room {
	broadcastEvery := c.TickHz / c.BroadcastHz
	if broadcastEvery <= 0 {
		broadcastEvery = 1
	}
	rate := sim.TickRate(c.TickHz)
	log := Log.Desugar().With(zapRoom(id))

	r := &Room{
		ID:             id,
		Players:        make(map[PlayerID]*Player),
		actors:         make(map[sim.ActorID]*sim.Actor),
		rate:           rate,
		renderHz:       c.RenderHz,
		broadcastEvery: broadcastEvery,
		arena:          sim.NewArena(c.ArenaSize, 1),
		cfg:            defaultRoomConfig(c),
		rng:            rand.New(rand.NewSource(rand.Int63())),
		joinChan:       make(chan joinRequest),
		inputChan:      make(chan Input, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		chatChan:       make(chan chatRequest, 64),
		leaveChan:      make(chan PlayerID, 64),
		quit:           make(chan struct{}),
		metrics:        &RoomMetrics{},
	}
	// 四角的柱子，出生点网格不与之重叠
	for _, c := range [][2]float64{{10, 10}, {-10, 10}, {10, -10}, {-10, -10}} {
		r.arena.AddObstacle(mgl64.Vec3{c[0] - 1, 0, c[1] - 1}, mgl64.Vec3{c[0] + 1, 2, c[1] + 1})
	}
	r.spawner = sim.NewSpawner(sim.HostID, rate, c.MaxProjectiles, log)
	r.engine = sim.NewEngine(sim.HostID, rate, sim.DefaultConfig(), r.arena, r.spawner, log)
	r.relay = relay.New(sim.HostID, r.authorityOf, relay.BroadcastFunc(r.broadcastChat), log)
	return r
}

// Metrics 房间指标
func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// Tick 最近发布快照的 Tick
func (r *Room) Tick() sim.Tick {
	if s, ok := r.latest.Load(); ok {
		return s.Value.Tick
	}
	return 0
}

// Latest 最近发布的快照（渲染循环与 HTTP 读取）
func (r *Room) Latest() (render.Versioned[protocol.State], bool) {
	return r.latest.Load()
}

// Config 当前房间规则
func (r *Room) Config() RoomConfig {
	r.cfgMu.RLock()
	defer r.cfgMu.RUnlock()
	return r.cfg
}

// UpdateConfig 修改房间规则，下一 Tick 生效
func (r *Room) UpdateConfig(fn func(*RoomConfig)) RoomConfig {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	fn(&r.cfg)
	return r.cfg
}

// JoinPlayer 请求房间协程加入玩家并创建其 Actor，阻塞直到完成
func (r *Room) JoinPlayer(id PlayerID, conn Conn) (*Player, error) {
	select {
	case <-r.quit:
		return nil, ErrRoomClosed
	default:
	}
	reply := make(chan joinResult, 1)
	select {
	case r.joinChan <- joinRequest{id: id, conn: conn, reply: reply}:
	case <-r.quit:
		return nil, ErrRoomClosed
	}
	res := <-reply
	return res.player, res.err
}

func (r *Room) join(id PlayerID, conn Conn) (*Player, error) {
	if id == "" || id == sim.HostID {
		return nil, fmt.Errorf("server: invalid player id %q", id)
	}
	if _, ok := r.Players[id]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicatePlayer, id)
	}
	actorID := sim.ActorID(id)
	auth := sim.Authority{State: sim.HostID, Input: id}
	r.actors[actorID] = sim.NewActor(actorID, auth, spawnPoint(r.joined), sim.Forward)
	r.joined++

	p := &Player{ID: id, ActorID: actorID, Conn: conn}
	r.Players[id] = p
	r.send(p, protocol.MsgWelcome, protocol.Welcome{
		ParticipantID: id,
		ActorID:       actorID,
		TickHz:        int(r.rate),
		BroadcastHz:   int(r.rate) / r.broadcastEvery,
	})
	r.send(p, protocol.MsgState, r.snapshot())
	Log.Infof("player joined: room=%s player=%s", r.ID, id)
	return p, nil
}

// LeavePlayer 将玩家移出房间：销毁其 Actor 与其拥有的子实体
func (r *Room) LeavePlayer(id PlayerID) {
	p, ok := r.Players[id]
	if !ok {
		return
	}
	if p.Conn != nil {
		p.Conn.Close()
	}
	delete(r.Players, id)
	delete(r.actors, p.ActorID)
	if n, err := r.spawner.DespawnOwned(sim.HostID, id); err == nil && n > 0 {
		Log.Debugf("despawned %d projectiles owned by %s", n, id)
	}
	Log.Infof("player left: room=%s player=%s", r.ID, id)
}

// OnInput 入站输入（不立即改变状态），仅记录意图，等下一次 Tick 处理
func (r *Room) OnInput(in Input) {
	select {
	case r.inputChan <- in:
	default:
		// 丢弃：为了实时性，避免背压影响世界推进
		r.metrics.IncChanFullDiscarded()
	}
}

// OnChat 第一跳到达：From 必须是连接身份
func (r *Room) OnChat(from PlayerID, actor sim.ActorID, content string) {
	select {
	case r.chatChan <- chatRequest{From: from, Actor: actor, Content: content}:
	case <-r.quit:
	}
}

// RequestLeave 请求在房间协程中移除玩家，避免并发改动房间状态
func (r *Room) RequestLeave(pid PlayerID) {
	select {
	case r.leaveChan <- pid:
	case <-r.quit:
	}
}

// acceptInput 保存为该参与者本 Tick 的意图帧；不排队，新帧覆盖旧帧的方向
func (r *Room) acceptInput(in Input) {
	p, ok := r.Players[in.PlayerID]
	if !ok {
		return
	}
	if drop := r.Config().SimulateDropProb; drop > 0 && r.rng.Float64() < drop {
		r.metrics.IncDropsSimulated()
		return
	}
	if in.Seq != 0 {
		if in.Seq <= p.lastSeq {
			r.metrics.IncOldSeqIgnored()
			return
		}
		p.lastSeq = in.Seq
	}
	frame := in.Frame
	if p.pending != nil {
		// 方向取最新帧；尚未消费的技能位合并，按键不会被覆盖丢失
		frame.Actions |= p.pending.Actions
		r.metrics.IncSuperseded()
	}
	p.pending = &frame
	r.metrics.IncAccepted()
}

// relayChat 收到第一跳后立即执行第二跳
func (r *Room) relayChat(c chatRequest) {
	actor := c.Actor
	if actor == "" {
		if p, ok := r.Players[c.From]; ok {
			actor = p.ActorID
		}
	}
	if _, err := r.relay.Submit(actor, c.From, c.Content); err != nil {
		r.metrics.IncAuthorityRejected()
		Log.Debugf("chat rejected: room=%s from=%s actor=%s err=%v", r.ID, c.From, actor, err)
		return
	}
	r.metrics.IncChatsRelayed()
}

func (r *Room) authorityOf(id sim.ActorID) (sim.Authority, bool) {
	a, ok := r.actors[id]
	if !ok {
		return sim.Authority{}, false
	}
	return a.Authority(), true
}

// broadcastChat 第二跳：发给房间内全部参与者
func (r *Room) broadcastChat(msg relay.ChatMessage) {
	r.broadcast(protocol.MsgChatRelay, msg)
}

// Stop 停止房间协程
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

func (r *Room) shutdown() {
	for id := range r.Players {
		r.LeavePlayer(id)
	}
}
