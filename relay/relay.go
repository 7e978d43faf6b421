// Package relay 实现聊天消息的两跳中继：参与者提交给状态权威（第一跳），
// 状态权威带上来源标识后广播给所有角色（第二跳）。
package relay

import (
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"tickhost/sim"
)

var (
	// ErrNotInputAuthority 提交者对该 Actor 没有输入权威
	ErrNotInputAuthority = errors.New("relay: sender lacks input authority")
	// ErrNotStateAuthority 本进程不是该 Actor 的状态权威，不能广播
	ErrNotStateAuthority = errors.New("relay: local process lacks state authority")
	// ErrUnknownActor 目标 Actor 不存在
	ErrUnknownActor = errors.New("relay: unknown actor")
)

// ChatMessage 中继中的聊天消息，不持久化
type ChatMessage struct {
	ID      string            `json:"id" msgpack:"id"`
	Actor   sim.ActorID       `json:"actor" msgpack:"actor"`
	Content string            `json:"content" msgpack:"content"`
	Source  sim.ParticipantID `json:"source" msgpack:"source"`
}

// Broadcaster 第二跳的投递端：发给包括观察者在内的全部角色
type Broadcaster interface {
	BroadcastChat(msg ChatMessage)
}

// BroadcastFunc 函数适配器
type BroadcastFunc func(msg ChatMessage)

func (f BroadcastFunc) BroadcastChat(msg ChatMessage) { f(msg) }

// AuthorityLookup 查询 Actor 的权威分配
type AuthorityLookup func(actor sim.ActorID) (sim.Authority, bool)

// Relay 运行在状态权威一侧
type Relay struct {
	local  sim.ParticipantID
	lookup AuthorityLookup
	out    Broadcaster
	log    *zap.Logger
}

// New local 为本进程参与者标识
func New(local sim.ParticipantID, lookup AuthorityLookup, out Broadcaster, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{local: local, lookup: lookup, out: out, log: log}
}

// Submit 第一跳到达状态权威：sender 必须来自传输层而非消息内容。
// 校验通过后立即执行第二跳，不排队、不改写内容。
func (r *Relay) Submit(actor sim.ActorID, sender sim.ParticipantID, content string) (ChatMessage, error) {
	auth, ok := r.lookup(actor)
	if !ok {
		return ChatMessage{}, fmt.Errorf("%w: %q", ErrUnknownActor, actor)
	}
	if !auth.HasInputAuthority(sender) {
		r.log.Debug("chat rejected",
			zap.String("actor", string(actor)),
			zap.String("sender", string(sender)),
			zap.Stringer("role", auth.RoleOf(sender)))
		return ChatMessage{}, fmt.Errorf("%w: %q over %q", ErrNotInputAuthority, sender, actor)
	}
	return r.Broadcast(actor, sender, content)
}

// Broadcast 第二跳：仅状态权威可调用
func (r *Relay) Broadcast(actor sim.ActorID, source sim.ParticipantID, content string) (ChatMessage, error) {
	auth, ok := r.lookup(actor)
	if !ok {
		return ChatMessage{}, fmt.Errorf("%w: %q", ErrUnknownActor, actor)
	}
	if !auth.HasStateAuthority(r.local) {
		return ChatMessage{}, fmt.Errorf("%w: %q", ErrNotStateAuthority, actor)
	}
	msg := ChatMessage{
		ID:      ulid.Make().String(),
		Actor:   actor,
		Content: content,
		Source:  source,
	}
	r.out.BroadcastChat(msg)
	return msg, nil
}
