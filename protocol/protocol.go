// Package protocol 定义主机与参与者之间的线上消息与编解码
package protocol

import (
	"tickhost/relay"
	"tickhost/sim"
)

const (
	MsgWelcome   = "welcome"
	MsgInput     = "input"
	MsgChat      = "chat"      // 第一跳：参与者 → 状态权威
	MsgChatRelay = "chatRelay" // 第二跳：状态权威 → 全部角色
	MsgState     = "state"
)

const (
	SimTickHz   = 20
	BroadcastHz = 10
	RenderHz    = 60
)

// Welcome 加入成功后下发：本地参与者与其拥有输入权威的 Actor
type Welcome struct {
	ParticipantID sim.ParticipantID `json:"participantId" msgpack:"participantId"`
	ActorID       sim.ActorID       `json:"actorId" msgpack:"actorId"`
	TickHz        int               `json:"tickHz" msgpack:"tickHz"`
	BroadcastHz   int               `json:"broadcastHz" msgpack:"broadcastHz"`
}

// Input 单个 Tick 的意图；方向不要求归一化
type Input struct {
	DX      float64 `json:"dx" msgpack:"dx"`
	DY      float64 `json:"dy,omitempty" msgpack:"dy,omitempty"`
	DZ      float64 `json:"dz" msgpack:"dz"`
	Buttons uint8   `json:"buttons,omitempty" msgpack:"buttons,omitempty"`
	Seq     int64   `json:"seq,omitempty" msgpack:"seq,omitempty"`
}

// Chat 第一跳：来源由主机按连接身份填写；Actor 为空时取发送者自己的 Actor
type Chat struct {
	Actor   sim.ActorID `json:"actor,omitempty" msgpack:"actor,omitempty"`
	Content string      `json:"content" msgpack:"content"`
}

// ChatRelay 第二跳
type ChatRelay = relay.ChatMessage

// State 复制快照，Version 单调递增
type State struct {
	Version     uint64           `json:"version" msgpack:"version"`
	Tick        sim.Tick         `json:"tick" msgpack:"tick"`
	Actors      []sim.ActorState `json:"actors" msgpack:"actors"`
	Projectiles []sim.Projectile `json:"projectiles" msgpack:"projectiles"`
}
