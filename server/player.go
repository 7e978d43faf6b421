package server

import (
	"github.com/go-gl/mathgl/mgl64"

	"tickhost/protocol"
	"tickhost/sim"
)

// PlayerID 表示参与者唯一标识（由连接身份决定，消息内容无法伪造）
type PlayerID = sim.ParticipantID

// Conn 房间向参与者发送数据的端口（ClientConn 实现，测试可替换）
type Conn interface {
	// Enqueue 非阻塞入队，队列满返回 false
	Enqueue(b []byte) bool
	Close()
	Codec() protocol.Codec
}

// Player 房间内的参与者：对自己的 Actor 持有输入权威
type Player struct {
	ID      PlayerID
	ActorID sim.ActorID
	Conn    Conn

	// 本 Tick 的意图帧，被消费后清空；缺失即“本 Tick 无输入”
	pending *sim.IntentFrame
	lastSeq int64
}

// spawnPoint 按加入顺序在原点附近排布出生点
func spawnPoint(n int) mgl64.Vec3 {
	const spacing = 3.0
	col := n % 5
	row := n / 5 % 5
	return mgl64.Vec3{float64(col-2) * spacing, 0, float64(row-2) * spacing}
}
