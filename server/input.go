package server

import (
	"github.com/go-gl/mathgl/mgl64"

	"tickhost/protocol"
	"tickhost/sim"
)

// Input 入站意图，由房间在下一次 Tick 中解释并驱动规范状态
type Input struct {
	PlayerID PlayerID
	Frame    sim.IntentFrame
	Seq      int64 // 客户端本地序列号，用于去重
}

// inputFromMessage 线上 input 消息 → 意图帧（方向不在此归一化）
func inputFromMessage(pid PlayerID, m protocol.Input) Input {
	return Input{
		PlayerID: pid,
		Frame:    sim.NewIntentFrame(mgl64.Vec3{m.DX, m.DY, m.DZ}, sim.ActionBits(m.Buttons)),
		Seq:      m.Seq,
	}
}

// chatRequest 第一跳：From 由读协程按连接身份填写
type chatRequest struct {
	From    PlayerID
	Actor   sim.ActorID
	Content string
}
