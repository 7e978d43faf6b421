package sim

import "github.com/go-gl/mathgl/mgl64"

// ActionBits 按键位集合
type ActionBits uint8

const (
	ActionPrimary ActionBits = 1 << iota
	ActionSecondary
)

// IsSet 是否按下了 b 中的全部位
func (a ActionBits) IsSet(b ActionBits) bool {
	return b != 0 && a&b == b
}

// IntentFrame 某参与者单个 Tick 的输入快照，不可变
// Direction 未归一化，归一化由模拟引擎负责
type IntentFrame struct {
	Direction mgl64.Vec3
	Actions   ActionBits
}

// NewIntentFrame 构造一帧意图
func NewIntentFrame(dir mgl64.Vec3, actions ActionBits) IntentFrame {
	return IntentFrame{Direction: dir, Actions: actions}
}
