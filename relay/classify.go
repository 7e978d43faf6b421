package relay

import (
	"fmt"

	"tickhost/sim"
)

// Provenance 接收端对消息来源的本地分类
type Provenance uint8

const (
	ProvenanceOther Provenance = iota
	ProvenanceOwn
)

func (p Provenance) String() string {
	if p == ProvenanceOwn {
		return "own"
	}
	return "other"
}

// Classify 每个接收者独立判断：来源等于本地参与者即为自己发的
func Classify(msg ChatMessage, local sim.ParticipantID) Provenance {
	if local != "" && msg.Source == local {
		return ProvenanceOwn
	}
	return ProvenanceOther
}

// Format 按来源加前缀渲染一行聊天
func Format(msg ChatMessage, local sim.ParticipantID) string {
	if Classify(msg, local) == ProvenanceOwn {
		return fmt.Sprintf("You said: %s", msg.Content)
	}
	return fmt.Sprintf("Some other player said: %s", msg.Content)
}
