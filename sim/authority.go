package sim

import (
	"errors"
	"fmt"
)

// ParticipantID 参与者唯一标识（由传输层提供，不可伪造）
type ParticipantID string

// HostID 主机进程自身的参与者标识，默认持有状态权威
const HostID ParticipantID = "host"

// Role 参与者相对某个 Actor 的角色
type Role uint8

const (
	RoleObserver Role = iota
	RoleInputAuthority
	RoleStateAuthority
)

func (r Role) String() string {
	switch r {
	case RoleStateAuthority:
		return "state-authority"
	case RoleInputAuthority:
		return "input-authority"
	default:
		return "observer"
	}
}

// ErrAuthorityViolation 非状态权威尝试写入规范状态
var ErrAuthorityViolation = errors.New("sim: authority violation")

// Authority 单个 Actor 的权威分配：创建时由复制层设定，之后只读复制
type Authority struct {
	State ParticipantID `json:"state" msgpack:"state"`
	Input ParticipantID `json:"input" msgpack:"input"`
}

// RoleOf 返回 p 对该 Actor 的角色；状态权威优先于输入权威
func (a Authority) RoleOf(p ParticipantID) Role {
	switch {
	case p != "" && p == a.State:
		return RoleStateAuthority
	case p != "" && p == a.Input:
		return RoleInputAuthority
	default:
		return RoleObserver
	}
}

// HasStateAuthority p 是否可写规范状态
func (a Authority) HasStateAuthority(p ParticipantID) bool {
	return p != "" && p == a.State
}

// HasInputAuthority p 是否可为该 Actor 提交意图与发起中继第一跳
func (a Authority) HasInputAuthority(p ParticipantID) bool {
	return p != "" && p == a.Input
}

// Guard 每个变更入口都要先调用；非状态权威返回 ErrAuthorityViolation
func (a Authority) Guard(by ParticipantID, op string) error {
	if a.HasStateAuthority(by) {
		return nil
	}
	return fmt.Errorf("%w: %s by %q (role %s)", ErrAuthorityViolation, op, by, a.RoleOf(by))
}
