package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	InputsAccepted    int64 // 被接受的意图帧
	InputsSuperseded  int64 // 同一 Tick 内被新帧覆盖的意图帧
	OldSeqIgnored     int64 // 因旧序列被忽略的输入数
	DropsSimulated    int64 // 因模拟丢包被丢弃的输入数
	ChanFullDiscarded int64 // 因通道满被丢弃的输入数
	AuthorityRejected int64 // 被权威模型拒绝的操作
	Spawns            int64 // 成功生成的子实体
	SpawnFailures     int64 // 生成失败（被丢弃）的请求
	ChatsRelayed      int64 // 完成两跳的聊天消息
	SendDropped       int64 // 发送队列满被丢弃的下行消息
	Flashes           int64 // 主机渲染循环观测到的技能边沿
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *RoomMetrics) IncAccepted() { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) IncSuperseded() { atomic.AddInt64(&m.InputsSuperseded, 1) }
func (m *RoomMetrics) IncOldSeqIgnored() { atomic.AddInt64(&m.OldSeqIgnored, 1) }
func (m *RoomMetrics) IncDropsSimulated() { atomic.AddInt64(&m.DropsSimulated, 1) }
func (m *RoomMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *RoomMetrics) IncAuthorityRejected() { atomic.AddInt64(&m.AuthorityRejected, 1) }
func (m *RoomMetrics) IncSpawns() { atomic.AddInt64(&m.Spawns, 1) }
func (m *RoomMetrics) IncSpawnFailures() { atomic.AddInt64(&m.SpawnFailures, 1) }
func (m *RoomMetrics) IncChatsRelayed() { atomic.AddInt64(&m.ChatsRelayed, 1) }
func (m *RoomMetrics) IncSendDropped() { atomic.AddInt64(&m.SendDropped, 1) }
func (m *RoomMetrics) AddFlashes(n int) { atomic.AddInt64(&m.Flashes, int64(n)) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"inputs_superseded":   atomic.LoadInt64(&m.InputsSuperseded),
		"old_seq_ignored":     atomic.LoadInt64(&m.OldSeqIgnored),
		"drops_simulated":     atomic.LoadInt64(&m.DropsSimulated),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"authority_rejected":  atomic.LoadInt64(&m.AuthorityRejected),
		"spawns":              atomic.LoadInt64(&m.Spawns),
		"spawn_failures":      atomic.LoadInt64(&m.SpawnFailures),
		"chats_relayed":       atomic.LoadInt64(&m.ChatsRelayed),
		"send_dropped":        atomic.LoadInt64(&m.SendDropped),
		"flashes":             atomic.LoadInt64(&m.Flashes),
		"avg_tick_ms":         avgMs,
	}
}
