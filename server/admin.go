package server

import (
	"encoding/json"
	"net/http"

	"tickhost/protocol"
)

// HandleAdminConfig 提供房间配置的读取与更新（热更新基本规则）
// GET /admin/config?room=room-1  返回当前配置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段
func HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	GetRoomManager().HandleAdminConfig(w, r)
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=room-1
func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	GetRoomManager().HandleMetrics(w, r)
}

// HandleSchema 输出线上消息的 JSON Schema
// GET /schema
func HandleSchema(w http.ResponseWriter, r *http.Request) {
	b, err := protocol.Schema()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	_, _ = w.Write(b)
}

type roomConfigPatch struct {
	Speed            *float64 `json:"speed,omitempty"`
	CooldownSeconds  *float64 `json:"cooldownSeconds,omitempty"`
	MaxProjectiles   *int     `json:"maxProjectiles,omitempty"`
	SimulateDropProb *float64 `json:"simulateDropProb,omitempty"`
}

func (p roomConfigPatch) validate() string {
	switch {
	case p.Speed != nil && *p.Speed < 0:
		return "speed must be >= 0"
	case p.CooldownSeconds != nil && *p.CooldownSeconds < 0:
		return "cooldownSeconds must be >= 0"
	case p.MaxProjectiles != nil && *p.MaxProjectiles < 0:
		return "maxProjectiles must be >= 0"
	case p.SimulateDropProb != nil && (*p.SimulateDropProb < 0 || *p.SimulateDropProb > 1):
		return "simulateDropProb must be within [0,1]"
	}
	return ""
}

func (p roomConfigPatch) apply(c *RoomConfig) {
	if p.Speed != nil {
		c.Speed = *p.Speed
	}
	if p.CooldownSeconds != nil {
		c.CooldownSeconds = *p.CooldownSeconds
	}
	if p.MaxProjectiles != nil {
		c.MaxProjectiles = *p.MaxProjectiles
	}
	if p.SimulateDropProb != nil {
		c.SimulateDropProb = *p.SimulateDropProb
	}
}

func (m *RoomManager) roomFromQuery(r *http.Request) *Room {
	return m.GetOrCreateRoom(r.URL.Query().Get("room"))
}

// HandleAdminConfig 见包级同名函数
func (m *RoomManager) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	room := m.roomFromQuery(r)

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, room.Config())
		return
	case http.MethodPost:
		var body roomConfigPatch
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if msg := body.validate(); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		cur := room.UpdateConfig(body.apply)
		writeJSON(w, map[string]any{"ok": true, "config": cur})
		Log.Infof("config updated: room=%s speed=%.2f cooldown=%.2fs maxProjectiles=%d drop=%.2f",
			room.ID, cur.Speed, cur.CooldownSeconds, cur.MaxProjectiles, cur.SimulateDropProb)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 见包级同名函数
func (m *RoomManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	room := m.roomFromQuery(r)
	payload := map[string]any{
		"room":    room.ID,
		"tick":    room.Tick(),
		"metrics": room.Metrics().Snapshot(),
	}
	writeJSON(w, payload)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
