package server

import (
	"sort"
	"sync"
)

// RoomManager 管理多个房间的生命周期
type RoomManager struct {
	cfg   Config
	mu    sync.RWMutex
	rooms map[string]*Room
}

var (
	defaultManager *RoomManager
	once           sync.Once
)

// NewRoomManager 按进程配置创建房间管理器
func NewRoomManager(cfg Config) *RoomManager {
	return &RoomManager{cfg: cfg, rooms: make(map[string]*Room)}
}

// InitRoomManager 用给定配置初始化单例；只有第一次调用生效
func InitRoomManager(cfg Config) *RoomManager {
	once.Do(func() {
		defaultManager = NewRoomManager(cfg)
	})
	return defaultManager
}

// GetRoomManager 单例房间管理器；未初始化时使用默认配置
func GetRoomManager() *RoomManager {
	return InitRoomManager(DefaultConfig())
}

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	if id == "" {
		id = m.cfg.DefaultRoom
	}
	m.mu.RLock()
	r, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok = m.rooms[id]
	if !ok {
		r = NewRoom(id, m.cfg)
		m.rooms[id] = r
		r.StartTicker()
		Log.Infof("room created: %s tick=%dHz broadcast=%dHz", id, m.cfg.TickHz, m.cfg.BroadcastHz)
	}
	return r
}

// Room 查找已存在的房间
func (m *RoomManager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// RoomIDs 已创建的房间，按名称排序
func (m *RoomManager) RoomIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StopAll 停止全部房间（断开连接）
func (m *RoomManager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.Stop()
		delete(m.rooms, id)
	}
}
