package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"tickhost/protocol"
	"tickhost/sim"
)

// Config 主机进程配置：默认值 → .env → 环境变量 → 命令行参数（main 中覆盖）
type Config struct {
	Addr           string
	LogFile        string
	TickHz         int
	BroadcastHz    int
	RenderHz       int
	ArenaSize      float64
	MaxProjectiles int
	DefaultRoom    string
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		LogFile:        "app.log",
		TickHz:         protocol.SimTickHz,
		BroadcastHz:    protocol.BroadcastHz,
		RenderHz:       protocol.RenderHz,
		ArenaSize:      60,
		MaxProjectiles: 256,
		DefaultRoom:    "room-1",
	}
}

// LoadConfig 读取可选的 .env 文件（不存在不算错误）后再读取 TICKHOST_* 环境变量
func LoadConfig(envFile string) (Config, error) {
	cfg := DefaultConfig()
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if v := os.Getenv("TICKHOST_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v, ok := os.LookupEnv("TICKHOST_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v := os.Getenv("TICKHOST_DEFAULT_ROOM"); v != "" {
		cfg.DefaultRoom = v
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"TICKHOST_TICK_HZ", &cfg.TickHz},
		{"TICKHOST_BROADCAST_HZ", &cfg.BroadcastHz},
		{"TICKHOST_RENDER_HZ", &cfg.RenderHz},
		{"TICKHOST_MAX_PROJECTILES", &cfg.MaxProjectiles},
	}
	for _, it := range ints {
		v := os.Getenv(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", it.key, err)
		}
		*it.dst = n
	}
	if v := os.Getenv("TICKHOST_ARENA_SIZE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("TICKHOST_ARENA_SIZE: %w", err)
		}
		cfg.ArenaSize = f
	}
	return cfg, cfg.Validate()
}

// Validate Tick 频率必须能被广播频率整除
func (c Config) Validate() error {
	if c.TickHz <= 0 || c.BroadcastHz <= 0 || c.RenderHz <= 0 {
		return fmt.Errorf("tick, broadcast and render rates must be > 0")
	}
	if c.BroadcastHz > c.TickHz || c.TickHz%c.BroadcastHz != 0 {
		return fmt.Errorf("tick rate %d is not a multiple of broadcast rate %d", c.TickHz, c.BroadcastHz)
	}
	if c.ArenaSize <= 0 {
		return fmt.Errorf("arena size must be > 0")
	}
	return nil
}

// RoomConfig 房间可热更新的规则（/admin/config），下一 Tick 生效
type RoomConfig struct {
	Speed            float64 `json:"speed"`
	CooldownSeconds  float64 `json:"cooldownSeconds"`
	MaxProjectiles   int     `json:"maxProjectiles"`
	SimulateDropProb float64 `json:"simulateDropProb"`
}

func defaultRoomConfig(c Config) RoomConfig {
	sc := sim.DefaultConfig()
	return RoomConfig{
		Speed:           sc.Speed,
		CooldownSeconds: sc.CooldownSeconds,
		MaxProjectiles:  c.MaxProjectiles,
	}
}
