package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickhost/server"
)

// tickhost 入口：启动 HTTP + WebSocket 服务，本进程作为全部 Actor 的状态权威
func main() {
	var (
		envFile   string
		addr      string
		logFile   string
		tickHz    int
		broadcast int
		renderHz  int
	)
	flag.StringVar(&envFile, "env", ".env", "optional dotenv file")
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :8080 (overrides TICKHOST_ADDR)")
	flag.StringVar(&logFile, "log", "", "log file path (overrides TICKHOST_LOG_FILE)")
	flag.IntVar(&tickHz, "tick", 0, "simulation tick rate in Hz")
	flag.IntVar(&broadcast, "broadcast", 0, "state broadcast rate in Hz")
	flag.IntVar(&renderHz, "render", 0, "host presentation rate in Hz")
	flag.Parse()

	cfg, err := server.LoadConfig(envFile)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if tickHz > 0 {
		cfg.TickHz = tickHz
	}
	if broadcast > 0 {
		cfg.BroadcastHz = broadcast
	}
	if renderHz > 0 {
		cfg.RenderHz = renderHz
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.LogFile); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	rm := server.InitRoomManager(cfg)
	// 先预创建一个默认房间，便于快速试跑
	_ = rm.GetOrCreateRoom(cfg.DefaultRoom)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", rm.ServeWS)
	// 管理与监控接口
	mux.HandleFunc("/admin/config", rm.HandleAdminConfig)
	mux.HandleFunc("/metrics", rm.HandleMetrics)
	mux.HandleFunc("/schema", server.HandleSchema)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		server.Log.Infof("tickhost listening on %s; tick=%dHz broadcast=%dHz render=%dHz",
			cfg.Addr, cfg.TickHz, cfg.BroadcastHz, cfg.RenderHz)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnf("shutdown: %v", err)
	}
	rm.StopAll()
}
