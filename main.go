package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dragarena/config"
	"dragarena/overlay"
	"dragarena/server"
	"dragarena/volume"
)

// DragArena 入口：启动 HTTP + WebSocket 服务，并初始化房间管理器
func main() {
	var (
		configPath string
		addr       string
	)
	flag.StringVar(&configPath, "config", "dragarena.toml", "path to TOML config (optional)")
	flag.StringVar(&addr, "addr", "", "server listen address, overrides config, e.g. :8080")
	flag.Parse()

	// 配置有误时用默认值启动，日志初始化后再报警告
	cfg, cfgErr := config.LoadOrDefault(configPath)
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if err := server.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer server.SyncLogger()
	if cfgErr != nil {
		server.Log.Warnf("config %s rejected, using defaults: %v", configPath, cfgErr)
	}

	vol, err := volume.Open(cfg.Volume.File)
	if err != nil {
		server.Log.Warnf("volume preference reset to default: %v", err)
	}
	level, err := cfg.GameLevel()
	if err != nil {
		server.Log.Fatalf("level: %v", err)
	}

	opts := server.DefaultRoomOptions()
	opts.Level = level
	opts.TickHz = cfg.Server.TickHz
	opts.BroadcastEvery = cfg.Server.BroadcastEvery
	opts.Viewport = overlay.Viewport{Width: 1280, Height: 800}
	opts.Volume = vol
	rm := server.NewRoomManager(opts)

	app := server.NewServer(cfg.Server, rm, vol)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		server.Log.Infof("DragArena listening on %s; open http://localhost%v/", cfg.Server.Addr, cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
