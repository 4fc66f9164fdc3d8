// dragtui 终端版拖拽小游戏：鼠标抓住方块拖出红框得分
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"dragarena/config"
	"dragarena/server"
	"dragarena/sfx"
	"dragarena/volume"
)

func main() {
	configPath := flag.String("config", "dragarena.toml", "path to TOML config (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, cfgErr := config.LoadOrDefault(configPath)
	// 终端占用 stdout，日志只写文件
	logCfg := cfg.Log
	logCfg.File = cfg.TUI.LogFile
	if err := server.InitLogger(logCfg); err != nil {
		return err
	}
	defer server.SyncLogger()
	if cfgErr != nil {
		server.Log.Warnf("config %s rejected, using defaults: %v", configPath, cfgErr)
	}

	vol, err := volume.Open(cfg.Volume.File)
	if err != nil {
		server.Log.Warnf("volume preference reset to default: %v", err)
	}
	level, err := cfg.TUILevel()
	if err != nil {
		return fmt.Errorf("level: %w", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse(tcell.MouseDragEvents)
	screen.HideCursor()

	var player *sfx.Player
	if sink, err := sfx.NewSpeakerSink(); err != nil {
		// 没有声卡也能玩
		server.Log.Warnf("audio disabled: %v", err)
	} else {
		player = sfx.NewPlayer(sink, vol)
	}
	defer player.Stop()

	a, err := newApp(screen, appOptions{
		Level:  level,
		Scale:  scale{col: cfg.TUI.UnitsPerCol, row: cfg.TUI.UnitsPerRow},
		Volume: vol,
		Player: player,
		Rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		Now:    time.Now(),
	})
	if err != nil {
		return err
	}
	a.run(level.FrameInterval)
	server.Log.Infof("dragtui exit: score=%d", a.game.Score())
	return nil
}

// run 主循环：输入事件与帧定时器在同一协程处理
func (a *app) run(frame time.Duration) {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	events := make(chan tcell.Event, 64)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	a.draw()
	for {
		select {
		case ev := <-events:
			if !a.handleEvent(ev) {
				return
			}
		case now := <-ticker.C:
			a.step(now)
			a.draw()
		}
	}
}
