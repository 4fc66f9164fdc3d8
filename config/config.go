// Package config 读取配置：默认值 → TOML 文件 → .env → 环境变量
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"dragarena/game"
)

type Config struct {
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
	Volume VolumeConfig `toml:"volume"`
	Level  LevelConfig  `toml:"level"`
	TUI    TUIConfig    `toml:"tui"`
}

type ServerConfig struct {
	Addr           string `toml:"addr"`
	TickHz         int    `toml:"tick_hz"`
	BroadcastEvery int    `toml:"broadcast_every"` // 每几个 Tick 广播一次快照
	DefaultRoom    string `toml:"default_room"`
	StaticDir      string `toml:"static_dir"`
}

type LogConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
	Level      string `toml:"level"`
	Format     string `toml:"format"` // console 或 json
}

type VolumeConfig struct {
	File string `toml:"file"`
}

// LevelConfig 关卡参数覆盖，未设置的字段保持默认
type LevelConfig struct {
	Margin          *float64 `toml:"margin"`
	TileSize        *float64 `toml:"tile_size"`
	SpawnPadding    *float64 `toml:"spawn_padding"`
	HeaderSpace     *float64 `toml:"header_space"`
	BouncePadding   *float64 `toml:"bounce_padding"`
	MinSpeed        *float64 `toml:"min_speed"`
	MaxSpeed        *float64 `toml:"max_speed"`
	InitialTiles    *int     `toml:"initial_tiles"`
	MaxTiles        *int     `toml:"max_tiles"`
	SpawnIntervalMs *int     `toml:"spawn_interval_ms"`
	IntroMs         *int     `toml:"intro_ms"`
	TargetScore     *int     `toml:"target_score"`
	BonusPoints     *int     `toml:"bonus_points"`
	Media           []string `toml:"media"`
}

// TUIConfig 终端客户端：每个字符格对应多少游戏单位，以及缩小后的关卡
type TUIConfig struct {
	UnitsPerCol float64     `toml:"units_per_col"`
	UnitsPerRow float64     `toml:"units_per_row"`
	LogFile     string      `toml:"log_file"`
	Level       LevelConfig `toml:"level"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			TickHz:         60,
			BroadcastEvery: 2,
			DefaultRoom:    "room-1",
			StaticDir:      "web",
		},
		Log: LogConfig{
			File:       "app.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Level:      "debug",
			Format:     "console",
		},
		Volume: VolumeConfig{File: defaultVolumeFile()},
		TUI: TUIConfig{
			UnitsPerCol: 10,
			UnitsPerRow: 20,
			LogFile:     "dragtui.log",
			Level: LevelConfig{
				Margin:        ptr(40.0),
				TileSize:      ptr(60.0),
				SpawnPadding:  ptr(10.0),
				HeaderSpace:   ptr(40.0),
				BouncePadding: ptr(10.0),
			},
		},
	}
}

func defaultVolumeFile() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return "volume.toml"
	}
	return h + "/.config/dragarena/volume.toml"
}

func ptr[T any](v T) *T { return &v }

// Load 读取配置文件（可为空或不存在）并应用 .env 与环境变量覆盖
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	// .env 不存在不算错误
	_ = godotenv.Load()
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadOrDefault 同 Load，但出错时返回完整默认配置，调用方记录警告后继续运行
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return Default(), err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("DRAGARENA_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DRAGARENA_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("DRAGARENA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DRAGARENA_VOLUME_FILE"); v != "" {
		cfg.Volume.File = v
	}
	if v := os.Getenv("DRAGARENA_TICK_HZ"); v != "" {
		hz, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DRAGARENA_TICK_HZ: %w", err)
		}
		cfg.Server.TickHz = hz
	}
	return nil
}

func (c Config) Validate() error {
	if c.Server.TickHz <= 0 {
		return fmt.Errorf("server.tick_hz must be positive, got %d", c.Server.TickHz)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if f := c.Log.Format; f != "" && f != "console" && f != "json" {
		return fmt.Errorf("log.format must be console or json, got %q", f)
	}
	if c.Server.BroadcastEvery <= 0 {
		return fmt.Errorf("server.broadcast_every must be positive, got %d", c.Server.BroadcastEvery)
	}
	if _, err := c.GameLevel(); err != nil {
		return err
	}
	if c.TUI.UnitsPerCol <= 0 || c.TUI.UnitsPerRow <= 0 {
		return errors.New("tui units per cell must be positive")
	}
	_, err := c.TUILevel()
	return err
}

// GameLevel 默认关卡加上 [level] 覆盖
func (c Config) GameLevel() (game.Level, error) {
	l := game.DefaultLevel()
	c.Level.Apply(&l)
	return l, l.Validate()
}

// TUILevel 终端客户端用的关卡：先应用 [level]，再应用 [tui.level]
func (c Config) TUILevel() (game.Level, error) {
	l := game.DefaultLevel()
	c.Level.Apply(&l)
	c.TUI.Level.Apply(&l)
	return l, l.Validate()
}

// Apply 把已设置的字段写入关卡
func (lc LevelConfig) Apply(l *game.Level) {
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setI := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setF(&l.Margin, lc.Margin)
	setF(&l.TileSize, lc.TileSize)
	setF(&l.SpawnPadding, lc.SpawnPadding)
	setF(&l.HeaderSpace, lc.HeaderSpace)
	setF(&l.BouncePadding, lc.BouncePadding)
	setF(&l.MinSpeed, lc.MinSpeed)
	setF(&l.MaxSpeed, lc.MaxSpeed)
	setI(&l.InitialTiles, lc.InitialTiles)
	setI(&l.MaxTiles, lc.MaxTiles)
	setI(&l.TargetScore, lc.TargetScore)
	setI(&l.BonusPoints, lc.BonusPoints)
	if lc.SpawnIntervalMs != nil {
		l.SpawnInterval = time.Duration(*lc.SpawnIntervalMs) * time.Millisecond
	}
	if lc.IntroMs != nil {
		l.IntroDuration = time.Duration(*lc.IntroMs) * time.Millisecond
	}
	if len(lc.Media) > 0 {
		l.Media = append([]string(nil), lc.Media...)
	}
}
