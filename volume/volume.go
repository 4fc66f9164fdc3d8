// Package volume 全局音量偏好：范围 0..1，默认 30%，持久化到 TOML 文件
package volume

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// Default 预设音量 30%
const Default = 0.3

var ErrInvalid = errors.New("volume is not a number")

type file struct {
	Volume *float64 `toml:"volume"`
}

// Store 并发安全的音量偏好；path 为空时只保存在内存
type Store struct {
	mu     sync.RWMutex
	path   string
	volume float64
}

// Open 读取已保存的音量。文件不存在、无法解析或超出范围时回退到 Default；
// 返回的 Store 总是可用，error 只用于让调用方记录日志
func Open(path string) (*Store, error) {
	s := &Store{path: path, volume: Default}
	if path == "" {
		return s, nil
	}
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("load volume %s: %w", path, err)
	}
	if f.Volume != nil && valid(*f.Volume) {
		s.volume = *f.Volume
	}
	return s, nil
}

func valid(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Clamp 夹到 [0,1]
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Volume 当前音量
func (s *Store) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// SetVolume 夹到 [0,1] 后保存，返回实际生效的值
func (s *Store) SetVolume(v float64) (float64, error) {
	if math.IsNaN(v) {
		return s.Volume(), ErrInvalid
	}
	v = Clamp(v)
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
	return v, s.save(v)
}

func (s *Store) save(v float64) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("save volume: %w", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("save volume: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(file{Volume: &v}); err != nil {
		f.Close()
		return fmt.Errorf("save volume: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save volume: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Icon 音量图标：静音、小声、正常
func Icon(v float64) string {
	switch {
	case v == 0:
		return "🔇"
	case v < 0.3:
		return "🔉"
	default:
		return "🔊"
	}
}
