// Package sfx 合成游戏音效：得分、BONUS、过关、生成。
// 可以直接在本机播放（终端客户端），也可以编码成 WAV 由浏览器播放
package sfx

import (
	"fmt"
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
)

// SampleRate 全部音效使用同一采样率
const SampleRate = beep.SampleRate(44100)

// Name 音效名
type Name string

const (
	Score    Name = "score"
	Bonus    Name = "bonus"
	Complete Name = "complete"
	Spawn    Name = "spawn"
)

// Names 所有可用音效
var Names = []Name{Score, Bonus, Complete, Spawn}

type note struct {
	freq float64 // 0 表示休止
	dur  time.Duration
}

var sheets = map[Name][]note{
	Score:    {{880, 60 * time.Millisecond}, {1320, 90 * time.Millisecond}},
	Bonus:    {{523, 80 * time.Millisecond}, {659, 80 * time.Millisecond}, {784, 80 * time.Millisecond}, {1046, 220 * time.Millisecond}},
	Complete: {{784, 120 * time.Millisecond}, {0, 40 * time.Millisecond}, {784, 120 * time.Millisecond}, {1175, 360 * time.Millisecond}},
	Spawn:    {{440, 30 * time.Millisecond}},
}

// Parse 校验音效名
func Parse(s string) (Name, error) {
	n := Name(s)
	if _, ok := sheets[n]; !ok {
		return "", fmt.Errorf("unknown sound effect %q", s)
	}
	return n, nil
}

// Stream 按音量（0..1）生成有限长度的音效流
func Stream(name Name, vol float64) (beep.Streamer, error) {
	sheet, ok := sheets[name]
	if !ok {
		return nil, fmt.Errorf("unknown sound effect %q", name)
	}
	parts := make([]beep.Streamer, 0, len(sheet))
	for _, n := range sheet {
		num := SampleRate.N(n.dur)
		if n.freq == 0 {
			parts = append(parts, beep.Silence(num))
			continue
		}
		tone, err := generators.SineTone(SampleRate, n.freq)
		if err != nil {
			return nil, err
		}
		parts = append(parts, fadeOut(beep.Take(num, tone), num))
	}
	return withVolume(beep.Seq(parts...), vol), nil
}

// Length 音效的采样数
func Length(name Name) int {
	total := 0
	for _, n := range sheets[name] {
		total += SampleRate.N(n.dur)
	}
	return total
}

// fadeOut 线性衰减，避免音符结尾爆音
func fadeOut(s beep.Streamer, total int) beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		n, ok := s.Stream(samples)
		for i := 0; i < n; i++ {
			g := 1 - float64(pos)/float64(total)
			samples[i][0] *= g * 0.5
			samples[i][1] *= g * 0.5
			pos++
		}
		return n, ok
	})
}

// withVolume 0 音量直接静音（log2(0) 是 -Inf）
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(math.Min(vol, 1))}
}
