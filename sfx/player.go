package sfx

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Sink 音频输出
type Sink interface {
	Play(s beep.Streamer)
	Clear()
}

// VolumeSource 全局音量偏好
type VolumeSource interface {
	Volume() float64
}

// Player 简单音效播放器：播放新音效前先停掉上一个，失败一律忽略
type Player struct {
	mu     sync.Mutex
	sink   Sink
	volume VolumeSource
}

func NewPlayer(sink Sink, volume VolumeSource) *Player {
	return &Player{sink: sink, volume: volume}
}

// Play 按当前音量播放
func (p *Player) Play(name Name) {
	if p == nil || p.sink == nil {
		return
	}
	vol := 0.3
	if p.volume != nil {
		vol = p.volume.Volume()
	}
	s, err := Stream(name, vol)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink.Clear()
	p.sink.Play(s)
}

// Stop 停止正在播放的音效
func (p *Player) Stop() {
	if p == nil || p.sink == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink.Clear()
}

// SpeakerSink 本机扬声器
type SpeakerSink struct{}

// NewSpeakerSink 初始化扬声器；失败时调用方应降级为无声
func NewSpeakerSink() (*SpeakerSink, error) {
	if err := speaker.Init(SampleRate, SampleRate.N(100*time.Millisecond)); err != nil {
		return nil, err
	}
	return &SpeakerSink{}, nil
}

func (SpeakerSink) Play(s beep.Streamer) { speaker.Play(s) }

func (SpeakerSink) Clear() { speaker.Clear() }
