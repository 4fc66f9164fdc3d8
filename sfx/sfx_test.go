package sfx

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/gopxl/beep"
)

type fakeSink struct {
	played  []beep.Streamer
	cleared int
}

func (f *fakeSink) Play(s beep.Streamer) { f.played = append(f.played, s) }
func (f *fakeSink) Clear()               { f.cleared++ }

type fixedVolume float64

func (v fixedVolume) Volume() float64 { return float64(v) }

func drain(s beep.Streamer) (samples int, peak float64) {
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			if v := buf[i][0]; v > peak {
				peak = v
			}
			if v := -buf[i][0]; v > peak {
				peak = v
			}
		}
		samples += n
		if !ok {
			return
		}
	}
}

func TestStreamLengthAndSilence(t *testing.T) {
	for _, name := range Names {
		s, err := Stream(name, 0.5)
		if err != nil {
			t.Fatalf("Stream(%s): %v", name, err)
		}
		n, peak := drain(s)
		if n != Length(name) {
			t.Fatalf("%s: %d samples, want %d", name, n, Length(name))
		}
		if peak == 0 {
			t.Fatalf("%s: silent at volume 0.5", name)
		}

		muted, _ := Stream(name, 0)
		if _, peak := drain(muted); peak != 0 {
			t.Fatalf("%s: audible at volume 0 (peak %v)", name, peak)
		}
	}
}

func TestLouderVolumeHasHigherPeak(t *testing.T) {
	quiet, _ := Stream(Score, 0.1)
	loud, _ := Stream(Score, 1)
	_, qp := drain(quiet)
	_, lp := drain(loud)
	if lp <= qp {
		t.Fatalf("peak at 1.0 (%v) not above peak at 0.1 (%v)", lp, qp)
	}
}

func TestParse(t *testing.T) {
	if n, err := Parse("bonus"); err != nil || n != Bonus {
		t.Fatalf("Parse(bonus) = %q, %v", n, err)
	}
	if _, err := Parse("explosion"); err == nil {
		t.Fatalf("unknown effect accepted")
	}
}

func TestRenderWAV(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, Spawn, 0.3); err != nil {
		t.Fatalf("Render: %v", err)
	}
	b := buf.Bytes()
	if len(b) < 44 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		t.Fatalf("not a WAV header: % x", b[:12])
	}
	riffSize := binary.LittleEndian.Uint32(b[4:8])
	if int(riffSize) != len(b)-8 {
		t.Fatalf("RIFF size %d, file %d bytes", riffSize, len(b))
	}
}

func TestPlayerStopsPreviousBeforePlaying(t *testing.T) {
	sink := &fakeSink{}
	p := NewPlayer(sink, fixedVolume(0.5))
	p.Play(Score)
	p.Play(Bonus)
	if len(sink.played) != 2 || sink.cleared != 2 {
		t.Fatalf("played=%d cleared=%d, want 2 and 2", len(sink.played), sink.cleared)
	}
	p.Stop()
	if sink.cleared != 3 {
		t.Fatalf("Stop did not clear")
	}

	var nilPlayer *Player
	nilPlayer.Play(Score)
	NewPlayer(nil, nil).Play(Score)
}
