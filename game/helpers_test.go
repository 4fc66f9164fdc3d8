package game

import (
	"math/rand"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type recorder struct {
	completions int
	events      []Event
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnComplete: func() { r.completions++ },
		OnEvent:    func(ev Event) { r.events = append(r.events, ev) },
	}
}

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

type fixedVolume float64

func (v fixedVolume) Volume() float64 { return float64(v) }

// newTestGame 1200x900 视口、边距 200，对应边界 {200,200,1000,700}
func newTestGame(t *testing.T) (*Game, *Scheduler, *recorder) {
	t.Helper()
	sched := NewScheduler(t0)
	rec := &recorder{}
	g, err := New(sched, 1200, 900, Options{
		Level: DefaultLevel(),
		Rand:  rand.New(rand.NewSource(1)),
		Hooks: rec.hooks(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g, sched, rec
}

func startedGame(t *testing.T) (*Game, *Scheduler, *recorder) {
	t.Helper()
	g, sched, rec := newTestGame(t)
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return g, sched, rec
}

func at(d time.Duration) time.Time { return t0.Add(d) }
