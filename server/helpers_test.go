package server

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"dragarena/overlay"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeConn struct {
	codec Codec

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeConn(c Codec) *fakeConn { return &fakeConn{codec: c} }

func (f *fakeConn) Codec() Codec { return f.codec }

func (f *fakeConn) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errConnClosed
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// envelopes 解出所有收到的消息，typ 非空时只保留该类型
func (f *fakeConn) envelopes(t *testing.T, typ string) []Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Envelope
	for _, b := range f.frames {
		env, err := f.codec.DecodeEnvelope(b)
		if err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if typ == "" || env.T == typ {
			out = append(out, env)
		}
	}
	return out
}

func (f *fakeConn) lastState(t *testing.T) StateMsg {
	t.Helper()
	envs := f.envelopes(t, MsgState)
	if len(envs) == 0 {
		t.Fatalf("no state received")
	}
	st, err := DecodePayload[StateMsg](f.codec, envs[len(envs)-1])
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func (f *fakeConn) errors(t *testing.T) []ErrorMsg {
	t.Helper()
	var out []ErrorMsg
	for _, env := range f.envelopes(t, MsgError) {
		e, err := DecodePayload[ErrorMsg](f.codec, env)
		if err != nil {
			t.Fatalf("decode error msg: %v", err)
		}
		out = append(out, e)
	}
	return out
}

// testRoom 手动推进的房间：不启动 Tick 协程，时间由测试控制
type testRoom struct {
	*Room
	now time.Time
}

func testRoomOptions() RoomOptions {
	opts := DefaultRoomOptions()
	opts.Rand = rand.New(rand.NewSource(1))
	opts.Now = func() time.Time { return t0 }
	opts.BroadcastEvery = 1
	opts.Viewport = overlay.Viewport{Width: 1200, Height: 900}
	return opts
}

func newTestRoom(t *testing.T, mutate func(*RoomOptions)) *testRoom {
	t.Helper()
	opts := testRoomOptions()
	if mutate != nil {
		mutate(&opts)
	}
	r, err := NewRoom("test", opts)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	t.Cleanup(r.Stop)
	return &testRoom{Room: r, now: t0}
}

// step 推进 d 并执行一个 Tick
func (tr *testRoom) step(d time.Duration) {
	tr.now = tr.now.Add(d)
	tr.tick(tr.now)
}

func (tr *testRoom) join(t *testing.T, name string) (ClientID, *fakeConn) {
	t.Helper()
	id := ClientID(name)
	fc := newFakeConn(JSONCodec)
	if err := tr.RequestJoin(id, fc); err != nil {
		t.Fatalf("join: %v", err)
	}
	tr.step(time.Millisecond)
	return id, fc
}

// started 加入一个连接并跳过开场
func (tr *testRoom) started(t *testing.T) (ClientID, *fakeConn) {
	t.Helper()
	id, fc := tr.join(t, "alice")
	tr.OnInput(Input{ClientID: id, Type: MsgStart})
	tr.step(time.Millisecond)
	if tr.game.Phase().String() != "playing" {
		t.Fatalf("phase = %s, want playing", tr.game.Phase())
	}
	return id, fc
}

func (tr *testRoom) pointer(id ClientID, typ string, tile int, x, y float64) {
	tr.OnInput(Input{ClientID: id, Type: typ, Tile: tile, X: x, Y: y})
}
