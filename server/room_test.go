package server

import (
	"errors"
	"sync"
	"testing"
	"time"

	"dragarena/game"
	"dragarena/overlay"
)

func TestJoinSendsWelcomeAndIntroState(t *testing.T) {
	tr := newTestRoom(t, nil)
	_, fc := tr.join(t, "alice")

	envs := fc.envelopes(t, "")
	if len(envs) < 2 || envs[0].T != MsgWelcome {
		t.Fatalf("first messages = %+v, want welcome first", envs)
	}
	w, err := DecodePayload[WelcomeMsg](JSONCodec, envs[0])
	if err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if w.Client != "alice" || w.Room != "test" || w.TickHz != 60 {
		t.Fatalf("welcome = %+v", w)
	}
	st := fc.lastState(t)
	if st.Phase != "intro" || st.Overlay == nil || st.Overlay.Src != tr.game.Level().IntroMedia {
		t.Fatalf("state = %+v, want intro with overlay", st)
	}
	if st.Viewers != 1 {
		t.Fatalf("viewers = %d, want 1", st.Viewers)
	}
}

func TestStartMessageBeginsPlay(t *testing.T) {
	tr := newTestRoom(t, nil)
	_, fc := tr.started(t)

	st := fc.lastState(t)
	if st.Phase != "playing" || len(st.Tiles) != 5 || st.Overlay != nil {
		t.Fatalf("state = phase %s tiles %d overlay %v", st.Phase, len(st.Tiles), st.Overlay)
	}
	var phaseEvents int
	for _, env := range fc.envelopes(t, MsgEvent) {
		ev, err := DecodePayload[game.Event](JSONCodec, env)
		if err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Kind == game.EventPhase {
			phaseEvents++
		}
	}
	if phaseEvents != 1 {
		t.Fatalf("phase events = %d, want 1", phaseEvents)
	}
}

func TestIntroEndsAutomatically(t *testing.T) {
	tr := newTestRoom(t, func(o *RoomOptions) { o.Level.IntroDuration = 2 * time.Second })
	tr.join(t, "alice")
	tr.step(time.Second)
	if tr.game.Phase() != game.PhaseIntro {
		t.Fatalf("started too early")
	}
	tr.step(time.Second)
	if tr.game.Phase() != game.PhasePlaying {
		t.Fatalf("phase = %s after intro duration", tr.game.Phase())
	}
}

func TestCaptureBelongsToOneClient(t *testing.T) {
	tr := newTestRoom(t, nil)
	alice, _ := tr.started(t)
	bob, bfc := tr.join(t, "bob")

	tiles := tr.game.Tiles()
	a, b := tiles[0], tiles[1]
	tr.pointer(alice, MsgPointerDown, a.ID, a.X, a.Y)
	tr.step(time.Millisecond)
	if tr.owner != alice {
		t.Fatalf("owner = %q, want alice", tr.owner)
	}

	tr.pointer(bob, MsgPointerDown, b.ID, b.X, b.Y)
	tr.pointer(bob, MsgPointerMove, a.ID, 0, 0)
	tr.pointer(bob, MsgPointerUp, a.ID, 0, 0)
	tr.step(time.Millisecond)

	errs := bfc.errors(t)
	if len(errs) != 3 {
		t.Fatalf("bob errors = %+v, want 3", errs)
	}
	if errs[0].Op != MsgPointerDown || errs[0].Reason != game.ErrAlreadyCaptured.Error() {
		t.Fatalf("capture error = %+v", errs[0])
	}
	for _, e := range errs[1:] {
		if e.Reason != errNotOwner.Error() {
			t.Fatalf("error = %+v, want not owner", e)
		}
	}
	if id, ok := tr.game.Captured(); !ok || id != a.ID {
		t.Fatalf("captured = %d,%v, want %d", id, ok, a.ID)
	}
	if got := tr.metrics.CapturesRejected; got != 1 {
		t.Fatalf("captures rejected = %d, want 1", got)
	}
}

func TestDropOutsideScoresAndPopsUp(t *testing.T) {
	tr := newTestRoom(t, nil)
	alice, fc := tr.started(t)

	tile := tr.game.Tiles()[0]
	tr.pointer(alice, MsgPointerDown, tile.ID, tile.X, tile.Y)
	tr.pointer(alice, MsgPointerUp, tile.ID, tile.X-5000, tile.Y)
	tr.step(time.Millisecond)

	if tr.game.Score() != 1 {
		t.Fatalf("score = %d, want 1", tr.game.Score())
	}
	if _, ok := tr.game.Tile(tile.ID); ok {
		t.Fatalf("scored tile still present")
	}
	popups := fc.envelopes(t, MsgPopup)
	if len(popups) != 1 {
		t.Fatalf("popups = %d, want 1", len(popups))
	}
	p, err := DecodePayload[map[string]any](JSONCodec, popups[0])
	if err != nil {
		t.Fatalf("decode popup: %v", err)
	}
	if p["src"] != tile.Media || p["x"] != float64(10) || p["autoCloseOnEnd"] != true {
		t.Fatalf("popup = %v", p)
	}
	if tr.owner != "" {
		t.Fatalf("owner = %q after release", tr.owner)
	}
}

func TestOwnerDisconnectReleasesInPlace(t *testing.T) {
	tr := newTestRoom(t, nil)
	alice, afc := tr.started(t)
	_, bfc := tr.join(t, "bob")

	tile := tr.game.Tiles()[0]
	tr.pointer(alice, MsgPointerDown, tile.ID, tile.X, tile.Y)
	tr.pointer(alice, MsgPointerMove, tile.ID, tile.X+10, tile.Y)
	tr.step(time.Millisecond)

	tr.RequestLeave(alice)
	tr.step(time.Millisecond)

	if _, ok := tr.game.Captured(); ok {
		t.Fatalf("tile still captured after owner left")
	}
	got, ok := tr.game.Tile(tile.ID)
	if !ok {
		t.Fatalf("tile removed; expected in-place drop")
	}
	if got.X != tile.X+10 || got.Y != tile.Y {
		t.Fatalf("tile at (%v,%v), want (%v,%v)", got.X, got.Y, tile.X+10, tile.Y)
	}
	if tr.game.Score() != 0 {
		t.Fatalf("score = %d, want 0", tr.game.Score())
	}
	if !afc.isClosed() {
		t.Fatalf("leaving conn not closed")
	}
	if st := bfc.lastState(t); st.Viewers != 1 || st.Captured != game.NoTile {
		t.Fatalf("bob state = viewers %d captured %d", st.Viewers, st.Captured)
	}
}

func TestLastLeaveCallsOnEmpty(t *testing.T) {
	tr := newTestRoom(t, nil)
	var emptied string
	tr.OnEmpty = func(id string) { emptied = id }
	alice, _ := tr.join(t, "alice")
	tr.RequestLeave(alice)
	tr.step(time.Millisecond)
	if emptied != "test" {
		t.Fatalf("OnEmpty = %q, want test", emptied)
	}
}

func TestPointerMoveSequenceAndRateLimit(t *testing.T) {
	tr := newTestRoom(t, func(o *RoomOptions) { o.MaxInputsPerTick = 2 })
	alice, _ := tr.started(t)
	tile := tr.game.Tiles()[0]
	tr.pointer(alice, MsgPointerDown, tile.ID, tile.X, tile.Y)
	tr.step(time.Millisecond)

	for _, seq := range []int64{5, 3, 6, 7} {
		tr.OnInput(Input{ClientID: alice, Type: MsgPointerMove, Tile: tile.ID, X: tile.X + float64(seq), Y: tile.Y, Seq: seq})
	}
	tr.step(time.Millisecond)

	if got := tr.metrics.OldSeqIgnored; got != 1 {
		t.Fatalf("old seq ignored = %d, want 1", got)
	}
	if got := tr.metrics.RateLimited; got != 1 {
		t.Fatalf("rate limited = %d, want 1", got)
	}
	got, _ := tr.game.Tile(tile.ID)
	if got.X != tile.X+6 {
		t.Fatalf("tile x = %v, want %v", got.X, tile.X+6)
	}
}

func TestBonusBroadcastsVideoOverlay(t *testing.T) {
	tr := newTestRoom(t, nil)
	alice, fc := tr.started(t)

	tr.OnInput(Input{ClientID: alice, Type: MsgBonus})
	tr.step(time.Millisecond)
	st := fc.lastState(t)
	if !st.BonusUsed || st.Overlay == nil || !st.Overlay.Centered || st.Overlay.Src != tr.game.Level().BonusMedia {
		t.Fatalf("state after bonus = %+v", st)
	}

	tr.step(400 * time.Millisecond)
	st = fc.lastState(t)
	if st.Score != 10 || len(st.Tiles) != 0 {
		t.Fatalf("after clear: score %d tiles %d", st.Score, len(st.Tiles))
	}
	if st.Overlay == nil || st.Overlay.Volume != 0.3*tr.game.Level().BonusGain {
		t.Fatalf("overlay volume = %+v", st.Overlay)
	}

	tr.step(3 * time.Second)
	if st := fc.lastState(t); st.Overlay != nil {
		t.Fatalf("bonus overlay still shown after video end")
	}

	tr.OnInput(Input{ClientID: alice, Type: MsgBonus})
	tr.step(time.Millisecond)
	errs := fc.errors(t)
	if len(errs) != 1 || errs[0].Reason != errBonusUnavailable.Error() {
		t.Fatalf("second bonus errors = %+v", errs)
	}
}

func TestResizeMovesBoundary(t *testing.T) {
	tr := newTestRoom(t, nil)
	alice, fc := tr.started(t)
	tr.OnInput(Input{ClientID: alice, Type: MsgResize, Viewport: overlay.Viewport{Width: 800, Height: 600}})
	tr.step(time.Millisecond)

	b := fc.lastState(t).Boundary
	if b.Right != 600 || b.Bottom != 400 {
		t.Fatalf("boundary = %+v, want right 600 bottom 400", b)
	}
	if tr.viewport.Width != 800 {
		t.Fatalf("popup viewport not updated: %+v", tr.viewport)
	}
}

func TestRetuneRejectsInvalidLevel(t *testing.T) {
	tr := newTestRoom(t, nil)
	tr.started(t)

	zero := 0
	if err := tr.retune(Tuning{MaxTiles: &zero}); !errors.Is(err, game.ErrInvalidLevel) {
		t.Fatalf("retune err = %v, want ErrInvalidLevel", err)
	}
	if err := tr.retune(Tuning{MaxInputsPerTick: &zero}); err == nil {
		t.Fatalf("expected error for zero maxInputsPerTick")
	}
	target := 1
	if err := tr.retune(Tuning{TargetScore: &target}); err != nil {
		t.Fatalf("retune: %v", err)
	}
	tr.step(time.Millisecond)
	if st := tr.Status(); st.Target != 1 || *st.Tuning.TargetScore != 1 {
		t.Fatalf("status = %+v", st)
	}
}

func TestStopClosesClients(t *testing.T) {
	tr := newTestRoom(t, nil)
	_, fc := tr.join(t, "alice")
	tr.Stop()
	if !fc.isClosed() {
		t.Fatalf("client not closed on stop")
	}
	if err := tr.RequestJoin("late", newFakeConn(JSONCodec)); !errors.Is(err, errRoomClosed) {
		t.Fatalf("join after stop = %v, want errRoomClosed", err)
	}
}

func TestJoinRacingStopIsRejectedOrClosed(t *testing.T) {
	for i := 0; i < 50; i++ {
		tr := newTestRoom(t, nil)
		conns := make([]*fakeConn, 20)
		errs := make([]error, len(conns))
		var wg sync.WaitGroup
		for j := range conns {
			conns[j] = newFakeConn(JSONCodec)
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				errs[j] = tr.RequestJoin(ClientID("c"), conns[j])
			}(j)
		}
		tr.Stop()
		wg.Wait()
		for j, fc := range conns {
			if errs[j] == nil && !fc.isClosed() {
				t.Fatalf("round %d: join %d accepted but never closed", i, j)
			}
		}
	}
}
