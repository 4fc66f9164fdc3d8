package game

import (
	"math"
	"math/rand"
	"testing"
)

func TestComputeBoundary(t *testing.T) {
	b := ComputeBoundary(1200, 900, 200)
	want := Boundary{Left: 200, Top: 200, Right: 1000, Bottom: 700}
	if b != want {
		t.Fatalf("boundary = %+v, want %+v", b, want)
	}
}

func TestSpawnInsideSpawnRegion(t *testing.T) {
	l := DefaultLevel()
	b := ComputeBoundary(1200, 900, l.Margin)
	r := spawnRect(b, &l)
	sp := NewSpawner(rand.New(rand.NewSource(7)), &l)

	for i := 0; i < 2000; i++ {
		tile := sp.Spawn(b, i)
		if tile.ID != i {
			t.Fatalf("id = %d, want %d", tile.ID, i)
		}
		if tile.X < r.MinX || tile.X >= r.MaxX || tile.Y < r.MinY || tile.Y >= r.MaxY {
			t.Fatalf("tile %d at (%.1f,%.1f) outside spawn rect %+v", i, tile.X, tile.Y, r)
		}
		cx, cy := tile.Center(l.TileSize)
		if cx <= b.Left || cx >= b.Right || cy <= b.Top || cy >= b.Bottom {
			t.Fatalf("tile %d center (%.1f,%.1f) not strictly inside %+v", i, cx, cy, b)
		}
		speed := math.Hypot(tile.VX, tile.VY)
		if speed < l.MinSpeed-1e-9 || speed >= l.MaxSpeed {
			t.Fatalf("speed %.3f outside [%v,%v)", speed, l.MinSpeed, l.MaxSpeed)
		}
		found := false
		for _, m := range l.Media {
			if m == tile.Media {
				found = true
			}
		}
		if !found {
			t.Fatalf("media %q not in level media", tile.Media)
		}
	}
}

func TestSpawnDegenerateGeometryClamps(t *testing.T) {
	l := DefaultLevel()
	b := ComputeBoundary(500, 500, l.Margin) // 边界只有 100x100，生成区为负
	r := spawnRect(b, &l)
	sp := NewSpawner(rand.New(rand.NewSource(3)), &l)
	for i := 0; i < 200; i++ {
		tile := sp.Spawn(b, i)
		if tile.X < r.MinX || tile.X >= r.MinX+1 {
			t.Fatalf("x %.3f not clamped to [%v,%v)", tile.X, r.MinX, r.MinX+1)
		}
		if tile.Y < r.MinY || tile.Y >= r.MinY+1 {
			t.Fatalf("y %.3f not clamped to [%v,%v)", tile.Y, r.MinY, r.MinY+1)
		}
	}
}

func TestIntegrateStaysInsideAndReflects(t *testing.T) {
	l := DefaultLevel()
	b := ComputeBoundary(1200, 900, l.Margin)
	r := motionRect(b, &l)
	sp := NewSpawner(rand.New(rand.NewSource(11)), &l)
	tiles := make([]Tile, 10)
	for i := range tiles {
		tiles[i] = sp.Spawn(b, i)
	}

	for frame := 0; frame < 5000; frame++ {
		before := append([]Tile(nil), tiles...)
		Integrate(tiles, NoTile, b, &l)
		for i, tile := range tiles {
			if tile.X < r.MinX || tile.X > r.MaxX || tile.Y < r.MinY || tile.Y > r.MaxY {
				t.Fatalf("frame %d tile %d at (%.2f,%.2f) escaped %+v", frame, i, tile.X, tile.Y, r)
			}
			nx := before[i].X + before[i].VX
			hitX := nx <= r.MinX || nx >= r.MaxX
			if hitX != (tile.VX == -before[i].VX && tile.VX != before[i].VX) {
				t.Fatalf("frame %d tile %d: x flip mismatch (hit=%v vx %.2f -> %.2f)", frame, i, hitX, before[i].VX, tile.VX)
			}
			ny := before[i].Y + before[i].VY
			hitY := ny <= r.MinY || ny >= r.MaxY
			if hitY != (tile.VY == -before[i].VY && tile.VY != before[i].VY) {
				t.Fatalf("frame %d tile %d: y flip mismatch (hit=%v vy %.2f -> %.2f)", frame, i, hitY, before[i].VY, tile.VY)
			}
		}
	}
}

func TestIntegrateCornerReflectsBothAxes(t *testing.T) {
	l := DefaultLevel()
	b := ComputeBoundary(1200, 900, l.Margin)
	r := motionRect(b, &l)
	tiles := []Tile{{ID: 1, X: r.MaxX - 1, Y: r.MaxY - 1, VX: 3, VY: 3}}
	Integrate(tiles, NoTile, b, &l)
	got := tiles[0]
	if got.VX != -3 || got.VY != -3 {
		t.Fatalf("velocity = (%v,%v), want (-3,-3)", got.VX, got.VY)
	}
	if got.X != r.MaxX || got.Y != r.MaxY {
		t.Fatalf("position = (%v,%v), want clamped to (%v,%v)", got.X, got.Y, r.MaxX, r.MaxY)
	}
}

func TestIntegrateSkipsCapturedTile(t *testing.T) {
	l := DefaultLevel()
	b := ComputeBoundary(1200, 900, l.Margin)
	tiles := []Tile{
		{ID: 1, X: 500, Y: 400, VX: 3, VY: 2},
		{ID: 2, X: 500, Y: 400, VX: 3, VY: 2},
	}
	for i := 0; i < 10; i++ {
		Integrate(tiles, 2, b, &l)
	}
	if tiles[1].X != 500 || tiles[1].Y != 400 || tiles[1].VX != 3 {
		t.Fatalf("captured tile moved: %+v", tiles[1])
	}
	if tiles[0].X != 530 || tiles[0].Y != 420 {
		t.Fatalf("free tile at (%v,%v), want (530,420)", tiles[0].X, tiles[0].Y)
	}
}
