package game

// Integrate 推进一帧：除被拖拽的方块外，位置加速度，碰到内缩边界则该轴速度取反并夹回范围内。
// capturedID < 0 表示没有方块被拖拽
func Integrate(tiles []Tile, capturedID int, b Boundary, l *Level) {
	r := motionRect(b, l)
	for i := range tiles {
		t := &tiles[i]
		if t.ID == capturedID {
			continue
		}
		t.X += t.VX
		t.Y += t.VY

		if t.X <= r.MinX || t.X >= r.MaxX {
			t.VX = -t.VX
			t.X = clamp(t.X, r.MinX, r.MaxX)
		}
		if t.Y <= r.MinY || t.Y >= r.MaxY {
			t.VY = -t.VY
			t.Y = clamp(t.Y, r.MinY, r.MaxY)
		}
	}
}

// clamp 与 max(lo, min(hi, v)) 等价；lo > hi 时结果为 lo
func clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
