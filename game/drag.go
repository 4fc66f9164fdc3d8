package game

// drag 一次拖拽事务：记录按下时的指针位置和方块位置
type drag struct {
	id                 int
	pointerX, pointerY float64
	startX, startY     float64
}

// position 以按下时为基准的累计位移，而不是相对上一次 move
func (d *drag) position(px, py float64) (float64, float64) {
	return d.startX + (px - d.pointerX), d.startY + (py - d.pointerY)
}

// Capture 指针按下：同一时刻只允许一个方块被拖拽
func (g *Game) Capture(id int, px, py float64) error {
	if !g.active || g.phase != PhasePlaying {
		return ErrNotPlaying
	}
	if g.drag != nil {
		return ErrAlreadyCaptured
	}
	i := g.indexOf(id)
	if i < 0 {
		return ErrUnknownTile
	}
	g.drag = &drag{
		id:       id,
		pointerX: px,
		pointerY: py,
		startX:   g.tiles[i].X,
		startY:   g.tiles[i].Y,
	}
	return nil
}

// Move 指针移动：立即写入方块位置，不等下一帧
func (g *Game) Move(px, py float64) error {
	if g.drag == nil {
		return ErrNotCaptured
	}
	i := g.indexOf(g.drag.id)
	if i < 0 {
		g.drag = nil
		return ErrNotCaptured
	}
	g.tiles[i].X, g.tiles[i].Y = g.drag.position(px, py)
	return nil
}

// Release 指针抬起：释放拖拽并交给得分判定
func (g *Game) Release(px, py float64) (Outcome, error) {
	if g.drag == nil {
		return Outcome{}, ErrNotCaptured
	}
	d := g.drag
	g.drag = nil
	x, y := d.position(px, py)
	return g.Evaluate(d.id, x, y)
}

// CancelDrag pointercancel 与 pointerup 处理相同
func (g *Game) CancelDrag(px, py float64) (Outcome, error) {
	return g.Release(px, py)
}

// Captured 当前被拖拽的方块
func (g *Game) Captured() (int, bool) {
	if g.drag == nil {
		return NoTile, false
	}
	return g.drag.id, true
}

// DragPointer 与方块当前位置对应的指针坐标，拖拽者断线时用它原地释放
func (g *Game) DragPointer() (px, py float64, ok bool) {
	if g.drag == nil {
		return 0, 0, false
	}
	i := g.indexOf(g.drag.id)
	if i < 0 {
		return 0, 0, false
	}
	t := g.tiles[i]
	return g.drag.pointerX + (t.X - g.drag.startX), g.drag.pointerY + (t.Y - g.drag.startY), true
}

func (g *Game) capturedID() int {
	id, _ := g.Captured()
	return id
}
