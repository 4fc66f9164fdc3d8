package game

// Boundary 视口坐标下的轴对齐矩形（拖出此区域即得分）
type Boundary struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// ComputeBoundary 由视口尺寸减去固定边距得到边界
func ComputeBoundary(width, height, margin float64) Boundary {
	return Boundary{
		Left:   margin,
		Top:    margin,
		Right:  width - margin,
		Bottom: height - margin,
	}
}

// Contains 点是否落在边界内（含边上）
func (b Boundary) Contains(x, y float64) bool {
	return x >= b.Left && x <= b.Right && y >= b.Top && y <= b.Bottom
}

// Rect 左上角可取值范围 [MinX,MaxX]×[MinY,MaxY]
type Rect struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// motionRect 反弹区域：边界向内缩 BouncePadding，并为方块尺寸留位
func motionRect(b Boundary, l *Level) Rect {
	return Rect{
		MinX: b.Left + l.BouncePadding,
		MaxX: b.Right - l.TileSize - l.BouncePadding,
		MinY: b.Top + l.BouncePadding,
		MaxY: b.Bottom - l.TileSize - l.BouncePadding,
	}
}

// spawnRect 生成区域：顶部额外避开标题
func spawnRect(b Boundary, l *Level) Rect {
	return Rect{
		MinX: b.Left + l.SpawnPadding,
		MaxX: b.Right - l.TileSize - l.SpawnPadding,
		MinY: b.Top + l.HeaderSpace,
		MaxY: b.Bottom - l.TileSize - l.SpawnPadding,
	}
}
