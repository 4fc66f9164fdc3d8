package game

import (
	"math"
	"math/rand"
)

// Tile 可拖拽的影片方块
type Tile struct {
	ID     int     `json:"id"`
	Media  string  `json:"media"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Volume float64 `json:"volume"`
}

// Center 方块中心点
func (t Tile) Center(size float64) (float64, float64) {
	return t.X + size/2, t.Y + size/2
}

// Spawner 在边界内随机生成方块；id 由调用方（Game 的计数器）提供
type Spawner struct {
	rng   *rand.Rand
	level *Level
}

func NewSpawner(rng *rand.Rand, level *Level) *Spawner {
	return &Spawner{rng: rng, level: level}
}

// Spawn 生成一个新方块。区域退化时范围至少为 1，避免随机区间为零或负数
func (s *Spawner) Spawn(b Boundary, id int) Tile {
	l := s.level
	media := l.Media[s.rng.Intn(len(l.Media))]

	r := spawnRect(b, l)
	rangeX := math.Max(1, r.MaxX-r.MinX)
	rangeY := math.Max(1, r.MaxY-r.MinY)
	x := r.MinX + s.rng.Float64()*rangeX
	y := r.MinY + s.rng.Float64()*rangeY

	speed := l.MinSpeed + s.rng.Float64()*(l.MaxSpeed-l.MinSpeed)
	angle := s.rng.Float64() * math.Pi * 2

	return Tile{
		ID:    id,
		Media: media,
		X:     x,
		Y:     y,
		VX:    math.Cos(angle) * speed,
		VY:    math.Sin(angle) * speed,
	}
}
