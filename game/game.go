package game

import (
	"math/rand"
	"time"
)

const (
	// NoTile 没有方块被拖拽
	NoTile = -1

	defaultVolume = 0.3
)

// Options 创建 Game 的可选依赖
type Options struct {
	Level  Level
	Rand   *rand.Rand // 为 nil 时按当前时间播种
	Volume VolumeSource
	Hooks  Hooks
}

// Game 单局权威状态：方块集合 + 分数。
// 不是并发安全的：所有方法以及 Scheduler 的回调都必须在同一协程执行
type Game struct {
	level   Level
	sched   *Scheduler
	spawner *Spawner
	rng     *rand.Rand
	volume  VolumeSource
	hooks   Hooks

	boundary Boundary
	phase    Phase
	active   bool

	score       int
	bonusUsed   bool
	bonusEffect bool
	bonusVideo  bool
	completed   bool

	tiles  []Tile
	nextID int
	drag   *drag

	frameTask     *Task
	spawnTask     *Task
	bonusTasks    []*Task
	bonusComplete *Task // BONUS 清场后排期的延迟过关
	frames        uint64
}

// New 创建处于 intro 阶段的新一局
func New(sched *Scheduler, width, height float64, opts Options) (*Game, error) {
	if err := opts.Level.Validate(); err != nil {
		return nil, err
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g := &Game{
		level:  opts.Level,
		sched:  sched,
		rng:    rng,
		volume: opts.Volume,
		hooks:  opts.Hooks,
		phase:  PhaseIntro,
		active: true,
	}
	g.spawner = NewSpawner(rng, &g.level)
	g.boundary = ComputeBoundary(width, height, g.level.Margin)
	return g, nil
}

// Start 开场结束，进入 playing：先生成初始方块，再启动逐帧推进与定时生成
func (g *Game) Start() error {
	if !g.active {
		return ErrNotPlaying
	}
	if g.phase == PhasePlaying {
		return nil
	}
	g.phase = PhasePlaying
	g.tiles = g.tiles[:0]
	for i := 0; i < g.level.InitialTiles; i++ {
		g.spawnOne()
	}
	g.startTasks()
	g.emit(Event{Kind: EventPhase})
	return nil
}

func (g *Game) startTasks() {
	g.frameTask.Cancel()
	g.spawnTask.Cancel()
	g.frameTask = g.sched.Every(g.level.FrameInterval, g.Frame)
	g.spawnTask = g.sched.Every(g.level.SpawnInterval, g.spawnTick)
}

// Stop 结束本局：取消逐帧、生成以及尚未触发的 BONUS 定时器
func (g *Game) Stop() {
	if !g.active {
		return
	}
	g.active = false
	g.frameTask.Cancel()
	g.spawnTask.Cancel()
	for _, t := range g.bonusTasks {
		t.Cancel()
	}
	g.bonusTasks = nil
	g.drag = nil
}

// Resize 视口变化时重新计算边界；拖拽中不做特殊处理
func (g *Game) Resize(width, height float64) {
	g.boundary = ComputeBoundary(width, height, g.level.Margin)
}

// Frame 逐帧推进，跳过正在拖拽的方块
func (g *Game) Frame() {
	if !g.active || g.phase != PhasePlaying {
		return
	}
	Integrate(g.tiles, g.capturedID(), g.boundary, &g.level)
	g.frames++
}

// spawnTick 定时生成：未满上限时一次生成 1 或 2 个，超出部分截断
func (g *Game) spawnTick() {
	if !g.active || g.phase != PhasePlaying {
		return
	}
	if len(g.tiles) >= g.level.MaxTiles {
		return
	}
	count := 1
	if g.rng.Float64() > 0.5 {
		count = 2
	}
	for i := 0; i < count; i++ {
		g.spawnOne()
	}
	if len(g.tiles) > g.level.MaxTiles {
		g.tiles = g.tiles[:g.level.MaxTiles]
	}
}

func (g *Game) spawnOne() {
	t := g.spawner.Spawn(g.boundary, g.nextID)
	g.nextID++
	t.Volume = g.scaledVolume(g.level.TileGain)
	g.tiles = append(g.tiles, t)
	g.emit(Event{Kind: EventSpawn, TileID: t.ID, Media: t.Media, Volume: t.Volume})
}

func (g *Game) scaledVolume(gain float64) float64 {
	v := defaultVolume
	if g.volume != nil {
		v = g.volume.Volume()
	}
	return clamp(v*gain, 0, 1)
}

// Evaluate 放下判定：中心点在原始边界外则移除并加一分，否则把位置更新为放下处
func (g *Game) Evaluate(id int, x, y float64) (Outcome, error) {
	if !g.active || g.phase != PhasePlaying {
		return Outcome{}, ErrNotPlaying
	}
	i := g.indexOf(id)
	if i < 0 {
		return Outcome{}, ErrUnknownTile
	}
	out := Outcome{TileID: id, X: x, Y: y}
	half := g.level.TileSize / 2
	if g.boundary.Contains(x+half, y+half) {
		g.tiles[i].X = x
		g.tiles[i].Y = y
		out.Score = g.score
		g.emit(Event{Kind: EventDropped, TileID: id})
		return out, nil
	}

	g.tiles = append(g.tiles[:i], g.tiles[i+1:]...)
	if g.drag != nil && g.drag.id == id {
		g.drag = nil
	}
	g.score++
	out.Scored = true
	out.Score = g.score
	g.emit(Event{Kind: EventScored, TileID: id})
	g.reachTarget()
	return out, nil
}

// reachTarget 达到目标分即过关；BONUS 的延迟过关已排期时等它触发
func (g *Game) reachTarget() {
	if g.score < g.level.TargetScore || g.bonusComplete.Active() {
		return
	}
	g.complete()
}

// complete 只触发一次过关回调
func (g *Game) complete() {
	if g.completed || !g.active {
		return
	}
	g.completed = true
	g.emit(Event{Kind: EventComplete})
	if g.hooks.OnComplete != nil {
		g.hooks.OnComplete()
	}
}

func (g *Game) emit(ev Event) {
	if g.hooks.OnEvent == nil {
		return
	}
	ev.Score = g.score
	g.hooks.OnEvent(ev)
}

func (g *Game) indexOf(id int) int {
	for i := range g.tiles {
		if g.tiles[i].ID == id {
			return i
		}
	}
	return -1
}

// Retune 热更新关卡参数；间隔变化时重启对应任务
func (g *Game) Retune(fn func(l *Level)) error {
	next := g.level
	next.Media = append([]string(nil), g.level.Media...)
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	restart := next.SpawnInterval != g.level.SpawnInterval || next.FrameInterval != g.level.FrameInterval
	g.level = next
	if g.active && g.phase == PhasePlaying {
		if restart {
			g.startTasks()
		}
		if len(g.tiles) > g.level.MaxTiles {
			g.tiles = g.tiles[:g.level.MaxTiles]
			if id, ok := g.Captured(); ok && g.indexOf(id) < 0 {
				g.drag = nil
			}
		}
		g.reachTarget()
	}
	return nil
}

// Level 当前参数副本
func (g *Game) Level() Level { return g.level }

func (g *Game) Phase() Phase       { return g.phase }
func (g *Game) Score() int         { return g.score }
func (g *Game) Active() bool       { return g.active }
func (g *Game) Completed() bool    { return g.completed }
func (g *Game) BonusUsed() bool    { return g.bonusUsed }
func (g *Game) Boundary() Boundary { return g.boundary }
func (g *Game) Frames() uint64     { return g.frames }
func (g *Game) TileCount() int     { return len(g.tiles) }

// Tile 按 id 查找方块
func (g *Game) Tile(id int) (Tile, bool) {
	i := g.indexOf(id)
	if i < 0 {
		return Tile{}, false
	}
	return g.tiles[i], true
}

// Tiles 方块集合副本
func (g *Game) Tiles() []Tile {
	return append([]Tile(nil), g.tiles...)
}

// Snapshot 广播用的只读快照
type Snapshot struct {
	Phase       string   `json:"phase"`
	Score       int      `json:"score"`
	Target      int      `json:"target"`
	BonusUsed   bool     `json:"bonusUsed"`
	BonusEffect bool     `json:"bonusEffect"`
	BonusVideo  bool     `json:"bonusVideo"`
	Completed   bool     `json:"completed"`
	Boundary    Boundary `json:"boundary"`
	TileSize    float64  `json:"tileSize"`
	Captured    int      `json:"captured"`
	Tiles       []Tile   `json:"tiles"`
}

func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		Phase:       g.phase.String(),
		Score:       g.score,
		Target:      g.level.TargetScore,
		BonusUsed:   g.bonusUsed,
		BonusEffect: g.bonusEffect,
		BonusVideo:  g.bonusVideo,
		Completed:   g.completed,
		Boundary:    g.boundary,
		TileSize:    g.level.TileSize,
		Captured:    g.capturedID(),
		Tiles:       g.Tiles(),
	}
}
