package server

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"dragarena/game"
	"dragarena/overlay"
)

var (
	errNotOwner         = errors.New("tile is dragged by another client")
	errBonusUnavailable = errors.New("bonus unavailable")
	errRoomClosed       = errors.New("room closed")
)

// RoomOptions 房间参数，由配置层填充
type RoomOptions struct {
	Level            game.Level
	TickHz           int
	BroadcastEvery   int // 每几个 Tick 广播一次快照
	MaxInputsPerTick int // 每个连接每 Tick 最多处理的 pointermove
	Viewport         overlay.Viewport
	Volume           game.VolumeSource
	Rand             *rand.Rand
	Now              func() time.Time
}

func DefaultRoomOptions() RoomOptions {
	return RoomOptions{
		Level:            game.DefaultLevel(),
		TickHz:           60,
		BroadcastEvery:   2,
		MaxInputsPerTick: 8,
		Viewport:         overlay.Viewport{Width: 1280, Height: 800},
		Now:              time.Now,
	}
}

// Room 一局游戏：权威状态维护在内存，单线程 Tick 推进
type Room struct {
	ID string

	Clients   map[ClientID]*Client
	inputChan chan Input
	ctrlChan  chan any // join / leave / retune，阻塞写入保证生效
	quit      chan struct{}
	stopOnce  sync.Once

	ctrlMu     sync.Mutex // 保证 shutdown 排空之后不再有命令入队
	ctrlClosed bool

	opts       RoomOptions
	sched      *game.Scheduler
	game       *game.Game
	viewport   overlay.Viewport
	intro      *overlay.Popup
	bonusVideo *overlay.Popup
	owner      ClientID // 当前拖拽者，拖拽者断线时原地释放

	events []game.Event
	popups []*overlay.Popup

	tickSeq       uint64
	metrics       *RoomMetrics
	status        atomic.Pointer[RoomStatus]
	tickerStarted bool

	// OnEmpty 最后一个连接离开时在 Tick 线程中调用
	OnEmpty func(id string)
}

type joinCmd struct {
	id   ClientID
	conn Conn
}

type leaveCmd struct {
	id ClientID
}

type retuneCmd struct {
	t     Tuning
	reply chan error
}

// NewRoom 创建房间，游戏处于开场阶段
func NewRoom(id string, opts RoomOptions) (*Room, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TickHz <= 0 {
		opts.TickHz = 60
	}
	if opts.BroadcastEvery <= 0 {
		opts.BroadcastEvery = 1
	}
	if opts.MaxInputsPerTick <= 0 {
		opts.MaxInputsPerTick = 8
	}
	r := &Room{
		ID:        id,
		Clients:   make(map[ClientID]*Client),
		inputChan: make(chan Input, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		ctrlChan:  make(chan any, 64),
		quit:      make(chan struct{}),
		opts:      opts,
		sched:     game.NewScheduler(opts.Now()),
		viewport:  opts.Viewport,
		metrics:   &RoomMetrics{},
	}
	g, err := game.New(r.sched, opts.Viewport.Width, opts.Viewport.Height, game.Options{
		Level:  opts.Level,
		Rand:   opts.Rand,
		Volume: opts.Volume,
		Hooks:  game.Hooks{OnEvent: r.onEvent, OnComplete: r.onComplete},
	})
	if err != nil {
		return nil, err
	}
	r.game = g

	r.intro = overlay.Centered(opts.Level.IntroMedia,
		overlay.WithAutoClose(), overlay.WithCloseButton(), overlay.OnClose(r.startGame))
	if d := opts.Level.IntroDuration; d > 0 {
		r.sched.After(d, r.intro.Ended)
	}
	r.publishStatus()
	return r, nil
}

func (r *Room) startGame() {
	if err := r.game.Start(); err != nil {
		Log.Warnf("room %s start: %v", r.ID, err)
		return
	}
	Log.Infof("room %s playing: tiles=%d target=%d", r.ID, r.game.TileCount(), r.game.Level().TargetScore)
}

func (r *Room) onEvent(ev game.Event) {
	r.events = append(r.events, ev)
	switch ev.Kind {
	case game.EventScored:
		r.metrics.IncScored()
	case game.EventBonus:
		r.metrics.IncBonus()
		r.bonusVideo = overlay.Centered(ev.Media, overlay.WithVolume(0))
	case game.EventBonusPlay:
		if r.bonusVideo != nil {
			r.bonusVideo.Volume = ev.Volume
		}
	case game.EventBonusVideoEnd:
		if r.bonusVideo != nil {
			r.bonusVideo.Close()
			r.bonusVideo = nil
		}
	}
}

func (r *Room) onComplete() {
	Log.Infof("room %s complete: score=%d", r.ID, r.game.Score())
}

// RequestJoin 请求在 Tick 线程中加入连接
func (r *Room) RequestJoin(id ClientID, conn Conn) error {
	return r.enqueue(joinCmd{id: id, conn: conn})
}

// RequestLeave 请求在 Tick 线程中移除连接，避免并发改动房间状态
func (r *Room) RequestLeave(id ClientID) {
	// 为保证移除一定生效，这里采用阻塞式写入；房间已停止时直接返回
	_ = r.enqueue(leaveCmd{id: id})
}

// enqueue 阻塞写入控制命令；房间停止后返回 errRoomClosed
func (r *Room) enqueue(cmd any) error {
	r.ctrlMu.Lock()
	defer r.ctrlMu.Unlock()
	if r.ctrlClosed || r.stopped() {
		return errRoomClosed
	}
	select {
	case r.ctrlChan <- cmd:
		return nil
	case <-r.quit:
		return errRoomClosed
	}
}

// closeCtrl 之后的 enqueue 都会失败，返回前已入队的命令由调用方排空
func (r *Room) closeCtrl() {
	r.ctrlMu.Lock()
	r.ctrlClosed = true
	r.ctrlMu.Unlock()
}

func (r *Room) stopped() bool {
	select {
	case <-r.quit:
		return true
	default:
		return false
	}
}

// OnInput 入站输入（不立即改变状态），仅记录意图，等下一次 Tick 处理
func (r *Room) OnInput(in Input) {
	// 不阻塞：输入拥塞时丢弃，保证 Tick 准时
	select {
	case r.inputChan <- in:
	default:
		r.metrics.IncChanFullDiscarded()
	}
}

// Retune 在 Tick 线程中热更新关卡参数并等待结果
func (r *Room) Retune(t Tuning, timeout time.Duration) error {
	reply := make(chan error, 1)
	if err := r.enqueue(retuneCmd{t: t, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-r.quit:
		return errRoomClosed
	case <-time.After(timeout):
		return errors.New("retune timed out")
	}
}

// BeginTick 重置帧内状态
func (r *Room) BeginTick() {
	for _, c := range r.Clients {
		c.inputsThisTick = 0
	}
}

// ProcessInputs 先处理控制命令，再处理当前帧的所有输入意图（非阻塞 drain）
func (r *Room) ProcessInputs() {
drainCtrl:
	for {
		select {
		case cmd := <-r.ctrlChan:
			r.handleCtrl(cmd)
		default:
			break drainCtrl
		}
	}
	for {
		select {
		case in := <-r.inputChan:
			r.applyInput(in)
		default:
			return
		}
	}
}

// UpdateWorld 推进调度器：逐帧运动、定时生成、BONUS 时间表
func (r *Room) UpdateWorld(now time.Time) {
	r.sched.Advance(now)
	if _, ok := r.game.Captured(); !ok {
		r.owner = ""
	}
}

func (r *Room) handleCtrl(cmd any) {
	switch c := cmd.(type) {
	case joinCmd:
		r.join(c.id, c.conn)
	case leaveCmd:
		r.leave(c.id)
	case retuneCmd:
		c.reply <- r.retune(c.t)
	}
}

func (r *Room) join(id ClientID, conn Conn) {
	if old, ok := r.Clients[id]; ok {
		_ = old.Conn.Close()
	}
	c := &Client{ID: id, Conn: conn}
	r.Clients[id] = c
	r.sendTo(c, MsgWelcome, WelcomeMsg{Client: string(id), Room: r.ID, TickHz: r.opts.TickHz})
	r.sendTo(c, MsgState, r.stateMsg())
	Log.Infof("room %s join: client=%s viewers=%d", r.ID, id, len(r.Clients))
}

func (r *Room) leave(id ClientID) {
	c, ok := r.Clients[id]
	if !ok {
		return
	}
	if r.owner == id {
		// 拖拽者断线：方块在当前位置放下
		if px, py, ok := r.game.DragPointer(); ok {
			_ = r.release(c, Input{ClientID: id, X: px, Y: py})
		}
		r.owner = ""
	}
	_ = c.Conn.Close()
	delete(r.Clients, id)
	Log.Infof("room %s leave: client=%s viewers=%d", r.ID, id, len(r.Clients))
	if len(r.Clients) == 0 && r.OnEmpty != nil {
		r.OnEmpty(r.ID)
	}
}

func (r *Room) retune(t Tuning) error {
	if t.MaxInputsPerTick != nil && *t.MaxInputsPerTick <= 0 {
		return errors.New("maxInputsPerTick must be positive")
	}
	if err := r.game.Retune(t.apply); err != nil {
		return err
	}
	if t.MaxInputsPerTick != nil {
		r.opts.MaxInputsPerTick = *t.MaxInputsPerTick
	}
	l := r.game.Level()
	Log.Infof("config updated: room=%s target=%d maxTiles=%d spawn=%s bonus=%d maxInputsPerTick=%d",
		r.ID, l.TargetScore, l.MaxTiles, l.SpawnInterval, l.BonusPoints, r.opts.MaxInputsPerTick)
	return nil
}

func (r *Room) applyInput(in Input) {
	c, ok := r.Clients[in.ClientID]
	if !ok {
		return
	}
	if in.Type == MsgPointerMove {
		if in.Seq != 0 && in.Seq <= c.lastSeq {
			r.metrics.IncOldSeqIgnored()
			return
		}
		if c.inputsThisTick >= r.opts.MaxInputsPerTick {
			r.metrics.IncRateLimited()
			return
		}
	}
	if in.Seq > c.lastSeq {
		c.lastSeq = in.Seq
	}
	c.inputsThisTick++
	r.metrics.IncAccepted()

	var err error
	switch in.Type {
	case MsgPointerDown:
		err = r.capture(c, in)
	case MsgPointerMove:
		err = r.move(c, in)
	case MsgPointerUp, MsgPointerCancel:
		err = r.release(c, in)
	case MsgResize:
		r.viewport = in.Viewport
		r.game.Resize(in.Viewport.Width, in.Viewport.Height)
	case MsgBonus:
		if !r.game.TriggerBonus() {
			err = errBonusUnavailable
		}
	case MsgStart:
		r.intro.Close()
	}
	if err != nil {
		r.sendTo(c, MsgError, ErrorMsg{Op: in.Type, Reason: err.Error()})
	}
}

func (r *Room) capture(c *Client, in Input) error {
	if err := r.game.Capture(in.Tile, in.X, in.Y); err != nil {
		r.metrics.IncCaptureRejected()
		return err
	}
	r.owner = c.ID
	return nil
}

func (r *Room) move(c *Client, in Input) error {
	if r.owner != c.ID {
		if _, ok := r.game.Captured(); ok {
			return errNotOwner
		}
		return game.ErrNotCaptured
	}
	return r.game.Move(in.X, in.Y)
}

// release 放下并判定；得分时在放下处弹出该方块的影片
func (r *Room) release(c *Client, in Input) error {
	if r.owner != c.ID {
		if _, ok := r.game.Captured(); ok {
			return errNotOwner
		}
		return game.ErrNotCaptured
	}
	id, _ := r.game.Captured()
	tile, _ := r.game.Tile(id)
	out, err := r.game.Release(in.X, in.Y)
	r.owner = ""
	if err != nil {
		return err
	}
	if out.Scored {
		r.popups = append(r.popups, overlay.Open(tile.Media, out.X, out.Y, r.viewport,
			overlay.WithAutoClose(), overlay.WithVolume(tile.Volume)))
	}
	return nil
}

// Broadcast 将当前快照广播给所有连接
func (r *Room) Broadcast() {
	r.broadcast(MsgState, r.stateMsg())
}

// flushEvents 下发本 Tick 产生的事件与弹出影片
func (r *Room) flushEvents() {
	for _, ev := range r.events {
		r.broadcast(MsgEvent, ev)
	}
	for _, p := range r.popups {
		r.broadcast(MsgPopup, p)
	}
	r.events = r.events[:0]
	r.popups = r.popups[:0]
}

func (r *Room) stateMsg() StateMsg {
	msg := StateMsg{
		Tick:     r.tickSeq,
		Viewers:  len(r.Clients),
		Owner:    string(r.owner),
		Snapshot: r.game.Snapshot(),
	}
	switch {
	case !r.intro.Closed():
		msg.Overlay = r.intro
	case r.bonusVideo != nil:
		msg.Overlay = r.bonusVideo
	}
	return msg
}

// broadcast 每种编码只序列化一次
func (r *Room) broadcast(t string, payload any) {
	encoded := make(map[string][]byte, 2)
	for _, c := range r.Clients {
		codec := c.Conn.Codec()
		b, ok := encoded[codec.Name()]
		if !ok {
			var err error
			b, err = codec.Encode(t, payload)
			if err != nil {
				Log.Warnf("room %s encode %s/%s: %v", r.ID, codec.Name(), t, err)
				continue
			}
			encoded[codec.Name()] = b
		}
		r.send(c, b)
	}
}

func (r *Room) sendTo(c *Client, t string, payload any) {
	b, err := c.Conn.Codec().Encode(t, payload)
	if err != nil {
		Log.Warnf("room %s encode %s: %v", r.ID, t, err)
		return
	}
	r.send(c, b)
}

// send 发送失败不移除连接：读协程退出时会走 RequestLeave
func (r *Room) send(c *Client, b []byte) {
	if err := c.Conn.Send(b); err != nil {
		r.metrics.IncSendDropped()
	}
}

// RoomStatus 供 HTTP 读取的只读状态，每 Tick 结束时发布
type RoomStatus struct {
	ID        string `json:"id"`
	Tick      uint64 `json:"tick"`
	Viewers   int    `json:"viewers"`
	Phase     string `json:"phase"`
	Score     int    `json:"score"`
	Target    int    `json:"target"`
	Tiles     int    `json:"tiles"`
	BonusUsed bool   `json:"bonusUsed"`
	Completed bool   `json:"completed"`
	Tuning    Tuning `json:"tuning"`
}

func (r *Room) publishStatus() {
	r.status.Store(&RoomStatus{
		ID:        r.ID,
		Tick:      r.tickSeq,
		Viewers:   len(r.Clients),
		Phase:     r.game.Phase().String(),
		Score:     r.game.Score(),
		Target:    r.game.Level().TargetScore,
		Tiles:     r.game.TileCount(),
		BonusUsed: r.game.BonusUsed(),
		Completed: r.game.Completed(),
		Tuning:    tuningOf(r.game.Level(), r.opts.MaxInputsPerTick),
	})
}

// Status 最近一次发布的状态，可在任意协程调用
func (r *Room) Status() RoomStatus {
	return *r.status.Load()
}

// Metrics 房间运行指标
func (r *Room) Metrics() *RoomMetrics { return r.metrics }
