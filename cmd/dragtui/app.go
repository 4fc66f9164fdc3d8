package main

import (
	"fmt"
	"math"
	"math/rand"
	"path"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"dragarena/game"
	"dragarena/overlay"
	"dragarena/server"
	"dragarena/sfx"
	"dragarena/volume"
)

const (
	volumeStep   = 0.1
	popupLife    = 1500 * time.Millisecond
	headerRows   = 1
	messageLife  = 2 * time.Second
	tileGlyph    = '▒'
	capturedMark = '█'
)

var tilePalette = []tcell.Color{
	tcell.ColorAqua, tcell.ColorFuchsia, tcell.ColorLime, tcell.ColorOrange,
	tcell.ColorSkyblue, tcell.ColorPink, tcell.ColorGold, tcell.ColorViolet,
}

// scale 每个字符格对应的游戏单位
type scale struct {
	col, row float64
}

// toUnits 字符格中心对应的游戏坐标
func (s scale) toUnits(x, y int) (float64, float64) {
	return (float64(x) + 0.5) * s.col, (float64(y) + 0.5) * s.row
}

func (s scale) toCell(x, y float64) (int, int) {
	return int(math.Floor(x / s.col)), int(math.Floor(y / s.row))
}

type popup struct {
	*overlay.Popup
	label string
}

// app 终端客户端：本地持有一局游戏，鼠标拖拽驱动，主循环单协程
type app struct {
	screen tcell.Screen
	scale  scale
	sched  *game.Scheduler
	game   *game.Game
	vol    *volume.Store
	player *sfx.Player

	intro    *overlay.Popup
	popups   []*popup
	pressed  bool
	message  string
	msgUntil time.Time
	quit     bool
}

type appOptions struct {
	Level  game.Level
	Scale  scale
	Volume *volume.Store
	Player *sfx.Player // nil 时静音
	Rand   *rand.Rand
	Now    time.Time
}

func newApp(screen tcell.Screen, opts appOptions) (*app, error) {
	a := &app{
		screen: screen,
		scale:  opts.Scale,
		sched:  game.NewScheduler(opts.Now),
		vol:    opts.Volume,
		player: opts.Player,
	}
	w, h := a.viewport()
	g, err := game.New(a.sched, w, h, game.Options{
		Level:  opts.Level,
		Rand:   opts.Rand,
		Volume: opts.Volume,
		Hooks:  game.Hooks{OnEvent: a.onEvent, OnComplete: a.onComplete},
	})
	if err != nil {
		return nil, err
	}
	a.game = g
	a.intro = overlay.Centered(opts.Level.IntroMedia, overlay.WithAutoClose(), overlay.OnClose(func() {
		if err := a.game.Start(); err != nil {
			server.Log.Warnf("start: %v", err)
		}
	}))
	if d := opts.Level.IntroDuration; d > 0 {
		a.sched.After(d, a.intro.Ended)
	}
	return a, nil
}

// viewport 屏幕尺寸换算成游戏单位
func (a *app) viewport() (float64, float64) {
	cols, rows := a.screen.Size()
	return float64(cols) * a.scale.col, float64(rows) * a.scale.row
}

func (a *app) onEvent(ev game.Event) {
	server.Log.Debugw("event", "kind", ev.Kind, "tile", ev.TileID, "score", ev.Score)
	switch ev.Kind {
	case game.EventScored:
		a.player.Play(sfx.Score)
	case game.EventBonus:
		a.player.Play(sfx.Bonus)
	case game.EventComplete:
		a.player.Play(sfx.Complete)
	}
}

func (a *app) onComplete() {
	server.Log.Infof("level complete: score=%d", a.game.Score())
	a.flash("过关！")
}

func (a *app) flash(msg string) {
	a.message = msg
	a.msgUntil = a.sched.Now().Add(messageLife)
}

// handleEvent 处理一个终端事件，返回 false 表示退出
func (a *app) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		a.handleKey(ev)
	case *tcell.EventMouse:
		a.handleMouse(ev)
	case *tcell.EventResize:
		a.screen.Sync()
		w, h := a.viewport()
		a.game.Resize(w, h)
	}
	return !a.quit
}

func (a *app) handleKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		a.quit = true
		return
	case tcell.KeyRune:
	default:
		return
	}
	switch ev.Rune() {
	case 'q':
		a.quit = true
	case ' ':
		a.intro.Close()
	case 'b':
		if !a.game.TriggerBonus() {
			a.flash("BONUS 已用过")
		}
	case '+', '=':
		a.nudgeVolume(volumeStep)
	case '-', '_':
		a.nudgeVolume(-volumeStep)
	}
}

func (a *app) nudgeVolume(delta float64) {
	// 四舍五入到 0.1，避免浮点累加误差
	next := math.Round((a.vol.Volume()+delta)*10) / 10
	v, err := a.vol.SetVolume(next)
	if err != nil {
		server.Log.Warnf("volume not persisted: %v", err)
	}
	a.flash(fmt.Sprintf("%s %d%%", volume.Icon(v), int(math.Round(v*100))))
}

// handleMouse 左键按下抓取，拖动移动，松开放下
func (a *app) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	px, py := a.scale.toUnits(x, y)
	down := ev.Buttons()&tcell.Button1 != 0
	switch {
	case down && !a.pressed:
		a.pressed = true
		if id, ok := a.tileAt(px, py); ok {
			if err := a.game.Capture(id, px, py); err != nil {
				server.Log.Debugf("capture %d: %v", id, err)
			}
		}
	case down && a.pressed:
		if _, ok := a.game.Captured(); ok {
			_ = a.game.Move(px, py)
		}
	case !down && a.pressed:
		a.pressed = false
		if _, ok := a.game.Captured(); !ok {
			return
		}
		id, _ := a.game.Captured()
		tile, _ := a.game.Tile(id)
		out, err := a.game.Release(px, py)
		if err != nil {
			server.Log.Debugf("release %d: %v", id, err)
			return
		}
		if out.Scored {
			a.openPopup(tile.Media, out.X, out.Y)
		}
	}
}

// tileAt 命中测试，后生成的方块在上层
func (a *app) tileAt(x, y float64) (int, bool) {
	size := a.game.Level().TileSize
	tiles := a.game.Tiles()
	for i := len(tiles) - 1; i >= 0; i-- {
		t := tiles[i]
		if x >= t.X && x < t.X+size && y >= t.Y && y < t.Y+size {
			return t.ID, true
		}
	}
	return game.NoTile, false
}

// openPopup 终端里不能播放影片，在放下处显示文件名，固定时长后当作播放结束
func (a *app) openPopup(media string, x, y float64) {
	w, h := a.viewport()
	p := &popup{
		Popup: overlay.Open(media, x, y, overlay.Viewport{Width: w, Height: h}, overlay.WithAutoClose()),
		label: mediaLabel(media),
	}
	a.popups = append(a.popups, p)
	a.sched.After(popupLife, p.Ended)
}

func mediaLabel(media string) string {
	return strings.TrimSuffix(path.Base(media), path.Ext(media))
}

// step 推进调度器并清理已关闭的浮层
func (a *app) step(now time.Time) {
	a.sched.Advance(now)
	live := a.popups[:0]
	for _, p := range a.popups {
		if !p.Closed() {
			live = append(live, p)
		}
	}
	a.popups = live
	if a.message != "" && !now.Before(a.msgUntil) {
		a.message = ""
	}
}

func (a *app) draw() {
	s := a.screen
	s.Clear()
	cols, rows := s.Size()
	base := tcell.StyleDefault

	b := a.game.Boundary()
	borderStyle := base.Foreground(tcell.ColorRed)
	if effect, _ := a.game.BonusVisuals(); effect {
		borderStyle = base.Foreground(tcell.ColorYellow).Bold(true)
	}
	x0, y0 := a.scale.toCell(b.Left, b.Top)
	x1, y1 := a.scale.toCell(b.Right, b.Bottom)
	drawBox(s, x0, y0, x1, y1, borderStyle)

	size := a.game.Level().TileSize
	captured, _ := a.game.Captured()
	for _, t := range a.game.Tiles() {
		style := base.Foreground(tilePalette[t.ID%len(tilePalette)])
		glyph := tileGlyph
		if t.ID == captured {
			glyph = capturedMark
		}
		tx0, ty0 := a.scale.toCell(t.X, t.Y)
		tx1, ty1 := a.scale.toCell(t.X+size, t.Y+size)
		for y := ty0; y < max(ty1, ty0+1); y++ {
			for x := tx0; x < max(tx1, tx0+1); x++ {
				s.SetContent(x, y, glyph, nil, style)
			}
		}
		putStr(s, tx0, ty0, mediaLabel(t.Media), style.Reverse(true))
	}

	for _, p := range a.popups {
		px, py := a.scale.toCell(p.X, p.Y)
		putStr(s, px, py, "▶ "+p.label, base.Foreground(tcell.ColorWhite).Background(tcell.ColorDarkRed))
	}

	if _, video := a.game.BonusVisuals(); video {
		centerStr(s, cols, rows/2, "▶ "+mediaLabel(a.game.Level().BonusMedia)+" ◀", base.Foreground(tcell.ColorYellow).Bold(true))
	}
	if !a.intro.Closed() {
		centerStr(s, cols, rows/2, "▶ "+mediaLabel(a.intro.Src), base.Bold(true))
		centerStr(s, cols, rows/2+1, "按空格开始", base)
	}
	if a.message != "" {
		centerStr(s, cols, rows/2+2, a.message, base.Foreground(tcell.ColorLime).Bold(true))
	}

	v := a.vol.Volume()
	header := fmt.Sprintf(" 分数 %d/%d  方块 %d  %s %d%%  [b]BONUS [space]开始 [+/-]音量 [q]退出",
		a.game.Score(), a.game.Level().TargetScore, a.game.TileCount(), volume.Icon(v), int(math.Round(v*100)))
	if a.game.BonusUsed() {
		header = strings.Replace(header, "[b]BONUS ", "", 1)
	}
	for x := 0; x < cols; x++ {
		s.SetContent(x, 0, ' ', nil, base.Reverse(true))
	}
	putStr(s, 0, 0, header, base.Reverse(true))
	s.Show()
}

func drawBox(s tcell.Screen, x0, y0, x1, y1 int, style tcell.Style) {
	if y0 < headerRows {
		y0 = headerRows
	}
	for x := x0 + 1; x < x1; x++ {
		s.SetContent(x, y0, '─', nil, style)
		s.SetContent(x, y1, '─', nil, style)
	}
	for y := y0 + 1; y < y1; y++ {
		s.SetContent(x0, y, '│', nil, style)
		s.SetContent(x1, y, '│', nil, style)
	}
	s.SetContent(x0, y0, '┌', nil, style)
	s.SetContent(x1, y0, '┐', nil, style)
	s.SetContent(x0, y1, '└', nil, style)
	s.SetContent(x1, y1, '┘', nil, style)
}

// putStr 逐个 rune 写入；中文等宽字符占两格
func putStr(s tcell.Screen, x, y int, str string, style tcell.Style) {
	for _, r := range str {
		s.SetContent(x, y, r, nil, style)
		x += max(runewidth.RuneWidth(r), 1)
	}
}

func centerStr(s tcell.Screen, cols, y int, str string, style tcell.Style) {
	putStr(s, (cols-runewidth.StringWidth(str))/2, y, str, style)
}
