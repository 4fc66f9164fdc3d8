// Package overlay 弹出影片浮层：位置夹紧到屏幕内，播完可自动关闭
package overlay

import "math"

const (
	edgeMargin       = 10
	popupHeight      = 200
	popupWidth       = 290
	popupWidthNarrow = 180
	narrowViewport   = 600
	popupVolume      = 0.3
)

// Viewport 视口尺寸
type Viewport struct {
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

// Narrow 窄屏（手机）
func (v Viewport) Narrow() bool { return v.Width < narrowViewport }

// Clamp 确保浮层不会超出屏幕
func Clamp(x, y float64, v Viewport) (float64, float64) {
	w := float64(popupWidth)
	if v.Narrow() {
		w = popupWidthNarrow
	}
	safeX := math.Min(math.Max(edgeMargin, x), v.Width-w)
	safeY := math.Min(math.Max(edgeMargin, y), v.Height-popupHeight)
	return safeX, safeY
}

// Popup 一个弹出影片
type Popup struct {
	Src             string  `json:"src"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Volume          float64 `json:"volume"`
	Loop            bool    `json:"loop,omitempty"`
	AutoCloseOnEnd  bool    `json:"autoCloseOnEnd,omitempty"`
	ShowCloseButton bool    `json:"showCloseButton,omitempty"`
	Centered        bool    `json:"centered,omitempty"`

	closed  bool
	onClose func()
}

// Option 浮层选项
type Option func(*Popup)

func WithLoop() Option            { return func(p *Popup) { p.Loop = true } }
func WithAutoClose() Option       { return func(p *Popup) { p.AutoCloseOnEnd = true } }
func WithCloseButton() Option     { return func(p *Popup) { p.ShowCloseButton = true } }
func OnClose(fn func()) Option    { return func(p *Popup) { p.onClose = fn } }
func WithVolume(v float64) Option { return func(p *Popup) { p.Volume = v } }

// Open 在 (x, y) 附近打开浮层，位置按视口夹紧
func Open(src string, x, y float64, v Viewport, opts ...Option) *Popup {
	p := &Popup{Src: src, Volume: popupVolume}
	p.X, p.Y = Clamp(x, y, v)
	for _, o := range opts {
		o(p)
	}
	return p
}

// Centered 居中浮层（BONUS 影片）
func Centered(src string, opts ...Option) *Popup {
	p := &Popup{Src: src, Volume: popupVolume, Centered: true}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Ended 影片播放结束；循环播放时不会结束
func (p *Popup) Ended() {
	if p.AutoCloseOnEnd && !p.Loop {
		p.Close()
	}
}

// Close 关闭浮层，回调只调用一次
func (p *Popup) Close() {
	if p.closed {
		return
	}
	p.closed = true
	if p.onClose != nil {
		p.onClose()
	}
}

func (p *Popup) Closed() bool { return p.closed }
