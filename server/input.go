package server

import (
	"errors"
	"fmt"
	"math"

	"dragarena/overlay"
)

// 入站消息类型
const (
	MsgPointerDown   = "pointerdown"
	MsgPointerMove   = "pointermove"
	MsgPointerUp     = "pointerup"
	MsgPointerCancel = "pointercancel"
	MsgResize        = "resize"
	MsgBonus         = "bonus"
	MsgStart         = "start"
)

var errUnknownMessage = errors.New("unknown message type")

// Input 客户端输入（意图），由房间在 Tick 中解释并驱动游戏状态
type Input struct {
	ClientID ClientID
	Type     string
	Tile     int
	X, Y     float64
	Viewport overlay.Viewport
	Seq      int64 // 客户端本地序列号，pointermove 用于丢弃乱序
}

// PointerMessage pointer* 消息载荷，坐标为视口像素
// 示例：{"t":"pointerdown","p":{"tile":3,"x":410,"y":220}}
type PointerMessage struct {
	Tile int     `json:"tile"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Seq  int64   `json:"seq,omitempty"`
}

// ParseInput 把外壳解析为 Input
func ParseInput(c Codec, id ClientID, env Envelope) (Input, error) {
	in := Input{ClientID: id, Type: env.T}
	switch env.T {
	case MsgPointerDown, MsgPointerMove, MsgPointerUp, MsgPointerCancel:
		pm, err := DecodePayload[PointerMessage](c, env)
		if err != nil {
			return in, err
		}
		if !finite(pm.X) || !finite(pm.Y) {
			return in, fmt.Errorf("%s: non-finite pointer", env.T)
		}
		in.Tile, in.X, in.Y, in.Seq = pm.Tile, pm.X, pm.Y, pm.Seq
	case MsgResize:
		vp, err := DecodePayload[overlay.Viewport](c, env)
		if err != nil {
			return in, err
		}
		if !finite(vp.Width) || !finite(vp.Height) || vp.Width <= 0 || vp.Height <= 0 {
			return in, fmt.Errorf("resize: invalid viewport %vx%v", vp.Width, vp.Height)
		}
		in.Viewport = vp
	case MsgBonus, MsgStart:
	default:
		return in, fmt.Errorf("%w: %q", errUnknownMessage, env.T)
	}
	return in, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
