package server

import (
	"dragarena/game"
	"dragarena/overlay"
)

// ClientID 连接唯一标识（同名客户端由接入层追加序号）
type ClientID string

// Conn 房间对连接的最小依赖，测试中以假连接替代
type Conn interface {
	Codec() Codec
	Send(b []byte) error
	Close() error
}

// Client 房间内的一个连接（观看者或拖拽者）
type Client struct {
	ID   ClientID
	Conn Conn

	lastSeq        int64 // 已接受的最大 pointermove 序列号
	inputsThisTick int
}

// 出站消息类型
const (
	MsgWelcome = "welcome"
	MsgState   = "state"
	MsgEvent   = "event"
	MsgPopup   = "popup"
	MsgError   = "error"
)

// WelcomeMsg 接入后第一条消息
type WelcomeMsg struct {
	Client string `json:"client"`
	Room   string `json:"room"`
	TickHz int    `json:"tickHz"`
}

// StateMsg 周期广播的权威快照
type StateMsg struct {
	Tick    uint64 `json:"tick"`
	Viewers int    `json:"viewers"`
	Owner   string `json:"owner,omitempty"` // 当前拖拽者
	game.Snapshot
	Overlay *overlay.Popup `json:"overlay,omitempty"` // 开场或 BONUS 影片
}

// ErrorMsg 输入被拒绝的原因
type ErrorMsg struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
}
