package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendQueue  = 64
)

var (
	errSendQueueFull = errors.New("send queue full")
	errConnClosed    = errors.New("connection closed")
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws    *websocket.Conn
	codec Codec
	send  chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClientConn(ws *websocket.Conn, codec Codec) *ClientConn {
	return &ClientConn{
		ws:    ws,
		codec: codec,
		send:  make(chan []byte, sendQueue),
	}
}

func (c *ClientConn) Codec() Codec { return c.codec }

// Send 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		// 为了实时性，丢弃新消息（防止阻塞 Tick）
		return errSendQueueFull
	}
}

// Close 关闭发送队列，写协程发完剩余消息后关闭底层连接
func (c *ClientConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(c.codec.FrameType(), msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端输入，转换为 Input 注入房间
func (c *ClientConn) readPump(room *Room, id ClientID) {
	defer c.ws.Close()
	// 读泵退出时，通知房间在 Tick 线程中移除该连接
	defer room.RequestLeave(id)
	c.ws.SetReadLimit(1 << 16)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Debugf("ws read: client=%s err=%v", id, err)
			}
			return
		}
		env, err := c.codec.DecodeEnvelope(payload)
		if err != nil {
			continue
		}
		in, err := ParseInput(c.codec, id, env)
		if err != nil {
			Log.Debugf("bad input: client=%s type=%s err=%v", id, env.T, err)
			continue
		}
		room.OnInput(in)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

var connSeq atomic.Int64

// clientIDFor 同名客户端可以同时在线，追加进程内序号区分
func clientIDFor(name string) ClientID {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "guest"
	}
	return ClientID(fmt.Sprintf("%s#%d", name, connSeq.Add(1)))
}

// HandleWS WebSocket 接入：?room=room-1&client=alice&enc=msgpack
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := q.Get("room")
	if roomID == "" {
		roomID = s.cfg.DefaultRoom
	}
	room, err := s.rooms.GetOrCreateRoom(roomID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	id := clientIDFor(q.Get("client"))
	client := NewClientConn(ws, CodecByName(q.Get("enc")))
	go client.writePump()
	if err := room.RequestJoin(id, client); err != nil {
		_ = client.Close()
		return
	}
	go client.readPump(room, id)
}
