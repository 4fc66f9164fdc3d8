package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	InputsAccepted    int64 // 被接受的输入数
	RateLimited       int64 // 因同帧限流被拒绝的 pointermove
	OldSeqIgnored     int64 // 因旧序列被忽略的 pointermove
	ChanFullDiscarded int64 // 因通道满被丢弃的输入数
	CapturesRejected  int64 // 被拒绝的按下（已有拖拽、未知方块、非游戏阶段）
	TilesScored       int64 // 拖出边界得分的方块数
	BonusesUsed       int64
	SendDropped       int64 // 发送队列满或连接已关闭而丢弃的出站消息
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *RoomMetrics) IncAccepted()          { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) IncRateLimited()       { atomic.AddInt64(&m.RateLimited, 1) }
func (m *RoomMetrics) IncOldSeqIgnored()     { atomic.AddInt64(&m.OldSeqIgnored, 1) }
func (m *RoomMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *RoomMetrics) IncCaptureRejected()   { atomic.AddInt64(&m.CapturesRejected, 1) }
func (m *RoomMetrics) IncScored()            { atomic.AddInt64(&m.TilesScored, 1) }
func (m *RoomMetrics) IncBonus()             { atomic.AddInt64(&m.BonusesUsed, 1) }
func (m *RoomMetrics) IncSendDropped()       { atomic.AddInt64(&m.SendDropped, 1) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"rate_limited":        atomic.LoadInt64(&m.RateLimited),
		"old_seq_ignored":     atomic.LoadInt64(&m.OldSeqIgnored),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"captures_rejected":   atomic.LoadInt64(&m.CapturesRejected),
		"tiles_scored":        atomic.LoadInt64(&m.TilesScored),
		"bonuses_used":        atomic.LoadInt64(&m.BonusesUsed),
		"send_dropped":        atomic.LoadInt64(&m.SendDropped),
		"avg_tick_ms":         avgMs,
	}
}
