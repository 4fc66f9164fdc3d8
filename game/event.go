package game

// Phase 游戏阶段
type Phase int

const (
	PhaseIntro Phase = iota
	PhasePlaying
)

func (p Phase) String() string {
	switch p {
	case PhaseIntro:
		return "intro"
	case PhasePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// EventKind 推送给宿主的离散事件类型
type EventKind string

const (
	EventPhase          EventKind = "phase"
	EventSpawn          EventKind = "spawn"
	EventScored         EventKind = "scored"
	EventDropped        EventKind = "dropped"
	EventBonus          EventKind = "bonus"
	EventBonusPlay      EventKind = "bonus_play"
	EventBonusClear     EventKind = "bonus_clear"
	EventBonusEffectEnd EventKind = "bonus_effect_end"
	EventBonusVideoEnd  EventKind = "bonus_video_end"
	EventComplete       EventKind = "complete"
)

// Event 状态变化通知，服务端转成消息下发，终端客户端用来播放音效
type Event struct {
	Kind   EventKind `json:"kind"`
	TileID int       `json:"tile,omitempty"`
	Score  int       `json:"score"`
	Media  string    `json:"media,omitempty"`
	Volume float64   `json:"volume,omitempty"`
}

// Hooks 宿主回调，均在持有 Game 的协程中调用
type Hooks struct {
	OnComplete func()
	OnEvent    func(Event)
}

// VolumeSource 全局音量偏好（0..1），由外部提供
type VolumeSource interface {
	Volume() float64
}

// Outcome 一次放下的判定结果
type Outcome struct {
	TileID int     `json:"tile"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Scored bool    `json:"scored"`
	Score  int     `json:"score"`
}
