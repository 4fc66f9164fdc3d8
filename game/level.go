package game

import "time"

// Level 一关的全部可调参数（默认值与原版关卡一致）
type Level struct {
	Margin        float64 // 边界距离视口边缘
	TileSize      float64 // 影片方块边长
	SpawnPadding  float64 // 生成区域内缩
	HeaderSpace   float64 // 顶部标题占用的额外空间
	BouncePadding float64 // 反弹区域内缩
	MinSpeed      float64
	MaxSpeed      float64

	InitialTiles  int
	MaxTiles      int
	SpawnInterval time.Duration
	FrameInterval time.Duration
	IntroDuration time.Duration // 0 表示等待客户端 start

	TargetScore int
	BonusPoints int

	BonusPlayDelay      time.Duration
	BonusClearDelay     time.Duration
	BonusCompleteDelay  time.Duration
	BonusEffectDuration time.Duration
	BonusVideoDuration  time.Duration

	TileGain  float64 // 方块音量 = 音量偏好 * TileGain
	BonusGain float64

	Media      []string
	IntroMedia string
	BonusMedia string
}

// DefaultLevel 第三关「拉影片挑战」
func DefaultLevel() Level {
	return Level{
		Margin:        200,
		TileSize:      100,
		SpawnPadding:  30,
		HeaderSpace:   100,
		BouncePadding: 20,
		MinSpeed:      2,
		MaxSpeed:      4,

		InitialTiles:  5,
		MaxTiles:      10,
		SpawnInterval: 1500 * time.Millisecond,
		FrameInterval: time.Second / 60,

		TargetScore: 35,
		BonusPoints: 10,

		BonusPlayDelay:      100 * time.Millisecond,
		BonusClearDelay:     300 * time.Millisecond,
		BonusCompleteDelay:  1000 * time.Millisecond,
		BonusEffectDuration: 1500 * time.Millisecond,
		BonusVideoDuration:  3000 * time.Millisecond,

		TileGain:  0.5,
		BonusGain: 0.35 / 0.3,

		Media:      []string{"/哭蕊宿頭.mp4", "/溝通溝通.mp4", "/獲得華.mp4", "/MC.mp4"},
		IntroMedia: "/斗影片.mp4",
		BonusMedia: "/你拉一下啊.mp4",
	}
}

// Validate 检查会导致运行期异常的参数
func (l Level) Validate() error {
	switch {
	case l.TileSize <= 0:
		return errInvalidLevel("tile size must be positive")
	case l.MinSpeed < 0 || l.MaxSpeed < l.MinSpeed:
		return errInvalidLevel("speed range is inverted")
	case l.MaxTiles <= 0:
		return errInvalidLevel("max tiles must be positive")
	case l.InitialTiles < 0:
		return errInvalidLevel("initial tiles must not be negative")
	case l.SpawnInterval <= 0 || l.FrameInterval <= 0:
		return errInvalidLevel("intervals must be positive")
	case l.TargetScore <= 0:
		return errInvalidLevel("target score must be positive")
	case len(l.Media) == 0:
		return errInvalidLevel("media list is empty")
	}
	return nil
}
