package game

// TriggerBonus 一局只能用一次。立即显示特效与影片，随后按固定时间表：
// 播放影片、清空方块并加分、隐藏特效、隐藏影片。
// 所有步骤在触发时一次性排期，Stop 会全部取消；回调读取的都是执行当下的状态
func (g *Game) TriggerBonus() bool {
	if !g.active || g.phase != PhasePlaying || g.bonusUsed {
		return false
	}
	l := &g.level
	g.bonusUsed = true
	g.bonusEffect = true
	g.bonusVideo = true
	g.emit(Event{Kind: EventBonus, Media: l.BonusMedia})

	g.bonusTasks = append(g.bonusTasks,
		g.sched.After(l.BonusPlayDelay, g.bonusPlay),
		g.sched.After(l.BonusClearDelay, g.bonusClear),
		g.sched.After(l.BonusEffectDuration, g.bonusEffectEnd),
		g.sched.After(l.BonusVideoDuration, g.bonusVideoEnd),
	)
	return true
}

// bonusPlay 媒体播放是尽力而为，失败由客户端忽略
func (g *Game) bonusPlay() {
	g.emit(Event{
		Kind:   EventBonusPlay,
		Media:  g.level.BonusMedia,
		Volume: g.scaledVolume(g.level.BonusGain),
	})
}

func (g *Game) bonusClear() {
	g.tiles = g.tiles[:0]
	g.drag = nil
	g.score += g.level.BonusPoints
	g.emit(Event{Kind: EventBonusClear})
	if g.score >= g.level.TargetScore && !g.completed {
		// 留时间给 BONUS 动画，再切到过关
		g.bonusComplete = g.sched.After(g.level.BonusCompleteDelay, g.complete)
		g.bonusTasks = append(g.bonusTasks, g.bonusComplete)
	}
}

func (g *Game) bonusEffectEnd() {
	g.bonusEffect = false
	g.emit(Event{Kind: EventBonusEffectEnd})
}

func (g *Game) bonusVideoEnd() {
	g.bonusVideo = false
	g.emit(Event{Kind: EventBonusVideoEnd})
}

// BonusVisuals 特效与影片当前是否可见
func (g *Game) BonusVisuals() (effect, video bool) {
	return g.bonusEffect, g.bonusVideo
}
