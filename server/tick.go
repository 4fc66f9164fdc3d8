package server

import "time"

// StartTicker 启动房间的 Tick 循环（单线程推进世界）
func (r *Room) StartTicker() {
	if r.tickerStarted {
		return
	}
	r.tickerStarted = true
	interval := time.Second / time.Duration(r.opts.TickHz)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer r.shutdown()
		for {
			select {
			case <-r.quit:
				return
			case <-ticker.C:
				r.tick(r.opts.Now())
			}
		}
	}()
}

// tick 核心循环：处理输入 → 推进调度器 → 下发事件 → 按频率广播快照
func (r *Room) tick(now time.Time) {
	start := time.Now()
	r.BeginTick() // 同一 Tick 时间线：重置输入计数等帧内状态
	r.ProcessInputs()
	r.UpdateWorld(now)
	r.tickSeq++
	r.flushEvents()
	if r.tickSeq%uint64(r.opts.BroadcastEvery) == 0 {
		r.Broadcast()
	}
	r.publishStatus()
	r.metrics.AddTick(time.Since(start).Nanoseconds())
}

// Stop 停止 Tick 循环；未启动 Tick 的房间立即清理
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
		if !r.tickerStarted {
			r.shutdown()
		}
	})
}

// shutdown 结束本局并关闭所有连接，排队中的加入请求一并关闭
func (r *Room) shutdown() {
	r.closeCtrl()
	r.game.Stop()
	for id, c := range r.Clients {
		_ = c.Conn.Close()
		delete(r.Clients, id)
	}
	for {
		select {
		case cmd := <-r.ctrlChan:
			switch c := cmd.(type) {
			case joinCmd:
				_ = c.conn.Close()
			case retuneCmd:
				c.reply <- errRoomClosed
			}
		default:
			r.publishStatus()
			Log.Infof("room %s stopped", r.ID)
			return
		}
	}
}
