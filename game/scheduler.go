package game

import (
	"container/heap"
	"time"
)

// maxBacklog 周期任务落后超过这么多个周期时丢弃积压，直接从 now 重新计时
const maxBacklog = 4

// Task 一次性或周期任务的句柄，可取消
type Task struct {
	at       time.Time
	every    time.Duration
	fn       func()
	seq      uint64
	index    int
	canceled bool
	done     bool
}

// Cancel 取消任务；对 nil 或已完成的任务无副作用
func (t *Task) Cancel() {
	if t != nil {
		t.canceled = true
	}
}

// Active 任务仍在等待执行
func (t *Task) Active() bool {
	return t != nil && !t.canceled && !t.done
}

// Scheduler 由持有者线程驱动的定时器：Advance(now) 时按时间顺序执行到期任务。
// 不加锁，所有调用必须来自同一个协程（房间 Tick 或终端主循环）
type Scheduler struct {
	now time.Time
	seq uint64
	q   taskQueue
}

func NewScheduler(now time.Time) *Scheduler {
	return &Scheduler{now: now}
}

// Now 调度器当前时间；回调执行期间等于该任务的预定时间
func (s *Scheduler) Now() time.Time { return s.now }

// After 在 d 之后执行一次
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	return s.push(&Task{at: s.now.Add(d), fn: fn})
}

// Every 每隔 d 执行一次，首次在 d 之后
func (s *Scheduler) Every(d time.Duration, fn func()) *Task {
	if d <= 0 {
		panic("game: non-positive interval")
	}
	return s.push(&Task{at: s.now.Add(d), every: d, fn: fn})
}

func (s *Scheduler) push(t *Task) *Task {
	s.seq++
	t.seq = s.seq
	heap.Push(&s.q, t)
	return t
}

// Advance 推进到 now 并执行所有到期任务，返回执行次数
func (s *Scheduler) Advance(now time.Time) int {
	if now.Before(s.now) {
		now = s.now
	}
	fired := 0
	for s.q.Len() > 0 {
		t := s.q[0]
		if t.canceled {
			heap.Pop(&s.q)
			continue
		}
		if t.at.After(now) {
			break
		}
		heap.Pop(&s.q)
		s.now = t.at
		if t.every > 0 {
			t.at = t.at.Add(t.every)
			if now.Sub(t.at) > maxBacklog*t.every {
				t.at = now.Add(t.every)
			}
			heap.Push(&s.q, t)
		} else {
			t.done = true
		}
		t.fn()
		fired++
	}
	s.now = now
	return fired
}

// Pending 未取消的等待任务数
func (s *Scheduler) Pending() int {
	n := 0
	for _, t := range s.q {
		if !t.canceled {
			n++
		}
	}
	return n
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
