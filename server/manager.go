package server

import (
	"sort"
	"sync"
)

// RoomManager 管理多个房间的生命周期
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	opts  RoomOptions

	// startTicker 为 false 时由调用方手动推进（测试用）
	startTicker bool
}

func NewRoomManager(opts RoomOptions) *RoomManager {
	return &RoomManager{
		rooms:       make(map[string]*Room),
		opts:        opts,
		startTicker: true,
	}
}

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *RoomManager) GetOrCreateRoom(id string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[id]; ok {
		return r, nil
	}
	r, err := NewRoom(id, m.opts)
	if err != nil {
		return nil, err
	}
	r.OnEmpty = m.remove
	m.rooms[id] = r
	if m.startTicker {
		r.StartTicker()
	}
	Log.Infof("room %s created", id)
	return r, nil
}

// Get 只查找，不创建
func (m *RoomManager) Get(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Rooms 按 ID 排序的房间列表
func (m *RoomManager) Rooms() []*Room {
	m.mu.RLock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// remove 房间空了就结束这一局，下次进入重新开始
func (m *RoomManager) remove(id string) {
	m.mu.Lock()
	r, ok := m.rooms[id]
	if ok {
		delete(m.rooms, id)
	}
	m.mu.Unlock()
	if ok {
		r.Stop()
	}
}

// StopAll 关闭所有房间（进程退出时调用）
func (m *RoomManager) StopAll() {
	m.mu.Lock()
	rooms := m.rooms
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()
	for _, r := range rooms {
		r.Stop()
	}
}
