package server

import (
	"encoding/json"
	"net/http"
	"time"

	"dragarena/game"
)

const retuneTimeout = 2 * time.Second

// Tuning 可热更新的关卡参数，未设置的字段保持不变
type Tuning struct {
	TargetScore      *int     `json:"targetScore,omitempty"`
	MaxTiles         *int     `json:"maxTiles,omitempty"`
	InitialTiles     *int     `json:"initialTiles,omitempty"`
	SpawnIntervalMs  *int     `json:"spawnIntervalMs,omitempty"`
	BonusPoints      *int     `json:"bonusPoints,omitempty"`
	MinSpeed         *float64 `json:"minSpeed,omitempty"`
	MaxSpeed         *float64 `json:"maxSpeed,omitempty"`
	MaxInputsPerTick *int     `json:"maxInputsPerTick,omitempty"`
}

func tuningOf(l game.Level, maxInputsPerTick int) Tuning {
	spawnMs := int(l.SpawnInterval / time.Millisecond)
	return Tuning{
		TargetScore:      &l.TargetScore,
		MaxTiles:         &l.MaxTiles,
		InitialTiles:     &l.InitialTiles,
		SpawnIntervalMs:  &spawnMs,
		BonusPoints:      &l.BonusPoints,
		MinSpeed:         &l.MinSpeed,
		MaxSpeed:         &l.MaxSpeed,
		MaxInputsPerTick: &maxInputsPerTick,
	}
}

func (t Tuning) apply(l *game.Level) {
	if t.TargetScore != nil {
		l.TargetScore = *t.TargetScore
	}
	if t.MaxTiles != nil {
		l.MaxTiles = *t.MaxTiles
	}
	if t.InitialTiles != nil {
		l.InitialTiles = *t.InitialTiles
	}
	if t.SpawnIntervalMs != nil {
		l.SpawnInterval = time.Duration(*t.SpawnIntervalMs) * time.Millisecond
	}
	if t.BonusPoints != nil {
		l.BonusPoints = *t.BonusPoints
	}
	if t.MinSpeed != nil {
		l.MinSpeed = *t.MinSpeed
	}
	if t.MaxSpeed != nil {
		l.MaxSpeed = *t.MaxSpeed
	}
}

func (s *Server) roomFromQuery(r *http.Request) string {
	if id := r.URL.Query().Get("room"); id != "" {
		return id
	}
	return s.cfg.DefaultRoom
}

// HandleAdminConfig 返回房间当前关卡参数
// GET /admin/config?room=room-1
func (s *Server) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	room, err := s.rooms.GetOrCreateRoom(s.roomFromQuery(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, room.Status().Tuning)
}

// HandleAdminConfigUpdate 以 JSON 载荷更新部分字段，在房间 Tick 线程中生效
// POST /admin/config?room=room-1
func (s *Server) HandleAdminConfigUpdate(w http.ResponseWriter, r *http.Request) {
	roomID := s.roomFromQuery(r)
	room, err := s.rooms.GetOrCreateRoom(roomID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var body Tuning
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := room.Retune(body, retuneTimeout); err != nil {
		Log.Warnf("config rejected: room=%s err=%v", roomID, err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HandleMetrics 输出指定房间的运行指标；不带 room 时输出全部房间
// GET /metrics?room=room-1
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("room"); id != "" {
		room, ok := s.rooms.Get(id)
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, roomMetrics(room))
		return
	}
	rooms := s.rooms.Rooms()
	out := make([]map[string]any, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomMetrics(room))
	}
	writeJSON(w, http.StatusOK, out)
}

func roomMetrics(room *Room) map[string]any {
	st := room.Status()
	return map[string]any{
		"room":    room.ID,
		"tick":    st.Tick,
		"status":  st,
		"metrics": room.Metrics().Snapshot(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
