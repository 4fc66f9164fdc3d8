// Package server 房间、WebSocket 接入与 HTTP 路由
package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dragarena/config"
	"dragarena/sfx"
	"dragarena/volume"
)

// Server 持有房间管理器与音量偏好，负责注册全部路由
type Server struct {
	cfg    config.ServerConfig
	rooms  *RoomManager
	volume *volume.Store
}

func NewServer(cfg config.ServerConfig, rooms *RoomManager, vol *volume.Store) *Server {
	return &Server{cfg: cfg, rooms: rooms, volume: vol}
}

// Routes 组装 chi 路由
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// WebSocket 长连接不能套超时中间件
	r.Get("/ws", s.HandleWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Get("/", s.handleLobby)
		r.Get("/play", s.handlePlay)
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/volume", s.handleGetVolume)
			r.Post("/volume", s.handleSetVolume)
		})
		r.Get("/sfx/{name}.wav", s.handleSFX)

		// 管理与监控接口
		r.Get("/admin/config", s.HandleAdminConfig)
		r.Post("/admin/config", s.HandleAdminConfigUpdate)
		r.Get("/metrics", s.HandleMetrics)
	})

	if fi, err := os.Stat(s.cfg.StaticDir); err == nil && fi.IsDir() {
		r.Mount("/static", http.StripPrefix("/static", http.FileServer(http.Dir(s.cfg.StaticDir))))
	}
	return r
}

// requestLogger 把访问日志写进 zap，而不是标准输出
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			Log.Debugw("http",
				"req", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"dur", time.Since(start),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

type volumeResponse struct {
	Volume float64 `json:"volume"`
	Icon   string  `json:"icon"`
}

func (s *Server) handleGetVolume(w http.ResponseWriter, r *http.Request) {
	v := s.volume.Volume()
	writeJSON(w, http.StatusOK, volumeResponse{Volume: v, Icon: volume.Icon(v)})
}

// handleSetVolume 超出范围的值会被夹紧；保存失败时内存中的值仍然生效
func (s *Server) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Volume *float64 `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Volume == nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	v, err := s.volume.SetVolume(*body.Volume)
	if errors.Is(err, volume.ErrInvalid) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		Log.Warnf("volume not persisted: %v", err)
	}
	writeJSON(w, http.StatusOK, volumeResponse{Volume: v, Icon: volume.Icon(v)})
}

// handleSFX 按当前音量渲染音效 WAV；?volume= 可覆盖
func (s *Server) handleSFX(w http.ResponseWriter, r *http.Request) {
	name, err := sfx.Parse(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	vol := s.volume.Volume()
	if q := r.URL.Query().Get("volume"); q != "" {
		f, err := strconv.ParseFloat(q, 64)
		if err != nil || math.IsNaN(f) {
			http.Error(w, "invalid volume", http.StatusBadRequest)
			return
		}
		vol = volume.Clamp(f)
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-store")
	// Render 先在内存中编码完整文件，出错时还没有写出任何内容
	if err := sfx.Render(w, name, vol); err != nil {
		Log.Warnf("render sfx %s: %v", name, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}
