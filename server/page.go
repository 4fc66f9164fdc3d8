package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/a-h/templ"
)

func render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		http.Error(w, "failed to render", http.StatusInternalServerError)
	}
}

func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	rooms := s.rooms.Rooms()
	statuses := make([]RoomStatus, 0, len(rooms))
	for _, room := range rooms {
		statuses = append(statuses, room.Status())
	}
	render(w, r, lobbyPage(s.cfg.DefaultRoom, statuses))
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = s.cfg.DefaultRoom
	}
	render(w, r, playPage(room, r.URL.Query().Get("client")))
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!doctype html><html lang="zh"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>%s</title><link rel="stylesheet" href="/static/drag.css"></head><body>`,
			templ.EscapeString(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func lobbyPage(defaultRoom string, rooms []RoomStatus) templ.Component {
	return layout("拉影片挑战", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<main class="lobby"><h1>拉影片挑战</h1>`+
			`<form action="/play" method="get">`); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<input name="room" value="%s" aria-label="room">`+
			`<input name="client" placeholder="名字" aria-label="name">`+
			`<button type="submit">进入</button></form>`, templ.EscapeString(defaultRoom)); err != nil {
			return err
		}
		if len(rooms) == 0 {
			_, err := io.WriteString(w, `<p class="empty">还没有房间</p></main>`)
			return err
		}
		if _, err := io.WriteString(w, `<table><thead><tr><th>房间</th><th>阶段</th><th>分数</th><th>方块</th><th>在线</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, st := range rooms {
			done := ""
			if st.Completed {
				done = " ✓"
			}
			if _, err := fmt.Fprintf(w, `<tr><td><a href="/play?room=%s">%s</a></td><td>%s</td><td>%d/%d%s</td><td>%d</td><td>%d</td></tr>`,
				url.QueryEscape(st.ID), templ.EscapeString(st.ID), templ.EscapeString(st.Phase),
				st.Score, st.Target, done, st.Tiles, st.Viewers); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table></main>`)
		return err
	}))
}

// playPage 浏览器客户端只用 JSON；msgpack 留给程序化客户端
func playPage(room, client string) templ.Component {
	return layout("拉影片挑战 · "+room, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div id="arena" data-room="%s" data-client="%s">`,
			templ.EscapeString(room), templ.EscapeString(client)); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<header><span id="score">0/0</span>`+
			`<button id="bonus">BONUS</button><button id="volume">🔊</button></header>`+
			`<div id="boundary"></div><div id="tiles"></div><div id="overlay" hidden></div></div>`+
			`<script src="/static/drag.js"></script>`)
		return err
	}))
}
