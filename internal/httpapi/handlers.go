package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mopmop-game/mopmop-server/internal/session"
)

// queryState round-trips through the session inbox so the reply is consistent
// with the latest applied command.
func queryState(s *session.Session) (session.View, bool) {
	reply := make(chan session.View, 1)
	s.Inbox() <- session.GetState{Reply: reply}
	select {
	case v := <-reply:
		return v, true
	case <-time.After(2 * time.Second):
		return session.View{}, false
	}
}

func Health(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := queryState(s)
		if !ok {
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Status  string `json:"status"`
			Players int    `json:"players"`
		}{Status: "ok", Players: len(v.State.Players)})
	}
}

// GameState serves the same payload shape as the gameState websocket event,
// for external monitoring.
func GameState(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := queryState(s)
		if !ok {
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v.State)
	}
}
