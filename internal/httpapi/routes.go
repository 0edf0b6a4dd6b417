package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mopmop-game/mopmop-server/internal/session"
	"github.com/mopmop-game/mopmop-server/internal/ws"
)

func SetupRoutes(s *session.Session, log *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	r.Get("/api/health", Health(s))
	r.Get("/api/gamestate", GameState(s))
	r.Get("/ws", ws.Handler(s, log))
	return r
}
