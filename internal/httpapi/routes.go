package httpapi

import (
	"net/http"

	"github.com/BigMop13/final-sentence-dis-version/internal/hub"
	"github.com/BigMop13/final-sentence-dis-version/internal/sentences"
	"github.com/BigMop13/final-sentence-dis-version/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func SetupRoutes(h *hub.Hub, pool *sentences.Pool, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Post("/rooms", CreateRoom(h, pool, log))
	r.Get("/rooms/{channelID}", GetRoom(h))
	r.Get("/ws", ws.Handler(h, pool, log))
	return r
}
