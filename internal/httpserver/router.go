package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"salesbot/internal/middleware"
)

type RouterDeps struct {
	Logger         *slog.Logger
	InboundHandler http.Handler
	API            *API
}

// NewRouter собирает chi-роутер с общими middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	if deps.InboundHandler != nil {
		r.Post("/messages/inbound", deps.InboundHandler.ServeHTTP)
	}

	if deps.API != nil {
		r.Route("/api", func(r chi.Router) {
			r.Get("/status", deps.API.Status)
			r.Get("/ai-stats", deps.API.AIStats)
			r.Get("/products", deps.API.Products)
			r.Post("/send-message", deps.API.SendMessage)
		})
	}

	return r
}
