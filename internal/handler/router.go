package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	chatHandler "github.com/svroyal/concierge/internal/handler/chat"
	"github.com/svroyal/concierge/internal/handler/events"
	middlewarePkg "github.com/svroyal/concierge/internal/middleware"
	"github.com/svroyal/concierge/internal/service/conversation"
	"github.com/svroyal/concierge/internal/service/session"
)

// NewRouter wires HTTP routes to the conversation core.
func NewRouter(convSvc *conversation.Service, store *session.Store, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	conversationHandler := chatHandler.New(convSvc, store)
	eventsHandler := events.New(store, logger)

	r.Route("/api", func(api chi.Router) {
		conversationHandler.RegisterRoutes(api)
		eventsHandler.RegisterRoutes(api)
	})

	return r
}
