package events

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/svroyal/concierge/internal/service/session"
)

// Handler streams transcript snapshots to the widget so it can re-render on
// every session mutation instead of polling.
type Handler struct {
	store    *session.Store
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates the events handler.
func New(store *session.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes wires the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type outgoingMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"sessionId"`
	Data      session.State `json:"data"`
	Timestamp int64         `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("sessionID", sessionID), zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := h.store.Subscribe(sessionID)
	defer cancel()

	// Initial snapshot so a reconnecting widget renders immediately.
	if err := h.send(conn, sessionID, h.store.Get(r.Context(), sessionID)); err != nil {
		return
	}

	// The widget never sends anything meaningful; reading only detects close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case state := <-updates:
			if err := h.send(conn, sessionID, state); err != nil {
				h.logger.Debug("websocket write failed",
					zap.String("sessionID", sessionID), zap.Error(err))
				return
			}
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, sessionID string, state session.State) error {
	return conn.WriteJSON(outgoingMessage{
		Type:      "transcript",
		SessionID: sessionID,
		Data:      state,
		Timestamp: time.Now().UnixMilli(),
	})
}
