package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/svroyal/concierge/internal/model/chat"
	"github.com/svroyal/concierge/internal/service/conversation"
	"github.com/svroyal/concierge/internal/service/session"
	"github.com/svroyal/concierge/pkg/utils"
)

// Handler exposes the conversation over REST for the widget.
type Handler struct {
	convSvc *conversation.Service
	store   *session.Store
}

// New creates the chat handler.
func New(convSvc *conversation.Service, store *session.Store) *Handler {
	return &Handler{convSvc: convSvc, store: store}
}

// RegisterRoutes wires the conversation endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}", h.handleGetSession)
	r.Post("/session/{sessionID}/messages", h.handleSendMessage)
	r.Post("/session/{sessionID}/messages/{messageID}/feedback", h.handleFeedback)
	r.Post("/session/{sessionID}/bookings", h.handleSubmitBooking)
	r.Post("/session/{sessionID}/reset", h.handleReset)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	state := h.store.Create(r.Context())
	utils.RespondJSON(w, http.StatusCreated, state)
}

// handleGetSession restores a session after a reload. Unknown or unreadable
// state degrades to a fresh welcome conversation, never an error.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	state := h.store.Get(r.Context(), sessionID)
	utils.RespondJSON(w, http.StatusOK, state)
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.convSvc.Send(r.Context(), sessionID, payload.Text)
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	case errors.Is(err, conversation.ErrAskInFlight):
		utils.RespondError(w, http.StatusConflict, "previous question still awaiting its answer")
		return
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

// handleFeedback maps the three prompt interactions onto the state machine:
// "yes" rates positively, "no" opens the detail box, "submit" sends the
// detail box's text with the fixed negative rating.
func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messageID := chi.URLParam(r, "messageID")

	var payload struct {
		Action string `json:"action"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	switch payload.Action {
	case "yes":
		err = h.convSvc.RateHelpful(r.Context(), sessionID, messageID)
	case "no":
		err = h.convSvc.OpenDetail(r.Context(), sessionID, messageID)
	case "submit":
		err = h.convSvc.SubmitDetail(r.Context(), sessionID, messageID, payload.Text)
	default:
		utils.RespondError(w, http.StatusBadRequest, "action must be yes, no or submit")
		return
	}

	if err != nil {
		// State is untouched; the prompt stays interactive for a retry.
		utils.RespondError(w, http.StatusBadGateway, "feedback submission failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSubmitBooking(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var draft chat.BookingDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.convSvc.SubmitBooking(r.Context(), sessionID, draft)
	if len(result.FieldErrors) > 0 {
		utils.RespondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	if err != nil {
		// The error message is already in the log; the form stays open.
		utils.RespondJSON(w, http.StatusBadGateway, result)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, result)
}

// handleReset restarts the conversation. The widget asks the guest for
// confirmation before calling this; the reset itself is irreversible.
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	state := h.convSvc.Reset(r.Context(), sessionID)
	utils.RespondJSON(w, http.StatusOK, state)
}
