package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/svroyal/concierge/internal/detect"
	"github.com/svroyal/concierge/internal/feedback"
	"github.com/svroyal/concierge/internal/intent"
	"github.com/svroyal/concierge/internal/model/chat"
	"github.com/svroyal/concierge/internal/service/remote"
	"github.com/svroyal/concierge/internal/service/session"
)

var (
	ErrEmptyMessage = errors.New("message text is empty")
	ErrAskInFlight  = errors.New("another question is awaiting its answer")
)

const (
	bookingAckText = "I can help you with that. Please fill out the booking form below."
	askErrorText   = "Sorry, I encountered an error. Please try again."
)

// Service orchestrates a conversation turn: classify the outbound text, open
// the booking flow or delegate to the answering service, attach detected
// locations and a fresh feedback state, and append everything to the session
// store. It holds no state of its own beyond what the store owns.
type Service struct {
	store        *session.Store
	remote       *remote.Client
	detector     *detect.Detector
	keywords     intent.Keywords
	contactPhone string
	logger       *zap.Logger
}

// NewService wires the controller.
func NewService(store *session.Store, remoteClient *remote.Client, detector *detect.Detector, keywords intent.Keywords, contactPhone string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		remote:       remoteClient,
		detector:     detector,
		keywords:     keywords,
		contactPhone: contactPhone,
		logger:       logger,
	}
}

// SendResult reports the messages a turn appended and whether the structured
// booking form should open instead of a remote answer.
type SendResult struct {
	Messages          []chat.Message `json:"messages"`
	BookingFormOpened bool           `json:"bookingFormOpened"`
}

// Send processes one outbound user message.
//
// The user message is appended optimistically before any remote work, so it
// stays visible even when the ask fails. A booking request short-circuits:
// no remote call is made, a fixed acknowledgement is appended and the form
// opens. A failed ask degrades to a fixed error message; it is never retried
// automatically.
func (s *Service) Send(ctx context.Context, sessionID, text string) (SendResult, error) {
	question := strings.TrimSpace(text)
	if question == "" {
		return SendResult{}, ErrEmptyMessage
	}

	if !s.store.BeginAsk(ctx, sessionID) {
		return SendResult{}, ErrAskInFlight
	}
	defer s.store.EndAsk(sessionID)

	state := s.store.Get(ctx, sessionID)
	userMsg := s.store.Append(ctx, sessionID, chat.Message{
		Role: chat.RoleUser,
		Text: question,
	})

	if s.keywords.Classify(question).IsBookingRequest {
		ack := s.store.Append(ctx, sessionID, chat.Message{
			Role:          chat.RoleBot,
			Text:          bookingAckText,
			FeedbackState: feedback.None,
		})
		return SendResult{Messages: []chat.Message{userMsg, ack}, BookingFormOpened: true}, nil
	}

	resp, err := s.remote.Ask(ctx, question, state.Session.UserID)
	if err != nil {
		s.logger.Warn("ask failed", zap.String("sessionID", sessionID), zap.Error(err))
		errMsg := s.store.Append(ctx, sessionID, chat.Message{
			Role:          chat.RoleBot,
			Text:          askErrorText,
			FeedbackState: feedback.None,
			IsError:       true,
		})
		return SendResult{Messages: []chat.Message{userMsg, errMsg}}, nil
	}

	feedbackState := feedback.None
	if resp.FeedbackQuestion != nil {
		feedbackState = feedback.Pending
	}
	botMsg := s.store.Append(ctx, sessionID, chat.Message{
		Role:                chat.RoleBot,
		Text:                resp.Answer,
		OriginatingQuestion: question,
		Locations:           s.detector.Detect(resp.Answer, question),
		FeedbackState:       feedbackState,
		FeedbackPrompt:      resp.FeedbackQuestion,
	})

	return SendResult{Messages: []chat.Message{userMsg, botMsg}}, nil
}

// RateHelpful handles the "yes" click: a fixed positive rating submitted
// immediately, no free text. Already-rated or promptless messages no-op.
func (s *Service) RateHelpful(ctx context.Context, sessionID, messageID string) error {
	return s.submitRating(ctx, sessionID, messageID, feedback.PositiveRating, "", feedback.State.CanRate)
}

// OpenDetail handles the "no" click: it reveals the free-text box for this
// message and implicitly closes any other open box in the session.
func (s *Service) OpenDetail(ctx context.Context, sessionID, messageID string) error {
	msg, ok := s.store.Message(ctx, sessionID, messageID)
	if !ok || msg.FeedbackState.Terminal() {
		return nil
	}
	s.store.OpenDetail(ctx, sessionID, messageID)
	return nil
}

// SubmitDetail handles the detail-box submission: a fixed negative rating
// with optional free text. The box must be open, so a submission without the
// preceding "no" click no-ops, as do repeats on a rated message.
func (s *Service) SubmitDetail(ctx context.Context, sessionID, messageID, text string) error {
	return s.submitRating(ctx, sessionID, messageID, feedback.NegativeRating, text, feedback.State.CanSubmitDetail)
}

// submitRating sends the feedback to the collaborator first and mutates the
// store only on success, so a failed submission leaves the prompt
// interactive for a retry.
func (s *Service) submitRating(ctx context.Context, sessionID, messageID string, rating int, text string, allowed func(feedback.State) bool) error {
	msg, ok := s.store.Message(ctx, sessionID, messageID)
	if !ok || msg.IsError || msg.Role != chat.RoleBot {
		return nil
	}
	if !allowed(msg.FeedbackState) {
		return nil
	}

	state := s.store.Get(ctx, sessionID)
	promptType := feedback.DefaultPromptType
	if msg.FeedbackPrompt != nil && msg.FeedbackPrompt.Type != "" {
		promptType = msg.FeedbackPrompt.Type
	}

	err := s.remote.SubmitFeedback(ctx, remote.Feedback{
		UserID:       state.Session.UserID,
		Question:     msg.OriginatingQuestion,
		Answer:       msg.Text,
		Rating:       rating,
		FeedbackText: text,
		FeedbackType: promptType,
	})
	if err != nil {
		s.logger.Warn("feedback submission failed",
			zap.String("sessionID", sessionID),
			zap.String("messageID", messageID),
			zap.Error(err))
		return err
	}

	s.store.MarkRated(ctx, sessionID, messageID, rating)
	return nil
}

// BookingResult reports per-field validation errors; when it carries any,
// nothing was submitted and the form stays open.
type BookingResult struct {
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Booking     *remote.Booking   `json:"booking,omitempty"`
	Messages    []chat.Message    `json:"messages,omitempty"`
}

// SubmitBooking validates and submits the booking draft. Success appends a
// confirmation message and clears the form; failure appends an error message
// pointing at the fallback contact channel and keeps the form (and the
// guest's input) open.
func (s *Service) SubmitBooking(ctx context.Context, sessionID string, draft chat.BookingDraft) (BookingResult, error) {
	if errs := draft.Validate(); len(errs) > 0 {
		return BookingResult{FieldErrors: errs}, nil
	}

	booking, err := s.remote.CreateBooking(ctx, draft)
	if err != nil {
		s.logger.Warn("booking failed", zap.String("sessionID", sessionID), zap.Error(err))
		errMsg := s.store.Append(ctx, sessionID, chat.Message{
			Role:          chat.RoleBot,
			Text:          fmt.Sprintf("Sorry, booking failed. Please call us at %s.", s.contactPhone),
			FeedbackState: feedback.None,
			IsError:       true,
		})
		return BookingResult{Messages: []chat.Message{errMsg}}, err
	}

	confirmation := s.store.Append(ctx, sessionID, chat.Message{
		Role:          chat.RoleBot,
		Text:          fmt.Sprintf("🎉 Booking confirmed! ID: **%s**\n\nA confirmation email has been sent to %s.", booking.BookingID, booking.Email),
		FeedbackState: feedback.None,
	})
	return BookingResult{Booking: &booking, Messages: []chat.Message{confirmation}}, nil
}

// Reset restarts the conversation: one fresh welcome message, persisted
// storage cleared. A remote answer that completes after the reset is
// appended to the new log; the reset boundary is not enforced against
// in-flight calls.
func (s *Service) Reset(ctx context.Context, sessionID string) session.State {
	return s.store.Reset(ctx, sessionID)
}
