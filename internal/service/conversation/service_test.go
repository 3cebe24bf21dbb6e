package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/svroyal/concierge/internal/detect"
	"github.com/svroyal/concierge/internal/feedback"
	"github.com/svroyal/concierge/internal/intent"
	"github.com/svroyal/concierge/internal/model/chat"
	"github.com/svroyal/concierge/internal/model/gazetteer"
	"github.com/svroyal/concierge/internal/service/remote"
	"github.com/svroyal/concierge/internal/service/session"
)

var hotel = chat.LocationRef{
	Name:  "SV Royal Hotel",
	Query: "SV Royal Hotel Guntur Andhra Pradesh",
}

func newService(t *testing.T, backend http.Handler) (*Service, *session.Store, string) {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	store := session.NewStore("Welcome to SV Royal Hotel! How can I assist you today?", nil, nil)
	client := remote.NewClient(srv.URL, 5*time.Second, nil)
	detector := detect.New(hotel, gazetteer.NewMemoryStore(gazetteer.Seed()))
	svc := NewService(store, client, detector, intent.Default, "+91 9563 776 776", nil)

	state := store.Create(context.Background())
	return svc, store, state.Session.ID
}

func askBackend(answer string, withPrompt bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ask":
			payload := map[string]any{"answer": answer}
			if withPrompt {
				payload["feedback_question"] = map[string]string{"type": "csat_short", "text": "Was this answer helpful?"}
			}
			json.NewEncoder(w).Encode(payload)
		case "/feedback":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	})
}

func TestSendEmptyInputRejected(t *testing.T) {
	svc, store, sessionID := newService(t, askBackend("hi", false))

	_, err := svc.Send(context.Background(), sessionID, "   \n ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	state := store.Get(context.Background(), sessionID)
	require.Len(t, state.Messages, 1, "no message may be appended for empty input")
}

func TestSendBookingRequestShortCircuits(t *testing.T) {
	remoteCalled := false
	svc, store, sessionID := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remoteCalled = true
		http.NotFound(w, r)
	}))

	result, err := svc.Send(context.Background(), sessionID, "I want to book a room with good amenities")
	require.NoError(t, err)
	require.True(t, result.BookingFormOpened)
	require.False(t, remoteCalled, "booking requests must not hit the answering service")
	require.Len(t, result.Messages, 2)
	require.Equal(t, chat.RoleUser, result.Messages[0].Role)
	require.Equal(t, "I can help you with that. Please fill out the booking form below.", result.Messages[1].Text)

	state := store.Get(context.Background(), sessionID)
	require.Len(t, state.Messages, 3) // welcome + user + ack
}

func TestSendAttachesLocationsAndPendingFeedback(t *testing.T) {
	svc, _, sessionID := newService(t, askBackend("Visit Uppalapadu and Mangalagiri today", true))

	result, err := svc.Send(context.Background(), sessionID, "What attractions are nearby?")
	require.NoError(t, err)
	require.False(t, result.BookingFormOpened)

	bot := result.Messages[1]
	require.Equal(t, chat.RoleBot, bot.Role)
	require.Equal(t, "What attractions are nearby?", bot.OriginatingQuestion)
	require.Equal(t, feedback.Pending, bot.FeedbackState)
	require.NotNil(t, bot.FeedbackPrompt)
	require.Len(t, bot.Locations, 3)
	require.Equal(t, hotel, bot.Locations[0])
}

func TestSendWithoutPromptStaysNone(t *testing.T) {
	svc, _, sessionID := newService(t, askBackend("We have WiFi", false))

	result, err := svc.Send(context.Background(), sessionID, "What amenities do you have?")
	require.NoError(t, err)

	bot := result.Messages[1]
	require.Equal(t, feedback.None, bot.FeedbackState)
	require.Nil(t, bot.FeedbackPrompt)
	require.Nil(t, bot.Locations)
}

func TestSendRemoteFailureAppendsErrorMessage(t *testing.T) {
	svc, store, sessionID := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))

	result, err := svc.Send(context.Background(), sessionID, "What are your rates?")
	require.NoError(t, err, "a failed ask degrades to an error message, not an error")

	bot := result.Messages[1]
	require.True(t, bot.IsError)
	require.Equal(t, "Sorry, I encountered an error. Please try again.", bot.Text)
	require.Nil(t, bot.FeedbackPrompt)

	// The optimistic user message stays in the log.
	state := store.Get(context.Background(), sessionID)
	require.Equal(t, "What are your rates?", state.Messages[1].Text)
}

func TestSendSingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	svc, _, sessionID := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		json.NewEncoder(w).Encode(map[string]any{"answer": "done"})
	}))

	done := make(chan error, 1)
	go func() {
		_, err := svc.Send(context.Background(), sessionID, "slow question")
		done <- err
	}()

	// Once the first ask reaches the backend it holds the session's slot.
	<-started
	_, err := svc.Send(context.Background(), sessionID, "second question")
	require.ErrorIs(t, err, ErrAskInFlight)

	close(release)
	require.NoError(t, <-done)
}

func TestFeedbackOverlapsInFlightAsk(t *testing.T) {
	asks := 0
	started := make(chan struct{})
	release := make(chan struct{})
	svc, store, sessionID := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ask":
			asks++
			if asks == 1 {
				json.NewEncoder(w).Encode(map[string]any{
					"answer":            "Checkout is at noon.",
					"feedback_question": map[string]string{"type": "csat_short", "text": "Was this answer helpful?"},
				})
				return
			}
			close(started)
			<-release
			json.NewEncoder(w).Encode(map[string]any{"answer": "done"})
		case "/feedback":
			w.WriteHeader(http.StatusOK)
		}
	}))
	ctx := context.Background()

	result, err := svc.Send(ctx, sessionID, "When is checkout?")
	require.NoError(t, err)
	botID := result.Messages[1].ID

	done := make(chan error, 1)
	go func() {
		_, err := svc.Send(ctx, sessionID, "slow question")
		done <- err
	}()
	<-started

	// The ask slot is held, but rating an earlier answer still goes through.
	require.NoError(t, svc.RateHelpful(ctx, sessionID, botID))
	rated, _ := store.Message(ctx, sessionID, botID)
	require.Equal(t, feedback.Rated, rated.FeedbackState)

	close(release)
	require.NoError(t, <-done)
}

func TestNegativeFeedbackFlow(t *testing.T) {
	var submissions []map[string]any
	svc, store, sessionID := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ask":
			json.NewEncoder(w).Encode(map[string]any{
				"answer":            "Checkout is at noon.",
				"feedback_question": map[string]string{"type": "csat_short", "text": "Was this answer helpful?"},
			})
		case "/feedback":
			var payload map[string]any
			json.NewDecoder(r.Body).Decode(&payload)
			submissions = append(submissions, payload)
			w.WriteHeader(http.StatusOK)
		}
	}))
	ctx := context.Background()

	result, err := svc.Send(ctx, sessionID, "When is checkout?")
	require.NoError(t, err)
	botID := result.Messages[1].ID

	require.NoError(t, svc.OpenDetail(ctx, sessionID, botID))
	shown, _ := store.Message(ctx, sessionID, botID)
	require.Equal(t, feedback.Shown, shown.FeedbackState)

	require.NoError(t, svc.SubmitDetail(ctx, sessionID, botID, "too slow"))
	rated, _ := store.Message(ctx, sessionID, botID)
	require.Equal(t, feedback.Rated, rated.FeedbackState)
	require.Equal(t, feedback.NegativeRating, *rated.UserRating)

	require.Len(t, submissions, 1)
	require.Equal(t, "too slow", submissions[0]["feedback_text"])
	require.Equal(t, float64(feedback.NegativeRating), submissions[0]["rating"])
	require.Equal(t, "When is checkout?", submissions[0]["question"])

	// A second submission on the rated message is a no-op.
	require.NoError(t, svc.SubmitDetail(ctx, sessionID, botID, "again"))
	require.Len(t, submissions, 1)
}

func TestSubmitDetailRequiresOpenBox(t *testing.T) {
	submissions := 0
	svc, store, sessionID := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ask":
			json.NewEncoder(w).Encode(map[string]any{
				"answer":            "Checkout is at noon.",
				"feedback_question": map[string]string{"type": "csat_short", "text": "Was this answer helpful?"},
			})
		case "/feedback":
			submissions++
			w.WriteHeader(http.StatusOK)
		}
	}))
	ctx := context.Background()

	result, err := svc.Send(ctx, sessionID, "When is checkout?")
	require.NoError(t, err)
	botID := result.Messages[1].ID

	// Submitting the detail box before the "no" click opened it is ignored.
	require.NoError(t, svc.SubmitDetail(ctx, sessionID, botID, "meh"))
	require.Zero(t, submissions)
	msg, _ := store.Message(ctx, sessionID, botID)
	require.Equal(t, feedback.Pending, msg.FeedbackState)

	require.NoError(t, svc.OpenDetail(ctx, sessionID, botID))
	require.NoError(t, svc.SubmitDetail(ctx, sessionID, botID, "meh"))
	require.Equal(t, 1, submissions)
	rated, _ := store.Message(ctx, sessionID, botID)
	require.Equal(t, feedback.Rated, rated.FeedbackState)
}

func TestRateHelpfulSubmitsMaxRating(t *testing.T) {
	var rating float64
	svc, store, sessionID := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ask":
			json.NewEncoder(w).Encode(map[string]any{
				"answer":            "Yes, we have a pool.",
				"feedback_question": map[string]string{"type": "csat_short", "text": "Was this answer helpful?"},
			})
		case "/feedback":
			var payload map[string]any
			json.NewDecoder(r.Body).Decode(&payload)
			rating = payload["rating"].(float64)
			w.WriteHeader(http.StatusOK)
		}
	}))
	ctx := context.Background()

	result, err := svc.Send(ctx, sessionID, "Is there a pool?")
	require.NoError(t, err)
	botID := result.Messages[1].ID

	require.NoError(t, svc.RateHelpful(ctx, sessionID, botID))
	require.Equal(t, float64(feedback.PositiveRating), rating)

	rated, _ := store.Message(ctx, sessionID, botID)
	require.Equal(t, feedback.Rated, rated.FeedbackState)
	require.Equal(t, feedback.PositiveRating, *rated.UserRating)
}

func TestFeedbackRemoteFailureLeavesStateUntouched(t *testing.T) {
	svc, store, sessionID := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ask":
			json.NewEncoder(w).Encode(map[string]any{
				"answer":            "We open at 7am.",
				"feedback_question": map[string]string{"type": "csat_short", "text": "Was this answer helpful?"},
			})
		case "/feedback":
			http.Error(w, "down", http.StatusServiceUnavailable)
		}
	}))
	ctx := context.Background()

	result, err := svc.Send(ctx, sessionID, "When does the restaurant open?")
	require.NoError(t, err)
	botID := result.Messages[1].ID

	require.Error(t, svc.RateHelpful(ctx, sessionID, botID))

	msg, _ := store.Message(ctx, sessionID, botID)
	require.Equal(t, feedback.Pending, msg.FeedbackState, "failed submission must leave the prompt interactive")
	require.Nil(t, msg.UserRating)
}

func TestSubmitBookingValidation(t *testing.T) {
	svc, _, sessionID := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("an invalid draft must not reach the remote service")
	}))

	result, err := svc.SubmitBooking(context.Background(), sessionID, chat.BookingDraft{Email: "a@b.c"})
	require.NoError(t, err)
	require.Contains(t, result.FieldErrors, "guest_name")
	require.Contains(t, result.FieldErrors, "phone")
	require.Contains(t, result.FieldErrors, "check_in")
	require.Contains(t, result.FieldErrors, "check_out")
	require.Contains(t, result.FieldErrors, "guests")
}

func TestSubmitBookingSuccessAppendsConfirmation(t *testing.T) {
	svc, _, sessionID := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bookings", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"booking": map[string]any{"booking_id": "b-7", "email": "asha@example.com"},
		})
	}))

	result, err := svc.SubmitBooking(context.Background(), sessionID, chat.BookingDraft{
		GuestName: "Asha",
		Phone:     "+911234567890",
		CheckIn:   "2026-09-01",
		CheckOut:  "2026-09-03",
		Guests:    2,
	})
	require.NoError(t, err)
	require.Empty(t, result.FieldErrors)
	require.NotNil(t, result.Booking)
	require.Contains(t, result.Messages[0].Text, "b-7")
	require.Contains(t, result.Messages[0].Text, "asha@example.com")
}

func TestSubmitBookingFailureAppendsFallbackContact(t *testing.T) {
	svc, _, sessionID := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "full", http.StatusConflict)
	}))

	result, err := svc.SubmitBooking(context.Background(), sessionID, chat.BookingDraft{
		GuestName: "Asha",
		Phone:     "+911234567890",
		CheckIn:   "2026-09-01",
		CheckOut:  "2026-09-03",
		Guests:    2,
	})
	require.Error(t, err, "the form stays open, so the caller must see the failure")
	require.Len(t, result.Messages, 1)
	require.True(t, result.Messages[0].IsError)
	require.Contains(t, result.Messages[0].Text, "+91 9563 776 776")
}

func TestResetYieldsSingleWelcome(t *testing.T) {
	svc, store, sessionID := newService(t, askBackend("ok", false))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Send(ctx, sessionID, "anything to do nearby?")
		require.NoError(t, err)
	}

	state := svc.Reset(ctx, sessionID)
	require.Len(t, state.Messages, 1)
	require.Equal(t, chat.RoleBot, state.Messages[0].Role)

	got := store.Get(ctx, sessionID)
	require.Len(t, got.Messages, 1)
}
