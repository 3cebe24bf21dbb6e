package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/svroyal/concierge/internal/model/chat"
)

// Client talks to the hotel's answering/feedback/booking service. The
// service is an opaque collaborator: any transport error or non-2xx status
// is surfaced as a plain error for the caller's failure path.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// AskResponse is the answer payload for one question.
type AskResponse struct {
	Answer           string               `json:"answer"`
	FeedbackQuestion *chat.FeedbackPrompt `json:"feedback_question,omitempty"`
}

// Ask submits a free-text question on behalf of the session's user.
func (c *Client) Ask(ctx context.Context, question, userID string) (AskResponse, error) {
	payload := map[string]string{
		"question": question,
		"user_id":  userID,
	}
	var resp AskResponse
	if err := c.post(ctx, "/ask", payload, &resp); err != nil {
		return AskResponse{}, err
	}
	return resp, nil
}

// Feedback is one satisfaction submission, reporting question and answer
// together so ratings stay interpretable server-side.
type Feedback struct {
	UserID       string `json:"user_id"`
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	Rating       int    `json:"rating"`
	FeedbackText string `json:"feedback_text"`
	FeedbackType string `json:"feedback_type"`
}

// SubmitFeedback records a rating for a previously given answer.
func (c *Client) SubmitFeedback(ctx context.Context, fb Feedback) error {
	return c.post(ctx, "/feedback", fb, nil)
}

// Booking is the confirmed reservation returned by the service.
type Booking struct {
	BookingID string `json:"booking_id"`
	GuestName string `json:"guest_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Guests    int    `json:"guests"`
	RoomType  string `json:"room_type"`
	Status    string `json:"status"`
}

type bookingRequest struct {
	chat.BookingDraft
	Source string `json:"source"`
}

type bookingResponse struct {
	Booking Booking `json:"booking"`
}

// CreateBooking submits a completed booking draft, tagged with the chatbot
// source so staff can tell widget bookings from other channels.
func (c *Client) CreateBooking(ctx context.Context, draft chat.BookingDraft) (Booking, error) {
	var resp bookingResponse
	if err := c.post(ctx, "/bookings", bookingRequest{BookingDraft: draft, Source: "chatbot"}, &resp); err != nil {
		return Booking{}, err
	}
	return resp.Booking, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("remote call failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
