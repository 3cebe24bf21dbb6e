package chat

import (
	"time"

	"github.com/svroyal/concierge/internal/feedback"
)

// Role distinguishes the two sides of a conversational turn.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// LocationRef is one point of interest surfaced next to a bot answer.
// Query is the canonical map-search string; Name is what the guest sees.
type LocationRef struct {
	Name  string `json:"name"`
	Query string `json:"query"`
}

// FeedbackPrompt is the satisfaction-question descriptor returned by the
// answering service alongside an answer.
type FeedbackPrompt struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Message is one turn of the conversation. IDs are assigned on append and
// stay stable so feedback submissions can be correlated later.
type Message struct {
	ID                  string          `json:"id"`
	Role                Role            `json:"role"`
	Text                string          `json:"text"`
	CreatedAt           time.Time       `json:"createdAt"`
	OriginatingQuestion string          `json:"originatingQuestion,omitempty"`
	Locations           []LocationRef   `json:"locations,omitempty"`
	FeedbackState       feedback.State  `json:"feedbackState,omitempty"`
	FeedbackPrompt      *FeedbackPrompt `json:"feedbackPrompt,omitempty"`
	UserRating          *int            `json:"userRating,omitempty"`
	IsError             bool            `json:"isError,omitempty"`
}
