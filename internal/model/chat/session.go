package chat

import "time"

// Session captures one guest conversation. UserID is generated once and
// correlates every remote call made on the session's behalf. OpenDetailID
// points at the single message whose feedback detail box is currently open.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	OpenDetailID string    `json:"openDetailId,omitempty"`
}
