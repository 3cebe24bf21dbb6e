package intent

import "strings"

// Keywords holds the three match tables the booking classifier runs against.
// They are plain data so behaviour can be tuned and tested without touching
// the decision logic.
type Keywords struct {
	Booking   []string
	Room      []string
	Exclusion []string
}

// Default mirrors the phrasing guests actually use when they want a room.
var Default = Keywords{
	Booking:   []string{"book", "reservation", "reserve", "check-in", "check in"},
	Room:      []string{"room", "suite", "accommodation", "stay", "night"},
	Exclusion: []string{"housekeeping", "amenities", "clean", "service", "review", "feedback", "waitlist", "cab", "taxi", "tour", "spa", "restaurant", "food", "directions", "location"},
}

// Result is the classifier's verdict for one utterance.
type Result struct {
	IsBookingRequest bool
}

// Classify decides whether the text is a room-booking request.
//
// The precedence is deliberately asymmetric: a booking verb paired with a
// room noun wins even when an exclusion keyword is present ("book a room
// with amenities"), while either keyword alone loses to exclusions ("book a
// cab", "clean my room"). This matches observed guest phrasing; do not
// "fix" the asymmetry.
func (k Keywords) Classify(text string) Result {
	lower := strings.ToLower(text)

	hasBooking := containsAny(lower, k.Booking)
	hasRoom := containsAny(lower, k.Room)
	hasExclusion := containsAny(lower, k.Exclusion)

	switch {
	case hasBooking && hasRoom:
		return Result{IsBookingRequest: true}
	case hasBooking && !hasExclusion:
		return Result{IsBookingRequest: true}
	case hasRoom && !hasExclusion:
		return Result{IsBookingRequest: true}
	default:
		return Result{}
	}
}

func containsAny(lower string, keywords []string) bool {
	for _, word := range keywords {
		if word == "" {
			continue
		}
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
