package feedback

// State tracks where a bot message sits in the satisfaction-prompt flow.
type State string

const (
	// None means the answer came without a prompt; nothing is ever shown.
	None State = "none"
	// Pending means the prompt is visible and waiting for a yes/no click.
	Pending State = "pending"
	// Shown means the free-text detail box is open for this message.
	Shown State = "shown"
	// Rated is terminal; the prompt is replaced by a fixed acknowledgement.
	Rated State = "rated"
)

// Ratings are fixed by the two click paths: "yes" submits the maximum
// positive value, the detail box always submits the minimum negative one.
const (
	PositiveRating = 5
	NegativeRating = 1
)

// DefaultPromptType is reported when the answer carried no prompt descriptor.
const DefaultPromptType = "csat_short"

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == Rated
}

// CanRate reports whether a rating submission is still accepted.
func (s State) CanRate() bool {
	return s == Pending || s == Shown
}

// CanOpenDetail reports whether the free-text box may be opened.
func (s State) CanOpenDetail() bool {
	return s == Pending || s == Shown
}

// CanSubmitDetail reports whether a detail submission is accepted: only
// while the box is actually open.
func (s State) CanSubmitDetail() bool {
	return s == Shown
}
