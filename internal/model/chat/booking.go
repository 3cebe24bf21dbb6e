package chat

// BookingDraft is the transient booking-form state. It lives only while the
// form is open and is never persisted with the session.
type BookingDraft struct {
	GuestName string `json:"guest_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Guests    int    `json:"guests"`
	RoomType  string `json:"room_type"`
	Notes     string `json:"notes"`
}

// Validate returns a user-facing error per missing required field, keyed by
// the wire field name. An empty map means the draft can be submitted.
func (d BookingDraft) Validate() map[string]string {
	errs := make(map[string]string)
	if d.GuestName == "" {
		errs["guest_name"] = "Guest Name is required"
	}
	if d.Phone == "" {
		errs["phone"] = "Phone Number is required"
	}
	if d.CheckIn == "" {
		errs["check_in"] = "Check-in Date is required"
	}
	if d.CheckOut == "" {
		errs["check_out"] = "Check-out Date is required"
	}
	if d.Guests < 1 {
		errs["guests"] = "Number of Guests is required"
	}
	return errs
}
