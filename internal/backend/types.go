// Package backend is the client for the external reservation system.
package backend

// AvailabilityQuery describes a room availability request.
type AvailabilityQuery struct {
	CheckIn  string `json:"arrival_date"`
	CheckOut string `json:"departure_date"`
	Guests   int    `json:"number_of_guests"`
}

// AvailableRoom is one bookable unit returned by an availability check.
// RoomID and PropertyID are opaque backend keys; they must survive verbatim
// into a later booking request.
type AvailableRoom struct {
	UnitName     string `json:"unit_name"`
	RoomName     string `json:"room_name"`
	PropertyName string `json:"property_name"`
	RoomID       int64  `json:"room_id"`
	PropertyID   int64  `json:"property_id"`
	MaxGuests    int    `json:"max_guests"`
}

// GuestProfile is a returning guest looked up by phone number.
type GuestProfile struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	PreviousBookings int    `json:"previous_bookings"`
}

// BookingRequest carries every field the backend needs to create a booking.
// RoomID and PropertyID must originate from a prior AvailableRoom in the
// same session.
type BookingRequest struct {
	CheckIn         string `json:"check_in_date"`
	CheckOut        string `json:"check_out_date"`
	RoomID          int64  `json:"room_id"`
	PropertyID      int64  `json:"property_id"`
	GuestName       string `json:"guest_name"`
	GuestPhone      string `json:"guest_phone"`
	GuestEmail      string `json:"guest_email"`
	NumAdults       int    `json:"num_adults"`
	NumChildren     int    `json:"num_children"`
	SpecialRequests string `json:"special_requests"`
}

// BookingConfirmation is the terminal artifact of a successful booking.
type BookingConfirmation struct {
	Reference string `json:"reference"`
}
