package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jahongir-hotels/voice-concierge/internal/backend"
	"github.com/jahongir-hotels/voice-concierge/internal/tool"
	"github.com/jahongir-hotels/voice-concierge/pkg/logger"
)

// ReservationsAPI is the slice of the reservation backend the hotel tools
// consume. The concrete *backend.Client satisfies it; tests substitute a
// fake.
type ReservationsAPI interface {
	CheckAvailability(ctx context.Context, query backend.AvailabilityQuery) ([]backend.AvailableRoom, error)
	LookupGuest(ctx context.Context, phone string) (*backend.GuestProfile, error)
	CreateBooking(ctx context.Context, req *backend.BookingRequest) (*backend.BookingConfirmation, error)
}

// maxSpokenRooms caps how many rooms one utterance presents.
const maxSpokenRooms = 5

// Fixed spoken sentences for tool outcomes. Every backend failure maps to
// one of these; raw errors never reach the reasoning model or the caller.
const (
	speechNoRooms = "I'm sorry, but there are no rooms available for those dates. " +
		"Would you like to try different dates?"
	speechAvailabilityRejected = "I apologize, but I'm having trouble checking availability right now. " +
		"Please try again in a moment."
	speechAvailabilityDown = "I'm sorry, I'm having trouble connecting to our booking system. " +
		"Please try again later."
	speechNoGuestHistory = "I don't see any previous stays with this phone number. " +
		"Let me help you create a new booking."
	speechGuestLookupDown = "I'm having trouble retrieving guest information. " +
		"Let's proceed with your booking."
	speechBookingRejected = "I apologize, but there was an issue creating your booking. " +
		"Please try again or contact our front desk directly."
	speechBookingDown = "I'm sorry, I'm having trouble processing your booking right now. " +
		"Please try again or contact our front desk."
	speechUnknownRoom = "I'm sorry, I couldn't match that room to the options I just offered. " +
		"Let me check availability again so we book the right room."
)

// HotelTools is the fixed set of operations the reasoning model may
// invoke for one session. It owns the session's conversation state.
type HotelTools struct {
	api    ReservationsAPI
	state  *State
	logger *logger.Logger
	now    func() time.Time
}

// NewHotelTools creates the hotel toolset bound to one session's state.
func NewHotelTools(api ReservationsAPI, state *State, log *logger.Logger) *HotelTools {
	return &HotelTools{
		api:    api,
		state:  state,
		logger: log,
		now:    time.Now,
	}
}

// Register adds the four hotel tools to a registry.
func (t *HotelTools) Register(r *tool.Registry) {
	r.MustRegister(tool.Definition{
		Name: "check_availability",
		Description: "Check room availability at Jahongir Hotels for specific dates. " +
			"Use this when the guest wants to know what rooms are available.",
		Params: []tool.Param{
			{Name: "check_in_date", Type: tool.TypeString, Description: "Check-in date in YYYY-MM-DD format", Required: true},
			{Name: "check_out_date", Type: tool.TypeString, Description: "Check-out date in YYYY-MM-DD format", Required: true},
			{Name: "number_of_guests", Type: tool.TypeInteger, Description: "Number of guests", Default: 1},
		},
	}, t.checkAvailability)

	r.MustRegister(tool.Definition{
		Name: "get_guest_info",
		Description: "Retrieve returning guest information by phone number. " +
			"Use this when a guest mentions they've stayed before.",
		Params: []tool.Param{
			{Name: "phone_number", Type: tool.TypeString, Description: "Guest phone number", Required: true},
		},
	}, t.getGuestInfo)

	r.MustRegister(tool.Definition{
		Name: "create_booking",
		Description: "Create a hotel booking with all guest details. " +
			"Use this ONLY after confirming ALL details with the guest. " +
			"Always summarize the booking before calling this function. " +
			"You MUST get room_id and property_id from the check_availability response; " +
			"extract them from the \"RoomID:XXX PropertyID:YYY\" format in availability results.",
		Params: []tool.Param{
			{Name: "check_in_date", Type: tool.TypeString, Description: "Check-in date in YYYY-MM-DD format", Required: true},
			{Name: "check_out_date", Type: tool.TypeString, Description: "Check-out date in YYYY-MM-DD format", Required: true},
			{Name: "room_id", Type: tool.TypeInteger, Description: "Room identifier from availability results", Required: true},
			{Name: "property_id", Type: tool.TypeInteger, Description: "Property identifier from availability results", Required: true},
			{Name: "guest_name", Type: tool.TypeString, Description: "Guest full name", Required: true},
			{Name: "guest_phone", Type: tool.TypeString, Description: "Guest phone number", Required: true},
			{Name: "guest_email", Type: tool.TypeString, Description: "Guest email address", Required: true},
			{Name: "num_adults", Type: tool.TypeInteger, Description: "Number of adults", Default: 2},
			{Name: "num_children", Type: tool.TypeInteger, Description: "Number of children", Default: 0},
			{Name: "special_requests", Type: tool.TypeString, Description: "Special requests", Default: ""},
		},
	}, t.createBooking)

	r.MustRegister(tool.Definition{
		Name: "get_current_date",
		Description: "Get the current date and time. " +
			"Use this when the guest says \"today\", \"tomorrow\", \"next week\", etc.",
	}, t.getCurrentDate)
}

func (t *HotelTools) checkAvailability(ctx context.Context, args tool.Args) (string, error) {
	query := backend.AvailabilityQuery{
		CheckIn:  args.String("check_in_date"),
		CheckOut: args.String("check_out_date"),
		Guests:   int(args.Int("number_of_guests")),
	}

	rooms, err := t.api.CheckAvailability(ctx, query)
	if err != nil {
		t.logger.Warn("availability check failed", zap.Error(err))
		if backend.IsRejection(err) {
			return speechAvailabilityRejected, nil
		}
		return speechAvailabilityDown, nil
	}

	if len(rooms) == 0 {
		t.state.RememberRooms(nil)
		return speechNoRooms, nil
	}

	presented := rooms
	if len(presented) > maxSpokenRooms {
		presented = presented[:maxSpokenRooms]
	}

	descriptions := make([]string, len(presented))
	for i, room := range presented {
		descriptions[i] = fmt.Sprintf("Unit %s (%s) at %s, sleeps %d - RoomID:%d PropertyID:%d",
			room.UnitName, room.RoomName, room.PropertyName, room.MaxGuests, room.RoomID, room.PropertyID)
	}

	// Only rooms the caller actually hears count as presented.
	t.state.RememberRooms(presented)

	return fmt.Sprintf("I found %d available rooms: %s. Which room would you like to book? "+
		"Please tell me the unit number.", len(rooms), strings.Join(descriptions, ". ")), nil
}

func (t *HotelTools) getGuestInfo(ctx context.Context, args tool.Args) (string, error) {
	phone := args.String("phone_number")

	guest, err := t.api.LookupGuest(ctx, phone)
	if errors.Is(err, backend.ErrGuestNotFound) {
		return speechNoGuestHistory, nil
	}
	if err != nil {
		t.logger.Warn("guest lookup failed", zap.Error(err))
		return speechGuestLookupDown, nil
	}

	t.state.RememberGuest(guest)

	name := guest.Name
	if name == "" {
		name = "valued guest"
	}
	return fmt.Sprintf("Welcome back %s! I see you've stayed with us %d time(s) before. "+
		"It's great to have you back!", name, guest.PreviousBookings), nil
}

func (t *HotelTools) createBooking(ctx context.Context, args tool.Args) (string, error) {
	roomID := args.Int("room_id")
	propertyID := args.Int("property_id")

	if !t.state.ValidateSelection(roomID, propertyID) {
		t.logger.Warn("booking refused: identifiers not in presented rooms",
			zap.Int64("room_id", roomID),
			zap.Int64("property_id", propertyID),
		)
		return speechUnknownRoom, nil
	}

	req := &backend.BookingRequest{
		CheckIn:         args.String("check_in_date"),
		CheckOut:        args.String("check_out_date"),
		RoomID:          roomID,
		PropertyID:      propertyID,
		GuestName:       args.String("guest_name"),
		GuestPhone:      args.String("guest_phone"),
		GuestEmail:      args.String("guest_email"),
		NumAdults:       int(args.Int("num_adults")),
		NumChildren:     int(args.Int("num_children")),
		SpecialRequests: args.String("special_requests"),
	}

	confirmation, err := t.api.CreateBooking(ctx, req)
	if err != nil {
		t.logger.Warn("booking creation failed", zap.Error(err))
		if backend.IsRejection(err) {
			return speechBookingRejected, nil
		}
		return speechBookingDown, nil
	}

	return fmt.Sprintf("Perfect! Your booking is confirmed. Your reference number is %s. "+
		"We've sent a confirmation to your email. Thank you for choosing Jahongir Hotels!",
		confirmation.Reference), nil
}

func (t *HotelTools) getCurrentDate(ctx context.Context, args tool.Args) (string, error) {
	return t.now().Format("January 2, 2006 at 3:04 PM"), nil
}
