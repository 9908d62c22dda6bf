package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jahongir-hotels/voice-concierge/internal/backend"
)

func TestStateValidateSelection(t *testing.T) {
	state := NewState()

	assert.False(t, state.ValidateSelection(12345, 41097), "nothing presented yet")

	state.RememberRooms([]backend.AvailableRoom{
		{UnitName: "12", RoomID: 12345, PropertyID: 41097},
		{UnitName: "14", RoomID: 12347, PropertyID: 41097},
	})

	assert.True(t, state.ValidateSelection(12345, 41097))
	assert.True(t, state.ValidateSelection(12347, 41097))
	assert.False(t, state.ValidateSelection(12345, 99999), "property must match too")
	assert.False(t, state.ValidateSelection(99999, 41097))

	// A later availability check replaces the list wholesale.
	state.RememberRooms([]backend.AvailableRoom{
		{UnitName: "2", RoomID: 555, PropertyID: 41098},
	})
	assert.False(t, state.ValidateSelection(12345, 41097), "stale offer no longer bookable")
	assert.True(t, state.ValidateSelection(555, 41098))

	state.RememberRooms(nil)
	assert.False(t, state.ValidateSelection(555, 41098))
}

func TestStatePresentedRoomsIsACopy(t *testing.T) {
	state := NewState()
	state.RememberRooms([]backend.AvailableRoom{{RoomID: 1, PropertyID: 2}})

	rooms := state.PresentedRooms()
	rooms[0].RoomID = 42

	assert.True(t, state.ValidateSelection(1, 2))
	assert.False(t, state.ValidateSelection(42, 2))
}

func TestStateGuest(t *testing.T) {
	state := NewState()
	assert.Nil(t, state.Guest())

	state.RememberGuest(&backend.GuestProfile{Name: "John Smith", PreviousBookings: 3})
	guest := state.Guest()
	assert.Equal(t, "John Smith", guest.Name)
	assert.Equal(t, 3, guest.PreviousBookings)
}
