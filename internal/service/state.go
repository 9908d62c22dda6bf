package service

import (
	"sync"

	"github.com/jahongir-hotels/voice-concierge/internal/backend"
)

// State is per-session conversation memory: the rooms most recently
// presented to the caller and any guest profile already fetched. It is
// never shared between sessions and dies with the session.
type State struct {
	mu    sync.Mutex
	rooms []backend.AvailableRoom
	guest *backend.GuestProfile
}

// NewState creates empty conversation state.
func NewState() *State {
	return &State{}
}

// RememberRooms replaces the presented room list wholesale. Only rooms
// actually spoken to the caller belong here.
func (s *State) RememberRooms(rooms []backend.AvailableRoom) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append([]backend.AvailableRoom(nil), rooms...)
}

// PresentedRooms returns a copy of the most recently presented rooms.
func (s *State) PresentedRooms() []backend.AvailableRoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.AvailableRoom(nil), s.rooms...)
}

// ValidateSelection reports whether the room/property identifier pair was
// issued by the most recent availability check in this session. Booking
// creation refuses pairs the caller was never offered.
func (s *State) ValidateSelection(roomID, propertyID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if room.RoomID == roomID && room.PropertyID == propertyID {
			return true
		}
	}
	return false
}

// RememberGuest stores the fetched guest profile.
func (s *State) RememberGuest(guest *backend.GuestProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guest = guest
}

// Guest returns the fetched guest profile, or nil.
func (s *State) Guest() *backend.GuestProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guest
}
