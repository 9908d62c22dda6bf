package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAvailability(t *testing.T) {
	t.Run("returns rooms on success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/voice-agent/check-availability", r.URL.Path)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

			var query AvailabilityQuery
			require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
			assert.Equal(t, "2025-12-01", query.CheckIn)
			assert.Equal(t, "2025-12-04", query.CheckOut)
			assert.Equal(t, 2, query.Guests)

			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"available_rooms": []map[string]any{
					{
						"unit_name":     "12",
						"room_name":     "Standard Double",
						"property_name": "Jahongir Hotel",
						"room_id":       12345,
						"property_id":   41097,
						"max_guests":    2,
					},
				},
			})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "test-token", 5*time.Second)
		rooms, err := client.CheckAvailability(context.Background(), AvailabilityQuery{
			CheckIn:  "2025-12-01",
			CheckOut: "2025-12-04",
			Guests:   2,
		})
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		assert.Equal(t, "12", rooms[0].UnitName)
		assert.Equal(t, int64(12345), rooms[0].RoomID)
		assert.Equal(t, int64(41097), rooms[0].PropertyID)
	})

	t.Run("success false is a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "dates invalid"})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "t", 5*time.Second)
		_, err := client.CheckAvailability(context.Background(), AvailabilityQuery{})
		require.Error(t, err)
		assert.True(t, IsRejection(err))
		assert.Contains(t, err.Error(), "dates invalid")
	})

	t.Run("non-2xx status is a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "t", 5*time.Second)
		_, err := client.CheckAvailability(context.Background(), AvailabilityQuery{})
		require.Error(t, err)
		assert.True(t, IsRejection(err))

		var be *Error
		require.ErrorAs(t, err, &be)
		assert.Equal(t, http.StatusBadGateway, be.Status)
	})

	t.Run("invalid JSON body is not a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>gateway error</html>"))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "t", 5*time.Second)
		_, err := client.CheckAvailability(context.Background(), AvailabilityQuery{})
		require.Error(t, err)
		assert.False(t, IsRejection(err))
		assert.Contains(t, err.Error(), "invalid JSON")
	})

	t.Run("network error is not a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // connection refused from here on

		client := NewClient(srv.URL, "t", time.Second)
		_, err := client.CheckAvailability(context.Background(), AvailabilityQuery{})
		require.Error(t, err)
		assert.False(t, IsRejection(err))
	})
}

func TestLookupGuest(t *testing.T) {
	t.Run("returns profile when found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/voice-agent/guest/+998901234567", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{
				"found": true,
				"guest": map[string]any{"name": "John Smith", "previous_bookings": 3},
			})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "t", 5*time.Second)
		guest, err := client.LookupGuest(context.Background(), "+998901234567")
		require.NoError(t, err)
		assert.Equal(t, "John Smith", guest.Name)
		assert.Equal(t, 3, guest.PreviousBookings)
		assert.Equal(t, "+998901234567", guest.Phone)
	})

	t.Run("miss is ErrGuestNotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"found": false})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "t", 5*time.Second)
		_, err := client.LookupGuest(context.Background(), "+100000")
		assert.True(t, errors.Is(err, ErrGuestNotFound))
	})
}

func TestCreateBooking(t *testing.T) {
	t.Run("returns confirmation reference", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/voice-agent/create-booking", r.URL.Path)

			var req BookingRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, int64(12345), req.RoomID)
			assert.Equal(t, int64(41097), req.PropertyID)
			assert.Equal(t, "John Smith", req.GuestName)

			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"booking": map[string]any{"reference": "BK-2025-0042"},
			})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "t", 5*time.Second)
		conf, err := client.CreateBooking(context.Background(), &BookingRequest{
			CheckIn:    "2025-12-01",
			CheckOut:   "2025-12-04",
			RoomID:     12345,
			PropertyID: 41097,
			GuestName:  "John Smith",
		})
		require.NoError(t, err)
		assert.Equal(t, "BK-2025-0042", conf.Reference)
	})

	t.Run("backend refusal is a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "room no longer available"})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "t", 5*time.Second)
		_, err := client.CreateBooking(context.Background(), &BookingRequest{})
		require.Error(t, err)
		assert.True(t, IsRejection(err))
	})
}

func TestTimeoutSurfacesAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "t", 20*time.Millisecond)
	_, err := client.CheckAvailability(context.Background(), AvailabilityQuery{})
	require.Error(t, err)
	assert.False(t, IsRejection(err))
}
