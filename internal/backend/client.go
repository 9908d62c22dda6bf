package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jahongir-hotels/voice-concierge/pkg/metrics"
)

// ErrGuestNotFound indicates a guest lookup miss. It is a valid outcome,
// not a backend failure.
var ErrGuestNotFound = errors.New("guest not found")

// Error is a reservation backend failure with a human-readable cause.
// Rejected distinguishes an answered-but-refused request (non-2xx or
// success:false) from a transport-level failure.
type Error struct {
	Endpoint string
	Status   int
	Message  string
	Rejected bool
}

// IsRejection reports whether err is a backend refusal rather than a
// network or decoding failure.
func IsRejection(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Rejected
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend %s: status %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("backend %s: %s", e.Endpoint, e.Message)
}

// Client issues authenticated requests against the reservation backend.
// It is safe for concurrent use by multiple sessions.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client, for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a reservation backend client. Each call performs a
// single round-trip bounded by timeout; no retries are attempted.
func NewClient(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type availabilityResponse struct {
	Success        bool            `json:"success"`
	AvailableRooms []AvailableRoom `json:"available_rooms"`
	Message        string          `json:"message"`
}

// CheckAvailability returns bookable rooms for the queried dates.
func (c *Client) CheckAvailability(ctx context.Context, query AvailabilityQuery) ([]AvailableRoom, error) {
	var resp availabilityResponse
	if err := c.post(ctx, "/api/voice-agent/check-availability", query, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &Error{Endpoint: "check-availability", Message: failureMessage(resp.Message), Rejected: true}
	}
	return resp.AvailableRooms, nil
}

type guestResponse struct {
	Found bool         `json:"found"`
	Guest GuestProfile `json:"guest"`
}

// LookupGuest retrieves a returning guest by phone number. A miss is
// reported as ErrGuestNotFound.
func (c *Client) LookupGuest(ctx context.Context, phone string) (*GuestProfile, error) {
	var resp guestResponse
	path := "/api/voice-agent/guest/" + url.PathEscape(phone)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, ErrGuestNotFound
	}
	guest := resp.Guest
	if guest.Phone == "" {
		guest.Phone = phone
	}
	return &guest, nil
}

type bookingResponse struct {
	Success bool                `json:"success"`
	Booking BookingConfirmation `json:"booking"`
	Message string              `json:"message"`
}

// CreateBooking submits a booking and returns its confirmation reference.
func (c *Client) CreateBooking(ctx context.Context, req *BookingRequest) (*BookingConfirmation, error) {
	var resp bookingResponse
	if err := c.post(ctx, "/api/voice-agent/create-booking", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &Error{Endpoint: "create-booking", Message: failureMessage(resp.Message), Rejected: true}
	}
	return &resp.Booking, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	endpoint := req.URL.Path
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordBackendRequest(endpoint, "network_error", time.Since(start).Seconds())
		return &Error{Endpoint: endpoint, Message: err.Error()}
	}
	defer resp.Body.Close()

	metrics.RecordBackendRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Rejected: true}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Message: "invalid JSON response: " + err.Error()}
	}
	return nil
}

func failureMessage(msg string) string {
	if msg == "" {
		return "request rejected"
	}
	return msg
}
