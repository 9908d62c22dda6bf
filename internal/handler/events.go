package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	natsclient "github.com/jahongir-hotels/voice-concierge/internal/nats"
	"github.com/jahongir-hotels/voice-concierge/internal/service"
	"github.com/jahongir-hotels/voice-concierge/pkg/logger"
	"github.com/jahongir-hotels/voice-concierge/pkg/metrics"
)

const (
	replayBatchSize   = 100
	heartbeatInterval = 15 * time.Second
)

// EventsHandler streams session events over SSE: a replay from the
// journal first, then live events as the conversation progresses.
type EventsHandler struct {
	manager *service.Manager
	journal *natsclient.Journal
	logger  *logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(manager *service.Manager, journal *natsclient.Journal, log *logger.Logger) *EventsHandler {
	return &EventsHandler{
		manager: manager,
		journal: journal,
		logger:  log,
	}
}

// Stream handles GET /api/v1/sessions/{id}/events
// Supports ?after_sequence=N for resuming from a specific point.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if _, err := h.manager.Get(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var afterSequence uint64
	if seqStr := r.URL.Query().Get("after_sequence"); seqStr != "" {
		if seq, err := strconv.ParseUint(seqStr, 10, 64); err == nil {
			afterSequence = seq
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.SSEConnectionsActive.Inc()
	defer metrics.SSEConnectionsActive.Dec()

	// Live subscription opens before replay so no event falls between.
	live, cancel := h.manager.Subscribe(sessionID)
	defer cancel()

	sendSSEEvent(w, flusher, "connected", map[string]string{
		"session_id": sessionID,
	})

	lastSequence := h.replay(w, flusher, r, sessionID, afterSequence)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-live:
			if !open {
				sendSSEEvent(w, flusher, "session_ended", map[string]string{
					"session_id": sessionID,
				})
				return
			}
			if event.Sequence != 0 && event.Sequence <= lastSequence {
				continue // already sent during replay
			}
			sendSSEEvent(w, flusher, "event", event)
		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", map[string]int64{
				"ts": time.Now().Unix(),
			})
		}
	}
}

// replay streams journaled events and returns the last sequence sent.
func (h *EventsHandler) replay(w http.ResponseWriter, flusher http.Flusher, r *http.Request, sessionID string, afterSequence uint64) uint64 {
	if h.journal == nil {
		return 0
	}

	lastSequence := afterSequence
	for {
		events, last, hasMore, err := h.journal.Replay(r.Context(), sessionID, lastSequence, replayBatchSize)
		if err != nil {
			h.logger.Error("failed to replay events",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			sendSSEEvent(w, flusher, "error", map[string]string{
				"code":    "replay_error",
				"message": "Failed to replay events",
			})
			return lastSequence
		}

		for _, event := range events {
			sendSSEEvent(w, flusher, "event", event)
		}
		if last > lastSequence {
			lastSequence = last
		}
		if !hasMore {
			return lastSequence
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}
