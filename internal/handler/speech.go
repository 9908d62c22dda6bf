package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jahongir-hotels/voice-concierge/internal/model"
	"github.com/jahongir-hotels/voice-concierge/internal/service"
	"github.com/jahongir-hotels/voice-concierge/pkg/logger"
	"github.com/jahongir-hotels/voice-concierge/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Auth happens at the middleware layer; the origin is the pipeline.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SpeechHandler attaches the external speech pipeline to a session over a
// websocket: recognized utterances flow in, synthesis commands flow out.
type SpeechHandler struct {
	manager *service.Manager
	logger  *logger.Logger
}

// NewSpeechHandler creates a new speech transport handler.
func NewSpeechHandler(manager *service.Manager, log *logger.Logger) *SpeechHandler {
	return &SpeechHandler{
		manager: manager,
		logger:  log,
	}
}

// speechConn adapts one websocket to the service.Speech interface.
// Gorilla connections allow one concurrent writer, hence the mutex.
type speechConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *speechConn) Speak(ctx context.Context, text string, interruptible bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(model.SpeechFrame{
		Type:          model.FrameSpeak,
		Text:          text,
		Interruptible: interruptible,
	})
}

func (c *speechConn) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteJSON(model.SpeechFrame{Type: model.FrameCancel})
}

// Attach handles GET /api/v1/sessions/{id}/speech
func (h *SpeechHandler) Attach(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	session, err := h.manager.Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if _, err := h.manager.Attach(sessionID, &speechConn{conn: conn}); err != nil {
		h.logger.Warn("speech attach refused", zap.String("session_id", sessionID), zap.Error(err))
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	metrics.SpeechConnectionsActive.Inc()
	defer metrics.SpeechConnectionsActive.Dec()

	h.logger.Info("speech pipeline attached", zap.String("session_id", sessionID))

	for {
		var frame model.SpeechFrame
		if err := conn.ReadJSON(&frame); err != nil {
			// Transport teardown ends the session.
			h.logger.Info("speech pipeline disconnected", zap.String("session_id", sessionID))
			_ = h.manager.End(sessionID)
			return
		}

		switch frame.Type {
		case model.FrameUtterance:
			session.HandleUtterance(frame.Text)
		default:
			h.logger.Warn("unknown speech frame",
				zap.String("session_id", sessionID),
				zap.String("type", frame.Type),
			)
		}
	}
}
