package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jahongir-hotels/voice-concierge/internal/llm"
	"github.com/jahongir-hotels/voice-concierge/internal/model"
	"github.com/jahongir-hotels/voice-concierge/internal/tool"
	"github.com/jahongir-hotels/voice-concierge/pkg/logger"
	"github.com/jahongir-hotels/voice-concierge/pkg/metrics"
)

// EventSink persists session events; the NATS journal implements it.
type EventSink interface {
	Publish(ctx context.Context, event *model.SessionEvent) (uint64, error)
}

type managed struct {
	session *Session
	cancel  context.CancelFunc
	running bool
}

// Manager owns the active sessions. Each session gets its own state and
// tool registry; nothing mutable is shared between sessions except the
// backend client's connection pool.
type Manager struct {
	api          ReservationsAPI
	llmClient    llm.Client
	defaultModel string
	sink         EventSink
	logger       *logger.Logger

	mu          sync.RWMutex
	sessions    map[string]*managed
	subscribers map[string]map[chan model.SessionEvent]struct{}
}

// NewManager creates a session manager.
func NewManager(api ReservationsAPI, llmClient llm.Client, defaultModel string, sink EventSink, log *logger.Logger) *Manager {
	return &Manager{
		api:          api,
		llmClient:    llmClient,
		defaultModel: defaultModel,
		sink:         sink,
		logger:       log,
		sessions:     make(map[string]*managed),
		subscribers:  make(map[string]map[chan model.SessionEvent]struct{}),
	}
}

// Create builds a new idle session. It starts running when a speech
// transport attaches.
func (m *Manager) Create(modelName string) *Session {
	if modelName == "" {
		modelName = m.defaultModel
	}

	id := uuid.Must(uuid.NewV7()).String()
	state := NewState()
	registry := tool.NewRegistry()
	NewHotelTools(m.api, state, m.logger).Register(registry)

	session := NewSession(id, modelName, m.llmClient, registry, state, m.dispatch, m.logger)

	m.mu.Lock()
	m.sessions[id] = &managed{session: session}
	m.mu.Unlock()

	metrics.SessionsTotal.Inc()
	m.logger.Info("session created", zap.String("session_id", id), zap.String("model", modelName))
	return session
}

// Get returns an active session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session not found")
	}
	return entry.session, nil
}

// List snapshots all active sessions.
func (m *Manager) List() []model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Session, 0, len(m.sessions))
	for _, entry := range m.sessions {
		out = append(out, entry.session.Info())
	}
	return out
}

// Attach binds a speech transport to a session and starts its run loop.
// A session accepts exactly one transport for its lifetime.
func (m *Manager) Attach(id string, speech Speech) (*Session, error) {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("session not found")
	}
	if entry.running {
		m.mu.Unlock()
		return nil, fmt.Errorf("session already has a speech transport")
	}
	ctx, cancel := context.WithCancel(context.Background())
	entry.cancel = cancel
	entry.running = true
	m.mu.Unlock()

	metrics.SessionsActive.Inc()
	go func() {
		defer metrics.SessionsActive.Dec()
		if err := entry.session.Run(ctx, speech); err != nil && ctx.Err() == nil {
			m.logger.Error("session run failed", zap.String("session_id", id), zap.Error(err))
		}
	}()
	return entry.session, nil
}

// End tears down a session. In-flight tool calls run to completion; the
// run loop stops at its next suspension point.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	subs := m.subscribers[id]
	delete(m.subscribers, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session not found")
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	for ch := range subs {
		close(ch)
	}
	m.logger.Info("session ended", zap.String("session_id", id))
	return nil
}

// Subscribe returns a live event feed for one session and a cancel func.
func (m *Manager) Subscribe(sessionID string) (<-chan model.SessionEvent, func()) {
	ch := make(chan model.SessionEvent, 64)

	m.mu.Lock()
	if m.subscribers[sessionID] == nil {
		m.subscribers[sessionID] = make(map[chan model.SessionEvent]struct{})
	}
	m.subscribers[sessionID][ch] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		subs := m.subscribers[sessionID]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

// dispatch fans a session event out to the journal and live subscribers.
func (m *Manager) dispatch(event model.SessionEvent) {
	if m.sink != nil {
		if seq, err := m.sink.Publish(context.Background(), &event); err != nil {
			m.logger.Warn("failed to journal event", zap.String("session_id", event.SessionID), zap.Error(err))
		} else {
			event.Sequence = seq
		}
	}

	m.mu.RLock()
	subs := m.subscribers[event.SessionID]
	for ch := range subs {
		select {
		case ch <- event:
		default:
			// Slow subscriber; drop rather than stall the session.
		}
	}
	m.mu.RUnlock()
}
