// Package service implements the tool-calling conversation controller.
package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jahongir-hotels/voice-concierge/internal/llm"
	"github.com/jahongir-hotels/voice-concierge/internal/model"
	"github.com/jahongir-hotels/voice-concierge/internal/tool"
	"github.com/jahongir-hotels/voice-concierge/pkg/logger"
	"github.com/jahongir-hotels/voice-concierge/pkg/metrics"
)

// Speech is the synthesized-speech sink for one session. Speak hands a
// sentence to the external pipeline; Interrupt cancels in-progress
// synthesis, never an in-flight tool call.
type Speech interface {
	Speak(ctx context.Context, text string, interruptible bool) error
	Interrupt()
}

// Observer receives typed session events as the conversation progresses.
type Observer func(event model.SessionEvent)

const (
	// maxReasoningPasses bounds tool-call chaining for one utterance.
	maxReasoningPasses = 8
	// maxHistoryMessages bounds the conversation window sent to the model.
	maxHistoryMessages = 40
	// utteranceBuffer absorbs bursts from the speech pipeline.
	utteranceBuffer = 16

	speechReasoningDown = "I'm sorry, I'm having a little trouble right now. Could you please repeat that?"
)

// Session drives one caller's conversation: it receives recognized
// utterances, runs the reasoning model with the tool registry, executes
// requested tools in order, and speaks the final content.
type Session struct {
	id        string
	modelName string
	llmClient llm.Client
	registry  *tool.Registry
	state     *State
	speech    Speech
	observer  Observer
	logger    *logger.Logger
	now       func() time.Time

	utterances chan string

	mu        sync.Mutex
	phase     model.SessionPhase
	history   []llm.ChatMessage
	createdAt time.Time
	closedAt  *time.Time
}

// NewSession creates a session bound to its own state and registry. It
// stays Idle until a speech transport attaches and Run is called.
func NewSession(id, modelName string, llmClient llm.Client, registry *tool.Registry, state *State, observer Observer, log *logger.Logger) *Session {
	return &Session{
		id:         id,
		modelName:  modelName,
		llmClient:  llmClient,
		registry:   registry,
		state:      state,
		observer:   observer,
		logger:     log.WithSession(id),
		now:        time.Now,
		utterances: make(chan string, utteranceBuffer),
		phase:      model.PhaseIdle,
		createdAt:  time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State exposes the session's conversation state.
func (s *Session) State() *State {
	return s.state
}

// Info returns a snapshot for API clients.
func (s *Session) Info() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Session{
		ID:        s.id,
		Phase:     s.phase,
		Model:     s.modelName,
		CreatedAt: s.createdAt,
		ClosedAt:  s.closedAt,
	}
}

// Phase returns the current state-machine phase.
func (s *Session) Phase() model.SessionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) setPhase(p model.SessionPhase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// HandleUtterance feeds one recognized utterance into the session. If the
// assistant is mid-sentence, synthesis is interrupted first. Utterances
// beyond the buffer are dropped rather than blocking the speech pipeline.
func (s *Session) HandleUtterance(text string) {
	if text == "" {
		return
	}
	if s.Phase() == model.PhaseSpeaking {
		s.speech.Interrupt()
	}
	select {
	case s.utterances <- text:
	default:
		s.logger.Warn("utterance dropped, session busy")
	}
}

// Run executes the session until ctx is canceled or the speech transport
// goes away. It speaks the scripted greeting, then serves utterances one
// at a time.
func (s *Session) Run(ctx context.Context, speech Speech) error {
	s.speech = speech

	defer func() {
		now := s.now()
		s.mu.Lock()
		s.phase = model.PhaseClosed
		s.closedAt = &now
		s.mu.Unlock()
		s.emit(model.SessionEvent{Type: model.EventSessionClosed})
	}()

	s.speak(ctx, Greeting, true)

	for {
		s.setPhase(model.PhaseListening)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case utterance := <-s.utterances:
			s.respond(ctx, utterance)
		}
	}
}

// respond runs the Reasoning -> (ToolExecuting)* -> Speaking cycle for
// one utterance.
func (s *Session) respond(ctx context.Context, utterance string) {
	metrics.UtterancesTotal.Inc()
	s.emit(model.SessionEvent{Type: model.EventUtteranceReceived, Text: utterance})
	s.appendHistory(llm.ChatMessage{Role: llm.RoleUser, Content: utterance})

	for pass := 0; pass < maxReasoningPasses; pass++ {
		s.setPhase(model.PhaseReasoning)

		start := time.Now()
		resp, err := s.llmClient.Complete(ctx, &llm.CompletionRequest{
			Model:       s.modelName,
			System:      SystemPrompt(s.now()),
			Messages:    s.historySnapshot(),
			Tools:       s.registry.LLMTools(),
			MaxTokens:   1024,
			Temperature: 0.7,
		})
		if err != nil {
			metrics.RecordLLMRequest(s.modelName, "error", time.Since(start).Seconds(), 0, 0)
			s.logger.Error("reasoning model failed", zap.Error(err))
			s.emit(model.SessionEvent{Type: model.EventError, Reason: err.Error()})
			s.speak(ctx, speechReasoningDown, true)
			return
		}
		metrics.RecordLLMRequest(resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

		if len(resp.ToolCalls) == 0 {
			if resp.Content != "" {
				s.appendHistory(llm.ChatMessage{Role: llm.RoleAssistant, Content: resp.Content})
				s.speak(ctx, resp.Content, true)
			}
			return
		}

		s.appendHistory(llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		s.executeToolCalls(ctx, resp.ToolCalls)
	}

	s.logger.Warn("reasoning pass limit reached")
	s.speak(ctx, speechReasoningDown, true)
}

// executeToolCalls runs the requested tools in order. Each runs to
// completion or failure; results join the history for the next pass.
func (s *Session) executeToolCalls(ctx context.Context, calls []llm.ToolCall) {
	s.setPhase(model.PhaseToolExecuting)

	for _, call := range calls {
		s.emit(model.SessionEvent{
			Type: model.EventToolInvoked,
			Tool: call.Name,
			Args: string(call.Arguments),
		})

		result, err := s.registry.Invoke(ctx, call.Name, call.Arguments)
		if err != nil {
			// Schema rejections go back to the model so it can correct
			// itself; the caller hears nothing yet.
			s.logger.Warn("tool call rejected", zap.String("tool", call.Name), zap.Error(err))
			s.emit(model.SessionEvent{Type: model.EventError, Tool: call.Name, Reason: err.Error()})
			result = "Invalid request: " + err.Error() + ". Correct the arguments and try again."
		}

		s.emit(model.SessionEvent{Type: model.EventToolResult, Tool: call.Name, Text: result})
		s.appendHistory(llm.ChatMessage{
			Role:       llm.RoleTool,
			Content:    result,
			ToolCallID: call.ID,
			ToolName:   call.Name,
		})
	}
}

func (s *Session) speak(ctx context.Context, text string, interruptible bool) {
	s.setPhase(model.PhaseSpeaking)
	if err := s.speech.Speak(ctx, text, interruptible); err != nil {
		s.logger.Error("speech synthesis failed", zap.Error(err))
		s.emit(model.SessionEvent{Type: model.EventError, Reason: err.Error()})
		return
	}
	s.emit(model.SessionEvent{Type: model.EventSpeechEmitted, Text: text})
}

func (s *Session) appendHistory(msg llm.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
	if len(s.history) <= maxHistoryMessages {
		return
	}
	// Trim from the front, but never start the window on a tool result
	// orphaned from its assistant request.
	trimmed := s.history[len(s.history)-maxHistoryMessages:]
	for len(trimmed) > 0 && trimmed[0].Role != llm.RoleUser {
		trimmed = trimmed[1:]
	}
	s.history = trimmed
}

func (s *Session) historySnapshot() []llm.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.ChatMessage(nil), s.history...)
}

// History returns a copy of the conversation history, for tests.
func (s *Session) History() []llm.ChatMessage {
	return s.historySnapshot()
}

func (s *Session) emit(event model.SessionEvent) {
	if s.observer == nil {
		return
	}
	event.ID = uuid.Must(uuid.NewV7()).String()
	event.SessionID = s.id
	event.CreatedAt = s.now()
	s.observer(event)
}

// marshalArgs is a helper for building tool-call history entries in tests.
func marshalArgs(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
