package model

import (
	"time"
)

// EventType represents the type of session event.
type EventType string

const (
	EventUtteranceReceived EventType = "utterance_received"
	EventToolInvoked       EventType = "tool_invoked"
	EventToolResult        EventType = "tool_result"
	EventSpeechEmitted     EventType = "speech_emitted"
	EventError             EventType = "error"
	EventSessionClosed     EventType = "session_closed"
)

// SessionEvent is one observable step of a conversation session. The
// orchestrator emits these to its observer hook and the journal; tests
// and operators inspect flows through them rather than log scraping.
type SessionEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Type      EventType `json:"type"`

	// Text carries the utterance, spoken sentence, or tool result.
	Text string `json:"text,omitempty"`
	// Tool names the tool for tool_invoked / tool_result events.
	Tool string `json:"tool,omitempty"`
	// Args carries the raw tool arguments for tool_invoked events.
	Args string `json:"args,omitempty"`
	// Reason carries the cause for error events.
	Reason string `json:"reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Sequence is the journal sequence, populated on read.
	Sequence uint64 `json:"sequence,omitempty"`
}
