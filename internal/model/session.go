// Package model defines data structures for the voice agent gateway.
package model

import (
	"time"
)

// SessionPhase is the orchestrator's current state-machine phase.
type SessionPhase string

const (
	PhaseIdle          SessionPhase = "idle"
	PhaseListening     SessionPhase = "listening"
	PhaseReasoning     SessionPhase = "reasoning"
	PhaseToolExecuting SessionPhase = "tool_executing"
	PhaseSpeaking      SessionPhase = "speaking"
	PhaseClosed        SessionPhase = "closed"
)

// Session describes one conversation session to API clients.
type Session struct {
	ID        string       `json:"id"`
	Phase     SessionPhase `json:"phase"`
	Model     string       `json:"model,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	ClosedAt  *time.Time   `json:"closed_at,omitempty"`
}

// CreateSessionRequest is the request to create a new session.
type CreateSessionRequest struct {
	// Model optionally overrides the configured reasoning model.
	Model string `json:"model,omitempty"`
}

// ListSessionsResponse is the response for listing sessions.
type ListSessionsResponse struct {
	Sessions []Session `json:"sessions"`
	Total    int       `json:"total"`
}

// SpeechFrame is one websocket frame exchanged with the speech pipeline.
// Inbound frames carry recognized utterances; outbound frames carry
// synthesis commands.
type SpeechFrame struct {
	Type          string `json:"type"`
	Text          string `json:"text,omitempty"`
	Interruptible bool   `json:"interruptible,omitempty"`
}

// Speech frame types.
const (
	FrameUtterance = "utterance"
	FrameSpeak     = "speak"
	FrameCancel    = "cancel"
)
