package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jahongir-hotels/voice-concierge/internal/model"
	"github.com/jahongir-hotels/voice-concierge/pkg/logger"
)

// memorySink journals events into a slice with an incrementing sequence.
type memorySink struct {
	mu     sync.Mutex
	seq    uint64
	events []model.SessionEvent
}

func (s *memorySink) Publish(_ context.Context, event *model.SessionEvent) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.events = append(s.events, *event)
	return s.seq, nil
}

func newTestManager() (*Manager, *memorySink) {
	sink := &memorySink{}
	m := NewManager(&fakeReservations{}, &scriptedLLM{}, "scripted-model", sink, logger.NewNop())
	return m, sink
}

func TestManagerCreateAndGet(t *testing.T) {
	m, _ := newTestManager()

	session := m.Create("")
	assert.NotEmpty(t, session.ID())
	assert.Equal(t, model.PhaseIdle, session.Phase())
	assert.Equal(t, "scripted-model", session.Info().Model)

	got, err := m.Get(session.ID())
	require.NoError(t, err)
	assert.Same(t, session, got)

	_, err = m.Get("missing")
	assert.Error(t, err)
}

func TestManagerCreateIsolatesSessions(t *testing.T) {
	m, _ := newTestManager()

	a := m.Create("")
	b := m.Create("")
	require.NotEqual(t, a.ID(), b.ID())

	// Room offers in one session must not become bookable in another.
	a.State().RememberRooms(sampleRooms(1))
	assert.True(t, a.State().ValidateSelection(12345, 41097))
	assert.False(t, b.State().ValidateSelection(12345, 41097))
}

func TestManagerList(t *testing.T) {
	m, _ := newTestManager()
	assert.Empty(t, m.List())

	m.Create("")
	m.Create("gpt-4o")
	assert.Len(t, m.List(), 2)
}

func TestManagerAttach(t *testing.T) {
	m, _ := newTestManager()
	session := m.Create("")

	speech := newFakeSpeech()
	attached, err := m.Attach(session.ID(), speech)
	require.NoError(t, err)
	assert.Same(t, session, attached)
	assert.Equal(t, Greeting, speech.waitFor(t))

	// One transport per session.
	_, err = m.Attach(session.ID(), newFakeSpeech())
	assert.Error(t, err)

	require.NoError(t, m.End(session.ID()))
}

func TestManagerAttachUnknownSession(t *testing.T) {
	m, _ := newTestManager()
	_, err := m.Attach("missing", newFakeSpeech())
	assert.Error(t, err)
}

func TestManagerEnd(t *testing.T) {
	m, _ := newTestManager()
	session := m.Create("")

	require.NoError(t, m.End(session.ID()))
	_, err := m.Get(session.ID())
	assert.Error(t, err)

	assert.Error(t, m.End(session.ID()), "second end reports not found")
}

func TestManagerSubscribeReceivesJournaledEvents(t *testing.T) {
	m, sink := newTestManager()
	session := m.Create("")

	events, cancel := m.Subscribe(session.ID())
	defer cancel()

	speech := newFakeSpeech()
	_, err := m.Attach(session.ID(), speech)
	require.NoError(t, err)
	speech.waitFor(t) // greeting

	select {
	case event := <-events:
		assert.Equal(t, model.EventSpeechEmitted, event.Type)
		assert.Equal(t, Greeting, event.Text)
		assert.Equal(t, session.ID(), event.SessionID)
		assert.NotEmpty(t, event.ID)
		assert.Equal(t, uint64(1), event.Sequence, "sequence assigned by the journal")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	sink.mu.Lock()
	journaled := len(sink.events)
	sink.mu.Unlock()
	assert.GreaterOrEqual(t, journaled, 1)

	require.NoError(t, m.End(session.ID()))

	// End closes the feed once the pending events drain.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscriber channel never closed")
		}
	}
}

func TestManagerSubscribeCancelIsIdempotentWithEnd(t *testing.T) {
	m, _ := newTestManager()
	session := m.Create("")

	_, cancel := m.Subscribe(session.ID())
	require.NoError(t, m.End(session.ID()))
	cancel() // channel already closed by End; must not panic
}
