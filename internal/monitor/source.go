package monitor

import (
	"context"
	"sync"
	"time"
)

// Kind classifies a raw host event before the monitor turns it into an
// activity event.
type Kind int

const (
	KindVisibility Kind = iota
	KindFocus
	KindCopy
	KindPaste
	KindKeydown
	KindKeyup
)

func (k Kind) String() string {
	switch k {
	case KindVisibility:
		return "visibility"
	case KindFocus:
		return "focus"
	case KindCopy:
		return "copy"
	case KindPaste:
		return "paste"
	case KindKeydown:
		return "keydown"
	case KindKeyup:
		return "keyup"
	default:
		return "unknown"
	}
}

// RawEvent is one event as delivered by the host surface.
type RawEvent struct {
	Kind Kind
	At   time.Time

	// Hidden is set for visibility events.
	Hidden bool
	// Focused is set for focus events.
	Focused bool
	// Data carries clipboard text for copy and paste events.
	Data string
	// Key, Ctrl and Meta are set for keydown and keyup events.
	Key  string
	Ctrl bool
	Meta bool
}

// Source delivers raw events from the host surface. The production
// implementation bridges the embedding page's listeners; tests and the
// CLI use SimulatedSource. Stop must close the Events channel once no
// more events will be delivered.
type Source interface {
	Start(ctx context.Context) error
	Stop()
	Events() <-chan RawEvent
}

// SimulatedSource is a Source fed by explicit Emit calls.
type SimulatedSource struct {
	mu      sync.Mutex
	events  chan RawEvent
	running bool
}

// NewSimulatedSource creates a simulated source with a buffered queue.
func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{events: make(chan RawEvent, 128)}
}

func (s *SimulatedSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	return nil
}

func (s *SimulatedSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.events)
}

func (s *SimulatedSource) Events() <-chan RawEvent {
	return s.events
}

// Emit queues one raw event. Events emitted after Stop are dropped,
// as are events that find the queue full: the send never blocks, so
// Emit cannot hold the mutex against Stop.
func (s *SimulatedSource) Emit(ev RawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}
