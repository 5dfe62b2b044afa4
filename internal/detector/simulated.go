package detector

import (
	"sync"
	"time"
)

// SimulatedInspector is an Inspector with settable readings, for tests
// and for running the agent without a real host surface.
type SimulatedInspector struct {
	mu sync.Mutex

	outerW, innerW int
	outerH, innerH int
	probeDuration  time.Duration
	globals        map[string]bool
	overridden     bool
}

// NewSimulatedInspector returns an inspector reporting a clean
// environment: matching window dimensions, fast console probes, no
// globals, native console.
func NewSimulatedInspector() *SimulatedInspector {
	return &SimulatedInspector{
		outerW: 1280, innerW: 1280,
		outerH: 800, innerH: 800,
		globals: make(map[string]bool),
	}
}

// SetWindowMetrics sets the reported window dimensions.
func (s *SimulatedInspector) SetWindowMetrics(outerW, innerW, outerH, innerH int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outerW, s.innerW = outerW, innerW
	s.outerH, s.innerH = outerH, innerH
}

// SetConsoleProbeDuration sets the reported probe timing.
func (s *SimulatedInspector) SetConsoleProbeDuration(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeDuration = d
}

// SetGlobalMarker plants or removes a global.
func (s *SimulatedInspector) SetGlobalMarker(name string, present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globals[name] = present
}

// SetConsoleOverridden marks the console as tampered.
func (s *SimulatedInspector) SetConsoleOverridden(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overridden = v
}

func (s *SimulatedInspector) WindowMetrics() (int, int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outerW, s.innerW, s.outerH, s.innerH
}

func (s *SimulatedInspector) ConsoleProbeDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeDuration
}

func (s *SimulatedInspector) HasGlobalMarker(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globals[name]
}

func (s *SimulatedInspector) ConsoleOverridden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overridden
}
