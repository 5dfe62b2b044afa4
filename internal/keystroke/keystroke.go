// Package keystroke records completed key press/release pairs and
// derives typing-pattern metrics from them.
//
// The recorder keeps timing only for keys that complete a full
// down-then-up cycle. Keys held across a focus loss never see their
// keyup and are silently dropped. Modifier and function keys are not
// meaningful for typing-pattern analysis and are ignored entirely.
//
// Buffers are scoped per answer: Reset is called whenever a new
// question begins, so metrics describe one answer, not the whole
// session.
package keystroke

import (
	"sync"
	"time"
)

// Keystroke is one completed down-then-up key cycle.
type Keystroke struct {
	Key      string `json:"key"`
	Keydown  int64  `json:"keydown"`   // epoch ms of key press
	Keyup    int64  `json:"keyup"`     // epoch ms of key release
	Duration int64  `json:"duration"`  // Keyup - Keydown
	Recorded int64  `json:"timestamp"` // same as Keyup; the record time
}

// Recorder accumulates completed keystrokes for one answer.
type Recorder struct {
	mu      sync.Mutex
	pending map[string]int64 // key value -> keydown epoch ms
	strokes []Keystroke
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{pending: make(map[string]int64)}
}

// RecordKeydown notes a key press. Modifier and function keys are
// ignored. A repeated keydown for the same key (auto-repeat) overwrites
// the pending press time; only the last press pairs with the keyup.
func (r *Recorder) RecordKeydown(key string, at time.Time) {
	if ignoredKey(key) {
		return
	}

	r.mu.Lock()
	r.pending[key] = at.UnixMilli()
	r.mu.Unlock()
}

// RecordKeyup completes a keystroke if a matching keydown was observed.
// Keyups with no pending keydown are dropped.
func (r *Recorder) RecordKeyup(key string, at time.Time) {
	if ignoredKey(key) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	down, ok := r.pending[key]
	if !ok {
		return
	}
	delete(r.pending, key)

	up := at.UnixMilli()
	r.strokes = append(r.strokes, Keystroke{
		Key:      key,
		Keydown:  down,
		Keyup:    up,
		Duration: up - down,
		Recorded: up,
	})
}

// Count returns the number of completed keystrokes.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.strokes)
}

// Keystrokes returns a snapshot of the completed keystrokes in record
// order.
func (r *Recorder) Keystrokes() []Keystroke {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Keystroke, len(r.strokes))
	copy(out, r.strokes)
	return out
}

// Reset clears all buffers, pending presses included. Called at the
// start of each new question.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.pending = make(map[string]int64)
	r.strokes = nil
	r.mu.Unlock()
}

// ignoredKey reports whether a key value carries no typing-cadence
// information. Single-character keys are always kept.
func ignoredKey(key string) bool {
	if len(key) == 1 {
		return false
	}
	if isFunctionKey(key) {
		return true
	}
	_, ignored := ignoredKeys[key]
	return ignored
}

// isFunctionKey matches F1 through F24.
func isFunctionKey(key string) bool {
	if len(key) < 2 || len(key) > 3 || key[0] != 'F' {
		return false
	}
	for _, c := range key[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

var ignoredKeys = map[string]struct{}{
	"Tab":         {},
	"Escape":      {},
	"Shift":       {},
	"Control":     {},
	"Alt":         {},
	"Meta":        {},
	"CapsLock":    {},
	"NumLock":     {},
	"ScrollLock":  {},
	"ArrowUp":     {},
	"ArrowDown":   {},
	"ArrowLeft":   {},
	"ArrowRight":  {},
	"Home":        {},
	"End":         {},
	"PageUp":      {},
	"PageDown":    {},
	"Insert":      {},
	"ContextMenu": {},
	"PrintScreen": {},
	"Pause":       {},
}
