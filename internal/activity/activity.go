// Package activity defines the classified events produced by the
// interview-integrity monitors and the append-only in-memory log that
// holds them for the lifetime of one interview session.
//
// Events are created synchronously inside event handlers, appended to
// the log in delivery order, and never mutated or removed afterwards.
package activity

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies an activity event.
type Type string

const (
	// TypeVisibilityChange is emitted when the interview surface is
	// hidden or shown (tab switch, window minimize).
	TypeVisibilityChange Type = "visibility_change"

	// TypeFocusChange is emitted when the interview surface gains or
	// loses input focus.
	TypeFocusChange Type = "focus_change"

	// TypeCopy is emitted when content is copied out of the surface.
	TypeCopy Type = "copy"

	// TypePaste is emitted when content is pasted into the surface.
	TypePaste Type = "paste"

	// TypeKeydown is emitted for key presses with Ctrl or Meta held.
	// Plain key presses feed the keystroke recorder but are not logged
	// as activity, so typing is not recorded twice.
	TypeKeydown Type = "keydown"

	// TypeKeyup exists for symmetry with keydown; it is recorded by
	// the keystroke recorder only.
	TypeKeyup Type = "keyup"

	// TypeDevToolsOpen is emitted by the window-size heuristic on the
	// closed-to-open transition.
	TypeDevToolsOpen Type = "devtools_open"

	// TypeDevToolsSuspected is emitted by the console-timing heuristic.
	TypeDevToolsSuspected Type = "devtools_suspected"

	// TypeExtensionDetected is emitted once per fingerprinted browser
	// extension.
	TypeExtensionDetected Type = "extension_detected"

	// TypeConsoleTampered is emitted when console bindings no longer
	// match their captured originals.
	TypeConsoleTampered Type = "console_tampered"
)

// MaxClipboardDetail caps how much clipboard text is attached to a
// copy/paste event.
const MaxClipboardDetail = 100

// Event is a single classified activity observation.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Timestamp int64          `json:"timestamp"` // epoch milliseconds at fire time
	Details   map[string]any `json:"details,omitempty"`
}

// New creates an event stamped with the given fire time.
func New(t Type, at time.Time, details map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: at.UnixMilli(),
		Details:   details,
	}
}

// Hidden reports whether this is a visibility change into the hidden
// state. Only these events count against the warning budget.
func (e Event) Hidden() bool {
	if e.Type != TypeVisibilityChange {
		return false
	}
	hidden, _ := e.Details["hidden"].(bool)
	return hidden
}

// TruncateClipboard trims clipboard text to MaxClipboardDetail runes.
func TruncateClipboard(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxClipboardDetail {
		return s
	}
	return string(runes[:MaxClipboardDetail])
}
