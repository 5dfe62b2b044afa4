// Package storage provides the durable key-value store used for timer
// persistence and session completion flags.
//
// The store is a single-writer resource: only the active interview
// session writes to it. It has an explicit lifecycle - initialized on
// session start, cleared on completion - and is injected rather than
// ambient so the timer and policy can be tested against the in-memory
// implementation.
package storage

import (
	"errors"
	"fmt"
)

// Store is a durable string key-value store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)

	// Set writes the value for key, overwriting any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases the store. The store must not be used afterwards.
	Close() error
}

// ErrClosed is returned for operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// Key names scoped per interview. These mirror the durable browser
// keys the session writes: a timer start time, a remaining-seconds
// snapshot, the bound question id, and the completion flag.

// TimerStartKey is the epoch-ms timestamp at which the current
// countdown began.
func TimerStartKey(interviewID string) string {
	return fmt.Sprintf("interview_%s_timer_start", interviewID)
}

// TimerRemainingKey is the last persisted remaining-seconds snapshot.
func TimerRemainingKey(interviewID string) string {
	return fmt.Sprintf("interview_%s_timer_remaining", interviewID)
}

// TimerQuestionKey is the identity of the question the countdown is
// bound to.
func TimerQuestionKey(interviewID string) string {
	return fmt.Sprintf("interview_%s_timer_question", interviewID)
}

// CompletedKey marks an interview as terminated. Once set, re-entry is
// blocked for good.
func CompletedKey(interviewID string) string {
	return fmt.Sprintf("interview_%s_completed", interviewID)
}

// SessionKeys lists every durable key owned by one interview session.
func SessionKeys(interviewID string) []string {
	return []string{
		TimerStartKey(interviewID),
		TimerRemainingKey(interviewID),
		TimerQuestionKey(interviewID),
	}
}

// ClearSession deletes the timer keys for an interview. The completed
// flag is left in place: it must survive so re-entry stays blocked.
func ClearSession(s Store, interviewID string) error {
	for _, key := range SessionKeys(interviewID) {
		if err := s.Delete(key); err != nil {
			return fmt.Errorf("clear session key %s: %w", key, err)
		}
	}
	return nil
}
