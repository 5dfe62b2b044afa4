package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"proctord/internal/storage"
)

var (
	// ErrAlreadyCompleted is returned when the interview was already
	// terminated, in this mount or a previous one.
	ErrAlreadyCompleted = errors.New("policy: interview already completed")

	// ErrTerminationInFlight is returned while another termination
	// attempt is still running.
	ErrTerminationInFlight = errors.New("policy: termination already in flight")
)

// Completer submits the session-completion call to the backend.
type Completer interface {
	CompleteInterview(ctx context.Context, interviewID string) error
}

// Terminator performs the exactly-once session completion. Two guards
// protect it: an in-flight flag against concurrent attempts within this
// mount, and a persisted completed flag against re-entry after reloads.
// On a network failure the in-flight flag is rolled back so the caller
// can retry - an interview must end up neither unterminated nor
// double-terminated.
type Terminator struct {
	mu       sync.Mutex
	inFlight bool

	interviewID string
	store       storage.Store
	completer   Completer
	log         *slog.Logger
}

// NewTerminator creates a terminator for one interview.
func NewTerminator(interviewID string, store storage.Store, completer Completer, log *slog.Logger) *Terminator {
	return &Terminator{
		interviewID: interviewID,
		store:       store,
		completer:   completer,
		log:         log,
	}
}

// Completed reports whether the interview is durably marked completed.
func (t *Terminator) Completed() bool {
	v, ok, err := t.store.Get(storage.CompletedKey(t.interviewID))
	if err != nil {
		t.log.Warn("read completed flag", slog.String("error", err.Error()))
		return false
	}
	return ok && v == "true"
}

// Terminate completes the interview. Exactly one backend call is made
// across any number of concurrent or repeated invocations; once the
// completed flag is persisted the session's timer keys are cleared and
// every further call returns ErrAlreadyCompleted.
func (t *Terminator) Terminate(ctx context.Context) error {
	t.mu.Lock()
	if t.Completed() {
		t.mu.Unlock()
		return ErrAlreadyCompleted
	}
	if t.inFlight {
		t.mu.Unlock()
		return ErrTerminationInFlight
	}
	t.inFlight = true
	t.mu.Unlock()

	if err := t.completer.CompleteInterview(ctx, t.interviewID); err != nil {
		// Roll back the guard so a retry is possible.
		t.mu.Lock()
		t.inFlight = false
		t.mu.Unlock()
		return fmt.Errorf("complete interview: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Set(storage.CompletedKey(t.interviewID), "true"); err != nil {
		t.log.Error("persist completed flag", slog.String("error", err.Error()))
	}
	if err := storage.ClearSession(t.store, t.interviewID); err != nil {
		t.log.Warn("clear session state", slog.String("error", err.Error()))
	}

	t.log.Info("interview terminated", slog.String("interview", t.interviewID))
	return nil
}
