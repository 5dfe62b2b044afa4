// Package countdown implements the per-question interview timer.
//
// The timer derives remaining time from a persisted start timestamp and
// a persisted remaining-seconds snapshot, so it survives a full page
// reload: rehydration subtracts elapsed wall-clock time, and reloading
// never buys the candidate extra time. Starting a new question always
// resets to the full configured duration for that question's category;
// unused time never carries over.
package countdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"proctord/internal/storage"
)

// State is the timer lifecycle state.
type State int

const (
	// StateIdle means no active countdown.
	StateIdle State = iota
	// StateRunning means the countdown is ticking and persisting.
	StateRunning
	// StateExpired is terminal for the current question: the countdown
	// hit zero. A new question starts fresh; it is not a transition out
	// of Expired.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Config holds the per-category durations and the live-coding
// classifier keywords.
type Config struct {
	Technical  time.Duration
	LiveCoding time.Duration
	Keywords   []string
}

// DefaultConfig returns the default stage budgets.
func DefaultConfig() Config {
	return Config{
		Technical:  time.Duration(DefaultTechnicalMinutes) * time.Minute,
		LiveCoding: time.Duration(DefaultLiveCodingMinutes) * time.Minute,
		Keywords:   DefaultLiveCodingKeywords,
	}
}

// Clock abstracts wall time so rehydration and ticking are testable.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Ticker returns a tick channel and a stop function.
	Ticker(d time.Duration) (<-chan time.Time, func())
}

// SystemClock is the real Clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// Ticker wraps time.NewTicker.
func (SystemClock) Ticker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

var (
	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("countdown: already running")
)

// Timer is the resumable per-question countdown.
type Timer struct {
	mu sync.Mutex

	interviewID string
	cfg         Config
	store       storage.Store
	clock       Clock
	log         *slog.Logger

	state      State
	remaining  int // seconds
	questionID string
	category   Category

	expireFired bool

	onTick   func(remaining int)
	onExpire func()

	running bool
	cancel  context.CancelFunc
}

// New creates a timer bound to one interview's persisted keys.
func New(interviewID string, cfg Config, store storage.Store, clock Clock, log *slog.Logger) *Timer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Timer{
		interviewID: interviewID,
		cfg:         cfg,
		store:       store,
		clock:       clock,
		log:         log,
		state:       StateIdle,
	}
}

// SetOnTick registers a callback invoked after every persisted tick.
func (t *Timer) SetOnTick(fn func(remaining int)) {
	t.mu.Lock()
	t.onTick = fn
	t.mu.Unlock()
}

// SetOnExpire registers a callback invoked exactly once when the
// countdown reaches zero.
func (t *Timer) SetOnExpire(fn func()) {
	t.mu.Lock()
	t.onExpire = fn
	t.mu.Unlock()
}

// Resume rehydrates the timer from persisted state. With no persisted
// countdown the timer stays Idle at zero. Otherwise remaining time is
// the persisted snapshot minus wall-clock time elapsed since the
// persisted start, floored at zero.
func (t *Timer) Resume() error {
	t.mu.Lock()

	startVal, haveStart, err := t.store.Get(storage.TimerStartKey(t.interviewID))
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("read start time: %w", err)
	}
	remVal, haveRemaining, err := t.store.Get(storage.TimerRemainingKey(t.interviewID))
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("read remaining: %w", err)
	}

	if !haveStart || !haveRemaining {
		t.state = StateIdle
		t.remaining = 0
		t.mu.Unlock()
		return nil
	}

	startMS, err := strconv.ParseInt(startVal, 10, 64)
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("parse start time %q: %w", startVal, err)
	}
	persisted, err := strconv.Atoi(remVal)
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("parse remaining %q: %w", remVal, err)
	}

	qid, haveQID, err := t.store.Get(storage.TimerQuestionKey(t.interviewID))
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("read question id: %w", err)
	}
	if haveQID {
		t.questionID = qid
	}

	now := t.clock.Now()
	elapsed := int((now.UnixMilli() - startMS) / 1000)
	if elapsed < 0 {
		elapsed = 0 // clock skew; never grant extra time
	}

	remaining := persisted - elapsed
	if remaining < 0 {
		remaining = 0
	}
	t.remaining = remaining

	if remaining == 0 {
		t.state = StateExpired
		fire := t.takeExpireLocked()
		t.mu.Unlock()
		if fire != nil {
			fire()
		}
		return nil
	}

	t.state = StateRunning
	// Re-anchor the persisted pair so subsequent ticks and reloads
	// measure from this rehydration.
	if err := t.persistLocked(now, remaining); err != nil {
		t.mu.Unlock()
		return err
	}

	t.log.Info("timer resumed",
		slog.String("question", t.questionID),
		slog.Int("remaining", remaining))
	t.mu.Unlock()
	return nil
}

// StartQuestion binds the countdown to a question. If the identity has
// not changed this is a no-op, so message re-renders never restart the
// clock. A genuinely new question always gets the full duration for its
// classified category.
func (t *Timer) StartQuestion(id, prompt string) error {
	t.mu.Lock()

	if id == t.questionID {
		t.mu.Unlock()
		return nil
	}

	category := Classify(prompt, t.cfg.Keywords)
	duration := t.cfg.Technical
	if category == CategoryLiveCoding {
		duration = t.cfg.LiveCoding
	}

	t.questionID = id
	t.category = category
	t.state = StateRunning
	t.remaining = int(duration / time.Second)
	t.expireFired = false

	now := t.clock.Now()
	if err := t.persistLocked(now, t.remaining); err != nil {
		t.mu.Unlock()
		return err
	}
	if err := t.store.Set(storage.TimerQuestionKey(t.interviewID), id); err != nil {
		t.mu.Unlock()
		return fmt.Errorf("persist question id: %w", err)
	}

	t.log.Info("countdown started",
		slog.String("question", id),
		slog.String("category", category.String()),
		slog.Int("seconds", t.remaining))
	t.mu.Unlock()
	return nil
}

// Start runs the tick loop until ctx is canceled or Stop is called.
func (t *Timer) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.running = true
	t.mu.Unlock()

	go t.run(ctx)
	return nil
}

// Stop halts the tick loop. Persisted state is left intact so a later
// Resume picks up where this left off.
func (t *Timer) Stop() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.running = false
	t.mu.Unlock()
}

func (t *Timer) run(ctx context.Context) {
	ticks, stop := t.clock.Ticker(time.Second)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			t.tick()
		}
	}
}

// tick decrements and persists one second of countdown.
func (t *Timer) tick() {
	t.mu.Lock()

	if t.state != StateRunning {
		t.mu.Unlock()
		return
	}

	t.remaining--
	if t.remaining < 0 {
		t.remaining = 0
	}

	// Persist the pair re-anchored to now: rehydration subtracts
	// elapsed time since the persisted start, so the snapshot and its
	// anchor must move together or a reload would double-count.
	if err := t.persistLocked(t.clock.Now(), t.remaining); err != nil {
		t.log.Warn("persist tick failed", slog.String("error", err.Error()))
	}

	remaining := t.remaining
	onTick := t.onTick

	var fire func()
	if remaining == 0 {
		t.state = StateExpired
		fire = t.takeExpireLocked()
	}
	t.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if fire != nil {
		fire()
	}
}

// takeExpireLocked returns the expire callback if it has not fired yet.
func (t *Timer) takeExpireLocked() func() {
	if t.expireFired {
		return nil
	}
	t.expireFired = true
	return t.onExpire
}

// persistLocked writes the (start, remaining) pair.
func (t *Timer) persistLocked(start time.Time, remaining int) error {
	if err := t.store.Set(storage.TimerStartKey(t.interviewID), strconv.FormatInt(start.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("persist start time: %w", err)
	}
	if err := t.store.Set(storage.TimerRemainingKey(t.interviewID), strconv.Itoa(remaining)); err != nil {
		return fmt.Errorf("persist remaining: %w", err)
	}
	return nil
}

// Clear removes this interview's timer keys and returns the timer to
// Idle. Called on session completion.
func (t *Timer) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := storage.ClearSession(t.store, t.interviewID); err != nil {
		return err
	}
	t.state = StateIdle
	t.remaining = 0
	t.questionID = ""
	t.expireFired = false
	return nil
}

// State returns the current lifecycle state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Remaining returns the remaining seconds.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// QuestionID returns the question the countdown is bound to.
func (t *Timer) QuestionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.questionID
}

// CurrentCategory returns the classified category of the bound
// question.
func (t *Timer) CurrentCategory() Category {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.category
}
