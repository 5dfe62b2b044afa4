// Package session wires the integrity subsystem together for one
// interview: the activity monitor, the environment detector, the
// countdown timer, the warning policy, and the termination path.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"proctord/internal/activity"
	"proctord/internal/countdown"
	"proctord/internal/detector"
	"proctord/internal/monitor"
	"proctord/internal/policy"
	"proctord/internal/storage"
)

// ErrAlreadyCompleted is returned when a session is mounted for an
// interview that was already terminated.
var ErrAlreadyCompleted = errors.New("session: interview already completed")

// Navigator is the controller's handle on the host surface: it sends
// the candidate away when the interview ends and pins them there.
type Navigator interface {
	// Redirect sends the candidate to the given path.
	Redirect(path string)
	// Block prevents navigating back into the interview.
	Block()
}

// Backend is the full set of server calls the controller needs.
type Backend interface {
	monitor.Reporter
	policy.Completer
	RegisterDevice(ctx context.Context, sessionID, fingerprint string) error
}

// Options configures a session controller.
type Options struct {
	InterviewID string
	// CompletionPath is where the candidate lands after termination.
	CompletionPath string
	// Fingerprint, when set, is registered with the backend on start.
	Fingerprint string

	MonitorEnabled bool
	Detector       detector.Config
	Timer          countdown.Config
	Rules          policy.Rules

	// OnWarning receives candidate-facing warning text.
	OnWarning func(message string)
	// OnTick receives the remaining seconds every timer tick.
	OnTick func(remaining int)
	// OnExpire fires when the current question's time runs out.
	OnExpire func()
}

// Controller owns the lifecycle of one interview session's integrity
// subsystem.
type Controller struct {
	opts      Options
	backend   Backend
	store     storage.Store
	navigator Navigator
	log       *slog.Logger

	monitor    *monitor.Monitor
	detector   *detector.Detector
	timer      *countdown.Timer
	terminator *policy.Terminator

	// mu serializes policy decisions so concurrent violations fold
	// into the warning count one at a time.
	mu       sync.Mutex
	warnings int

	running bool
	runMu   sync.Mutex
}

// New assembles a controller. The source delivers raw host events; the
// inspector exposes environment probes; the clock drives the timer.
func New(opts Options, source monitor.Source, inspector detector.Inspector,
	backend Backend, store storage.Store, navigator Navigator,
	clock countdown.Clock, log *slog.Logger) *Controller {

	c := &Controller{
		opts:      opts,
		backend:   backend,
		store:     store,
		navigator: navigator,
		log:       log,
	}

	c.terminator = policy.NewTerminator(opts.InterviewID, store, backend, log)

	c.monitor = monitor.New(monitor.Config{
		SessionID:    opts.InterviewID,
		Enabled:      opts.MonitorEnabled,
		OnSuspicious: c.handleSuspicious,
	}, source, backend, log)

	c.detector = detector.New(opts.Detector, inspector, c.monitor.Report, log)

	c.timer = countdown.New(opts.InterviewID, opts.Timer, store, clock, log)
	c.timer.SetOnTick(func(remaining int) {
		if opts.OnTick != nil {
			opts.OnTick(remaining)
		}
	})
	c.timer.SetOnExpire(func() {
		if opts.OnExpire != nil {
			opts.OnExpire()
		}
	})

	return c
}

// Timer exposes the countdown for rendering.
func (c *Controller) Timer() *countdown.Timer {
	return c.timer
}

// Monitor exposes the activity monitor, whose recorder holds the
// keystroke buffers for the current answer.
func (c *Controller) Monitor() *monitor.Monitor {
	return c.monitor
}

// Warnings returns the violation count so far.
func (c *Controller) Warnings() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warnings
}

// SetRules swaps the warning policy mid-session. The new budget
// applies from the next violation on; the accumulated count is kept.
func (c *Controller) SetRules(r policy.Rules) {
	c.mu.Lock()
	c.opts.Rules = r
	c.mu.Unlock()
}

// Start mounts the session. A completed interview refuses to mount:
// the candidate is redirected and navigation back is blocked. Device
// registration is best-effort; a failure there never blocks the
// interview.
func (c *Controller) Start(ctx context.Context) error {
	if c.terminator.Completed() {
		c.log.Info("refusing completed interview", slog.String("interview", c.opts.InterviewID))
		c.navigator.Redirect(c.opts.CompletionPath)
		c.navigator.Block()
		return ErrAlreadyCompleted
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.running {
		return monitor.ErrAlreadyRunning
	}

	if c.opts.Fingerprint != "" {
		if err := c.backend.RegisterDevice(ctx, c.opts.InterviewID, c.opts.Fingerprint); err != nil {
			c.log.Warn("device registration failed", slog.String("error", err.Error()))
		}
	}

	if err := c.monitor.Start(ctx); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}
	if err := c.detector.Start(ctx); err != nil {
		c.monitor.Stop()
		return fmt.Errorf("start detector: %w", err)
	}

	// Rehydrate any persisted countdown before the tick loop starts.
	if err := c.timer.Resume(); err != nil {
		c.log.Warn("timer resume failed", slog.String("error", err.Error()))
	}
	if err := c.timer.Start(ctx); err != nil {
		c.detector.Stop()
		c.monitor.Stop()
		return fmt.Errorf("start timer: %w", err)
	}

	c.running = true
	c.log.Info("session started", slog.String("interview", c.opts.InterviewID))
	return nil
}

// Stop unmounts the session without completing the interview. All
// persisted timer state survives for the next mount.
func (c *Controller) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if !c.running {
		return
	}
	c.running = false

	c.timer.Stop()
	c.detector.Stop()
	c.monitor.Stop()
	c.log.Info("session stopped", slog.String("interview", c.opts.InterviewID))
}

// OnQuestion binds the session to a new question: keystroke buffers
// reset so metrics are scoped per answer, and the countdown restarts
// with the full budget for the question's category.
func (c *Controller) OnQuestion(id, prompt string) error {
	c.monitor.Recorder().Reset()
	if err := c.timer.StartQuestion(id, prompt); err != nil {
		return fmt.Errorf("start question %s: %w", id, err)
	}
	return nil
}

// Finish completes the interview explicitly (the candidate submitted
// their final answer).
func (c *Controller) Finish(ctx context.Context) error {
	return c.terminate(ctx)
}

// handleSuspicious folds one classified event into the warning state.
// It runs synchronously from the monitor's consumer, so decisions are
// strictly ordered.
func (c *Controller) handleSuspicious(ev activity.Event) {
	c.mu.Lock()
	decision := c.opts.Rules.Evaluate(c.warnings, ev)
	c.warnings = decision.Count
	c.mu.Unlock()

	switch decision.Action {
	case policy.ActionWarn:
		c.log.Warn("violation warning",
			slog.String("interview", c.opts.InterviewID),
			slog.Int("count", decision.Count))
		if c.opts.OnWarning != nil {
			c.opts.OnWarning(decision.Message)
		}
	case policy.ActionTerminate:
		c.log.Warn("warning budget exhausted, terminating",
			slog.String("interview", c.opts.InterviewID),
			slog.Int("count", decision.Count))
		// Terminate off the event path so the network call never
		// blocks classification.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := c.terminate(ctx); err != nil &&
				!errors.Is(err, policy.ErrAlreadyCompleted) &&
				!errors.Is(err, policy.ErrTerminationInFlight) {
				c.log.Error("termination failed", slog.String("error", err.Error()))
			}
		}()
	}
}

// terminate performs the exactly-once completion and tears the session
// down.
func (c *Controller) terminate(ctx context.Context) error {
	if err := c.terminator.Terminate(ctx); err != nil {
		return err
	}

	if err := c.timer.Clear(); err != nil {
		c.log.Warn("clear timer state", slog.String("error", err.Error()))
	}
	c.Stop()
	c.navigator.Redirect(c.opts.CompletionPath)
	c.navigator.Block()
	return nil
}
