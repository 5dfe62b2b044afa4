// Package monitor consumes raw host events, classifies them into
// activity events, and fans each one out three ways: into the
// in-memory activity log, synchronously into the caller's suspicious
// activity callback, and asynchronously to the backend activity log.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"proctord/internal/activity"
	"proctord/internal/keystroke"
)

// ErrAlreadyRunning is returned when Start is called on a running
// monitor. Re-mounting the page must not attach a second consumer.
var ErrAlreadyRunning = errors.New("monitor: already running")

// reportTimeout bounds each best-effort backend delivery.
const reportTimeout = 10 * time.Second

// Reporter delivers one activity event to the backend log.
type Reporter interface {
	ReportActivity(ctx context.Context, sessionID string, e activity.Event) error
}

// Config controls the monitor.
type Config struct {
	// SessionID identifies the interview session. The monitor no-ops
	// entirely when it is empty.
	SessionID string
	// Enabled no-ops the monitor when false.
	Enabled bool
	// OnSuspicious is invoked synchronously for every classified event,
	// before any network delivery, so policy decisions are never
	// delayed by I/O.
	OnSuspicious func(activity.Event)
}

// Monitor classifies raw events for one interview session.
type Monitor struct {
	cfg      Config
	source   Source
	reporter Reporter
	log      *slog.Logger

	events   *activity.Log
	recorder *keystroke.Recorder

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// reports tracks in-flight backend deliveries so Stop can drain
	// them.
	reports sync.WaitGroup
}

// New creates a monitor over the given source.
func New(cfg Config, source Source, reporter Reporter, log *slog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		source:   source,
		reporter: reporter,
		log:      log,
		events:   activity.NewLog(),
		recorder: keystroke.NewRecorder(),
	}
}

// Events returns the in-memory activity log.
func (m *Monitor) Events() *activity.Log {
	return m.events
}

// Recorder returns the keystroke recorder fed by this monitor.
func (m *Monitor) Recorder() *keystroke.Recorder {
	return m.recorder
}

// Start begins consuming the source. It is a silent no-op when the
// monitor is disabled or no session is bound.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.cfg.Enabled || m.cfg.SessionID == "" {
		m.log.Debug("monitor disabled", slog.Bool("enabled", m.cfg.Enabled))
		return nil
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.running = true
	m.done = make(chan struct{})
	m.mu.Unlock()

	if err := m.source.Start(ctx); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		m.cancel()
		return err
	}

	m.log.Info("monitor started", slog.String("session", m.cfg.SessionID))

	go func() {
		defer close(m.done)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-m.source.Events():
				if !ok {
					return
				}
				m.consume(ctx, raw)
			}
		}
	}()

	return nil
}

// Stop detaches from the source and waits for the consumer and any
// in-flight backend deliveries to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	// Close the source first so the consumer drains queued events
	// before exiting on the closed channel.
	m.source.Stop()
	<-done
	cancel()
	m.reports.Wait()
	m.log.Info("monitor stopped")
}

// consume classifies one raw event. Keystrokes always feed the
// recorder; an activity event is produced for keydown only when a
// Ctrl/Cmd combination is held, so shortcut-based copy attempts are
// caught without logging every keystroke twice.
func (m *Monitor) consume(ctx context.Context, raw RawEvent) {
	var ev activity.Event

	switch raw.Kind {
	case KindVisibility:
		ev = activity.New(activity.TypeVisibilityChange, raw.At, map[string]any{
			"hidden": raw.Hidden,
		})
	case KindFocus:
		ev = activity.New(activity.TypeFocusChange, raw.At, map[string]any{
			"focused": raw.Focused,
		})
	case KindCopy:
		ev = activity.New(activity.TypeCopy, raw.At, map[string]any{
			"data": activity.TruncateClipboard(raw.Data),
		})
	case KindPaste:
		ev = activity.New(activity.TypePaste, raw.At, map[string]any{
			"data": activity.TruncateClipboard(raw.Data),
		})
	case KindKeydown:
		m.recorder.RecordKeydown(raw.Key, raw.At)
		if !raw.Ctrl && !raw.Meta {
			return
		}
		ev = activity.New(activity.TypeKeydown, raw.At, map[string]any{
			"key":  raw.Key,
			"ctrl": raw.Ctrl,
			"meta": raw.Meta,
		})
	case KindKeyup:
		m.recorder.RecordKeyup(raw.Key, raw.At)
		return
	default:
		return
	}

	m.events.Append(ev)

	if m.cfg.OnSuspicious != nil {
		m.cfg.OnSuspicious(ev)
	}

	m.report(ev)
}

// Report delivers an externally produced event (detector findings go
// through here) to the log, the callback, and the backend.
func (m *Monitor) Report(ev activity.Event) {
	if !m.cfg.Enabled || m.cfg.SessionID == "" {
		return
	}
	m.events.Append(ev)
	if m.cfg.OnSuspicious != nil {
		m.cfg.OnSuspicious(ev)
	}
	m.report(ev)
}

// report POSTs one event in the background. Delivery is best-effort
// and uses its own context so page teardown does not cancel a send
// already in flight; failures are logged and swallowed, never
// surfaced.
func (m *Monitor) report(ev activity.Event) {
	m.reports.Add(1)
	go func() {
		defer m.reports.Done()
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		if err := m.reporter.ReportActivity(ctx, m.cfg.SessionID, ev); err != nil {
			m.log.Debug("activity report failed",
				slog.String("type", string(ev.Type)),
				slog.String("error", err.Error()))
		}
	}()
}
