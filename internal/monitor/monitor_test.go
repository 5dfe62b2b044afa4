package monitor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"proctord/internal/activity"
	"proctord/internal/logging"
)

// recordingReporter captures backend deliveries and can fail them.
type recordingReporter struct {
	mu       sync.Mutex
	reported []activity.Event
	err      error
}

func (r *recordingReporter) ReportActivity(ctx context.Context, sessionID string, e activity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.reported = append(r.reported, e)
	return nil
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reported)
}

type suspicionLog struct {
	mu     sync.Mutex
	events []activity.Event
}

func (s *suspicionLog) callback(ev activity.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func newMonitorUnderTest(t *testing.T) (*Monitor, *SimulatedSource, *recordingReporter, *suspicionLog) {
	t.Helper()
	source := NewSimulatedSource()
	reporter := &recordingReporter{}
	suspicions := &suspicionLog{}
	m := New(Config{
		SessionID:    "42",
		Enabled:      true,
		OnSuspicious: suspicions.callback,
	}, source, reporter, logging.Discard())
	return m, source, reporter, suspicions
}

func TestMonitorDisabledIsNoOp(t *testing.T) {
	source := NewSimulatedSource()
	reporter := &recordingReporter{}

	for _, cfg := range []Config{
		{SessionID: "42", Enabled: false},
		{SessionID: "", Enabled: true},
	} {
		m := New(cfg, source, reporter, logging.Discard())
		require.NoError(t, m.Start(context.Background()))
		// A second Start must also be a no-op, not ErrAlreadyRunning.
		require.NoError(t, m.Start(context.Background()))
		m.Stop()
		require.Zero(t, m.Events().Len())
	}
}

func TestMonitorRejectsDoubleStart(t *testing.T) {
	m, _, _, _ := newMonitorUnderTest(t)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()
	require.ErrorIs(t, m.Start(context.Background()), ErrAlreadyRunning)
}

func TestVisibilityAndFocusClassification(t *testing.T) {
	m, source, _, suspicions := newMonitorUnderTest(t)
	require.NoError(t, m.Start(context.Background()))

	now := time.Now()
	source.Emit(RawEvent{Kind: KindVisibility, At: now, Hidden: true})
	source.Emit(RawEvent{Kind: KindFocus, At: now, Focused: false})
	m.Stop()

	events := m.Events().Events()
	require.Len(t, events, 2)
	require.Equal(t, activity.TypeVisibilityChange, events[0].Type)
	require.Equal(t, true, events[0].Details["hidden"])
	require.True(t, events[0].Hidden())
	require.Equal(t, activity.TypeFocusChange, events[1].Type)
	require.Equal(t, false, events[1].Details["focused"])

	// The callback saw both, synchronously, in order.
	require.Len(t, suspicions.events, 2)
	require.Equal(t, activity.TypeVisibilityChange, suspicions.events[0].Type)
}

func TestClipboardEventsAreTruncated(t *testing.T) {
	m, source, _, _ := newMonitorUnderTest(t)
	require.NoError(t, m.Start(context.Background()))

	long := strings.Repeat("x", 500)
	source.Emit(RawEvent{Kind: KindCopy, At: time.Now(), Data: long})
	source.Emit(RawEvent{Kind: KindPaste, At: time.Now(), Data: "short"})
	m.Stop()

	events := m.Events().Events()
	require.Len(t, events, 2)
	require.Equal(t, activity.TypeCopy, events[0].Type)
	require.Len(t, events[0].Details["data"], activity.MaxClipboardDetail)
	require.Equal(t, "short", events[1].Details["data"])
}

func TestKeystrokesFeedRecorderWithoutLogging(t *testing.T) {
	m, source, reporter, _ := newMonitorUnderTest(t)
	require.NoError(t, m.Start(context.Background()))

	at := time.Now()
	source.Emit(RawEvent{Kind: KindKeydown, At: at, Key: "a"})
	source.Emit(RawEvent{Kind: KindKeyup, At: at.Add(80 * time.Millisecond), Key: "a"})
	m.Stop()

	// Plain typing reaches the recorder but never the activity log or
	// the backend.
	require.Equal(t, 1, m.Recorder().Count())
	require.Zero(t, m.Events().Len())
	require.Zero(t, reporter.count())
}

func TestShortcutKeydownIsLogged(t *testing.T) {
	m, source, _, suspicions := newMonitorUnderTest(t)
	require.NoError(t, m.Start(context.Background()))

	at := time.Now()
	source.Emit(RawEvent{Kind: KindKeydown, At: at, Key: "c", Ctrl: true})
	source.Emit(RawEvent{Kind: KindKeyup, At: at.Add(time.Millisecond * 60), Key: "c"})
	m.Stop()

	events := m.Events().Events()
	require.Len(t, events, 1)
	require.Equal(t, activity.TypeKeydown, events[0].Type)
	require.Equal(t, "c", events[0].Details["key"])
	require.Equal(t, true, events[0].Details["ctrl"])
	require.Len(t, suspicions.events, 1)

	// The shortcut press still counts as a keystroke.
	require.Equal(t, 1, m.Recorder().Count())
}

func TestEventsReachBackend(t *testing.T) {
	m, source, reporter, _ := newMonitorUnderTest(t)
	require.NoError(t, m.Start(context.Background()))

	source.Emit(RawEvent{Kind: KindVisibility, At: time.Now(), Hidden: true})
	// Stop drains in-flight deliveries.
	m.Stop()

	require.Equal(t, 1, reporter.count())
	require.Equal(t, activity.TypeVisibilityChange, reporter.reported[0].Type)
}

func TestBackendFailureIsSwallowed(t *testing.T) {
	m, source, reporter, suspicions := newMonitorUnderTest(t)
	reporter.err = context.DeadlineExceeded
	require.NoError(t, m.Start(context.Background()))

	source.Emit(RawEvent{Kind: KindVisibility, At: time.Now(), Hidden: true})
	m.Stop()

	// The local log and the policy callback are unaffected by the
	// delivery failure.
	require.Equal(t, 1, m.Events().Len())
	require.Len(t, suspicions.events, 1)
	require.Zero(t, reporter.count())
}

func TestReportForwardsExternalEvents(t *testing.T) {
	m, _, reporter, suspicions := newMonitorUnderTest(t)

	ev := activity.New(activity.TypeDevToolsOpen, time.Now(), map[string]any{"width_delta": 300})
	m.Report(ev)
	m.reports.Wait()

	require.Equal(t, 1, m.Events().Len())
	require.Len(t, suspicions.events, 1)
	require.Equal(t, 1, reporter.count())
}

func TestEmitNeverBlocksWithoutConsumer(t *testing.T) {
	source := NewSimulatedSource()
	require.NoError(t, source.Start(context.Background()))

	// Overfill the queue with nothing draining it; the overflow is
	// dropped and Stop still acquires the mutex.
	for i := 0; i < 300; i++ {
		source.Emit(RawEvent{Kind: KindFocus, At: time.Now()})
	}

	done := make(chan struct{})
	go func() {
		source.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop deadlocked against a blocked Emit")
	}
}

func TestReportNoOpWhenDisabled(t *testing.T) {
	reporter := &recordingReporter{}
	m := New(Config{Enabled: false}, NewSimulatedSource(), reporter, logging.Discard())

	m.Report(activity.New(activity.TypeDevToolsOpen, time.Now(), nil))

	require.Zero(t, m.Events().Len())
	require.Zero(t, reporter.count())
}
