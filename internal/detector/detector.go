// Package detector periodically probes the host environment for
// inspection tooling: an opened DevTools panel, injected extension
// globals, and tampered console objects. Every probe is a heuristic,
// so findings are reported as activity events and never penalized
// directly.
package detector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"proctord/internal/activity"
)

// Defaults for the probe cadence and thresholds.
const (
	DefaultInterval = 2 * time.Second

	// DefaultWindowDelta is the outer/inner window size difference, in
	// pixels, above which a docked DevTools panel is assumed.
	DefaultWindowDelta = 160

	// DefaultConsoleTiming is the console probe duration above which an
	// open console is assumed: serializing the probe object is only
	// expensive when a console is attached and rendering it.
	DefaultConsoleTiming = 100 * time.Millisecond
)

// ErrAlreadyRunning is returned when Start is called twice.
var ErrAlreadyRunning = errors.New("detector: already running")

// Inspector exposes the host measurements the probes rely on. The
// production implementation reads them from the embedding surface;
// tests use a simulated one.
type Inspector interface {
	// WindowMetrics returns the outer and inner window dimensions in
	// pixels.
	WindowMetrics() (outerW, innerW, outerH, innerH int)

	// ConsoleProbeDuration logs a getter-instrumented probe object and
	// reports how long the call took.
	ConsoleProbeDuration() time.Duration

	// HasGlobalMarker reports whether the named global is present.
	HasGlobalMarker(name string) bool

	// ConsoleOverridden reports whether any console method is no longer
	// native code.
	ConsoleOverridden() bool
}

// Config tunes the detector probes.
type Config struct {
	// Enabled no-ops the sweep loop when false. Sweep still works when
	// called directly.
	Enabled bool

	Interval      time.Duration
	WindowDelta   int
	ConsoleTiming time.Duration

	// ExtensionProbes toggles the extension fingerprint sweep. The
	// marker list ages quickly, so deployments can isolate it.
	ExtensionProbes bool
}

// DefaultConfig returns the standard probe settings.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Interval:        DefaultInterval,
		WindowDelta:     DefaultWindowDelta,
		ConsoleTiming:   DefaultConsoleTiming,
		ExtensionProbes: true,
	}
}

// Detector runs the probe sweep on a fixed interval and hands findings
// to a sink.
type Detector struct {
	cfg       Config
	inspector Inspector
	sink      func(activity.Event)
	log       *slog.Logger

	mu sync.Mutex
	// devtoolsOpen is the edge-trigger latch for the window-size
	// heuristic: only the closed-to-open transition produces an event.
	devtoolsOpen bool
	// detected holds extension names already reported, so each is
	// reported once per mount.
	detected map[string]bool
	// consoleTampered latches the console-override finding.
	consoleTampered bool

	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a detector. The sink receives every finding synchronously
// from the sweep goroutine.
func New(cfg Config, inspector Inspector, sink func(activity.Event), log *slog.Logger) *Detector {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.WindowDelta <= 0 {
		cfg.WindowDelta = DefaultWindowDelta
	}
	if cfg.ConsoleTiming <= 0 {
		cfg.ConsoleTiming = DefaultConsoleTiming
	}
	return &Detector{
		cfg:       cfg,
		inspector: inspector,
		sink:      sink,
		log:       log,
		detected:  make(map[string]bool),
	}
}

// Start runs an immediate sweep and then sweeps on the configured
// interval until the context is cancelled or Stop is called. A
// disabled detector is a silent no-op.
func (d *Detector) Start(ctx context.Context) error {
	if !d.cfg.Enabled {
		d.log.Debug("detector disabled")
		return nil
	}

	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.running = true
	d.done = make(chan struct{})
	d.mu.Unlock()

	d.log.Info("detector started", slog.Duration("interval", d.cfg.Interval))

	go func() {
		defer close(d.done)
		d.Sweep()

		ticker := time.NewTicker(d.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.Sweep()
			}
		}
	}()

	return nil
}

// Stop halts the sweep loop and waits for it to exit.
func (d *Detector) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	<-done
	d.log.Info("detector stopped")
}

// Sweep runs every probe once.
func (d *Detector) Sweep() {
	d.probeWindowSize()
	d.probeConsoleTiming()
	if d.cfg.ExtensionProbes {
		d.probeExtensions()
	}
	d.probeConsoleOverride()
}

// probeWindowSize compares outer and inner window dimensions; a docked
// DevTools panel inflates the difference. The latch keeps a panel that
// stays open from producing an event on every sweep.
func (d *Detector) probeWindowSize() {
	outerW, innerW, outerH, innerH := d.inspector.WindowMetrics()
	open := outerW-innerW > d.cfg.WindowDelta || outerH-innerH > d.cfg.WindowDelta

	d.mu.Lock()
	fire := open && !d.devtoolsOpen
	d.devtoolsOpen = open
	d.mu.Unlock()

	if !fire {
		return
	}
	d.log.Warn("devtools panel suspected",
		slog.Int("width_delta", outerW-innerW),
		slog.Int("height_delta", outerH-innerH))
	d.emit(activity.TypeDevToolsOpen, map[string]any{
		"width_delta":  outerW - innerW,
		"height_delta": outerH - innerH,
	})
}

// probeConsoleTiming reports when rendering the probe object took long
// enough to imply an attached console. Undocked panels escape the
// window-size probe, so this is not latched against it.
func (d *Detector) probeConsoleTiming() {
	elapsed := d.inspector.ConsoleProbeDuration()
	if elapsed <= d.cfg.ConsoleTiming {
		return
	}
	d.emit(activity.TypeDevToolsSuspected, map[string]any{
		"probe_ms": elapsed.Milliseconds(),
	})
}

// probeExtensions checks the known marker globals and reports each
// matching extension once.
func (d *Detector) probeExtensions() {
	for marker, name := range extensionMarkers {
		if !d.inspector.HasGlobalMarker(marker) {
			continue
		}
		d.mu.Lock()
		seen := d.detected[name]
		d.detected[name] = true
		d.mu.Unlock()
		if seen {
			continue
		}
		d.log.Warn("extension detected", slog.String("name", name))
		d.emit(activity.TypeExtensionDetected, map[string]any{
			"name":   name,
			"marker": marker,
		})
	}
}

// probeConsoleOverride reports, once, that a console method has been
// replaced.
func (d *Detector) probeConsoleOverride() {
	if !d.inspector.ConsoleOverridden() {
		return
	}
	d.mu.Lock()
	seen := d.consoleTampered
	d.consoleTampered = true
	d.mu.Unlock()
	if seen {
		return
	}
	d.emit(activity.TypeConsoleTampered, nil)
}

func (d *Detector) emit(t activity.Type, details map[string]any) {
	if d.sink == nil {
		return
	}
	d.sink(activity.New(t, time.Now(), details))
}
