package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"proctord/internal/activity"
	"proctord/internal/api"
	"proctord/internal/config"
	"proctord/internal/countdown"
	"proctord/internal/detector"
	"proctord/internal/fingerprint"
	"proctord/internal/keystroke"
	"proctord/internal/logging"
	"proctord/internal/monitor"
	"proctord/internal/policy"
	"proctord/internal/session"
	"proctord/internal/storage"
)

// consoleNavigator prints what an embedding surface would do.
type consoleNavigator struct{}

func (consoleNavigator) Redirect(path string) {
	fmt.Printf(">> redirected to %s\n", path)
}

func (consoleNavigator) Block() {
	fmt.Println(">> navigation back into the interview blocked")
}

// archivingBackend wraps the API client so every reported event is
// also archived locally.
type archivingBackend struct {
	*api.Client
	archive *storage.SQLite
}

func (b *archivingBackend) ReportActivity(ctx context.Context, sessionID string, e activity.Event) error {
	if b.archive != nil {
		if err := b.archive.ArchiveEvent(sessionID, e); err != nil {
			fmt.Fprintf(os.Stderr, "archive event: %v\n", err)
		}
	}
	return b.Client.ReportActivity(ctx, sessionID, e)
}

func cmdRun() {
	cfg := loadConfig()

	if *interviewID == "" {
		fmt.Fprintln(os.Stderr, "run requires -interview <id>")
		os.Exit(1)
	}

	log, closer, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "proctord",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	store, sqliteStore, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	client := api.NewClient(cfg.Server.BaseURL, time.Duration(cfg.Server.TimeoutSec)*time.Second, log)
	backend := &archivingBackend{Client: client, archive: sqliteStore}

	timerCfg := countdown.Config{
		Technical:  time.Duration(cfg.Timer.TechnicalMinutes) * time.Minute,
		LiveCoding: time.Duration(cfg.Timer.LiveCodingMinutes) * time.Minute,
		Keywords:   countdown.DefaultLiveCodingKeywords,
	}
	if cfg.Timer.StagePlanPath != "" {
		plan, err := countdown.LoadStagePlan(cfg.Timer.StagePlanPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading stage plan: %v\n", err)
			os.Exit(1)
		}
		timerCfg = plan.Config()
	}

	source := monitor.NewSimulatedSource()
	inspector := detector.NewSimulatedInspector()

	controller := session.New(session.Options{
		InterviewID:    *interviewID,
		CompletionPath: fmt.Sprintf("/interviews/%s/complete", *interviewID),
		Fingerprint:    fingerprint.Fingerprint(),
		MonitorEnabled: cfg.Monitor.Enabled,
		Detector: detector.Config{
			Enabled:         cfg.Detector.Enabled,
			Interval:        time.Duration(cfg.Detector.IntervalSec) * time.Second,
			WindowDelta:     cfg.Detector.WindowDeltaPx,
			ConsoleTiming:   time.Duration(cfg.Detector.ConsoleTimingMs) * time.Millisecond,
			ExtensionProbes: cfg.Detector.ExtensionProbes,
		},
		Timer: timerCfg,
		Rules: policy.Rules{MaxWarnings: cfg.Policy.MaxWarnings},
		OnWarning: func(msg string) {
			fmt.Printf(">> WARNING: %s\n", msg)
		},
		OnTick: func(remaining int) {
			if remaining%60 == 0 || remaining <= 10 {
				fmt.Printf(">> %ds remaining\n", remaining)
			}
		},
		OnExpire: func() {
			fmt.Println(">> time is up for this question")
		},
	}, source, inspector, backend, store, consoleNavigator{}, countdown.SystemClock{}, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := controller.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting session: %v\n", err)
		os.Exit(1)
	}
	defer controller.Stop()

	// Hot-reload the config file so the warning budget can change
	// mid-session. Structural settings (storage, server, detector
	// cadence) need a remount and keep their mounted values.
	if *configPath != "" {
		loader := config.NewLoader(*configPath, log)
		if _, err := loader.Load(); err != nil {
			log.Warn("config hot-reload unavailable", slog.String("error", err.Error()))
		} else {
			loader.OnChange(func(c *config.Config) {
				controller.SetRules(policy.Rules{MaxWarnings: c.Policy.MaxWarnings})
				log.Info("warning budget updated", slog.Int("max_warnings", c.Policy.MaxWarnings))
			})
			if err := loader.Watch(ctx); err != nil {
				log.Warn("config hot-reload unavailable", slog.String("error", err.Error()))
			} else {
				defer loader.Close()
			}
		}
	}

	fmt.Printf("session %s mounted; type 'help' for commands\n", *interviewID)
	repl(ctx, controller, source, inspector)
}

func openStore(cfg *config.Config) (storage.Store, *storage.SQLite, error) {
	if cfg.Storage.Type == "memory" {
		return storage.NewMemory(), nil, nil
	}
	s, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	return s, s, nil
}

// repl drives the simulated host surface from stdin.
func repl(ctx context.Context, controller *session.Controller,
	source *monitor.SimulatedSource, inspector *detector.SimulatedInspector) {

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		now := time.Now()
		switch cmd, args := fields[0], fields[1:]; cmd {
		case "question":
			if len(args) < 2 {
				fmt.Println("usage: question <id> <prompt...>")
				continue
			}
			if err := controller.OnQuestion(args[0], strings.Join(args[1:], " ")); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf(">> question %s started (%s, %ds)\n",
				args[0], controller.Timer().CurrentCategory(), controller.Timer().Remaining())
		case "hide":
			source.Emit(monitor.RawEvent{Kind: monitor.KindVisibility, At: now, Hidden: true})
		case "show":
			source.Emit(monitor.RawEvent{Kind: monitor.KindVisibility, At: now, Hidden: false})
		case "blur":
			source.Emit(monitor.RawEvent{Kind: monitor.KindFocus, At: now, Focused: false})
		case "focus":
			source.Emit(monitor.RawEvent{Kind: monitor.KindFocus, At: now, Focused: true})
		case "copy":
			source.Emit(monitor.RawEvent{Kind: monitor.KindCopy, At: now, Data: strings.Join(args, " ")})
		case "paste":
			source.Emit(monitor.RawEvent{Kind: monitor.KindPaste, At: now, Data: strings.Join(args, " ")})
		case "type":
			// Simulate typing the given text at a steady cadence.
			for i, r := range strings.Join(args, " ") {
				at := now.Add(time.Duration(i) * 150 * time.Millisecond)
				key := string(r)
				source.Emit(monitor.RawEvent{Kind: monitor.KindKeydown, At: at, Key: key})
				source.Emit(monitor.RawEvent{Kind: monitor.KindKeyup, At: at.Add(90 * time.Millisecond), Key: key})
			}
		case "devtools":
			inspector.SetWindowMetrics(1280, 900, 800, 800)
		case "ext":
			if len(args) != 1 {
				fmt.Println("usage: ext <global-marker>")
				continue
			}
			inspector.SetGlobalMarker(args[0], true)
		case "metrics":
			printMetrics(controller.Monitor().Recorder())
		case "status":
			printStatus(controller)
		case "finish":
			if err := controller.Finish(ctx); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			return
		case "quit":
			return
		case "help":
			replHelp()
		default:
			fmt.Printf("unknown command %q; type 'help'\n", cmd)
		}
	}
}

func printMetrics(r *keystroke.Recorder) {
	m, ok := r.Analyze()
	if !ok {
		fmt.Printf("not enough keystrokes yet (%d recorded, %d needed)\n",
			r.Count(), keystroke.MinSamples)
		return
	}
	fmt.Printf("keystrokes: %d\n", m.Count)
	fmt.Printf("avg interval: %.1fms (variance %.1f, %d samples)\n",
		m.AvgIntervalMS, m.IntervalVariance, m.IntervalSamples)
	fmt.Printf("speed: %.1f cpm\n", m.SpeedCPM)
	fmt.Printf("avg hold: %.1fms\n", m.AvgHoldMS)
}

func printStatus(c *session.Controller) {
	fmt.Printf("timer: %s", c.Timer().State())
	if id := c.Timer().QuestionID(); id != "" {
		fmt.Printf(" (question %s, %s, %ds remaining)",
			id, c.Timer().CurrentCategory(), c.Timer().Remaining())
	}
	fmt.Println()
	fmt.Printf("warnings: %d\n", c.Warnings())
	fmt.Printf("activity events: %d\n", c.Monitor().Events().Len())
	fmt.Printf("keystrokes: %d\n", c.Monitor().Recorder().Count())
}

func replHelp() {
	fmt.Println(`commands:
  question <id> <prompt...>   start a question (classifies and starts the timer)
  hide | show                 simulate tab visibility changes
  blur | focus                simulate window focus changes
  copy <text> | paste <text>  simulate clipboard events
  type <text>                 simulate typing
  devtools                    simulate a docked devtools panel
  ext <marker>                plant an extension global
  metrics                     print typing metrics for the current answer
  status                      print session state
  finish                      complete the interview and exit
  quit                        unmount without completing`)
}
