package keystroke

import (
	"testing"
	"time"
)

// press records a full down-then-up cycle for key at the given epoch
// milliseconds, holding for hold milliseconds.
func press(r *Recorder, key string, downMS, holdMS int64) {
	r.RecordKeydown(key, time.UnixMilli(downMS))
	r.RecordKeyup(key, time.UnixMilli(downMS+holdMS))
}

func TestRecorderPairsDownAndUp(t *testing.T) {
	r := NewRecorder()
	press(r, "a", 1000, 80)

	strokes := r.Keystrokes()
	if len(strokes) != 1 {
		t.Fatalf("expected 1 keystroke, got %d", len(strokes))
	}
	s := strokes[0]
	if s.Key != "a" || s.Keydown != 1000 || s.Keyup != 1080 || s.Duration != 80 {
		t.Errorf("unexpected keystroke: %+v", s)
	}
}

func TestUnmatchedKeyupDropped(t *testing.T) {
	r := NewRecorder()
	r.RecordKeyup("a", time.UnixMilli(1000))

	if r.Count() != 0 {
		t.Errorf("keyup without keydown must be dropped, got %d strokes", r.Count())
	}
}

func TestUnmatchedKeydownDropped(t *testing.T) {
	// A key held across focus loss never sees its keyup.
	r := NewRecorder()
	r.RecordKeydown("a", time.UnixMilli(1000))

	if r.Count() != 0 {
		t.Errorf("keydown without keyup must not count, got %d strokes", r.Count())
	}
}

func TestModifierAndFunctionKeysIgnored(t *testing.T) {
	r := NewRecorder()
	for _, key := range []string{"Shift", "Control", "Meta", "Tab", "Escape", "F1", "F12", "ArrowLeft", "CapsLock"} {
		press(r, key, 1000, 50)
	}

	if r.Count() != 0 {
		t.Errorf("modifier/function keys must be ignored, got %d strokes", r.Count())
	}

	// Single-character keys are always kept, including punctuation.
	press(r, "a", 2000, 50)
	press(r, ";", 2100, 50)
	if r.Count() != 2 {
		t.Errorf("expected 2 content keystrokes, got %d", r.Count())
	}
}

func TestAnalyzeRequiresMinSamples(t *testing.T) {
	r := NewRecorder()
	for i := 0; i < MinSamples-1; i++ {
		press(r, "a", int64(1000+i*200), 80)
	}

	if m, ok := r.Analyze(); ok || m != nil {
		t.Errorf("expected no metrics below %d samples, got %+v", MinSamples, m)
	}
}

func TestAnalyzeBasicMetrics(t *testing.T) {
	r := NewRecorder()
	// 10 keystrokes, keydown every 200ms starting at t=0, each held
	// 100ms. Keyups land at 100, 300, 500, ... 1900.
	for i := 0; i < 10; i++ {
		press(r, "a", int64(i*200), 100)
	}

	m, ok := r.Analyze()
	if !ok {
		t.Fatal("expected metrics with 10 keystrokes")
	}

	if m.Count != 10 {
		t.Errorf("Count = %d, want 10", m.Count)
	}
	if m.AvgIntervalMS != 200 {
		t.Errorf("AvgIntervalMS = %v, want 200", m.AvgIntervalMS)
	}
	if m.IntervalVariance != 0 {
		t.Errorf("IntervalVariance = %v, want 0 for perfectly even typing", m.IntervalVariance)
	}
	if m.AvgHoldMS != 100 {
		t.Errorf("AvgHoldMS = %v, want 100", m.AvgHoldMS)
	}
	// Span: first keydown 0 to last keyup 1900 = 1.9s.
	wantCPM := 10.0 / 1.9 * 60.0
	if diff := m.SpeedCPM - wantCPM; diff > 0.001 || diff < -0.001 {
		t.Errorf("SpeedCPM = %v, want %v", m.SpeedCPM, wantCPM)
	}
}

func TestAnalyzeExcludesThinkingPauses(t *testing.T) {
	r := NewRecorder()
	// 9 evenly spaced keystrokes, then a 10-second pause before the
	// final one. The pause interval is excluded from the interval
	// stats but the keystroke still counts.
	for i := 0; i < 9; i++ {
		press(r, "a", int64(i*200), 100)
	}
	press(r, "a", 9*200+10000, 100)

	m, ok := r.Analyze()
	if !ok {
		t.Fatal("expected metrics")
	}

	if m.Count != 10 {
		t.Errorf("Count = %d, want 10 (pause keystroke stays in the log)", m.Count)
	}
	if m.IntervalSamples != 8 {
		t.Errorf("IntervalSamples = %d, want 8 (pause interval excluded)", m.IntervalSamples)
	}
	if m.AvgIntervalMS != 200 {
		t.Errorf("AvgIntervalMS = %v, want 200", m.AvgIntervalMS)
	}
}

func TestResetClearsEverything(t *testing.T) {
	r := NewRecorder()
	for i := 0; i < 20; i++ {
		press(r, "a", int64(i*100), 50)
	}
	r.RecordKeydown("b", time.UnixMilli(99999)) // pending press

	r.Reset()

	if r.Count() != 0 {
		t.Errorf("expected empty recorder after Reset, got %d", r.Count())
	}
	if m, ok := r.Analyze(); ok || m != nil {
		t.Error("Analyze after Reset must report no metrics")
	}

	// The pending press from before Reset must not pair with a
	// post-Reset keyup.
	r.RecordKeyup("b", time.UnixMilli(100100))
	if r.Count() != 0 {
		t.Error("pending press must not survive Reset")
	}
}

func TestAutoRepeatOverwritesPendingPress(t *testing.T) {
	r := NewRecorder()
	r.RecordKeydown("a", time.UnixMilli(1000))
	r.RecordKeydown("a", time.UnixMilli(1500)) // auto-repeat
	r.RecordKeyup("a", time.UnixMilli(1600))

	strokes := r.Keystrokes()
	if len(strokes) != 1 {
		t.Fatalf("expected 1 keystroke, got %d", len(strokes))
	}
	if strokes[0].Duration != 100 {
		t.Errorf("Duration = %d, want 100 (pairs with the last press)", strokes[0].Duration)
	}
}
