package activity

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewStampsFireTime(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	e := New(TypeCopy, at, map[string]any{"text": "abc"})

	if e.ID == "" {
		t.Error("expected non-empty event ID")
	}
	if e.Timestamp != 1700000000123 {
		t.Errorf("unexpected timestamp: %d", e.Timestamp)
	}
	if e.Type != TypeCopy {
		t.Errorf("unexpected type: %s", e.Type)
	}
}

func TestHidden(t *testing.T) {
	cases := []struct {
		name string
		ev   Event
		want bool
	}{
		{"tab hidden", New(TypeVisibilityChange, time.Now(), map[string]any{"hidden": true}), true},
		{"tab shown", New(TypeVisibilityChange, time.Now(), map[string]any{"hidden": false}), false},
		{"no details", New(TypeVisibilityChange, time.Now(), nil), false},
		{"focus loss is not a violation", New(TypeFocusChange, time.Now(), map[string]any{"focused": false}), false},
		{"copy", New(TypeCopy, time.Now(), map[string]any{"hidden": true}), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ev.Hidden(); got != tc.want {
				t.Errorf("Hidden() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTruncateClipboard(t *testing.T) {
	short := "hello"
	if got := TruncateClipboard(short); got != short {
		t.Errorf("short text should be untouched, got %q", got)
	}

	long := strings.Repeat("x", 250)
	got := TruncateClipboard(long)
	if len([]rune(got)) != MaxClipboardDetail {
		t.Errorf("expected %d runes, got %d", MaxClipboardDetail, len([]rune(got)))
	}

	// Multi-byte runes must not be split.
	wide := strings.Repeat("あ", 150)
	got = TruncateClipboard(wide)
	if len([]rune(got)) != MaxClipboardDetail {
		t.Errorf("expected %d runes for wide text, got %d", MaxClipboardDetail, len([]rune(got)))
	}
}

func TestLogPreservesInsertionOrder(t *testing.T) {
	log := NewLog()
	for i := 0; i < 5; i++ {
		log.Append(New(TypeKeydown, time.UnixMilli(int64(i)), nil))
	}

	events := log.Events()
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	for i, e := range events {
		if e.Timestamp != int64(i) {
			t.Errorf("event %d out of order: timestamp %d", i, e.Timestamp)
		}
	}
}

func TestLogSnapshotIsCopy(t *testing.T) {
	log := NewLog()
	log.Append(New(TypeCopy, time.Now(), nil))

	snap := log.Events()
	snap[0].Type = TypePaste

	if log.Events()[0].Type != TypeCopy {
		t.Error("mutating a snapshot must not affect the log")
	}
}

func TestLogClear(t *testing.T) {
	log := NewLog()
	log.Append(New(TypeCopy, time.Now(), nil))
	log.Clear()

	if log.Len() != 0 {
		t.Errorf("expected empty log after Clear, got %d events", log.Len())
	}
}

func TestLogConcurrentAppend(t *testing.T) {
	log := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				log.Append(New(TypeKeydown, time.Now(), nil))
			}
		}()
	}
	wg.Wait()

	if log.Len() != 1000 {
		t.Errorf("expected 1000 events, got %d", log.Len())
	}
}
