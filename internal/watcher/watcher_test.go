package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/goleak"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeReloader struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeReloader) Reload(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return f.err
}

func (f *fakeReloader) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	w := New("blueprint.json", &fakeReloader{}, Config{}, nil)
	if w.config.Debounce != DefaultDebounce {
		t.Errorf("Debounce = %v, want %v", w.config.Debounce, DefaultDebounce)
	}
	if !filepath.IsAbs(w.Path()) {
		t.Errorf("Path() = %q, want absolute", w.Path())
	}
}

func TestTranslate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blueprint.json")
	w := New(path, &fakeReloader{}, Config{}, discardLogger())

	tests := []struct {
		name     string
		event    fsnotify.Event
		want     EventType
		relevant bool
	}{
		{"create", fsnotify.Event{Name: path, Op: fsnotify.Create}, EventCreate, true},
		{"write", fsnotify.Event{Name: path, Op: fsnotify.Write}, EventModify, true},
		{"rename", fsnotify.Event{Name: path, Op: fsnotify.Rename}, EventRename, true},
		{"remove ignored", fsnotify.Event{Name: path, Op: fsnotify.Remove}, 0, false},
		{"chmod ignored", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, 0, false},
		{"other file", fsnotify.Event{Name: filepath.Join(dir, "catalog.db"), Op: fsnotify.Write}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, relevant := w.translate(tt.event)
			if relevant != tt.relevant {
				t.Fatalf("relevant = %v, want %v", relevant, tt.relevant)
			}
			if relevant && got.Type != tt.want {
				t.Errorf("Type = %v, want %v", got.Type, tt.want)
			}
		})
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "blueprint.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	reloader := &fakeReloader{}
	reloaded := make(chan error, 4)
	w := New(path, reloader, Config{
		Debounce: 20 * time.Millisecond,
		OnReload: func(err error) { reloaded <- err },
	}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The directory watch is registered asynchronously; keep writing until
	// a reload is observed.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
wait:
	for {
		select {
		case err := <-reloaded:
			if err != nil {
				t.Errorf("reload error = %v", err)
			}
			break wait
		case <-tick.C:
			if err := os.WriteFile(path, []byte(`{"v":2}`), 0644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("no reload within 5s")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if reloader.calls() == 0 {
		t.Error("reloader was not called")
	}
	if stats := w.Stats(); stats["reloads"].(int64) == 0 {
		t.Errorf("Stats() = %v", stats)
	}
}

func TestWatcherCountsFailures(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "bp.json"), &fakeReloader{err: errors.New("malformed")}, Config{}, discardLogger())
	var got error
	w.config.OnReload = func(err error) { got = err }

	w.reload([]Event{{Type: EventModify}})

	if got == nil {
		t.Error("OnReload should receive the reload error")
	}
	stats := w.Stats()
	if stats["failures"].(int64) != 1 || stats["reloads"].(int64) != 0 {
		t.Errorf("Stats() = %v", stats)
	}
}

func TestWatcherRunMissingDir(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := New(filepath.Join(t.TempDir(), "missing", "bp.json"), &fakeReloader{}, Config{}, discardLogger())
	if err := w.Run(context.Background()); err == nil {
		t.Error("Run() should fail when the artifact directory does not exist")
	}
}

func TestBatchDebouncerAdd(t *testing.T) {
	var received []Event
	var mu sync.Mutex

	b := NewBatchDebouncer(50*time.Millisecond, func(events []Event) {
		mu.Lock()
		received = events
		mu.Unlock()
	})

	b.Add(Event{Type: EventCreate, Path: "bp.json"})
	b.Add(Event{Type: EventModify, Path: "bp.json"})
	b.Add(Event{Type: EventRename, Path: "bp.json"})

	if b.EventCount() != 3 {
		t.Errorf("EventCount() = %d, want 3", b.EventCount())
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Errorf("Should have received 3 events, got %d", len(received))
	}
}

func TestBatchDebouncerCancel(t *testing.T) {
	var called bool
	var mu sync.Mutex

	b := NewBatchDebouncer(50*time.Millisecond, func(events []Event) {
		mu.Lock()
		called = true
		mu.Unlock()
	})
	b.Add(Event{Type: EventCreate, Path: "bp.json"})
	b.Cancel()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	if called {
		t.Error("Emit should not be called after cancel")
	}
	mu.Unlock()

	if b.EventCount() != 0 {
		t.Errorf("EventCount() = %d, want 0 after cancel", b.EventCount())
	}
}

func TestBatchDebouncerFlush(t *testing.T) {
	var received []Event
	b := NewBatchDebouncer(time.Hour, func(events []Event) { received = events })

	b.Add(Event{Type: EventCreate, Path: "bp.json"})
	b.Flush()

	if len(received) != 1 {
		t.Errorf("Should have received 1 event, got %d", len(received))
	}
	if b.EventCount() != 0 {
		t.Errorf("EventCount() = %d, want 0 after flush", b.EventCount())
	}
}

func TestBatchDebouncerNoEmitWithNoEvents(t *testing.T) {
	called := false
	b := NewBatchDebouncer(10*time.Millisecond, func(events []Event) { called = true })
	b.Flush()
	if called {
		t.Error("Emit should not be called with no events")
	}
}
