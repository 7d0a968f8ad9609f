// Package watcher reloads the query engine when the Blueprint artifact on
// disk changes.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a reload.
const DefaultDebounce = 500 * time.Millisecond

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event represents a file system event on the artifact
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// Reloader replaces the served Blueprint with the one at path. The query
// engine implements it.
type Reloader interface {
	Reload(path string) error
}

// Config contains watcher configuration
type Config struct {
	Debounce time.Duration
	// OnReload, when set, is called after every reload attempt.
	OnReload func(err error)
}

// Watcher watches one artifact file. Its directory is watched rather than
// the file so that atomic replace-by-rename is seen.
type Watcher struct {
	path     string
	reloader Reloader
	config   Config
	logger   *slog.Logger

	reloads  atomic.Int64
	failures atomic.Int64
}

// New creates a watcher for the artifact at path.
func New(path string, reloader Reloader, config Config, logger *slog.Logger) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &Watcher{
		path:     filepath.Clean(abs),
		reloader: reloader,
		config:   config,
		logger:   logger,
	}
}

// Path returns the watched artifact path.
func (w *Watcher) Path() string {
	return w.path
}

// Run watches until ctx is cancelled. Reloads happen on the Run goroutine,
// so none is in flight once Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	batches := make(chan []Event, 1)
	debouncer := NewBatchDebouncer(w.config.Debounce, func(events []Event) {
		select {
		case batches <- events:
		default:
			// A reload is already queued and will read the newest file.
		}
	})
	defer debouncer.Cancel()

	w.logger.Info("Watching blueprint artifact", "path", w.path, "debounce", w.config.Debounce)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Artifact watcher stopped", "path", w.path)
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event, relevant := w.translate(ev); relevant {
				debouncer.Add(event)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", "error", err)

		case events := <-batches:
			w.reload(events)
		}
	}
}

// translate maps an fsnotify event on the watched directory to an artifact
// event. Deletions are ignored: the engine keeps serving what it has.
func (w *Watcher) translate(ev fsnotify.Event) (Event, bool) {
	if filepath.Clean(ev.Name) != w.path {
		return Event{}, false
	}
	event := Event{Path: ev.Name, Timestamp: time.Now()}
	switch {
	case ev.Has(fsnotify.Create):
		event.Type = EventCreate
	case ev.Has(fsnotify.Write):
		event.Type = EventModify
	case ev.Has(fsnotify.Rename):
		event.Type = EventRename
	default:
		return Event{}, false
	}
	return event, true
}

func (w *Watcher) reload(events []Event) {
	start := time.Now()
	err := w.reloader.Reload(w.path)
	if err != nil {
		w.failures.Add(1)
		w.logger.Warn("Blueprint reload failed, keeping the current one",
			"path", w.path,
			"events", len(events),
			"error", err,
		)
	} else {
		w.reloads.Add(1)
		w.logger.Info("Blueprint reloaded",
			"path", w.path,
			"events", len(events),
			"duration", time.Since(start),
		)
	}
	if w.config.OnReload != nil {
		w.config.OnReload(err)
	}
}

// Stats reports reload counters.
func (w *Watcher) Stats() map[string]interface{} {
	return map[string]interface{}{
		"path":       w.path,
		"debounceMs": w.config.Debounce.Milliseconds(),
		"reloads":    w.reloads.Load(),
		"failures":   w.failures.Load(),
	}
}
