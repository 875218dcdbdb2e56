package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cloo-solutions/corpusd/internal/domain"
)

// DefaultDebounce is the quiet period after the last source event before
// a sync pass starts.
const DefaultDebounce = 1500 * time.Millisecond

// SyncRunner runs one reconciliation pass against the source.
type SyncRunner interface {
	Run(ctx context.Context, trigger domain.SyncTrigger) error
}

// SourceWatcher watches the corpus source file and triggers a sync pass
// after a quiet period. Filesystem events are pushed onto an internal
// queue; a single consumer goroutine owns the debounce timer, so a burst
// of events collapses into exactly one pass. Forced syncs do not go
// through the watcher at all.
type SourceWatcher struct {
	path     string
	debounce time.Duration
	runner   SyncRunner

	events   chan fsnotify.Event
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewSourceWatcher creates a new SourceWatcher instance
func NewSourceWatcher(path string, debounce time.Duration, runner SyncRunner) *SourceWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &SourceWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		runner:   runner,
		events:   make(chan fsnotify.Event, 64),
		stopChan: make(chan struct{}),
	}
}

// Start begins watching the source file. The watch is placed on the
// parent directory: editors and atomic writers replace the file, which
// would orphan a watch on the path itself.
func (w *SourceWatcher) Start(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.wg.Add(2)
	go w.readEvents(ctx, fsWatcher)
	go w.consume(ctx)

	log.Printf("Watcher started on %s with debounce %v", w.path, w.debounce)
	return nil
}

// Stop cancels any pending debounce timer and waits for the consumer to
// exit. An in-flight sync pass finishes; no new pass starts.
func (w *SourceWatcher) Stop() {
	close(w.stopChan)
	w.wg.Wait()
	log.Println("Watcher shutdown complete")
}

// readEvents forwards events for the watched file onto the queue. A full
// queue drops the event: queued events only restart the debounce timer,
// so dropping a burst member changes nothing.
func (w *SourceWatcher) readEvents(ctx context.Context, fsWatcher *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fsWatcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			select {
			case w.events <- event:
			default:
			}
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

// consume owns the debounce timer. Every event restarts it; when it
// fires, one sync pass runs.
func (w *SourceWatcher) consume(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event := <-w.events:
			log.Printf("Watcher: %s on %s, debouncing", event.Op, filepath.Base(event.Name))
			resetTimer(timer, w.debounce)
		case <-timer.C:
			if w.stopping(ctx) {
				return
			}
			if err := w.runner.Run(ctx, domain.SyncTriggerWatch); err != nil {
				if errors.Is(err, domain.ErrSyncInProgress) {
					log.Printf("Watcher: sync already in flight, retrying in %v", w.debounce)
					timer.Reset(w.debounce)
					continue
				}
				log.Printf("Watcher: sync failed: %v", err)
			}
		}
	}
}

// stopping reports whether shutdown began while the timer was firing, so
// a stop racing the timer never starts a new pass.
func (w *SourceWatcher) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-w.stopChan:
		return true
	default:
		return false
	}
}

// resetTimer restarts a timer whose channel may or may not have fired.
func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}
