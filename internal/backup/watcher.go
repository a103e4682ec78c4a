package backup

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DropEvent signals that a backup document appeared in the drop directory.
type DropEvent struct {
	// Path is the path to the dropped .json file.
	Path string
}

// DropWatcher watches a drop directory for backup documents to import.
// It uses fsnotify for cross-platform file system event monitoring.
type DropWatcher struct {
	watcher *fsnotify.Watcher
	events  chan DropEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	dir     string
}

// NewDropWatcher creates a new DropWatcher instance.
// The watcher must be started with Start() before it will emit events.
func NewDropWatcher() (*DropWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &DropWatcher{
		watcher: watcher,
		events:  make(chan DropEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the drop directory for *.json files.
func (dw *DropWatcher) Start(dir string) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.running {
		return fmt.Errorf("watcher already running")
	}

	dw.dir = dir
	if err := dw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch drop directory %s: %w", dir, err)
	}

	dw.running = true
	dw.wg.Add(1)
	go dw.processEvents()

	return nil
}

// Stop stops watching and cleans up resources. It blocks until the event
// processing goroutine has exited.
func (dw *DropWatcher) Stop() error {
	dw.mu.Lock()
	if !dw.running {
		dw.mu.Unlock()
		return nil
	}
	dw.running = false
	dw.mu.Unlock()

	close(dw.done)

	if err := dw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	dw.wg.Wait()

	close(dw.events)
	close(dw.errors)

	return nil
}

// Events returns the channel that emits DropEvent notifications.
// This channel is closed when the watcher is stopped.
func (dw *DropWatcher) Events() <-chan DropEvent {
	return dw.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (dw *DropWatcher) Errors() <-chan error {
	return dw.errors
}

// processEvents converts fsnotify events into DropEvent notifications.
func (dw *DropWatcher) processEvents() {
	defer dw.wg.Done()

	for {
		select {
		case <-dw.done:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}

			if dropEvent, ok := dw.convertEvent(event); ok {
				select {
				case dw.events <- dropEvent:
				case <-dw.done:
					return
				}
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}

			select {
			case dw.errors <- err:
			case <-dw.done:
				return
			}
		}
	}
}

// convertEvent filters to newly written .json documents. Files the importer
// has already renamed out of the .json suffix never match again, so a
// processed drop can't re-trigger.
func (dw *DropWatcher) convertEvent(event fsnotify.Event) (DropEvent, bool) {
	if !strings.HasSuffix(event.Name, ".json") {
		return DropEvent{}, false
	}

	// A drop surfaces as a create followed by one or more writes; emitting
	// on both is fine because the importer renames the file after the first
	// successful import.
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return DropEvent{}, false
	}

	return DropEvent{Path: event.Name}, true
}
