package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docfleet/internal/logfields"
)

// DefaultDebounce collapses bursts of editor writes into one trigger.
const DefaultDebounce = 2 * time.Second

// ListWatcher monitors the repository list file and calls onChange, debounced.
type ListWatcher struct {
	path     string
	onChange func()
	debounce time.Duration
	watcher  *fsnotify.Watcher
	trigger  chan struct{}
	stopOnce sync.Once
	stop     chan struct{}
}

// NewListWatcher creates a watcher for path.
func NewListWatcher(path string, debounce time.Duration, onChange func()) (*ListWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to resolve list path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &ListWatcher{
		path:     absPath,
		onChange: onChange,
		debounce: debounce,
		watcher:  watcher,
		trigger:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}, nil
}

// Start watches the directory containing the list; editors often replace the file.
func (lw *ListWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(lw.path)
	if err := lw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch list directory %s: %w", dir, err)
	}
	slog.Info("Watching repository list", logfields.Path(lw.path))
	go lw.watchLoop(ctx)
	go lw.debounceLoop(ctx)
	return nil
}

// Stop ends both loops and closes the watcher. Safe to call more than once.
func (lw *ListWatcher) Stop() {
	lw.stopOnce.Do(func() {
		close(lw.stop)
		if err := lw.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	})
}

func (lw *ListWatcher) watchLoop(ctx context.Context) {
	name := filepath.Base(lw.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-lw.stop:
			return
		case event, ok := <-lw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				slog.Debug("Repository list changed", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				select {
				case lw.trigger <- struct{}{}:
				default:
				}
			case event.Has(fsnotify.Remove):
				slog.Warn("Repository list removed", logfields.Path(event.Name))
			}
		case err, ok := <-lw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("List watcher error", logfields.Error(err))
		}
	}
}

func (lw *ListWatcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-lw.stop:
			return
		case <-lw.trigger:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(lw.debounce, lw.onChange)
		}
	}
}
