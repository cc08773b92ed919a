// Package watch provides recursive file system watching with debouncing for
// live reload of registry modules.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/xraph/depot"
	"github.com/xraph/go-utils/log"
)

// Watcher monitors a source tree and reports batches of changed files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	debounce  time.Duration
	filter    func(path string) bool
	logger    log.Logger
	onChange  chan []string
	done      chan struct{}
	stopOnce  sync.Once
	stopErr   error
}

// Config holds watcher configuration options.
type Config struct {
	Root        string
	DebounceDur time.Duration

	// Filter selects the files whose changes are reported.
	// Defaults to Go sources accepted by depot.DefaultFilter.
	Filter func(path string) bool

	Logger log.Logger
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(root string) Config {
	return Config{
		Root:        root,
		DebounceDur: 500 * time.Millisecond,
		Filter:      GoSources,
	}
}

// GoSources accepts Go files that module discovery would load.
func GoSources(path string) bool {
	return strings.HasSuffix(path, ".go") && depot.DefaultFilter(path)
}

// New creates a new source tree watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	filter := cfg.Filter
	if filter == nil {
		filter = GoSources
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	return &Watcher{
		fsWatcher: fsw,
		root:      cfg.Root,
		debounce:  cfg.DebounceDur,
		filter:    filter,
		logger:    logger,
		onChange:  make(chan []string, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching every directory below the root.
// Returns a channel that receives the changed paths of each debounced batch.
func (w *Watcher) Start() (<-chan []string, error) {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != w.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("watching directory %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources. Later calls return the
// result of the first.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
		w.stopErr = w.fsWatcher.Close()
	})

	return w.stopErr
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending = make(map[string]struct{})
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			w.track(event)

			if !w.isRelevantEvent(event) {
				continue
			}

			pending[event.Name] = struct{}{}

			// Reset or start debounce timer
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					// Drain the timer channel if it already fired
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if len(pending) == 0 {
				continue
			}

			batch := slices.Sorted(maps.Keys(pending))

			select {
			case w.onChange <- batch:
				clear(pending)
			case <-w.done:
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}

			w.logger.Warn("watch error", log.Error(err))

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// track starts watching directories created after Start.
func (w *Watcher) track(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() {
		return
	}

	if err := w.fsWatcher.Add(event.Name); err != nil {
		w.logger.Warn("cannot watch new directory", log.String("dir", event.Name), log.Error(err))
	}
}

// isRelevantEvent checks if the event should trigger a reload.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}

	return w.filter(event.Name)
}

// ReloadFunc reloads the modules affected by a batch of changed paths.
type ReloadFunc func(ctx context.Context, paths []string) error

// RegistryReload reloads changed modules in r and waits for the resulting rebinds.
func RegistryReload(r *depot.Registry) ReloadFunc {
	return func(ctx context.Context, paths []string) error {
		if err := r.Reload(ctx, paths...); err != nil {
			return err
		}

		return r.WaitReloads()
	}
}

// Run feeds every batch from changes to reload until ctx is done or changes
// is closed. Reload errors are logged and do not stop the loop.
func Run(ctx context.Context, changes <-chan []string, reload ReloadFunc, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case paths, ok := <-changes:
			if !ok {
				return nil
			}

			start := time.Now()
			if err := reload(ctx, paths); err != nil {
				logger.Error("reload failed", log.Strings("paths", paths), log.Error(err))
				continue
			}

			logger.Info("reloaded",
				log.Strings("paths", paths),
				log.Duration("elapsed", time.Since(start)),
			)
		}
	}
}
