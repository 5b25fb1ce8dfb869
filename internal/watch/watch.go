// Package watch turns filesystem activity under a vault root into rescan
// requests, coalescing bursts of events with a debounce window.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher watches a directory tree and emits a rescan request once a burst
// of changes has settled. Hidden directories are never watched.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *zap.Logger

	fsw      *fsnotify.Watcher
	requests chan string
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures New.
type Option func(*Watcher)

// WithDebounce sets the quiet window required before a request is emitted.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for root. Call Start to begin delivering requests.
func New(root string, logger *zap.Logger, opts ...Option) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		debounce: defaultDebounce,
		logger:   logger,
		fsw:      fsw,
		requests: make(chan string, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Requests returns the channel rescan requests are delivered on. The channel
// holds at most one pending request; a request that cannot be buffered is
// dropped, since the pending one already covers it.
func (w *Watcher) Requests() <-chan string {
	return w.requests
}

// Start adds the root tree to the watch list and begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	go w.run(ctx)
	w.logger.Info("Watching vault", zap.String("root", w.root))
	return nil
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsw.Close()
	})
}

// addRecursive watches every non-hidden directory under dir.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking the rest
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context) {
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			// New directories join the watch list so their children
			// keep triggering rescans.
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(ev.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case w.requests <- w.root:
				w.logger.Debug("Rescan requested", zap.String("root", w.root))
			default:
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watch error", zap.Error(err))
		}
	}
}
