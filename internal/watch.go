package internal

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gnolang/dfa/internal/irfile"
	tt "github.com/gnolang/dfa/internal/types"
	"github.com/gnolang/dfa/scanner"
)

// settleDelay groups the burst of events an editor produces on save into
// a single run.
const settleDelay = 100 * time.Millisecond

// ReportFunc receives the outcome of analyzing a changed file.
type ReportFunc func(filename string, issues []tt.Issue, err error)

// Watcher re-analyzes program files under a set of directories whenever
// they are written.
type Watcher struct {
	engine  *Engine
	watcher *fsnotify.Watcher
	dirs    []string
	report  ReportFunc

	mu         sync.Mutex
	isWatching bool
	pending    map[string]*time.Timer
	done       chan struct{}
}

// NewWatcher creates a watcher over dirs. report is called from a
// background goroutine.
func (e *Engine) NewWatcher(dirs []string, report ReportFunc) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}
	return &Watcher{
		engine:  e,
		watcher: w,
		dirs:    dirs,
		report:  report,
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}, nil
}

// StartWatching adds every directory below the watched roots and starts
// processing events until ctx is done or StopWatching is called.
func (w *Watcher) StartWatching(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isWatching {
		return errors.New("already watching")
	}

	for _, dir := range w.dirs {
		dirs, err := scanner.New(dir).Dirs()
		if err != nil {
			return errors.Wrap(err, "error listing directories")
		}
		for _, d := range dirs {
			if err := w.watcher.Add(d); err != nil {
				return errors.Wrap(err, "error adding directory to watcher")
			}
		}
	}

	w.isWatching = true
	go w.watchLoop(ctx)
	return nil
}

// StopWatching stops the event loop and waits for it to exit.
func (w *Watcher) StopWatching() error {
	w.mu.Lock()
	if !w.isWatching {
		w.mu.Unlock()
		w.engine.logger.Debug("watcher not running")
		return nil
	}
	w.isWatching = false
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFileEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.engine.logger.Error("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleFileEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.engine.logger.Warn("error watching new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}
	if !strings.HasSuffix(event.Name, irfile.Ext) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.isWatching {
		return
	}
	if t, ok := w.pending[event.Name]; ok {
		t.Reset(settleDelay)
		return
	}
	name := event.Name
	w.pending[name] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, name)
		w.mu.Unlock()

		issues, err := w.engine.Run(ctx, name)
		w.report(name, issues, err)
	})
}
