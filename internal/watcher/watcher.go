// Package watcher watches inbox directories and ingests files dropped
// into them.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/lumenworks/askdoc/internal/models"
)

// Writes settle before ingestion starts, so a file copied in several
// syscalls is picked up once.
const defaultDebounce = 400 * time.Millisecond

// Ingester ingests one file from disk.
type Ingester interface {
	IngestPath(ctx context.Context, path string) (*models.Document, error)
}

// Watcher watches inbox directories and submits new files for ingestion.
// Files are consumed: a successfully ingested file is removed from the
// inbox, a failed one is left in place for inspection.
type Watcher struct {
	roots      []string
	extensions []string
	ingester   Ingester
	debounce   time.Duration
	logger     *zap.Logger

	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	debounceMap map[string]*time.Timer
	started     bool
	done        chan struct{}
	stopOnce    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the settle delay before a file is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates an inbox watcher over the given root directories.
// extensions filter which files are picked up (empty = all).
func New(roots, extensions []string, ingester Ingester, logger *zap.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		roots:       roots,
		extensions:  extensions,
		ingester:    ingester,
		debounce:    defaultDebounce,
		logger:      logger,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Missing roots are created. It returns after the
// watch loop is running; the loop ends when ctx is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fsw
	w.started = true
	for _, root := range w.roots {
		if err := os.MkdirAll(root, 0o755); err != nil {
			_ = fsw.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
		if err := fsw.Add(root); err != nil {
			_ = fsw.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	w.logger.Info("inbox watcher started",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
	)
	go w.run(ctx)
	return nil
}

// SyncExisting ingests files already present in the inbox roots. Call
// after Start to pick up files dropped while the process was down.
func (w *Watcher) SyncExisting(ctx context.Context) {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			w.logger.Warn("inbox sync failed", zap.String("root", root), zap.Error(err))
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(root, e.Name())
			if w.matchExtension(path) {
				w.ingestFile(ctx, path)
			}
		}
	}
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("inbox watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	path := ev.Name
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if !w.matchExtension(path) {
		return
	}
	w.debounceIngest(ctx, path)
}

func (w *Watcher) debounceIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.ingestFile(ctx, path)
	})
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	doc, err := w.ingester.IngestPath(ctx, path)
	if err != nil {
		// Leave the file in the inbox so the failure can be inspected.
		w.logger.Warn("inbox ingestion failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}
	if err := os.Remove(path); err != nil {
		w.logger.Warn("failed to remove ingested inbox file",
			zap.String("path", path),
			zap.Error(err),
		)
	}
	w.logger.Info("inbox file ingested",
		zap.String("path", path),
		zap.String("document_id", doc.ID),
	)
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range w.extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// Stop stops the watcher and cancels pending debounced ingestions.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
