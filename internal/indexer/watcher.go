package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"econ-rag/internal/contextutil"
)

// DefaultDebounce coalesces the burst of events editors emit for one save.
const DefaultDebounce = 500 * time.Millisecond

// Ingester is the part of Pipeline the watcher drives.
type Ingester interface {
	Ingest(ctx context.Context, paths []string, opts IngestOptions) (*IngestResult, error)
	Remove(ctx context.Context, source string) error
}

// Watcher keeps the index in sync with a directory tree: written files are
// re-ingested and removed or renamed files are dropped from the index.
type Watcher struct {
	ingester Ingester
	dir      string
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]fsnotify.Op
}

// NewWatcher creates a watcher for dir.
func NewWatcher(ingester Ingester, dir string) *Watcher {
	return &Watcher{
		ingester: ingester,
		dir:      dir,
		debounce: DefaultDebounce,
		pending:  make(map[string]fsnotify.Op),
	}
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx).With("component", "watcher")

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		_ = fw.Close()
	}()

	if err := addTree(fw, w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	logger.InfoContext(ctx, "watching directory", "dir", w.dir)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "watcher stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := addTree(fw, event.Name); err != nil {
					logger.WarnContext(ctx, "failed to watch new directory", "dir", event.Name, "error", err)
				}
				continue
			}
			if !IsSupported(event.Name) {
				continue
			}
			w.record(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "watcher error", "error", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) record(event fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// Later events for the same path win
	w.pending[event.Name] = event.Op
}

// flush applies pending events: removals first, then one ingestion call for all written files.
func (w *Watcher) flush(ctx context.Context) {
	logger := contextutil.LoggerFromContext(ctx).With("component", "watcher")

	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	var written []string
	for path, op := range pending {
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			if err := w.ingester.Remove(ctx, path); err != nil {
				logger.ErrorContext(ctx, "failed to remove document", "path", path, "error", err)
			}
			continue
		}
		if op.Has(fsnotify.Write) || op.Has(fsnotify.Create) {
			written = append(written, path)
		}
	}
	if len(written) == 0 {
		return
	}
	sort.Strings(written)

	result, err := w.ingester.Ingest(ctx, written, IngestOptions{})
	if err != nil {
		logger.ErrorContext(ctx, "failed to ingest changed documents", "paths", written, "error", err)
		return
	}
	logger.InfoContext(ctx, "re-ingested changed documents", "inserted", result.InsertedCount, "skipped", len(result.SkippedPaths))
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
