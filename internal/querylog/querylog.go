// Package querylog appends one audit row per answered query to a CSV file.
package querylog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"econ-rag/internal/contextutil"
)

// Header is the fixed column layout of the log file.
var Header = []string{
	"timestamp",
	"query",
	"response_length",
	"num_documents",
	"confidence_avg",
	"processing_time_ms",
	"rerank_enabled",
}

// Entry is one completed query, successful or not.
type Entry struct {
	Timestamp        time.Time
	Query            string
	ResponseLength   int
	NumDocuments     int
	ConfidenceAvg    float64
	ProcessingTimeMs float64
	RerankEnabled    bool
}

func (e Entry) record() []string {
	return []string{
		e.Timestamp.Format(time.RFC3339),
		e.Query,
		strconv.Itoa(e.ResponseLength),
		strconv.Itoa(e.NumDocuments),
		strconv.FormatFloat(e.ConfidenceAvg, 'f', 4, 64),
		strconv.FormatFloat(e.ProcessingTimeMs, 'f', 2, 64),
		strconv.FormatBool(e.RerankEnabled),
	}
}

// Logger records query outcomes. Log never fails the caller.
type Logger interface {
	Log(ctx context.Context, entry Entry)
	Enabled() bool
}

// Noop discards every entry. It is used when query logging is disabled.
type Noop struct{}

func (Noop) Log(context.Context, Entry) {}

func (Noop) Enabled() bool { return false }

// CSVLogger appends entries to a CSV file, writing the header when the file is new or empty.
// Appends are serialized so concurrent queries never interleave a row.
type CSVLogger struct {
	path string
	mu   sync.Mutex
}

// NewCSVLogger returns a logger for path. The file is created on first write.
func NewCSVLogger(path string) *CSVLogger {
	return &CSVLogger{path: path}
}

// Enabled always reports true.
func (l *CSVLogger) Enabled() bool { return true }

// Path returns the log file location.
func (l *CSVLogger) Path() string { return l.path }

// Log appends entry. Failures are reported through slog and otherwise ignored.
func (l *CSVLogger) Log(ctx context.Context, entry Entry) {
	if err := l.append(entry); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to write query log", "path", l.path, "error", err)
	}
}

func (l *CSVLogger) append(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open query log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat query log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := w.Write(entry.record()); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	w.Flush()
	return w.Error()
}
