package run

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Log appends one JSON line per run.
type Log struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewLog(w io.Writer) *Log {
	return &Log{writer: w}
}

func NewFileLog(path string) (*Log, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	cleanPath := filepath.Clean(path)
	f, err := os.OpenFile(cleanPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- path is from application config, not user input
	if err != nil {
		return nil, err
	}
	return NewLog(f), nil
}

func (l *Log) Write(r Run) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := json.NewEncoder(l.writer).Encode(r); err != nil {
		slog.Error("failed to write run log entry", "error", err)
	}
}
