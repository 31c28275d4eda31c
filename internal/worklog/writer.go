// Package worklog implements the per-workspace append-only log files and
// the cursor-based reader the UI poll loop consumes.
package worklog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agentfleet-io/agentfleet/internal/config"
	"github.com/agentfleet-io/agentfleet/internal/models"
)

// Writer appends to one workspace's log files. logs.jsonl and
// history.jsonl are append-only: lines are never rewritten, and each
// line is written with a single Write call so readers never see a torn
// complete line (a torn *trailing* line can still appear after a crash;
// readers ignore it).
type Writer struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// NewWriter creates a writer for the given workspace directory.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Dir returns the workspace directory this writer appends to.
func (w *Writer) Dir() string {
	return w.dir
}

// AppendLog records one captured subprocess output line in logs.jsonl.
func (w *Writer) AppendLog(stream, line string) error {
	entry := models.LogLine{
		TS:     w.now().UTC().Format(time.RFC3339Nano),
		Stream: stream,
		Line:   line,
	}
	return w.appendLine(config.LogsFileName, entry)
}

// AppendHistory records one structured lifecycle event in history.jsonl.
func (w *Writer) AppendHistory(eventType string, data map[string]any) error {
	entry := models.HistoryEvent{
		TS:   w.now().UTC().Format(time.RFC3339Nano),
		Type: eventType,
		Data: data,
	}
	return w.appendLine(config.HistoryFileName, entry)
}

// WriteProgress overwrites progress.json with the latest activity tick.
func (w *Writer) WriteProgress(p models.Progress) error {
	return config.SaveJSONAtomic(filepath.Join(w.dir, config.ProgressFileName), p)
}

func (w *Writer) appendLine(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s line: %w", name, err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	path := filepath.Join(w.dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return nil
}
