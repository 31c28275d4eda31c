package worklog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentfleet-io/agentfleet/internal/config"
	"github.com/agentfleet-io/agentfleet/internal/models"
)

// Result is one page of the combined event stream. Cursor is the total
// number of events in the stream so far; passing it back as since yields
// only what was appended in the meantime.
type Result struct {
	Cursor int     `json:"cursor"`
	Events []Event `json:"events"`
}

// FetchLogs returns the events strictly after since from the workspace's
// combined logs.jsonl + history.jsonl stream. The cursor is monotonic
// and stable: both files are append-only and every append stamps wall
// time in the one writing process, so the merged order of an existing
// prefix never changes and since=0 always replays the identical stream.
// Missing files are treated as empty; a torn trailing line is ignored
// until its newline arrives.
func FetchLogs(dir string, since int) (Result, error) {
	logEvents := readLogEvents(filepath.Join(dir, config.LogsFileName))
	histEvents := readHistoryEvents(filepath.Join(dir, config.HistoryFileName))

	merged := mergeEvents(logEvents, histEvents)
	cursor := len(merged)

	if since < 0 {
		since = 0
	}
	if since >= cursor {
		return Result{Cursor: cursor}, nil
	}
	return Result{Cursor: cursor, Events: merged[since:]}, nil
}

// mergeEvents interleaves the two per-file streams by timestamp. Each
// input is already in append order; on equal timestamps log events sort
// before history events, so the merge is deterministic.
func mergeEvents(logs, hist []Event) []Event {
	merged := make([]Event, 0, len(logs)+len(hist))
	i, j := 0, 0
	for i < len(logs) && j < len(hist) {
		if !eventTime(hist[j]).Before(eventTime(logs[i])) {
			merged = append(merged, logs[i])
			i++
		} else {
			merged = append(merged, hist[j])
			j++
		}
	}
	merged = append(merged, logs[i:]...)
	merged = append(merged, hist[j:]...)
	return merged
}

func eventTime(e Event) time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.TS)
	if err != nil {
		return time.Time{}
	}
	return t
}

func readLogEvents(path string) []Event {
	var events []Event
	for _, line := range completeLines(path) {
		var l models.LogLine
		if err := json.Unmarshal([]byte(line), &l); err != nil {
			continue
		}
		events = append(events, normalizeLogLine(l))
	}
	return events
}

func readHistoryEvents(path string) []Event {
	var events []Event
	for _, line := range completeLines(path) {
		var h models.HistoryEvent
		if err := json.Unmarshal([]byte(line), &h); err != nil {
			continue
		}
		events = append(events, normalizeHistoryEvent(h))
	}
	return events
}

// completeLines returns the newline-terminated lines of a file. The
// final fragment of a file that doesn't end in a newline is a write in
// progress (or a crash remnant) and is excluded.
func completeLines(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	text := string(data)
	if !strings.HasSuffix(text, "\n") {
		idx := strings.LastIndexByte(text, '\n')
		if idx < 0 {
			return nil
		}
		text = text[:idx+1]
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
