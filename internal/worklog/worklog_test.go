package worklog

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/agentfleet-io/agentfleet/internal/models"
)

func newTestWriter(t *testing.T) (*Writer, *time.Time) {
	t.Helper()
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w := NewWriter(t.TempDir())
	w.now = func() time.Time { return current }
	return w, &current
}

func TestFetchLogsRoundTrip(t *testing.T) {
	w, current := newTestWriter(t)

	steps := []func() error{
		func() error { return w.AppendLog(models.StreamStdout, `{"type":"assistant","text":"hello"}`) },
		func() error { return w.AppendLog(models.StreamStderr, "warning: something") },
		func() error {
			return w.AppendHistory(models.HistoryWorkerFinished, map[string]any{"runId": "r1", "outcome": "replied"})
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("append: %v", err)
		}
		*current = current.Add(time.Second)
	}

	res, err := FetchLogs(w.Dir(), 0)
	if err != nil {
		t.Fatalf("FetchLogs() error: %v", err)
	}
	if res.Cursor != 3 {
		t.Fatalf("Cursor = %d, want 3", res.Cursor)
	}

	wantKinds := []Kind{KindAssistant, KindStderr, KindSession}
	for i, e := range res.Events {
		if e.Kind != wantKinds[i] {
			t.Errorf("event %d kind = %s, want %s", i, e.Kind, wantKinds[i])
		}
	}
	if res.Events[2].Data["outcome"] != "replied" {
		t.Errorf("history event lost data: %v", res.Events[2].Data)
	}
}

func TestFetchLogsSinceSemantics(t *testing.T) {
	w, current := newTestWriter(t)

	if err := w.AppendLog(models.StreamStdout, "first"); err != nil {
		t.Fatal(err)
	}
	*current = current.Add(time.Second)

	res, _ := FetchLogs(w.Dir(), 0)
	if res.Cursor != 1 || len(res.Events) != 1 {
		t.Fatalf("initial fetch: cursor=%d events=%d", res.Cursor, len(res.Events))
	}

	// No new output: empty events, unchanged cursor.
	again, _ := FetchLogs(w.Dir(), res.Cursor)
	if again.Cursor != res.Cursor || len(again.Events) != 0 {
		t.Errorf("no-new-output fetch: cursor=%d events=%d", again.Cursor, len(again.Events))
	}

	if err := w.AppendLog(models.StreamStdout, "second"); err != nil {
		t.Fatal(err)
	}
	after, _ := FetchLogs(w.Dir(), res.Cursor)
	if after.Cursor != 2 || len(after.Events) != 1 {
		t.Fatalf("incremental fetch: cursor=%d events=%d", after.Cursor, len(after.Events))
	}
	if after.Events[0].Text != "second" {
		t.Errorf("incremental event text = %q, want %q", after.Events[0].Text, "second")
	}
}

func TestFetchLogsStablePrefix(t *testing.T) {
	w, current := newTestWriter(t)

	for i := 0; i < 5; i++ {
		if err := w.AppendLog(models.StreamStdout, "line"); err != nil {
			t.Fatal(err)
		}
		if i == 2 {
			if err := w.AppendHistory(models.HistoryWorkerInterrupt, nil); err != nil {
				t.Fatal(err)
			}
		}
		*current = current.Add(time.Second)
	}

	first, _ := FetchLogs(w.Dir(), 0)
	second, _ := FetchLogs(w.Dir(), 0)
	if !reflect.DeepEqual(first, second) {
		t.Error("two since=0 fetches returned different streams")
	}
}

func TestFetchLogsIgnoresTornTrailingLine(t *testing.T) {
	w, _ := newTestWriter(t)

	if err := w.AppendLog(models.StreamStdout, "complete"); err != nil {
		t.Fatal(err)
	}

	// Simulate a concurrent writer mid-line: no trailing newline yet.
	logsPath := filepath.Join(w.Dir(), "logs.jsonl")
	f, err := os.OpenFile(logsPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"ts":"2025-06-01T12:00:05Z","stream":"stdout","line":"par`); err != nil {
		t.Fatal(err)
	}
	f.Close()

	res, err := FetchLogs(w.Dir(), 0)
	if err != nil {
		t.Fatalf("FetchLogs() error: %v", err)
	}
	if res.Cursor != 1 {
		t.Errorf("Cursor = %d, want 1 (torn line must not count)", res.Cursor)
	}

	// Complete the line; it becomes visible.
	f, _ = os.OpenFile(logsPath, os.O_APPEND|os.O_WRONLY, 0644)
	f.WriteString("tial\"}\n")
	f.Close()

	res, _ = FetchLogs(w.Dir(), 0)
	if res.Cursor != 2 {
		t.Errorf("Cursor after completion = %d, want 2", res.Cursor)
	}
}

func TestFetchLogsMissingFiles(t *testing.T) {
	res, err := FetchLogs(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("FetchLogs() on empty workspace: %v", err)
	}
	if res.Cursor != 0 || len(res.Events) != 0 {
		t.Errorf("empty workspace: cursor=%d events=%d", res.Cursor, len(res.Events))
	}
}

func TestNormalizeLogLine(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		line   string
		want   Kind
	}{
		{"stderr passthrough", models.StreamStderr, "boom", KindStderr},
		{"claude assistant", models.StreamStdout, `{"type":"assistant","message":"hi"}`, KindAssistant},
		{"claude result", models.StreamStdout, `{"type":"result","text":"done"}`, KindAssistant},
		{"claude system init", models.StreamStdout, `{"type":"system","subtype":"init","session_id":"abc"}`, KindSession},
		{"codex thread started", models.StreamStdout, `{"type":"thread.started","thread_id":"t1"}`, KindSession},
		{"codex item completed", models.StreamStdout, `{"type":"item.completed","item":{}}`, KindToolOutput},
		{"tool use", models.StreamStdout, `{"type":"tool_use","name":"bash"}`, KindToolCall},
		{"unknown structured", models.StreamStdout, `{"type":"telemetry"}`, KindSkip},
		{"plain text", models.StreamStdout, "Working on it...", KindAssistant},
		{"diff text", models.StreamStdout, "diff --git a/x b/x", KindDiff},
		{"blank", models.StreamStdout, "   ", KindSkip},
		{"malformed json", models.StreamStdout, `{"type":`, KindAssistant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLogLine(models.LogLine{TS: "2025-06-01T12:00:00Z", Stream: tt.stream, Line: tt.line})
			if got.Kind != tt.want {
				t.Errorf("normalizeLogLine(%q) kind = %s, want %s", tt.line, got.Kind, tt.want)
			}
		})
	}
}

func TestMergeTieBreaksLogsBeforeHistory(t *testing.T) {
	ts := "2025-06-01T12:00:00Z"
	logs := []Event{{TS: ts, Kind: KindAssistant, Text: "a"}}
	hist := []Event{{TS: ts, Kind: KindSession}}

	merged := mergeEvents(logs, hist)
	if len(merged) != 2 || merged[0].Kind != KindAssistant || merged[1].Kind != KindSession {
		t.Errorf("tie-break order wrong: %+v", merged)
	}
}
