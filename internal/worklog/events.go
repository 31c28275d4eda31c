package worklog

import (
	"encoding/json"
	"strings"

	"github.com/agentfleet-io/agentfleet/internal/models"
)

// Kind classifies one event in the fetched stream.
type Kind string

// Event kinds.
const (
	KindUser       Kind = "user"
	KindAssistant  Kind = "assistant"
	KindToolCall   Kind = "tool_call"
	KindToolOutput Kind = "tool_output"
	KindDiff       Kind = "diff"
	KindStderr     Kind = "stderr"
	KindSession    Kind = "session"
	KindSkip       Kind = "skip"
)

// Event is one entry of the combined workspace event stream.
type Event struct {
	TS   string         `json:"ts"`
	Kind Kind           `json:"kind"`
	Text string         `json:"text,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// Classify returns the stream kind a captured output line would be
// surfaced as, without building the full event. The supervisor uses it
// to count tool calls as lines arrive.
func Classify(stream, line string) Kind {
	return normalizeLogLine(models.LogLine{Stream: stream, Line: line}).Kind
}

// normalizeLogLine converts one captured subprocess output line into a
// stream event. CLIs that emit JSONL (codex exec --json, claude
// --output-format stream-json, gemini --output-format json) are
// classified by their type field; plain-text output is surfaced as
// assistant text; structured lines the renderer has no use for become
// skip events so the cursor still advances past them.
func normalizeLogLine(l models.LogLine) Event {
	if l.Stream == models.StreamStderr {
		return Event{TS: l.TS, Kind: KindStderr, Text: l.Line}
	}

	trimmed := strings.TrimSpace(l.Line)
	if trimmed == "" {
		return Event{TS: l.TS, Kind: KindSkip}
	}

	if !strings.HasPrefix(trimmed, "{") {
		if isDiffText(trimmed) {
			return Event{TS: l.TS, Kind: KindDiff, Text: l.Line}
		}
		return Event{TS: l.TS, Kind: KindAssistant, Text: l.Line}
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return Event{TS: l.TS, Kind: KindAssistant, Text: l.Line}
	}

	typ, _ := payload["type"].(string)
	kind := kindForPayloadType(typ)
	return Event{TS: l.TS, Kind: kind, Text: payloadText(payload), Data: payload}
}

// kindForPayloadType maps CLI JSONL event types onto stream kinds. The
// table covers the claude stream-json and codex exec --json vocabularies
// plus the gemini json output; unknown types are skipped rather than
// guessed.
func kindForPayloadType(typ string) Kind {
	switch typ {
	case "user":
		return KindUser
	case "assistant", "message", "result", "agent_message", "item.completed.agent_message":
		return KindAssistant
	case "tool_use", "tool_call", "command_execution", "item.started":
		return KindToolCall
	case "tool_result", "tool_output", "command_execution_output", "item.completed":
		return KindToolOutput
	case "diff", "file_change", "patch_apply":
		return KindDiff
	case "system", "session_meta", "thread.started", "session", "init":
		return KindSession
	default:
		return KindSkip
	}
}

// normalizeHistoryEvent surfaces a history.jsonl lifecycle record
// (worker.finished, worker.interrupt) as a session event.
func normalizeHistoryEvent(h models.HistoryEvent) Event {
	data := map[string]any{"type": h.Type}
	for k, v := range h.Data {
		data[k] = v
	}
	return Event{TS: h.TS, Kind: KindSession, Data: data}
}

// payloadText pulls a best-effort display string out of a structured
// payload. Nested message content is left to the renderer.
func payloadText(payload map[string]any) string {
	for _, key := range []string{"text", "content", "message", "output"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func isDiffText(line string) bool {
	return strings.HasPrefix(line, "diff --git") ||
		strings.HasPrefix(line, "+++ ") ||
		strings.HasPrefix(line, "--- ") ||
		strings.HasPrefix(line, "@@ ")
}
