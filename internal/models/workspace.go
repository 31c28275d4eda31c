package models

// CLI identifies which coding-assistant binary a subagent runs.
type CLI string

// Supported subagent CLIs.
const (
	CLICodex  CLI = "codex"
	CLIClaude CLI = "claude"
	CLIDroid  CLI = "droid"
	CLIGemini CLI = "gemini"
)

// Valid reports whether c is a known CLI.
func (c CLI) Valid() bool {
	switch c {
	case CLICodex, CLIClaude, CLIDroid, CLIGemini:
		return true
	}
	return false
}

// RunMode controls the git semantics of a workspace.
type RunMode string

// Run modes.
const (
	RunModeMain     RunMode = "main-run" // run directly in the project checkout
	RunModeWorktree RunMode = "worktree" // dedicated branch + git worktree
	RunModeNone     RunMode = "none"     // bare scratch directory
)

// Status is the derived state of a workspace.
type Status string

// Workspace statuses.
const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusReplied Status = "replied"
	StatusError   Status = "error"
)

// Outcome classifies how a subagent run ended.
type Outcome string

// Run outcomes.
const (
	OutcomeReplied     Outcome = "replied"
	OutcomeError       Outcome = "error"
	OutcomeInterrupted Outcome = "interrupted"
)

// RunState is the per-workspace state.json. It is owned exclusively by
// the orchestrator and mutated only via atomic replace while the
// workspace busy marker is held.
type RunState struct {
	SessionID     *string `json:"sessionId"`
	SupervisorPID int     `json:"supervisorPid"`
	StartedAt     string  `json:"startedAt"` // ISO 8601
	LastError     string  `json:"lastError"`
	CLI           CLI     `json:"cli"`
	RunMode       RunMode `json:"runMode"`
	WorktreePath  string  `json:"worktreePath,omitempty"`
	BaseBranch    string  `json:"baseBranch,omitempty"`
}

// Progress is the per-workspace progress.json, overwritten on each
// subprocess activity tick. Counters are monotonic within a run.
type Progress struct {
	LastActive string `json:"lastActive"` // ISO 8601
	ToolCalls  int    `json:"toolCalls"`
}

// History event types appended to history.jsonl.
const (
	HistoryWorkerFinished  = "worker.finished"
	HistoryWorkerInterrupt = "worker.interrupt"
)

// HistoryEvent is one structured line of history.jsonl.
type HistoryEvent struct {
	TS   string         `json:"ts"` // ISO 8601
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// LogLine is the envelope for one captured subprocess output line in
// logs.jsonl.
type LogLine struct {
	TS     string `json:"ts"` // ISO 8601
	Stream string `json:"stream"`
	Line   string `json:"line"`
}

// Log streams.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)
