package subagent

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/agentfleet-io/agentfleet/internal/models"
)

// cliSpec describes how to find and drive one subagent CLI. Resolution
// candidates are tried in order: an explicit settings path, then PATH,
// then each well-known directory.
type cliSpec struct {
	binary   string
	homeRel  []string // candidate paths relative to the user's home
	sysPaths []string // absolute candidates (mac package managers etc.)
}

var cliTable = map[models.CLI]cliSpec{
	models.CLIClaude: {
		binary:  "claude",
		homeRel: []string{".claude/local/claude", ".local/bin/claude"},
	},
	models.CLICodex: {
		binary:  "codex",
		homeRel: []string{".codex/bin/codex", ".local/bin/codex"},
	},
	models.CLIDroid: {
		binary:  "droid",
		homeRel: []string{".factory/bin/droid", ".local/bin/droid"},
	},
	models.CLIGemini: {
		binary:  "gemini",
		homeRel: []string{".gemini/bin/gemini", ".local/bin/gemini"},
	},
}

// ResolveBinary finds the executable for a CLI.
// Check order: settings path -> exec.LookPath -> well-known directories.
func ResolveBinary(cli models.CLI, settings *models.Settings) (string, error) {
	spec, ok := cliTable[cli]
	if !ok {
		return "", &CliNotFoundError{CLI: string(cli)}
	}

	if settings != nil {
		if cfg, ok := settings.CLIs[cli]; ok && cfg != nil && cfg.Path != "" {
			if _, err := os.Stat(cfg.Path); err == nil {
				return cfg.Path, nil
			}
		}
	}

	if path, err := exec.LookPath(spec.binary); err == nil {
		return path, nil
	}

	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		for _, rel := range spec.homeRel {
			candidates = append(candidates, filepath.Join(home, rel))
		}
	}
	candidates = append(candidates, spec.sysPaths...)
	if runtime.GOOS == "darwin" {
		candidates = append(candidates,
			filepath.Join("/opt/homebrew/bin", spec.binary),
			filepath.Join("/usr/local/bin", spec.binary),
		)
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", &CliNotFoundError{CLI: string(cli)}
}

// buildArgs assembles the argument vector for one run. When resuming,
// the prior session id is passed with the tool's resume syntax instead
// of starting a fresh session.
func buildArgs(cli models.CLI, prompt, sessionID string, resume bool) []string {
	switch cli {
	case models.CLIClaude:
		args := []string{"-p", "--output-format", "stream-json", "--verbose"}
		if resume && sessionID != "" {
			args = append(args, "--resume", sessionID)
		}
		return append(args, prompt)
	case models.CLICodex:
		if resume && sessionID != "" {
			return []string{"exec", "resume", sessionID, "--json", prompt}
		}
		return []string{"exec", "--json", prompt}
	case models.CLIDroid:
		if resume && sessionID != "" {
			return []string{"exec", "--session", sessionID, prompt}
		}
		return []string{"exec", prompt}
	case models.CLIGemini:
		args := []string{"--output-format", "json"}
		if resume && sessionID != "" {
			args = append(args, "--resume", sessionID)
		}
		return append(args, "--prompt", prompt)
	}
	return nil
}

// extractSessionID scans one stdout line for the tool's "session
// started" marker and returns the subprocess's own session id, or "".
func extractSessionID(cli models.CLI, line string) string {
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		return ""
	}

	typ, _ := payload["type"].(string)
	switch cli {
	case models.CLIClaude:
		// {"type":"system","subtype":"init","session_id":"..."}
		if id, ok := payload["session_id"].(string); ok && typ == "system" {
			return id
		}
	case models.CLICodex:
		// Older CLIs: {"type":"thread.started","thread_id":"..."}
		if typ == "thread.started" {
			if id, ok := payload["thread_id"].(string); ok {
				return id
			}
		}
		// Newer CLIs: {"type":"session_meta","payload":{"id":"..."}}
		if typ == "session_meta" {
			if inner, ok := payload["payload"].(map[string]any); ok {
				if id, ok := inner["id"].(string); ok {
					return id
				}
			}
			if id, ok := payload["id"].(string); ok {
				return id
			}
		}
	case models.CLIDroid, models.CLIGemini:
		for _, key := range []string{"sessionId", "session_id"} {
			if id, ok := payload[key].(string); ok && id != "" {
				return id
			}
		}
	}
	return ""
}
