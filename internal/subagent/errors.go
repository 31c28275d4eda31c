package subagent

import "fmt"

// CliNotFoundError means the requested CLI binary could not be resolved
// from PATH or any well-known install directory. Spawn fails before any
// process starts and no workspace state is written.
type CliNotFoundError struct {
	CLI string
}

func (e *CliNotFoundError) Error() string {
	return fmt.Sprintf("%s binary not found in PATH or known install locations", e.CLI)
}

// GitError means a worktree or branch operation failed. The workspace
// directory is not left half-created.
type GitError struct {
	Op     string
	Output string
	Err    error
}

func (e *GitError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("git %s failed: %s", e.Op, e.Output)
	}
	return fmt.Sprintf("git %s failed: %v", e.Op, e.Err)
}

func (e *GitError) Unwrap() error { return e.Err }

// NotFoundError means the operation targets a slug with no workspace state.
type NotFoundError struct {
	ProjectID string
	Slug      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no workspace state for %s/%s", e.ProjectID, e.Slug)
}

// ConcurrentRunError means a spawn was rejected because a subprocess is
// already live in the workspace. At most one subprocess runs per
// workspace; callers retry after the current run finishes.
type ConcurrentRunError struct {
	ProjectID string
	Slug      string
	PID       int
}

func (e *ConcurrentRunError) Error() string {
	return fmt.Sprintf("workspace %s/%s already has a running subagent (pid %d)", e.ProjectID, e.Slug, e.PID)
}
