package subagent

import (
	"os/exec"
	"strings"
)

// git runs one git command in repoPath and returns combined output.
func git(repoPath string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = repoPath
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// refExists reports whether a ref resolves in the repository.
func refExists(repoPath, ref string) bool {
	_, err := git(repoPath, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	return err == nil
}

// branchExists reports whether a local branch exists.
func branchExists(repoPath, branch string) bool {
	_, err := git(repoPath, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// detectDefaultBranch returns the repository's default branch, falling
// back to main.
func detectDefaultBranch(repoPath string) string {
	if out, err := git(repoPath, "symbolic-ref", "--short", "refs/remotes/origin/HEAD"); err == nil {
		return strings.TrimPrefix(out, "origin/")
	}
	if out, err := git(repoPath, "symbolic-ref", "--short", "HEAD"); err == nil && out != "" {
		return out
	}
	return "main"
}

// addWorktree creates branch from baseRef and checks it out as a
// worktree at worktreePath. The branch must not already exist and the
// base ref must resolve; both conditions fail fast with a GitError
// before git touches the filesystem.
func addWorktree(repoPath, worktreePath, branch, baseRef string) error {
	if branchExists(repoPath, branch) {
		return &GitError{Op: "worktree add", Output: "branch " + branch + " already exists"}
	}
	if !refExists(repoPath, baseRef) {
		return &GitError{Op: "worktree add", Output: "base ref " + baseRef + " not found"}
	}

	// Drop stale tracking from manually deleted worktree directories.
	_, _ = git(repoPath, "worktree", "prune")

	if out, err := git(repoPath, "worktree", "add", "-b", branch, worktreePath, baseRef); err != nil {
		return &GitError{Op: "worktree add", Output: out, Err: err}
	}
	return nil
}

// removeWorktree unregisters the worktree and force-deletes its branch.
// Removal failures on the worktree itself are tolerated (the caller
// removes the directory anyway); the prune keeps git's bookkeeping
// consistent either way.
func removeWorktree(repoPath, worktreePath, branch string) error {
	// --force handles untracked files left behind by builds.
	if out, err := git(repoPath, "worktree", "remove", "--force", worktreePath); err != nil {
		_, _ = git(repoPath, "worktree", "prune")
		_ = out
	}

	if out, err := git(repoPath, "branch", "-D", branch); err != nil {
		return &GitError{Op: "branch -D", Output: out, Err: err}
	}
	return nil
}
