// Package config handles configuration loading, saving, and path management.
package config

import (
	"os"
	"path/filepath"
)

const (
	// GlobalDirName is the name of the global agentfleet directory.
	GlobalDirName = ".agentfleet"

	// WorkspacesDirName is the directory under the projects root that
	// holds subagent workspaces.
	WorkspacesDirName = ".workspaces"

	// ArchivedDirName is the namespace under the workspaces directory
	// that holds archived workspaces.
	ArchivedDirName = ".archived"

	// SpoolDirName is the directory under the global dir where the CLI
	// drops spawn requests for the daemon to execute.
	SpoolDirName = "spool"
)

// Spool file suffixes. A request is consumed by the daemon, which
// answers with a response file under the same id.
const (
	SpoolRequestSuffix  = ".req.json"
	SpoolResponseSuffix = ".res.json"
)

// Global file names.
const (
	DaemonFileName   = "daemon.yaml"
	ProjectsFileName = "projects.yaml"
	SettingsFileName = "settings.yaml"
	SessionsFileName = "sessions.json"
)

// Per-workspace file names. These are a compatibility surface: migration
// tooling reads them by name, so they must not change.
const (
	StateFileName    = "state.json"
	ProgressFileName = "progress.json"
	HistoryFileName  = "history.jsonl"
	LogsFileName     = "logs.jsonl"
)

// GlobalDir returns the path to the global agentfleet directory (~/.agentfleet/).
func GlobalDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, GlobalDirName), nil
}

// GlobalDaemonFile returns the path to the daemon.yaml file.
func GlobalDaemonFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DaemonFileName), nil
}

// GlobalProjectsFile returns the path to the projects.yaml file.
func GlobalProjectsFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ProjectsFileName), nil
}

// GlobalSettingsFile returns the path to the settings.yaml file.
func GlobalSettingsFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFileName), nil
}

// GlobalSessionsFile returns the path to the sessions.json session store.
func GlobalSessionsFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SessionsFileName), nil
}

// GlobalSpoolDir returns the path to the spawn-request spool directory.
func GlobalSpoolDir() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SpoolDirName), nil
}

// WorkspacesDir returns the workspaces directory under a projects root.
func WorkspacesDir(projectsRoot string) string {
	return filepath.Join(projectsRoot, WorkspacesDirName)
}

// WorkspaceDir returns the directory for one subagent workspace.
func WorkspaceDir(projectsRoot, projectID, slug string) string {
	return filepath.Join(WorkspacesDir(projectsRoot), projectID, slug)
}

// ArchivedWorkspaceDir returns the archived location for a workspace.
func ArchivedWorkspaceDir(projectsRoot, projectID, slug string) string {
	return filepath.Join(WorkspacesDir(projectsRoot), ArchivedDirName, projectID, slug)
}

// EnsureGlobalDir creates the global agentfleet directory if it doesn't exist.
func EnsureGlobalDir() error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
