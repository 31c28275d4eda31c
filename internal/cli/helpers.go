package cli

import (
	"fmt"

	"github.com/agentfleet-io/agentfleet/internal/config"
	"github.com/agentfleet-io/agentfleet/internal/models"
	"github.com/agentfleet-io/agentfleet/internal/session"
	"github.com/agentfleet-io/agentfleet/internal/subagent"
)

// newManager builds an orchestrator over the on-disk config. The CLI is
// single-host and operates directly against the same state files the
// daemon uses.
func newManager() (*subagent.Manager, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	projects, err := config.LoadProjects()
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	m := subagent.NewManager()
	m.SetSettingsFn(func() *models.Settings { return settings })
	m.SetProjectsFn(func() *models.ProjectsIndex { return projects })
	return m, nil
}

// newSessionStore opens the global session store.
func newSessionStore() (*session.Store, error) {
	path, err := config.GlobalSessionsFile()
	if err != nil {
		return nil, err
	}
	return session.NewStore(path), nil
}
