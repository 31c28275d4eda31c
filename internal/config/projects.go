package config

import (
	"github.com/agentfleet-io/agentfleet/internal/models"
)

// LoadProjects loads the global projects index from ~/.agentfleet/projects.yaml.
// If the file doesn't exist, returns an empty index.
func LoadProjects() (*models.ProjectsIndex, error) {
	path, err := GlobalProjectsFile()
	if err != nil {
		return nil, err
	}
	return LoadYAMLOrDefault(path, models.NewProjectsIndex)
}

// SaveProjects saves the global projects index to ~/.agentfleet/projects.yaml.
func SaveProjects(idx *models.ProjectsIndex) error {
	path, err := GlobalProjectsFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, idx)
}
