package models

// ProjectEntry represents an entry in the global projects.yaml index.
type ProjectEntry struct {
	ProjectID     string `yaml:"project_id"`
	Path          string `yaml:"path"`           // repository checkout on disk
	DefaultBranch string `yaml:"default_branch"` // base for worktree spawns when unset per-call
}

// ProjectsIndex represents the global projects.yaml file.
type ProjectsIndex struct {
	Version  int            `yaml:"version"`
	Projects []ProjectEntry `yaml:"projects"`
}

// NewProjectsIndex creates a new empty projects index.
func NewProjectsIndex() *ProjectsIndex {
	return &ProjectsIndex{
		Version:  1,
		Projects: []ProjectEntry{},
	}
}

// AddProject adds a project to the index, replacing an existing entry
// with the same ID.
func (idx *ProjectsIndex) AddProject(entry ProjectEntry) {
	for i := range idx.Projects {
		if idx.Projects[i].ProjectID == entry.ProjectID {
			idx.Projects[i] = entry
			return
		}
	}
	idx.Projects = append(idx.Projects, entry)
}

// RemoveProject removes a project from the index by ID.
func (idx *ProjectsIndex) RemoveProject(projectID string) bool {
	for i, p := range idx.Projects {
		if p.ProjectID == projectID {
			idx.Projects = append(idx.Projects[:i], idx.Projects[i+1:]...)
			return true
		}
	}
	return false
}

// FindProject finds a project by ID in the index.
func (idx *ProjectsIndex) FindProject(projectID string) *ProjectEntry {
	for i := range idx.Projects {
		if idx.Projects[i].ProjectID == projectID {
			return &idx.Projects[i]
		}
	}
	return nil
}
