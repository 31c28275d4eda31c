package subagent

import (
	"os"
	"path/filepath"

	"github.com/agentfleet-io/agentfleet/internal/config"
	"github.com/agentfleet-io/agentfleet/internal/models"
)

// loadState reads a workspace's state.json. A missing file surfaces as
// os.ErrNotExist; callers that need a typed error wrap it in
// NotFoundError themselves.
func loadState(dir string) (*models.RunState, error) {
	var st models.RunState
	if err := config.LoadJSON(filepath.Join(dir, config.StateFileName), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// saveState replaces a workspace's state.json atomically.
func saveState(dir string, st *models.RunState) error {
	return config.SaveJSONAtomic(filepath.Join(dir, config.StateFileName), st)
}

// mutateState applies fn to the current state.json and writes the
// result back. The read-modify-write is safe because each workspace's
// state is only mutated by its own supervisor and by manager calls
// serialized on the manager lock.
func mutateState(dir string, fn func(*models.RunState)) error {
	st, err := loadState(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		st = &models.RunState{}
	}
	fn(st)
	return saveState(dir, st)
}
