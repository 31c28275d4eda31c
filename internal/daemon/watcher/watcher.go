// Package watcher handles file system watching for the daemon.
package watcher

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentfleet-io/agentfleet/internal/config"
)

// EventType represents the type of file system event.
type EventType int

// Event types for file system changes.
const (
	EventSettingsChanged EventType = iota
	EventProjectsIndexChanged
	EventWorkspaceChanged
	EventSpawnRequest
)

// Event represents a file system change event.
type Event struct {
	Type      EventType
	ProjectID string
	Slug      string
	Path      string
}

// Watcher watches the global config directory and workspace trees so
// pollers and notifiers can refresh without busy-reading disk.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	eventsChan chan Event
	done       chan struct{}

	mu            sync.RWMutex
	workspacesDir string

	debounce   map[string]*time.Timer
	debounceMu sync.Mutex
}

// New creates a new file system watcher.
func New() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:  fsWatcher,
		eventsChan: make(chan Event, 100),
		done:       make(chan struct{}),
		debounce:   make(map[string]*time.Timer),
	}, nil
}

// Events returns the channel for receiving events.
func (w *Watcher) Events() <-chan Event {
	return w.eventsChan
}

// Start watches the global config directory and the spawn spool, then
// begins processing.
func (w *Watcher) Start() error {
	globalDir, err := config.GlobalDir()
	if err != nil {
		return err
	}
	if err := w.fsWatcher.Add(globalDir); err != nil {
		log.Printf("Warning: failed to watch global dir: %v", err)
	}

	// fsnotify is not recursive; the spool subdirectory needs its own
	// watch.
	if spoolDir, err := config.GlobalSpoolDir(); err == nil {
		if err := os.MkdirAll(spoolDir, 0755); err == nil {
			if err := w.fsWatcher.Add(spoolDir); err != nil {
				log.Printf("Warning: failed to watch spool dir: %v", err)
			}
		}
	}

	go w.processEvents()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.fsWatcher.Close()
}

// WatchWorkspaces watches the workspaces tree under a projects root:
// the top directory, every existing project directory, and every
// existing workspace directory. Directories created later are added as
// their create events arrive.
func (w *Watcher) WatchWorkspaces(projectsRoot string) error {
	dir := config.WorkspacesDir(projectsRoot)

	w.mu.Lock()
	w.workspacesDir = dir
	w.mu.Unlock()

	if err := w.fsWatcher.Add(dir); err != nil {
		// The tree appears on first spawn.
		log.Printf("Warning: failed to watch workspaces dir: %v", err)
		return nil
	}

	projects, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, p := range projects {
		if !p.IsDir() || p.Name() == config.ArchivedDirName {
			continue
		}
		projDir := filepath.Join(dir, p.Name())
		_ = w.fsWatcher.Add(projDir)
		workspaces, err := os.ReadDir(projDir)
		if err != nil {
			continue
		}
		for _, ws := range workspaces {
			if ws.IsDir() {
				_ = w.fsWatcher.Add(filepath.Join(projDir, ws.Name()))
			}
		}
	}

	log.Printf("[watcher] watching workspaces: %s", dir)
	return nil
}

// WatchWorkspace adds one workspace directory so its state and log
// files report changes.
func (w *Watcher) WatchWorkspace(projectsRoot, projectID, slug string) error {
	return w.fsWatcher.Add(config.WorkspaceDir(projectsRoot, projectID, slug))
}

// processEvents processes file system events.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

// handleEvent processes a single file system event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Accept write, create, and rename events. Rename is critical:
	// atomic writes (write tmp -> rename to target) produce Rename
	// events on the target file.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	// A new project or workspace directory needs its own watch before
	// its files can report changes.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.maybeWatchNewDir(event.Name)
			return
		}
	}

	w.debounceEvent(event.Name, func() {
		w.processFileChange(event.Name)
	})
}

// maybeWatchNewDir adds a watch for a just-created project or workspace
// directory under the workspaces tree.
func (w *Watcher) maybeWatchNewDir(path string) {
	w.mu.RLock()
	workspacesDir := w.workspacesDir
	w.mu.RUnlock()
	if workspacesDir == "" {
		return
	}

	rel, err := filepath.Rel(workspacesDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) > 2 || parts[0] == config.ArchivedDirName {
		return
	}
	_ = w.fsWatcher.Add(path)
}

// debounceEvent debounces events for the same path.
func (w *Watcher) debounceEvent(path string, fn func()) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(100*time.Millisecond, func() {
		w.debounceMu.Lock()
		delete(w.debounce, path)
		w.debounceMu.Unlock()
		fn()
	})
}

// processFileChange handles a debounced file change.
func (w *Watcher) processFileChange(path string) {
	filename := filepath.Base(path)

	switch filename {
	case config.SettingsFileName:
		w.eventsChan <- Event{Type: EventSettingsChanged, Path: path}
		return
	case config.ProjectsFileName:
		w.eventsChan <- Event{Type: EventProjectsIndexChanged, Path: path}
		return
	}

	if filepath.Base(filepath.Dir(path)) == config.SpoolDirName &&
		strings.HasSuffix(filename, config.SpoolRequestSuffix) {
		w.eventsChan <- Event{Type: EventSpawnRequest, Path: path}
		return
	}

	w.mu.RLock()
	workspacesDir := w.workspacesDir
	w.mu.RUnlock()
	if workspacesDir == "" {
		return
	}

	rel, err := filepath.Rel(workspacesDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}

	// {projectID}/{slug}/state.json etc.
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 || parts[0] == config.ArchivedDirName {
		return
	}
	w.eventsChan <- Event{
		Type:      EventWorkspaceChanged,
		ProjectID: parts[0],
		Slug:      parts[1],
		Path:      path,
	}
}
