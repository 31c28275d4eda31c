// Package daemon wires the session store, subagent orchestrator, and
// heartbeat scheduler into the long-running gateway process.
package daemon

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/agentfleet-io/agentfleet/internal/config"
	"github.com/agentfleet-io/agentfleet/internal/daemon/spool"
	"github.com/agentfleet-io/agentfleet/internal/daemon/watcher"
	"github.com/agentfleet-io/agentfleet/internal/heartbeat"
	"github.com/agentfleet-io/agentfleet/internal/models"
	"github.com/agentfleet-io/agentfleet/internal/session"
	"github.com/agentfleet-io/agentfleet/internal/subagent"
)

// Daemon owns the gateway's three core subsystems and keeps its cached
// config in sync with disk via the file watcher.
type Daemon struct {
	mu       sync.RWMutex
	settings *models.Settings
	projects *models.ProjectsIndex

	store     *session.Store
	manager   *subagent.Manager
	scheduler *heartbeat.Scheduler
	watch     *watcher.Watcher

	wsMu     sync.Mutex
	wsStatus map[string]models.Status

	done chan struct{}
}

// New loads config and wires the subsystems together. The heartbeat
// turn runner and alert delivery default to placeholders; the embedding
// facade replaces them via SetRunTurnFn/SetDeliverFn before Start.
func New() (*Daemon, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	projects, err := config.LoadProjects()
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	sessionsPath, err := config.GlobalSessionsFile()
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		settings:  settings,
		projects:  projects,
		store:     session.NewStore(sessionsPath),
		manager:   subagent.NewManager(),
		scheduler: heartbeat.NewScheduler(),
		wsStatus:  make(map[string]models.Status),
		done:      make(chan struct{}),
	}

	d.manager.SetSettingsFn(d.Settings)
	d.manager.SetProjectsFn(d.Projects)

	d.scheduler.SetSettingsFn(d.Settings)
	d.scheduler.SetRunTurnFn(func(agentID, _ string) (string, error) {
		return "", fmt.Errorf("no turn runner configured for agent %s", agentID)
	})
	d.scheduler.SetDeliverFn(func(agentID, channel, text string) error {
		log.Printf("[alert] %s -> %s: %s", agentID, channel, text)
		return nil
	})
	d.scheduler.SetIsStreamingFn(func(string) bool { return false })
	d.scheduler.SetSessionFns(
		func(agentID string) (int64, bool) {
			return d.store.PeekUpdatedAt(agentID, d.sessionKeyFor(agentID))
		},
		func(agentID string, updatedAt int64) {
			if err := d.store.RestoreUpdatedAt(agentID, d.sessionKeyFor(agentID), updatedAt); err != nil {
				log.Printf("failed to restore session clock for %s: %v", agentID, err)
			}
		},
	)

	return d, nil
}

// sessionKeyFor maps an agent to its lead session key: the delivery
// channel doubles as the session key so heartbeats and user turns on
// the same channel share one session.
func (d *Daemon) sessionKeyFor(agentID string) string {
	if cfg := d.Settings().Agents[agentID]; cfg != nil && cfg.Channel != "" {
		return cfg.Channel
	}
	return "default"
}

// Settings returns the current cached settings.
func (d *Daemon) Settings() *models.Settings {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.settings
}

// Projects returns the current cached projects index.
func (d *Daemon) Projects() *models.ProjectsIndex {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.projects
}

// Store returns the session store.
func (d *Daemon) Store() *session.Store { return d.store }

// Manager returns the subagent orchestrator.
func (d *Daemon) Manager() *subagent.Manager { return d.manager }

// Scheduler returns the heartbeat scheduler.
func (d *Daemon) Scheduler() *heartbeat.Scheduler { return d.scheduler }

// SetRunTurnFn replaces the heartbeat turn runner.
func (d *Daemon) SetRunTurnFn(fn func(agentID, prompt string) (string, error)) {
	d.scheduler.SetRunTurnFn(fn)
}

// SetDeliverFn replaces the heartbeat alert delivery operation.
func (d *Daemon) SetDeliverFn(fn func(agentID, channel, text string) error) {
	d.scheduler.SetDeliverFn(fn)
}

// Start records the daemon identity, begins watching config and
// workspace files, and arms heartbeats for every configured agent.
func (d *Daemon) Start() error {
	if err := config.EnsureGlobalDir(); err != nil {
		return err
	}

	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return err
	}
	if running {
		return fmt.Errorf("daemon already running (pid %d)", info.PID)
	}

	if err := config.SaveDaemonInfo(models.NewDaemonInfo(os.Getpid())); err != nil {
		return err
	}

	w, err := watcher.New()
	if err != nil {
		return err
	}
	d.watch = w
	if err := w.Start(); err != nil {
		return err
	}
	if root, err := config.ProjectsRoot(d.Settings()); err == nil {
		_ = w.WatchWorkspaces(root)
	}
	go d.processWatchEvents()

	// Requests submitted while no daemon was running are still in the
	// spool; execute them now.
	d.drainSpool()

	started := d.scheduler.StartAll()
	log.Printf("daemon started pid=%d heartbeats=%v", os.Getpid(), started)
	return nil
}

// drainSpool executes spawn requests left over from before this daemon
// started and drops stale response files nobody collected.
func (d *Daemon) drainSpool() {
	spool.CleanupResponses(time.Hour)
	pending, err := spool.Pending()
	if err != nil {
		log.Printf("failed to scan spool: %v", err)
		return
	}
	for _, path := range pending {
		d.handleSpawnRequest(path)
	}
}

// handleSpawnRequest executes one spooled spawn. The request file is
// consumed up front so a crash mid-spawn cannot replay it, and the
// outcome (workspace info or error) is written back for the submitting
// CLI. The subprocess is supervised by this process, so it outlives the
// CLI that asked for it.
func (d *Daemon) handleSpawnRequest(path string) {
	req, err := spool.ReadRequest(path)
	if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
		log.Printf("failed to consume spool request %s: %v", path, removeErr)
	}
	if err != nil {
		log.Printf("malformed spool request %s: %v", path, err)
		return
	}

	resp := spool.Response{ID: req.ID}
	info, err := d.manager.Spawn(req.Options)
	if err != nil {
		resp.Error = err.Error()
		log.Printf("spool spawn %s/%s failed: %v", req.Options.ProjectID, req.Options.Slug, err)
	} else {
		resp.Info = info
	}
	if err := spool.WriteResponse(resp); err != nil {
		log.Printf("failed to write spool response %s: %v", req.ID, err)
	}
}

// Stop disarms timers, stops the watcher, and removes the daemon info
// file.
func (d *Daemon) Stop() {
	close(d.done)
	d.scheduler.StopAll()
	if d.watch != nil {
		d.watch.Stop()
	}
	if err := config.RemoveDaemonInfo(); err != nil {
		log.Printf("failed to remove daemon info: %v", err)
	}
	log.Printf("daemon stopped")
}

// processWatchEvents reloads cached config when its files change on
// disk.
func (d *Daemon) processWatchEvents() {
	for {
		select {
		case <-d.done:
			return
		case ev, ok := <-d.watch.Events():
			if !ok {
				return
			}
			switch ev.Type {
			case watcher.EventSettingsChanged:
				d.reloadSettings()
			case watcher.EventProjectsIndexChanged:
				d.reloadProjects()
			case watcher.EventSpawnRequest:
				go d.handleSpawnRequest(ev.Path)
			case watcher.EventWorkspaceChanged:
				d.handleWorkspaceChange(ev)
			}
		}
	}
}

func (d *Daemon) reloadSettings() {
	settings, err := config.LoadSettings()
	if err != nil {
		log.Printf("failed to reload settings: %v", err)
		return
	}
	d.mu.Lock()
	d.settings = settings
	d.mu.Unlock()
	log.Printf("settings reloaded")

	d.resyncHeartbeats()
}

// resyncHeartbeats rearms timers against the new settings: agents whose
// heartbeat was added or changed get a fresh timer, agents whose
// heartbeat went away are stopped.
func (d *Daemon) resyncHeartbeats() {
	stale := make(map[string]bool)
	for _, id := range d.scheduler.Active() {
		stale[id] = true
	}
	for _, id := range d.scheduler.StartAll() {
		delete(stale, id)
	}
	for id := range stale {
		d.scheduler.Stop(id)
	}
}

// handleWorkspaceChange re-derives a workspace's status when its state
// or log files change and logs the transition. The map of last-seen
// statuses keeps repeated writes during a run from spamming the log.
func (d *Daemon) handleWorkspaceChange(ev watcher.Event) {
	info, err := d.manager.Status(ev.ProjectID, ev.Slug)
	if err != nil {
		return
	}

	key := ev.ProjectID + "/" + ev.Slug
	d.wsMu.Lock()
	prev, seen := d.wsStatus[key]
	d.wsStatus[key] = info.Status
	d.wsMu.Unlock()

	if !seen || prev != info.Status {
		log.Printf("workspace %s: %s", key, info.Status)
	}
}

func (d *Daemon) reloadProjects() {
	projects, err := config.LoadProjects()
	if err != nil {
		log.Printf("failed to reload projects: %v", err)
		return
	}
	d.mu.Lock()
	d.projects = projects
	d.mu.Unlock()
	log.Printf("projects index reloaded")
}
