// Package subagent spawns and supervises coding-assistant CLI
// subprocesses in per-workspace directories, with optional git worktree
// isolation. All durable state lives in the workspace's files, so
// liveness and status can be re-derived from disk after a daemon
// restart.
package subagent

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/agentfleet-io/agentfleet/internal/config"
	"github.com/agentfleet-io/agentfleet/internal/models"
	"github.com/agentfleet-io/agentfleet/internal/worklog"
)

// killGracePeriod is how long Kill waits after SIGTERM before SIGKILL.
const killGracePeriod = 5 * time.Second

// treeDirName is the subdirectory of a workspace that holds the git
// worktree checkout. State files stay at the workspace root so archived
// workspaces keep their logs after the worktree is removed.
const treeDirName = "tree"

// SpawnOptions describes one subagent run. The struct is also the wire
// shape of spool spawn requests, hence the json tags.
type SpawnOptions struct {
	ProjectID string         `json:"projectId"`
	Slug      string         `json:"slug"`
	CLI       models.CLI     `json:"cli"`
	Prompt    string         `json:"prompt"`
	RunMode   models.RunMode `json:"runMode,omitempty"`
	BaseRef   string         `json:"baseRef,omitempty"` // worktree base; defaults to the project's default branch
	Resume    bool           `json:"resume,omitempty"`  // resume the recorded tool session if one exists
}

// WorkspaceInfo is the derived view of one workspace.
type WorkspaceInfo struct {
	ProjectID string          `json:"projectId"`
	Slug      string          `json:"slug"`
	Status    models.Status   `json:"status"`
	State     models.RunState `json:"state"`
	Progress  models.Progress `json:"progress"`
}

// Manager orchestrates subagent workspaces under one projects root.
type Manager struct {
	mu      sync.RWMutex
	running map[string]*supervisor

	settingsFn func() *models.Settings
	projectsFn func() *models.ProjectsIndex
	rootFn     func() string
}

// NewManager creates a manager with no running subagents.
func NewManager() *Manager {
	return &Manager{running: make(map[string]*supervisor)}
}

// SetSettingsFn sets the live settings lookup.
func (m *Manager) SetSettingsFn(fn func() *models.Settings) {
	m.settingsFn = fn
}

// SetProjectsFn sets the live projects index lookup.
func (m *Manager) SetProjectsFn(fn func() *models.ProjectsIndex) {
	m.projectsFn = fn
}

// SetProjectsRootFn overrides where workspaces live. Without it the
// root comes from settings.
func (m *Manager) SetProjectsRootFn(fn func() string) {
	m.rootFn = fn
}

func (m *Manager) settings() *models.Settings {
	if m.settingsFn != nil {
		if s := m.settingsFn(); s != nil {
			return s
		}
	}
	return models.NewSettings()
}

func (m *Manager) projectsRoot() string {
	if m.rootFn != nil {
		return m.rootFn()
	}
	root, err := config.ProjectsRoot(m.settings())
	if err != nil {
		return "."
	}
	return root
}

func (m *Manager) project(projectID string) *models.ProjectEntry {
	if m.projectsFn == nil {
		return nil
	}
	idx := m.projectsFn()
	if idx == nil {
		return nil
	}
	return idx.FindProject(projectID)
}

func key(projectID, slug string) string {
	return projectID + "/" + slug
}

// branchName is the worktree branch for a workspace.
func branchName(projectID, slug string) string {
	return projectID + "/" + slug
}

// Spawn starts one subagent run in the workspace identified by
// projectID/slug, creating the workspace (and its worktree, for
// worktree mode) on first use. At most one subprocess runs per
// workspace: a second spawn while one is live fails with
// ConcurrentRunError. Binary resolution happens before any state is
// written, so a missing CLI leaves no trace on disk.
func (m *Manager) Spawn(opts SpawnOptions) (*WorkspaceInfo, error) {
	if !opts.CLI.Valid() {
		return nil, fmt.Errorf("unknown cli %q", opts.CLI)
	}
	if opts.RunMode == "" {
		opts.RunMode = models.RunModeWorktree
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(opts.ProjectID, opts.Slug)
	if err := m.checkNotRunningLocked(opts.ProjectID, opts.Slug); err != nil {
		return nil, err
	}

	bin, err := ResolveBinary(opts.CLI, m.settings())
	if err != nil {
		return nil, err
	}

	wsDir := config.WorkspaceDir(m.projectsRoot(), opts.ProjectID, opts.Slug)
	prior, loadErr := loadState(wsDir)
	if loadErr != nil && !os.IsNotExist(loadErr) {
		return nil, loadErr
	}
	if prior != nil {
		// A workspace keeps its run mode for life.
		opts.RunMode = prior.RunMode
	}

	if err := os.MkdirAll(wsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	workDir, worktreePath, baseBranch, err := m.ensureWorkDir(wsDir, prior, opts)
	if err != nil {
		if prior == nil {
			// First spawn failed before the subprocess existed: don't
			// leave a half-created workspace behind.
			_ = os.RemoveAll(wsDir)
		}
		return nil, err
	}

	var sessionID string
	if opts.Resume && prior != nil && prior.SessionID != nil {
		sessionID = *prior.SessionID
	}

	cmd := exec.Command(bin, buildArgs(opts.CLI, opts.Prompt, sessionID, opts.Resume)...)
	cmd.Dir = workDir
	// Own process group, so interrupt/kill signals reach the CLI's
	// children and the subprocess survives a daemon restart.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", opts.CLI, err)
	}

	st := &models.RunState{
		SupervisorPID: cmd.Process.Pid,
		StartedAt:     time.Now().UTC().Format(time.RFC3339Nano),
		CLI:           opts.CLI,
		RunMode:       opts.RunMode,
		WorktreePath:  worktreePath,
		BaseBranch:    baseBranch,
	}
	if sessionID != "" {
		st.SessionID = &sessionID
	}
	if err := saveState(wsDir, st); err != nil {
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		return nil, err
	}

	sup := &supervisor{
		key:      k,
		runID:    uuid.New().String(),
		cli:      opts.CLI,
		cmd:      cmd,
		stateDir: wsDir,
		writer:   worklog.NewWriter(wsDir),
		done:     make(chan struct{}),
	}
	sup.onFinish = func() {
		m.mu.Lock()
		if m.running[k] == sup {
			delete(m.running, k)
		}
		m.mu.Unlock()
	}
	m.running[k] = sup
	go sup.run(stdout, stderr)

	log.Printf("[subagent:%s] spawned %s pid=%d mode=%s", k, opts.CLI, cmd.Process.Pid, opts.RunMode)

	return &WorkspaceInfo{
		ProjectID: opts.ProjectID,
		Slug:      opts.Slug,
		Status:    models.StatusRunning,
		State:     *st,
	}, nil
}

// checkNotRunningLocked enforces the one-subprocess-per-workspace rule.
// It also covers subprocesses orphaned by a daemon restart: the
// recorded pid is probed directly when the in-memory map has no entry.
func (m *Manager) checkNotRunningLocked(projectID, slug string) error {
	k := key(projectID, slug)
	if sup, ok := m.running[k]; ok {
		return &ConcurrentRunError{ProjectID: projectID, Slug: slug, PID: sup.cmd.Process.Pid}
	}

	wsDir := config.WorkspaceDir(m.projectsRoot(), projectID, slug)
	st, err := loadState(wsDir)
	if err != nil || st == nil {
		return nil
	}
	if config.PidAlive(st.SupervisorPID) {
		return &ConcurrentRunError{ProjectID: projectID, Slug: slug, PID: st.SupervisorPID}
	}
	return nil
}

// ensureWorkDir resolves where the subprocess runs and creates the git
// worktree on first use.
func (m *Manager) ensureWorkDir(wsDir string, prior *models.RunState, opts SpawnOptions) (workDir, worktreePath, baseBranch string, err error) {
	switch opts.RunMode {
	case models.RunModeMain:
		proj := m.project(opts.ProjectID)
		if proj == nil {
			return "", "", "", &NotFoundError{ProjectID: opts.ProjectID, Slug: opts.Slug}
		}
		return proj.Path, "", "", nil

	case models.RunModeNone:
		scratch := filepath.Join(wsDir, treeDirName)
		if err := os.MkdirAll(scratch, 0755); err != nil {
			return "", "", "", err
		}
		return scratch, "", "", nil

	case models.RunModeWorktree:
		if prior != nil && prior.WorktreePath != "" {
			if _, statErr := os.Stat(prior.WorktreePath); statErr == nil {
				return prior.WorktreePath, prior.WorktreePath, prior.BaseBranch, nil
			}
		}

		proj := m.project(opts.ProjectID)
		if proj == nil {
			return "", "", "", &NotFoundError{ProjectID: opts.ProjectID, Slug: opts.Slug}
		}

		base := opts.BaseRef
		if base == "" {
			base = proj.DefaultBranch
		}
		if base == "" {
			base = detectDefaultBranch(proj.Path)
		}

		wt := filepath.Join(wsDir, treeDirName)
		if err := addWorktree(proj.Path, wt, branchName(opts.ProjectID, opts.Slug), base); err != nil {
			return "", "", "", err
		}
		return wt, wt, base, nil
	}
	return "", "", "", fmt.Errorf("unknown run mode %q", opts.RunMode)
}

// Status derives one workspace's current state from disk: a live
// recorded pid means running; otherwise the most recent lifecycle
// record in history.jsonl decides between replied, error, and idle.
func (m *Manager) Status(projectID, slug string) (*WorkspaceInfo, error) {
	wsDir := config.WorkspaceDir(m.projectsRoot(), projectID, slug)
	st, err := loadState(wsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{ProjectID: projectID, Slug: slug}
		}
		return nil, err
	}

	info := &WorkspaceInfo{ProjectID: projectID, Slug: slug, State: *st}
	info.Status = deriveStatus(wsDir, st)

	var p models.Progress
	if err := config.LoadJSON(filepath.Join(wsDir, config.ProgressFileName), &p); err == nil {
		info.Progress = p
	}
	return info, nil
}

func deriveStatus(wsDir string, st *models.RunState) models.Status {
	if config.PidAlive(st.SupervisorPID) {
		return models.StatusRunning
	}

	res, err := worklog.FetchLogs(wsDir, 0)
	if err != nil {
		return models.StatusIdle
	}
	for i := len(res.Events) - 1; i >= 0; i-- {
		e := res.Events[i]
		if e.Data == nil {
			continue
		}
		switch e.Data["type"] {
		case models.HistoryWorkerFinished:
			if e.Data["outcome"] == string(models.OutcomeReplied) {
				return models.StatusReplied
			}
			return models.StatusError
		case models.HistoryWorkerInterrupt:
			// Interrupt recorded but no finish: the process died before
			// the supervisor could classify the exit.
			return models.StatusError
		}
	}
	if st.LastError != "" {
		return models.StatusError
	}
	return models.StatusIdle
}

// List returns the derived state of every non-archived workspace under
// a project, sorted by slug.
func (m *Manager) List(projectID string) ([]WorkspaceInfo, error) {
	dir := filepath.Join(config.WorkspacesDir(m.projectsRoot()), projectID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var infos []WorkspaceInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := m.Status(projectID, e.Name())
		if err != nil {
			continue
		}
		infos = append(infos, *info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Slug < infos[j].Slug })
	return infos, nil
}

// Interrupt stops the current run without destroying the workspace. The
// worker.interrupt record is appended before the signal is sent so the
// intent survives even if the daemon dies mid-interrupt. Interrupting a
// workspace with no live subprocess is a no-op.
func (m *Manager) Interrupt(projectID, slug string) error {
	wsDir := config.WorkspaceDir(m.projectsRoot(), projectID, slug)
	st, err := loadState(wsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{ProjectID: projectID, Slug: slug}
		}
		return err
	}

	m.mu.RLock()
	sup := m.running[key(projectID, slug)]
	m.mu.RUnlock()

	pid := st.SupervisorPID
	if sup != nil {
		pid = sup.cmd.Process.Pid
	}
	if !config.PidAlive(pid) {
		return nil
	}

	if sup != nil {
		sup.interrupted.Store(true)
	}
	if err := worklog.NewWriter(wsDir).AppendHistory(models.HistoryWorkerInterrupt, map[string]any{"pid": pid}); err != nil {
		return err
	}

	log.Printf("[subagent:%s/%s] interrupting pid=%d", projectID, slug, pid)
	return syscall.Kill(-pid, syscall.SIGTERM)
}

// Kill force-stops any live subprocess and deletes the workspace,
// including its worktree and branch.
func (m *Manager) Kill(projectID, slug string) error {
	wsDir := config.WorkspaceDir(m.projectsRoot(), projectID, slug)
	st, err := loadState(wsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{ProjectID: projectID, Slug: slug}
		}
		return err
	}

	m.mu.RLock()
	sup := m.running[key(projectID, slug)]
	m.mu.RUnlock()

	if config.PidAlive(st.SupervisorPID) {
		if sup != nil {
			sup.interrupted.Store(true)
		}
		_ = syscall.Kill(-st.SupervisorPID, syscall.SIGTERM)
		if !waitForExit(sup, st.SupervisorPID, killGracePeriod) {
			log.Printf("[subagent:%s/%s] pid=%d ignored SIGTERM, sending SIGKILL", projectID, slug, st.SupervisorPID)
			_ = syscall.Kill(-st.SupervisorPID, syscall.SIGKILL)
			waitForExit(sup, st.SupervisorPID, killGracePeriod)
		}
	}

	if st.RunMode == models.RunModeWorktree && st.WorktreePath != "" {
		if proj := m.project(projectID); proj != nil {
			if err := removeWorktree(proj.Path, st.WorktreePath, branchName(projectID, slug)); err != nil {
				log.Printf("[subagent:%s/%s] worktree cleanup: %v", projectID, slug, err)
			}
		}
	}

	return os.RemoveAll(wsDir)
}

// waitForExit waits for the supervisor (when this daemon owns the run)
// or polls the pid (orphaned runs) until the process dies or the
// timeout elapses.
func waitForExit(sup *supervisor, pid int, timeout time.Duration) bool {
	if sup != nil {
		select {
		case <-sup.done:
			return true
		case <-time.After(timeout):
			return false
		}
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !config.PidAlive(pid) {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

// Archive moves a workspace out of the active namespace, keeping its
// logs and state. The worktree is detached first since git tracks it by
// absolute path. Archiving a running workspace is refused.
func (m *Manager) Archive(projectID, slug string) error {
	wsDir := config.WorkspaceDir(m.projectsRoot(), projectID, slug)
	st, err := loadState(wsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{ProjectID: projectID, Slug: slug}
		}
		return err
	}
	if config.PidAlive(st.SupervisorPID) {
		return &ConcurrentRunError{ProjectID: projectID, Slug: slug, PID: st.SupervisorPID}
	}

	if st.RunMode == models.RunModeWorktree && st.WorktreePath != "" {
		if proj := m.project(projectID); proj != nil {
			if err := removeWorktree(proj.Path, st.WorktreePath, branchName(projectID, slug)); err != nil {
				log.Printf("[subagent:%s/%s] worktree cleanup: %v", projectID, slug, err)
			}
		}
		_ = os.RemoveAll(st.WorktreePath)
		_ = mutateState(wsDir, func(s *models.RunState) {
			s.WorktreePath = ""
		})
	}

	dst := config.ArchivedWorkspaceDir(m.projectsRoot(), projectID, slug)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.Rename(wsDir, dst)
}

// Unarchive moves an archived workspace back into the active namespace.
// A later spawn recreates the worktree on demand.
func (m *Manager) Unarchive(projectID, slug string) error {
	src := config.ArchivedWorkspaceDir(m.projectsRoot(), projectID, slug)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{ProjectID: projectID, Slug: slug}
		}
		return err
	}

	dst := config.WorkspaceDir(m.projectsRoot(), projectID, slug)
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("workspace %s/%s already exists", projectID, slug)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// FetchLogs returns the workspace's combined event stream after the
// given cursor.
func (m *Manager) FetchLogs(projectID, slug string, since int) (worklog.Result, error) {
	wsDir := config.WorkspaceDir(m.projectsRoot(), projectID, slug)
	if _, err := os.Stat(wsDir); err != nil {
		if os.IsNotExist(err) {
			return worklog.Result{}, &NotFoundError{ProjectID: projectID, Slug: slug}
		}
		return worklog.Result{}, err
	}
	return worklog.FetchLogs(wsDir, since)
}
