package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentfleet-io/agentfleet/internal/config"
	"github.com/agentfleet-io/agentfleet/internal/daemon/spool"
	"github.com/agentfleet-io/agentfleet/internal/daemon/watcher"
	"github.com/agentfleet-io/agentfleet/internal/models"
	"github.com/agentfleet-io/agentfleet/internal/subagent"
)

// newTestDaemon builds a daemon over a temp home whose claude CLI is a
// fake shell script with the given body.
func newTestDaemon(t *testing.T, script string) *Daemon {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	bin := filepath.Join(t.TempDir(), "claude")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatal(err)
	}

	settings := models.NewSettings()
	settings.ProjectsRoot = t.TempDir()
	settings.CLIs[models.CLIClaude] = &models.CLIConfig{Path: bin}
	if err := config.SaveSettings(settings); err != nil {
		t.Fatal(err)
	}

	d, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return d
}

func waitForReplied(t *testing.T, d *Daemon, projectID, slug string) *subagent.WorkspaceInfo {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		info, err := d.Manager().Status(projectID, slug)
		if err != nil {
			t.Fatalf("Status() error: %v", err)
		}
		if info.Status != models.StatusRunning {
			time.Sleep(100 * time.Millisecond)
			info, _ = d.Manager().Status(projectID, slug)
			return info
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("workspace never left running state")
	return nil
}

// A spooled spawn request must be executed and supervised by the daemon
// process: the subprocess runs to completion and gets its finish record
// here, regardless of what happens to the CLI that submitted it.
func TestSpawnRequestRunsUnderDaemon(t *testing.T) {
	d := newTestDaemon(t, `echo '{"type":"assistant","message":"done"}'`)

	id, err := spool.Submit(subagent.SpawnOptions{
		ProjectID: "proj", Slug: "task-spool",
		CLI: models.CLIClaude, Prompt: "x", RunMode: models.RunModeNone,
	})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	reqPath, err := spool.RequestPath(id)
	if err != nil {
		t.Fatal(err)
	}

	d.handleSpawnRequest(reqPath)

	resp, err := spool.Await(id, 2*time.Second)
	if err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("spawn failed: %s", resp.Error)
	}
	if resp.Info == nil || resp.Info.Status != models.StatusRunning {
		t.Fatalf("response info = %+v, want running workspace", resp.Info)
	}
	if _, err := os.Stat(reqPath); !os.IsNotExist(err) {
		t.Error("request file not consumed")
	}

	final := waitForReplied(t, d, "proj", "task-spool")
	if final.Status != models.StatusReplied {
		t.Fatalf("final status = %s, want replied", final.Status)
	}
	res, err := d.Manager().FetchLogs("proj", "task-spool", 0)
	if err != nil {
		t.Fatalf("FetchLogs() error: %v", err)
	}
	// One stdout line plus the finish record.
	if res.Cursor < 2 {
		t.Errorf("cursor = %d, want at least 2", res.Cursor)
	}
}

func TestSpawnRequestReportsFailure(t *testing.T) {
	d := newTestDaemon(t, "true")

	id, err := spool.Submit(subagent.SpawnOptions{
		ProjectID: "proj", Slug: "task-bad",
		CLI: models.CLI("nope"), Prompt: "x", RunMode: models.RunModeNone,
	})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	reqPath, _ := spool.RequestPath(id)

	d.handleSpawnRequest(reqPath)

	resp, err := spool.Await(id, 2*time.Second)
	if err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if resp.Error == "" || resp.Info != nil {
		t.Errorf("response = %+v, want error and no info", resp)
	}
}

// Spool requests left over from before the daemon started are executed
// on boot.
func TestDrainSpoolExecutesPending(t *testing.T) {
	d := newTestDaemon(t, `echo '{"type":"assistant","message":"done"}'`)

	id, err := spool.Submit(subagent.SpawnOptions{
		ProjectID: "proj", Slug: "task-boot",
		CLI: models.CLIClaude, Prompt: "x", RunMode: models.RunModeNone,
	})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	d.drainSpool()

	resp, err := spool.Await(id, 2*time.Second)
	if err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("boot spawn failed: %s", resp.Error)
	}
	waitForReplied(t, d, "proj", "task-boot")
}

func TestWorkspaceChangeTracksStatus(t *testing.T) {
	d := newTestDaemon(t, `echo '{"type":"assistant","message":"done"}'`)

	id, err := spool.Submit(subagent.SpawnOptions{
		ProjectID: "proj", Slug: "task-watch",
		CLI: models.CLIClaude, Prompt: "x", RunMode: models.RunModeNone,
	})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	reqPath, _ := spool.RequestPath(id)
	d.handleSpawnRequest(reqPath)
	if _, err := spool.Await(id, 2*time.Second); err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	waitForReplied(t, d, "proj", "task-watch")

	d.handleWorkspaceChange(watcher.Event{
		Type:      watcher.EventWorkspaceChanged,
		ProjectID: "proj",
		Slug:      "task-watch",
	})

	d.wsMu.Lock()
	got := d.wsStatus["proj/task-watch"]
	d.wsMu.Unlock()
	if got != models.StatusReplied {
		t.Errorf("tracked status = %s, want replied", got)
	}
}
