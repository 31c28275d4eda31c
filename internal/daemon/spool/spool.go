// Package spool is the on-disk handoff between the short-lived CLI and
// the long-lived daemon for operations that must outlive the CLI
// process. The CLI drops a request file under ~/.agentfleet/spool/, the
// daemon's file watcher picks it up, executes it, and answers with a
// response file under the same id, which the CLI polls for.
package spool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentfleet-io/agentfleet/internal/config"
	"github.com/agentfleet-io/agentfleet/internal/subagent"
)

// awaitPollInterval is how often Await re-checks for a response file.
const awaitPollInterval = 50 * time.Millisecond

// Request asks the daemon to spawn one subagent run.
type Request struct {
	ID        string                `json:"id"`
	Submitted string                `json:"submitted"`
	Options   subagent.SpawnOptions `json:"options"`
}

// Response is the daemon's answer to one request.
type Response struct {
	ID    string                  `json:"id"`
	Info  *subagent.WorkspaceInfo `json:"info,omitempty"`
	Error string                  `json:"error,omitempty"`
}

// RequestPath returns the spool path of a request by id.
func RequestPath(id string) (string, error) {
	dir, err := config.GlobalSpoolDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, id+config.SpoolRequestSuffix), nil
}

// ResponsePath returns the spool path of a response by id.
func ResponsePath(id string) (string, error) {
	dir, err := config.GlobalSpoolDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, id+config.SpoolResponseSuffix), nil
}

// Submit writes a spawn request into the spool and returns its id. The
// file lands via atomic rename, so the daemon's watcher never reads a
// partial request.
func Submit(opts subagent.SpawnOptions) (string, error) {
	id := uuid.New().String()
	path, err := RequestPath(id)
	if err != nil {
		return "", err
	}
	req := Request{
		ID:        id,
		Submitted: time.Now().UTC().Format(time.RFC3339Nano),
		Options:   opts,
	}
	if err := config.SaveJSONAtomic(path, req); err != nil {
		return "", err
	}
	return id, nil
}

// ReadRequest loads one request file.
func ReadRequest(path string) (*Request, error) {
	var req Request
	if err := config.LoadJSON(path, &req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, fmt.Errorf("spool request %s has no id", path)
	}
	return &req, nil
}

// WriteResponse records the daemon's answer for the submitting CLI.
func WriteResponse(resp Response) error {
	path, err := ResponsePath(resp.ID)
	if err != nil {
		return err
	}
	return config.SaveJSONAtomic(path, resp)
}

// Await polls for the response to a request and consumes it. On timeout
// the pending request file is withdrawn so the daemon does not execute
// it after the caller has given up.
func Await(id string, timeout time.Duration) (*Response, error) {
	respPath, err := ResponsePath(id)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var resp Response
		if err := config.LoadJSON(respPath, &resp); err == nil {
			_ = os.Remove(respPath)
			return &resp, nil
		}
		time.Sleep(awaitPollInterval)
	}

	if reqPath, err := RequestPath(id); err == nil {
		_ = os.Remove(reqPath)
	}
	return nil, fmt.Errorf("no response from daemon within %s; is agentfleetd running?", timeout)
}

// Pending lists the request files currently in the spool, oldest first.
func Pending() ([]string, error) {
	dir, err := config.GlobalSpoolDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), config.SpoolRequestSuffix) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

// CleanupResponses removes response files older than maxAge, left over
// from CLIs that timed out before consuming them.
func CleanupResponses(maxAge time.Duration) {
	dir, err := config.GlobalSpoolDir()
	if err != nil {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), config.SpoolResponseSuffix) {
			continue
		}
		if info, err := e.Info(); err == nil && info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}
