package subagent

import (
	"bufio"
	"io"
	"log"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentfleet-io/agentfleet/internal/models"
	"github.com/agentfleet-io/agentfleet/internal/worklog"
)

// Subagent CLIs can emit very large single JSONL lines (full file
// contents inside tool results), so the scanner buffer is generous.
const maxLineBytes = 1024 * 1024

// supervisor owns one running subprocess: it pumps stdout/stderr into
// the workspace log files, captures the tool's session id, tracks
// progress, and records the final outcome when the process exits.
type supervisor struct {
	key      string
	runID    string
	cli      models.CLI
	cmd      *exec.Cmd
	stateDir string
	writer   *worklog.Writer

	interrupted atomic.Bool
	done        chan struct{}
	onFinish    func()
}

// run pumps both output streams to completion, waits for the process,
// and appends the worker.finished record. It is the only goroutine that
// calls cmd.Wait.
func (s *supervisor) run(stdout, stderr io.ReadCloser) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.pumpStdout(stdout)
	}()
	go func() {
		defer wg.Done()
		s.pumpStderr(stderr)
	}()
	wg.Wait()

	waitErr := s.cmd.Wait()

	outcome := models.OutcomeReplied
	data := map[string]any{"runId": s.runID}
	switch {
	case s.interrupted.Load():
		outcome = models.OutcomeInterrupted
	case waitErr != nil:
		outcome = models.OutcomeError
		data["error"] = waitErr.Error()
	}
	data["outcome"] = string(outcome)

	if err := s.writer.AppendHistory(models.HistoryWorkerFinished, data); err != nil {
		s.logf("failed to record finish: %v", err)
	}
	if outcome == models.OutcomeError {
		_ = mutateState(s.stateDir, func(st *models.RunState) {
			if st.LastError == "" {
				st.LastError = waitErr.Error()
			}
		})
	}

	s.logf("run %s finished: %s", s.runID, outcome)
	s.onFinish()
	close(s.done)
}

// pumpStdout scans structured output lines: each one is appended to
// logs.jsonl, scanned for the tool's session marker, checked for auth
// and rate-limit signatures, and counted into progress.json.
func (s *supervisor) pumpStdout(r io.ReadCloser) {
	defer r.Close()

	sessionCaptured := false
	toolCalls := 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		if err := s.writer.AppendLog(models.StreamStdout, line); err != nil {
			s.logf("failed to append log line: %v", err)
		}

		if !sessionCaptured {
			if id := extractSessionID(s.cli, line); id != "" {
				sessionCaptured = true
				_ = mutateState(s.stateDir, func(st *models.RunState) {
					st.SessionID = &id
				})
				s.logf("captured %s session %s", s.cli, id)
			}
		}

		s.checkIssue(line)

		if worklog.Classify(models.StreamStdout, line) == worklog.KindToolCall {
			toolCalls++
		}
		_ = s.writer.WriteProgress(models.Progress{
			LastActive: time.Now().UTC().Format(time.RFC3339Nano),
			ToolCalls:  toolCalls,
		})
	}
	if err := sc.Err(); err != nil {
		s.logf("stdout pump stopped: %v", err)
	}
}

// pumpStderr mirrors diagnostic output into logs.jsonl and watches it
// for issue signatures; rate-limit banners usually land here.
func (s *supervisor) pumpStderr(r io.ReadCloser) {
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		if err := s.writer.AppendLog(models.StreamStderr, line); err != nil {
			s.logf("failed to append stderr line: %v", err)
		}
		s.checkIssue(line)
	}
	if err := sc.Err(); err != nil {
		s.logf("stderr pump stopped: %v", err)
	}
}

func (s *supervisor) checkIssue(line string) {
	issue := DetectIssue(line)
	if issue == IssueNone {
		return
	}
	s.logf("issue detected: %s", issue)
	_ = mutateState(s.stateDir, func(st *models.RunState) {
		st.LastError = line
	})
}

func (s *supervisor) logf(format string, args ...interface{}) {
	log.Printf("[subagent:"+s.key+"] "+format, args...)
}
