package spool

import (
	"os"
	"testing"
	"time"

	"github.com/agentfleet-io/agentfleet/internal/models"
	"github.com/agentfleet-io/agentfleet/internal/subagent"
)

func TestSubmitReadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	opts := subagent.SpawnOptions{
		ProjectID: "proj",
		Slug:      "task-a",
		CLI:       models.CLIClaude,
		Prompt:    "do the thing",
		RunMode:   models.RunModeNone,
	}
	id, err := Submit(opts)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	pending, err := Pending()
	if err != nil {
		t.Fatalf("Pending() error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Pending() = %v, want one request", pending)
	}

	req, err := ReadRequest(pending[0])
	if err != nil {
		t.Fatalf("ReadRequest() error: %v", err)
	}
	if req.ID != id {
		t.Errorf("request id = %q, want %q", req.ID, id)
	}
	if req.Options != opts {
		t.Errorf("options = %+v, want %+v", req.Options, opts)
	}
}

func TestAwaitConsumesResponse(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	id, err := Submit(subagent.SpawnOptions{ProjectID: "proj", Slug: "task-b", CLI: models.CLIClaude})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if err := WriteResponse(Response{ID: id, Error: "no such project"}); err != nil {
		t.Fatalf("WriteResponse() error: %v", err)
	}

	resp, err := Await(id, time.Second)
	if err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if resp.Error != "no such project" {
		t.Errorf("response error = %q, want %q", resp.Error, "no such project")
	}

	respPath, _ := ResponsePath(id)
	if _, err := os.Stat(respPath); !os.IsNotExist(err) {
		t.Error("Await did not consume the response file")
	}
}

func TestAwaitTimeoutWithdrawsRequest(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	id, err := Submit(subagent.SpawnOptions{ProjectID: "proj", Slug: "task-c", CLI: models.CLIClaude})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	if _, err := Await(id, 150*time.Millisecond); err == nil {
		t.Fatal("Await() with no responder should fail")
	}

	reqPath, _ := RequestPath(id)
	if _, err := os.Stat(reqPath); !os.IsNotExist(err) {
		t.Error("timed-out request still pending in the spool")
	}
}

func TestCleanupResponsesKeepsFresh(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := WriteResponse(Response{ID: "fresh"}); err != nil {
		t.Fatalf("WriteResponse() error: %v", err)
	}
	CleanupResponses(time.Hour)

	respPath, _ := ResponsePath("fresh")
	if _, err := os.Stat(respPath); err != nil {
		t.Errorf("fresh response removed: %v", err)
	}
}
