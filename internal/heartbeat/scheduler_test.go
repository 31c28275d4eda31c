package heartbeat

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentfleet-io/agentfleet/internal/models"
)

// testFixture wires a scheduler to spy callbacks and a mutable settings
// value.
type testFixture struct {
	s          *Scheduler
	settings   *models.Settings
	turns      atomic.Int32
	reply      atomic.Value // string
	turnErr    atomic.Value // error
	delivered  atomic.Int32
	streaming  atomic.Bool
	restored   atomic.Int32
	restoredTo atomic.Int64
	updatedAt  int64
	hasEntry   bool
}

func newFixture(agentID, every, channel string) *testFixture {
	f := &testFixture{settings: models.NewSettings(), updatedAt: 1000, hasEntry: true}
	f.reply.Store("HEARTBEAT_OK")
	f.settings.Agents[agentID] = &models.AgentConfig{
		Channel:   channel,
		Heartbeat: &models.HeartbeatConfig{Every: every},
	}

	s := NewScheduler()
	s.SetSettingsFn(func() *models.Settings { return f.settings })
	s.SetRunTurnFn(func(_, _ string) (string, error) {
		f.turns.Add(1)
		if err, _ := f.turnErr.Load().(error); err != nil {
			return "", err
		}
		return f.reply.Load().(string), nil
	})
	s.SetIsStreamingFn(func(string) bool { return f.streaming.Load() })
	s.SetDeliverFn(func(_, _, _ string) error {
		f.delivered.Add(1)
		return nil
	})
	s.SetSessionFns(
		func(string) (int64, bool) { return f.updatedAt, f.hasEntry },
		func(_ string, v int64) {
			f.restored.Add(1)
			f.restoredTo.Store(v)
		},
	)
	f.s = s
	return f
}

func TestStartRequiresUsableInterval(t *testing.T) {
	f := newFixture("lead", "0", "ch")
	if f.s.Start("lead") {
		t.Error("Start() with every=0 should return false")
	}
	if f.s.Start("unknown-agent") {
		t.Error("Start() for unconfigured agent should return false")
	}

	f.settings.Agents["lead"].Heartbeat = nil
	if f.s.Start("lead") {
		t.Error("Start() without heartbeat block should return false")
	}
}

func TestTimerFiresAfterIntervalNotBefore(t *testing.T) {
	f := newFixture("lead", "1s", "ch")
	if !f.s.Start("lead") {
		t.Fatal("Start() returned false")
	}
	defer f.s.StopAll()

	time.Sleep(500 * time.Millisecond)
	if n := f.turns.Load(); n != 0 {
		t.Fatalf("turn ran %d times before the interval elapsed", n)
	}

	time.Sleep(900 * time.Millisecond)
	if n := f.turns.Load(); n != 1 {
		t.Fatalf("turns after one interval = %d, want 1", n)
	}

	// ok-token outcome: the pre-turn updatedAt is restored.
	if f.restored.Load() != 1 || f.restoredTo.Load() != 1000 {
		t.Errorf("restore calls=%d value=%d, want 1 call restoring 1000", f.restored.Load(), f.restoredTo.Load())
	}

	rec, ok := f.s.LastRecord("lead")
	if !ok || rec.Status != StatusOKToken {
		t.Errorf("last record = %+v, want ok-token", rec)
	}
}

func TestTickSentLeavesUpdatedAtAdvanced(t *testing.T) {
	f := newFixture("lead", "1m", "ch")
	f.reply.Store(strings.Repeat("trouble ", 50))

	rec := f.s.tick("lead", f.settings.Agents["lead"])
	if rec.Status != StatusSent {
		t.Fatalf("tick status = %s, want sent", rec.Status)
	}
	if f.delivered.Load() != 1 {
		t.Error("alert not delivered")
	}
	if f.restored.Load() != 0 {
		t.Error("sent outcome must not restore updatedAt")
	}
}

func TestTickRestoresOnFailure(t *testing.T) {
	f := newFixture("lead", "1m", "ch")
	f.turnErr.Store(errors.New("model unavailable"))

	rec := f.s.tick("lead", f.settings.Agents["lead"])
	if rec.Status != StatusFailed || rec.Reason == "" {
		t.Fatalf("tick = %+v, want failed with reason", rec)
	}
	if f.restored.Load() != 1 {
		t.Error("failed outcome must restore updatedAt")
	}
}

func TestTickSkipsBusySession(t *testing.T) {
	f := newFixture("lead", "1m", "ch")
	f.streaming.Store(true)

	rec := f.s.tick("lead", f.settings.Agents["lead"])
	if rec.Status != StatusSkipped {
		t.Fatalf("tick status = %s, want skipped", rec.Status)
	}
	if f.turns.Load() != 0 {
		t.Error("busy session must not run a turn")
	}
	if f.restored.Load() != 0 {
		t.Error("skipped tick must not touch session state")
	}
}

func TestTickSkipsWithoutChannel(t *testing.T) {
	f := newFixture("lead", "1m", "")

	rec := f.s.tick("lead", f.settings.Agents["lead"])
	if rec.Status != StatusSkipped {
		t.Fatalf("tick status = %s, want skipped", rec.Status)
	}
	if f.turns.Load() != 0 {
		t.Error("channel-less agent must not run a turn")
	}
}

func TestTickRestoreIsNoOpWithoutEntry(t *testing.T) {
	f := newFixture("lead", "1m", "ch")
	f.hasEntry = false

	rec := f.s.tick("lead", f.settings.Agents["lead"])
	if rec.Status != StatusOKToken {
		t.Fatalf("tick status = %s, want ok-token", rec.Status)
	}
	if f.restored.Load() != 0 {
		t.Error("restore must be a no-op when no entry existed")
	}
}

func TestGlobalDisableGatesTicks(t *testing.T) {
	f := newFixture("lead", "1m", "ch")
	f.s.SetEnabled(false)

	// Arm the timer entry, then fire by hand.
	if !f.s.Start("lead") {
		t.Fatal("Start() returned false")
	}
	defer f.s.StopAll()

	f.s.fire("lead")
	if f.turns.Load() != 0 {
		t.Error("globally disabled fire ran a turn")
	}
	if f.restored.Load() != 0 {
		t.Error("globally disabled fire touched session state")
	}
	rec, _ := f.s.LastRecord("lead")
	if rec.Status != StatusSkipped {
		t.Errorf("last record = %+v, want skipped", rec)
	}

	// The tick still reschedules while disabled.
	if got := f.s.Active(); len(got) != 1 {
		t.Errorf("Active() = %v, want the agent still armed", got)
	}
}

func TestFireStopsWhenConfigDisabled(t *testing.T) {
	f := newFixture("lead", "1m", "ch")
	if !f.s.Start("lead") {
		t.Fatal("Start() returned false")
	}

	f.settings.Agents["lead"].Heartbeat.Every = "0"
	f.s.fire("lead")

	if f.turns.Load() != 0 {
		t.Error("fire ran a turn after config disabled the heartbeat")
	}
	if got := f.s.Active(); len(got) != 0 {
		t.Errorf("Active() = %v, want empty after disabled fire", got)
	}
}

func TestStartAllAndActive(t *testing.T) {
	f := newFixture("alpha", "1h", "ch")
	f.settings.Agents["beta"] = &models.AgentConfig{
		Channel:   "ch",
		Heartbeat: &models.HeartbeatConfig{Every: "2h"},
	}
	f.settings.Agents["no-heartbeat"] = &models.AgentConfig{Channel: "ch"}

	started := f.s.StartAll()
	if len(started) != 2 || started[0] != "alpha" || started[1] != "beta" {
		t.Fatalf("StartAll() = %v, want [alpha beta]", started)
	}
	if got := f.s.Active(); len(got) != 2 {
		t.Errorf("Active() = %v, want two agents", got)
	}

	f.s.StopAll()
	if got := f.s.Active(); len(got) != 0 {
		t.Errorf("Active() after StopAll = %v, want empty", got)
	}
}
