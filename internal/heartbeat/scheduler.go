package heartbeat

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/agentfleet-io/agentfleet/internal/models"
)

// DefaultPrompt is sent on a heartbeat tick when the agent's config
// doesn't override it.
const DefaultPrompt = "HEARTBEAT: check on your delegated work. Reply HEARTBEAT_OK if everything is on track; otherwise describe what needs attention."

// Record is the outcome of an agent's most recent heartbeat tick.
type Record struct {
	AgentID string    `json:"agentId"`
	Status  Status    `json:"status"`
	At      time.Time `json:"at"`
	Reason  string    `json:"reason,omitempty"`
}

// Scheduler owns one timer per agent with a heartbeat block. Each fire
// re-reads the live config, runs one unattended turn, and reschedules
// from now; timers are independent, so one agent's slow turn never
// delays another's.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	enabled bool
	last    map[string]Record

	settingsFn    func() *models.Settings
	runTurnFn     func(agentID, prompt string) (string, error)
	isStreamingFn func(agentID string) bool
	deliverFn     func(agentID, channel, text string) error
	peekFn        func(agentID string) (int64, bool)
	restoreFn     func(agentID string, updatedAt int64)
}

// NewScheduler creates a scheduler with heartbeats globally enabled and
// no timers armed.
func NewScheduler() *Scheduler {
	return &Scheduler{
		timers:  make(map[string]*time.Timer),
		enabled: true,
		last:    make(map[string]Record),
	}
}

// SetSettingsFn sets the live settings lookup.
func (s *Scheduler) SetSettingsFn(fn func() *models.Settings) { s.settingsFn = fn }

// SetRunTurnFn sets the operation that runs one turn of a lead agent
// and returns its reply.
func (s *Scheduler) SetRunTurnFn(fn func(agentID, prompt string) (string, error)) { s.runTurnFn = fn }

// SetIsStreamingFn sets the probe for whether an agent's session is
// already mid-turn.
func (s *Scheduler) SetIsStreamingFn(fn func(agentID string) bool) { s.isStreamingFn = fn }

// SetDeliverFn sets the alert delivery operation.
func (s *Scheduler) SetDeliverFn(fn func(agentID, channel, text string) error) { s.deliverFn = fn }

// SetSessionFns sets the session updatedAt capture/restore pair.
func (s *Scheduler) SetSessionFns(peek func(agentID string) (int64, bool), restore func(agentID string, updatedAt int64)) {
	s.peekFn = peek
	s.restoreFn = restore
}

func (s *Scheduler) settings() *models.Settings {
	if s.settingsFn != nil {
		if v := s.settingsFn(); v != nil {
			return v
		}
	}
	return models.NewSettings()
}

// agentConfig returns the agent's live config, or nil if unknown.
func (s *Scheduler) agentConfig(agentID string) *models.AgentConfig {
	return s.settings().Agents[agentID]
}

// interval resolves an agent's heartbeat interval. ok is false when the
// agent has no heartbeat block or its every value disables it.
func interval(cfg *models.AgentConfig) (time.Duration, bool) {
	if cfg == nil || cfg.Heartbeat == nil {
		return 0, false
	}
	if cfg.Heartbeat.Every == "" {
		return DefaultEvery, true
	}
	return ParseEvery(cfg.Heartbeat.Every, time.Minute)
}

// Start arms the heartbeat timer for one agent. Returns false if the
// agent's config has no usable interval. The first tick fires a full
// interval from now, never immediately.
func (s *Scheduler) Start(agentID string) bool {
	every, ok := interval(s.agentConfig(agentID))
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, exists := s.timers[agentID]; exists {
		t.Stop()
	}
	s.timers[agentID] = time.AfterFunc(every, func() { s.fire(agentID) })
	log.Printf("[heartbeat] started %s every %s", agentID, every)
	return true
}

// Stop disarms one agent's timer. Returns false if none was armed.
func (s *Scheduler) Stop(agentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[agentID]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, agentID)
	log.Printf("[heartbeat] stopped %s", agentID)
	return true
}

// StartAll arms timers for every agent whose config has a heartbeat
// block, returning the agent ids started.
func (s *Scheduler) StartAll() []string {
	var started []string
	for agentID := range s.settings().Agents {
		if s.Start(agentID) {
			started = append(started, agentID)
		}
	}
	sort.Strings(started)
	return started
}

// StopAll disarms every timer.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for agentID, t := range s.timers {
		t.Stop()
		delete(s.timers, agentID)
	}
	log.Printf("[heartbeat] stopped all")
}

// Active returns the agent ids with an armed timer, sorted.
func (s *Scheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.timers))
	for agentID := range s.timers {
		ids = append(ids, agentID)
	}
	sort.Strings(ids)
	return ids
}

// SetEnabled flips the process-wide gate. A disabled tick still
// reschedules but touches no session state.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
	log.Printf("[heartbeat] globally enabled=%v", enabled)
}

// Enabled reports the process-wide gate.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// LastRecord returns the agent's most recent tick outcome.
func (s *Scheduler) LastRecord(agentID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.last[agentID]
	return r, ok
}

// fire runs one heartbeat tick. The live config is re-read: an agent
// disabled since scheduling stops cold, and interval changes take
// effect on the next tick. Every other outcome reschedules from now.
func (s *Scheduler) fire(agentID string) {
	s.mu.Lock()
	_, armed := s.timers[agentID]
	s.mu.Unlock()
	if !armed {
		return
	}

	cfg := s.agentConfig(agentID)
	every, ok := interval(cfg)
	if !ok {
		s.mu.Lock()
		delete(s.timers, agentID)
		s.mu.Unlock()
		log.Printf("[heartbeat] %s disabled in config, not rescheduling", agentID)
		return
	}

	defer func() {
		s.mu.Lock()
		if _, still := s.timers[agentID]; still {
			s.timers[agentID] = time.AfterFunc(every, func() { s.fire(agentID) })
		}
		s.mu.Unlock()
	}()

	if !s.Enabled() {
		s.record(Record{AgentID: agentID, Status: StatusSkipped, At: time.Now(), Reason: "heartbeats disabled"})
		return
	}

	s.record(s.tick(agentID, cfg))
}

// tick attempts one heartbeat turn and classifies the result. The
// session's updatedAt is captured before the turn and restored in every
// outcome except sent: a delivered alert is a real interaction that
// should reset the idle clock, a silent heartbeat is not.
func (s *Scheduler) tick(agentID string, cfg *models.AgentConfig) Record {
	now := time.Now()

	if s.isStreamingFn != nil && s.isStreamingFn(agentID) {
		return Record{AgentID: agentID, Status: StatusSkipped, At: now, Reason: "session busy"}
	}
	if cfg.Channel == "" {
		return Record{AgentID: agentID, Status: StatusSkipped, At: now, Reason: "no delivery channel"}
	}

	var prevUpdatedAt int64
	hadEntry := false
	if s.peekFn != nil {
		prevUpdatedAt, hadEntry = s.peekFn(agentID)
	}
	restore := func() {
		if hadEntry && s.restoreFn != nil {
			s.restoreFn(agentID, prevUpdatedAt)
		}
	}

	prompt := DefaultPrompt
	if cfg.Heartbeat.Prompt != "" {
		prompt = cfg.Heartbeat.Prompt
	}

	reply, err := s.runTurnFn(agentID, prompt)
	if err != nil {
		restore()
		log.Printf("[heartbeat] %s turn failed: %v", agentID, err)
		return Record{AgentID: agentID, Status: StatusFailed, At: now, Reason: err.Error()}
	}

	eval := Evaluate(reply, s.settings().Defaults.AckMaxChars)
	if !eval.Deliver {
		restore()
		return Record{AgentID: agentID, Status: eval.Status, At: now}
	}

	if err := s.deliverFn(agentID, cfg.Channel, eval.Text); err != nil {
		restore()
		log.Printf("[heartbeat] %s delivery failed: %v", agentID, err)
		return Record{AgentID: agentID, Status: StatusFailed, At: now, Reason: err.Error()}
	}
	return Record{AgentID: agentID, Status: StatusSent, At: now}
}

func (s *Scheduler) record(r Record) {
	s.mu.Lock()
	s.last[r.AgentID] = r
	s.mu.Unlock()
}
