package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/agentfleet-io/agentfleet/internal/models"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	s.now = func() time.Time { return current }
	return s, &current
}

func TestResolveReusesSessionWithinIdleWindow(t *testing.T) {
	s, current := newTestStore(t)

	first, err := s.Resolve(ResolveParams{AgentID: "main", SessionKey: "chat", Message: "hello"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !first.IsNew {
		t.Error("first Resolve() IsNew = false, want true")
	}

	*current = current.Add(5 * time.Minute)
	second, err := s.Resolve(ResolveParams{AgentID: "main", SessionKey: "chat", Message: "again"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if second.IsNew {
		t.Error("second Resolve() IsNew = true, want false")
	}
	if second.SessionID != first.SessionID {
		t.Errorf("session rotated within idle window: %s != %s", second.SessionID, first.SessionID)
	}
	if second.CreatedAt != first.CreatedAt {
		t.Errorf("CreatedAt changed on reuse: %d != %d", second.CreatedAt, first.CreatedAt)
	}
}

func TestResolveRotatesAfterIdleExpiry(t *testing.T) {
	s, current := newTestStore(t)

	first, err := s.Resolve(ResolveParams{AgentID: "main", SessionKey: "chat", Message: "hello"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	*current = current.Add(361 * time.Minute)
	second, err := s.Resolve(ResolveParams{AgentID: "main", SessionKey: "chat", Message: "back"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !second.IsNew {
		t.Error("Resolve() after idle expiry IsNew = false, want true")
	}
	if second.SessionID == first.SessionID {
		t.Error("Resolve() after idle expiry reused the session id")
	}
}

func TestResolveHonorsIdleMinutesOverride(t *testing.T) {
	s, current := newTestStore(t)

	first, _ := s.Resolve(ResolveParams{AgentID: "main", SessionKey: "chat", Message: "hi", IdleMinutes: 10})
	*current = current.Add(11 * time.Minute)
	second, _ := s.Resolve(ResolveParams{AgentID: "main", SessionKey: "chat", Message: "hi", IdleMinutes: 10})
	if second.SessionID == first.SessionID {
		t.Error("Resolve() ignored per-call idle override")
	}
}

func TestResolveResetTriggers(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		wantStrip   string
		wantRotated bool
	}{
		{"bare new", "/new", "", true},
		{"bare reset", "/reset", "", true},
		{"new with payload", "/new start over please", "start over please", true},
		{"trigger needs space boundary", "/newish idea", "/newish idea", false},
		{"plain message", "hello", "hello", false},
		{"whitespace trimmed", "  /new  ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			first, err := s.Resolve(ResolveParams{AgentID: "a", SessionKey: "k", Message: "seed"})
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}

			got, err := s.Resolve(ResolveParams{AgentID: "a", SessionKey: "k", Message: tt.message})
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if got.Message != tt.wantStrip {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantStrip)
			}
			rotated := got.SessionID != first.SessionID
			if rotated != tt.wantRotated {
				t.Errorf("rotated = %v, want %v", rotated, tt.wantRotated)
			}
		})
	}
}

func TestResolveBackfillsLegacyCreatedAt(t *testing.T) {
	s, current := newTestStore(t)

	first, _ := s.Resolve(ResolveParams{AgentID: "a", SessionKey: "k", Message: "seed"})

	// Simulate a legacy entry written before createdAt existed.
	entries := s.load()
	entry := entries[models.SessionKey("a", "k")]
	entry.CreatedAt = 0
	entries[models.SessionKey("a", "k")] = entry
	if err := saveForTest(s, entries); err != nil {
		t.Fatalf("save: %v", err)
	}

	*current = current.Add(time.Minute)
	got, err := s.Resolve(ResolveParams{AgentID: "a", SessionKey: "k", Message: "hi"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.SessionID != first.SessionID {
		t.Error("legacy entry rotated unexpectedly")
	}
	if got.CreatedAt != current.UnixMilli() {
		t.Errorf("CreatedAt = %d, want backfill to now (%d)", got.CreatedAt, current.UnixMilli())
	}
}

func TestIsAbortTrigger(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		triggers []string
		want     bool
	}{
		{"exact default", "/abort", nil, true},
		{"prefix with space", "/abort now", nil, true},
		{"no boundary", "/abortive", nil, false},
		{"plain text", "please stop", nil, false},
		{"custom trigger", "/stop", []string{"/stop"}, true},
		{"case sensitive", "/ABORT", nil, false},
		{"surrounding whitespace", "  /abort  ", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAbortTrigger(tt.message, tt.triggers); got != tt.want {
				t.Errorf("IsAbortTrigger(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestSetThinkLevelCreatesAndSurvivesResolve(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.SetThinkLevel("a", "k", models.ThinkLevelHigh); err != nil {
		t.Fatalf("SetThinkLevel() error: %v", err)
	}
	entry, ok := s.Get("a", "k")
	if !ok {
		t.Fatal("SetThinkLevel() did not create an entry")
	}
	if entry.ThinkLevel != models.ThinkLevelHigh {
		t.Errorf("ThinkLevel = %q, want high", entry.ThinkLevel)
	}

	if _, err := s.Resolve(ResolveParams{AgentID: "a", SessionKey: "k", Message: "hi"}); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	entry, _ = s.Get("a", "k")
	if entry.ThinkLevel != models.ThinkLevelHigh {
		t.Error("ThinkLevel lost on non-reset Resolve()")
	}
}

func TestRestoreUpdatedAt(t *testing.T) {
	s, current := newTestStore(t)

	first, _ := s.Resolve(ResolveParams{AgentID: "a", SessionKey: "k", Message: "seed"})
	before, ok := s.PeekUpdatedAt("a", "k")
	if !ok {
		t.Fatal("PeekUpdatedAt() missing entry")
	}

	*current = current.Add(2 * time.Minute)
	if _, err := s.Resolve(ResolveParams{AgentID: "a", SessionKey: "k", Message: "turn"}); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if err := s.RestoreUpdatedAt("a", "k", before); err != nil {
		t.Fatalf("RestoreUpdatedAt() error: %v", err)
	}
	got, _ := s.PeekUpdatedAt("a", "k")
	if got != before {
		t.Errorf("updatedAt = %d, want restored %d", got, before)
	}

	entry, _ := s.Get("a", "k")
	if entry.SessionID != first.SessionID {
		t.Error("RestoreUpdatedAt() changed the session id")
	}

	// Restoring a missing entry is a no-op, not an error.
	if err := s.RestoreUpdatedAt("nobody", "nothing", 123); err != nil {
		t.Errorf("RestoreUpdatedAt() on missing entry: %v", err)
	}
}

func saveForTest(s *Store, entries map[string]models.SessionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEntries(s.path, entries)
}
