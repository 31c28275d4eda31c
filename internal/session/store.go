// Package session implements the durable lead-agent session store with
// idle-timeout rotation and reset-trigger handling.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentfleet-io/agentfleet/internal/config"
	"github.com/agentfleet-io/agentfleet/internal/models"
)

// Defaults applied when the caller passes no overrides.
const DefaultIdleMinutes = 360

// Default trigger lists.
var (
	DefaultResetTriggers = []string{"/new", "/reset"}
	DefaultAbortTriggers = []string{"/abort"}
)

// Store is the durable map of "{agentId}:{sessionKey}" -> SessionEntry,
// backed by a single JSON file. All mutations are read-modify-write under
// an in-process mutex plus atomic replace on disk.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewStore creates a store backed by the given sessions.json path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// ResolveParams are the inputs to Resolve.
type ResolveParams struct {
	AgentID       string
	SessionKey    string
	Message       string
	IdleMinutes   int      // 0 = DefaultIdleMinutes
	ResetTriggers []string // nil = DefaultResetTriggers
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	SessionID string
	Message   string // trigger prefix stripped when a reset fired
	IsNew     bool
	CreatedAt int64
}

// Resolve returns the session id for an agent/session pair, rotating it
// when the message carries a reset trigger or the entry has been idle
// past the configured window. The entry is persisted with a fresh
// updatedAt before returning.
func (s *Store) Resolve(p ResolveParams) (Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	key := models.SessionKey(p.AgentID, p.SessionKey)
	entry, exists := entries[key]

	triggers := p.ResetTriggers
	if triggers == nil {
		triggers = DefaultResetTriggers
	}
	message, reset := stripTrigger(p.Message, triggers)

	idleMinutes := p.IdleMinutes
	if idleMinutes <= 0 {
		idleMinutes = DefaultIdleMinutes
	}

	nowMs := s.now().UnixMilli()
	expired := exists && nowMs-entry.UpdatedAt > int64(idleMinutes)*60_000

	res := Resolution{Message: message}
	if !exists || reset || expired {
		res.SessionID = uuid.New().String()
		res.IsNew = true
		res.CreatedAt = nowMs
		// Replace wholesale; thinkLevel does not survive rotation.
		entry = models.SessionEntry{SessionID: res.SessionID, CreatedAt: nowMs}
	} else {
		res.SessionID = entry.SessionID
		res.CreatedAt = entry.CreatedAt
		if res.CreatedAt == 0 {
			// Legacy entries predate createdAt tracking.
			res.CreatedAt = nowMs
			entry.CreatedAt = nowMs
		}
	}

	entry.UpdatedAt = nowMs
	entries[key] = entry
	if err := saveEntries(s.path, entries); err != nil {
		return Resolution{}, err
	}
	return res, nil
}

// IsAbortTrigger reports whether message is an abort command: an exact
// trigger match or a trigger followed by a space. Case-sensitive.
func IsAbortTrigger(message string, triggers []string) bool {
	if len(triggers) == 0 {
		triggers = DefaultAbortTriggers
	}
	msg := strings.TrimSpace(message)
	for _, t := range triggers {
		if msg == t || strings.HasPrefix(msg, t+" ") {
			return true
		}
	}
	return false
}

// SetThinkLevel records the think level for an agent/session pair,
// creating the entry if it doesn't exist yet.
func (s *Store) SetThinkLevel(agentID, sessionKey string, level models.ThinkLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	key := models.SessionKey(agentID, sessionKey)
	entry, exists := entries[key]
	nowMs := s.now().UnixMilli()
	if !exists {
		entry = models.SessionEntry{
			SessionID: uuid.New().String(),
			CreatedAt: nowMs,
			UpdatedAt: nowMs,
		}
	}
	entry.ThinkLevel = level
	entries[key] = entry
	return saveEntries(s.path, entries)
}

// Get returns the current entry for an agent/session pair, if any.
func (s *Store) Get(agentID, sessionKey string) (models.SessionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	entry, ok := entries[models.SessionKey(agentID, sessionKey)]
	return entry, ok
}

// PeekUpdatedAt returns the entry's updatedAt without touching it. Used
// by the heartbeat scheduler to capture the pre-turn value.
func (s *Store) PeekUpdatedAt(agentID, sessionKey string) (int64, bool) {
	entry, ok := s.Get(agentID, sessionKey)
	if !ok {
		return 0, false
	}
	return entry.UpdatedAt, true
}

// RestoreUpdatedAt rewrites the entry's updatedAt to a previously
// captured value, so silent heartbeat turns don't reset the idle clock.
// A no-op when the entry no longer exists.
func (s *Store) RestoreUpdatedAt(agentID, sessionKey string, updatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	key := models.SessionKey(agentID, sessionKey)
	entry, ok := entries[key]
	if !ok {
		return nil
	}
	entry.UpdatedAt = updatedAt
	entries[key] = entry
	return saveEntries(s.path, entries)
}

// saveEntries persists the full entry map with temp-file + rename.
func saveEntries(path string, entries map[string]models.SessionEntry) error {
	return config.SaveJSONAtomic(path, entries)
}

// load reads the store file. Missing or unreadable files fall back to an
// empty map; only the write path surfaces IO errors.
func (s *Store) load() map[string]models.SessionEntry {
	entries := make(map[string]models.SessionEntry)
	if err := config.LoadJSON(s.path, &entries); err != nil {
		return make(map[string]models.SessionEntry)
	}
	return entries
}

// stripTrigger checks message against the reset triggers. On a match it
// returns the message with the trigger prefix removed and true.
func stripTrigger(message string, triggers []string) (string, bool) {
	msg := strings.TrimSpace(message)
	for _, t := range triggers {
		if msg == t {
			return "", true
		}
		if strings.HasPrefix(msg, t+" ") {
			return strings.TrimSpace(msg[len(t)+1:]), true
		}
	}
	return msg, false
}
