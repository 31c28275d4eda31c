// Package models contains shared data structures used across the application.
package models

// ThinkLevel controls how much extended reasoning a lead session requests.
type ThinkLevel string

// Think levels.
const (
	ThinkLevelLow    ThinkLevel = "low"
	ThinkLevelMedium ThinkLevel = "medium"
	ThinkLevelHigh   ThinkLevel = "high"
)

// Valid reports whether l is a known think level.
func (l ThinkLevel) Valid() bool {
	switch l {
	case ThinkLevelLow, ThinkLevelMedium, ThinkLevelHigh:
		return true
	}
	return false
}

// SessionEntry is one record in the session store, keyed by
// "{agentId}:{sessionKey}". UpdatedAt tracks the last completed (or
// preserved) turn in epoch milliseconds; CreatedAt is immutable once set.
type SessionEntry struct {
	SessionID  string     `json:"sessionId"`
	UpdatedAt  int64      `json:"updatedAt"`
	CreatedAt  int64      `json:"createdAt,omitempty"`
	ThinkLevel ThinkLevel `json:"thinkLevel,omitempty"`
}

// SessionKey builds the store key for an agent/session pair.
func SessionKey(agentID, sessionKey string) string {
	return agentID + ":" + sessionKey
}
