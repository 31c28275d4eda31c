// Package heartbeat runs unattended check-in turns against lead agents
// on per-agent timers and decides whether a reply warrants an alert.
package heartbeat

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultEvery applies when an agent has a heartbeat block with no
// every field.
const DefaultEvery = 30 * time.Minute

var everyPattern = regexp.MustCompile(`^(\d+)\s*([a-zA-Z]*)$`)

// ParseEvery parses a heartbeat interval string. A bare number is
// multiplied by defaultUnit (minutes when defaultUnit is zero or
// negative); recognized unit suffixes are m/min, h/hr, and s/sec,
// case-insensitive, with surrounding whitespace ignored. Zero,
// negative, and malformed values all mean "no interval" (ok=false):
// disabled, not instant.
func ParseEvery(s string, defaultUnit time.Duration) (interval time.Duration, ok bool) {
	if defaultUnit <= 0 {
		defaultUnit = time.Minute
	}

	m := everyPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}

	switch strings.ToLower(m[2]) {
	case "":
		return time.Duration(n) * defaultUnit, true
	case "m", "min":
		return time.Duration(n) * time.Minute, true
	case "h", "hr":
		return time.Duration(n) * time.Hour, true
	case "s", "sec":
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}
