package heartbeat

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Status classifies one heartbeat tick.
type Status string

// Heartbeat tick statuses.
const (
	StatusOKEmpty Status = "ok-empty" // reply was empty, nothing to deliver
	StatusOKToken Status = "ok-token" // reply was the OK token plus at most a short ack
	StatusSent    Status = "sent"     // reply carried real content, delivered as an alert
	StatusSkipped Status = "skipped"  // tick not attempted (busy, no channel, disabled)
	StatusFailed  Status = "failed"   // turn or delivery errored
)

// Models often dress the token up when asked to reply with a bare
// marker: <b>HEARTBEAT_OK</b>, **HEARTBEAT_OK**, `HEARTBEAT_OK` in a
// code tag. The pattern eats those wrappers along with the token.
// Underscore emphasis (_HEARTBEAT_OK_) is deliberately not matched: the
// underscore is a word character, so the boundary fails and the text is
// left untouched.
var tokenPattern = regexp.MustCompile(`(?i)(?:<(?:b|strong|em|i|code|span[^>]*)>|\*{1,2})*\bHEARTBEAT_OK\b(?:</(?:b|strong|em|i|code|span)>|\*{1,2})*`)

// StripToken removes every HEARTBEAT_OK token from a reply and trims
// the result. Stripping is idempotent.
func StripToken(reply string) string {
	return strings.TrimSpace(tokenPattern.ReplaceAllString(reply, ""))
}

// Evaluation is the outcome of classifying one heartbeat reply.
type Evaluation struct {
	Status  Status
	Text    string // stripped reply text, populated when Status is sent
	Deliver bool
}

// Evaluate classifies a heartbeat reply. An empty reply is ok-empty; a
// reply whose leftover text after token stripping fits in ackMaxChars
// is a mere acknowledgement (ok-token); anything longer, or any reply
// without the token, is delivered as an alert.
func Evaluate(reply string, ackMaxChars int) Evaluation {
	if strings.TrimSpace(reply) == "" {
		return Evaluation{Status: StatusOKEmpty}
	}

	hadToken := tokenPattern.MatchString(reply)
	stripped := StripToken(reply)

	if hadToken && utf8.RuneCountInString(stripped) <= ackMaxChars {
		return Evaluation{Status: StatusOKToken}
	}
	return Evaluation{Status: StatusSent, Text: stripped, Deliver: true}
}
