package subagent

import "regexp"

// IssueType identifies the type of issue detected in subprocess output.
type IssueType string

const (
	IssueNone      IssueType = ""
	IssueAuth      IssueType = "auth_required"
	IssueRateLimit IssueType = "rate_limited"
)

// Pattern detection for auth errors
var authPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)API Error:\s*401.*authentication_error`),
	regexp.MustCompile(`(?i)OAuth token has expired`),
	regexp.MustCompile(`(?i)Please run /login`),
	regexp.MustCompile(`(?i)authentication_error.*OAuth token`),
	regexp.MustCompile(`(?i)invalid.*token`),
	regexp.MustCompile(`(?i)token.*expired`),
}

// Pattern detection for rate limits
var rateLimitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)You've hit your limit`),
	regexp.MustCompile(`(?i)rate limit`),
	regexp.MustCompile(`(?i)too many requests`),
	regexp.MustCompile(`(?i)API Error:\s*429`),
}

// DetectIssue checks one output line for a known failure signature.
// Auth errors win over rate limits when a line matches both.
func DetectIssue(line string) IssueType {
	for _, pattern := range authPatterns {
		if pattern.MatchString(line) {
			return IssueAuth
		}
	}
	for _, pattern := range rateLimitPatterns {
		if pattern.MatchString(line) {
			return IssueRateLimit
		}
	}
	return IssueNone
}
