package llm

import (
	"regexp"
	"strings"
)

// sqlFencePattern matches a ```sql fenced block.
var sqlFencePattern = regexp.MustCompile("(?is)```sql\\s*(.*?)```")

// genericFencePattern matches any fenced block.
var genericFencePattern = regexp.MustCompile("(?s)```\\s*(.*?)```")

// sqlStatementPattern finds the start of a bare SQL statement when the model
// skipped the fences entirely.
var sqlStatementPattern = regexp.MustCompile(`(?i)\b(CREATE|INSERT|SELECT|UPDATE|DELETE|ALTER|DROP|WITH)\b[\s\S]*?;`)

// ExtractSQL pulls the executable SQL out of a generator response. It
// prefers a ```sql fence, then any fence, then a bare statement sequence.
// Returns "" when the response contains no recognizable SQL.
func ExtractSQL(response string) string {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")

	if m := sqlFencePattern.FindStringSubmatch(cleaned); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := genericFencePattern.FindStringSubmatch(cleaned); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := sqlStatementPattern.FindStringIndex(cleaned); loc != nil {
		// Bare statements: take everything from the first keyword on.
		return strings.TrimSpace(cleaned[loc[0]:])
	}
	return ""
}

// ExtractReasoning returns the free-text reasoning of a generator response:
// the prose with all fenced code removed. Falls back to the text before the
// first fence when stripping leaves nothing meaningful.
func ExtractReasoning(response string) string {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")

	reasoning := sqlFencePattern.ReplaceAllString(cleaned, "")
	reasoning = genericFencePattern.ReplaceAllString(reasoning, "")
	reasoning = strings.TrimSpace(reasoning)

	if len(reasoning) < 50 {
		if i := strings.Index(cleaned, "```"); i > 0 {
			return strings.TrimSpace(cleaned[:i])
		}
	}

	return reasoning
}
