// Package sql provides quote-aware splitting and advisory screening of
// generated cleaning scripts. Dialect validation stays with the engine; this
// package only prepares statements for execution and flags suspicious
// literals.
package sql

import (
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// SplitStatements splits a multi-statement script on semicolons, ignoring
// semicolons inside single- or double-quoted literals. Empty statements are
// dropped; comments are kept with their statement.
func SplitStatements(script string) []string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	var statements []string
	var current strings.Builder
	state := stateNormal
	runes := []rune(script)

	for i := 0; i < len(runes); i++ {
		char := runes[i]
		current.WriteRune(char)

		switch state {
		case stateNormal:
			switch char {
			case ';':
				stmt := strings.TrimSpace(strings.TrimSuffix(current.String(), ";"))
				if stmt != "" {
					statements = append(statements, stmt)
				}
				current.Reset()
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			if char == '\'' {
				// SQL standard escape: '' stays inside the literal.
				if i+1 < len(runes) && runes[i+1] == '\'' {
					current.WriteRune(runes[i+1])
					i++
				} else {
					state = stateNormal
				}
			}
		case stateDoubleQuote:
			if char == '"' {
				state = stateNormal
			}
		}
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// ScreenResult flags a string literal inside a generated script that
// libinjection fingerprints as a SQL injection pattern.
type ScreenResult struct {
	Literal     string // The literal that was flagged
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// ScreenScript runs every string literal of the script through libinjection.
// The result is advisory only: generated scripts legitimately contain SQL,
// so only their embedded literals are screened, and findings are logged
// rather than blocking execution.
func ScreenScript(script string) []ScreenResult {
	var results []ScreenResult
	for _, lit := range stringLiterals(script) {
		if len(lit) < 4 {
			continue
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(lit); isSQLi {
			results = append(results, ScreenResult{Literal: lit, Fingerprint: string(fingerprint)})
		}
	}
	return results
}

// stringLiterals extracts the contents of single-quoted literals.
func stringLiterals(script string) []string {
	var literals []string
	var current strings.Builder
	inString := false
	runes := []rune(script)

	for i := 0; i < len(runes); i++ {
		char := runes[i]
		if !inString {
			if char == '\'' {
				inString = true
				current.Reset()
			}
			continue
		}
		if char == '\'' {
			if i+1 < len(runes) && runes[i+1] == '\'' {
				current.WriteRune('\'')
				i++
				continue
			}
			inString = false
			literals = append(literals, current.String())
			continue
		}
		current.WriteRune(char)
	}

	return literals
}
