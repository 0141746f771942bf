package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// thinkTagPattern strips <think>...</think> blocks that reasoning models
// (DeepSeek R1 and friends) prepend to their answers.
var thinkTagPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// codeFencePattern strips ```json / ``` fences some models wrap JSON in
// despite instructions.
var codeFencePattern = regexp.MustCompile("```(?:json)?")

// ExtractJSON extracts the first balanced JSON object from a model response
// that may contain think tags, markdown fences, or surrounding prose.
func ExtractJSON(response string) (string, error) {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")
	cleaned = codeFencePattern.ReplaceAllString(cleaned, "")

	if jsonStr, ok := extractBalancedObject(cleaned); ok {
		if json.Valid([]byte(jsonStr)) {
			return jsonStr, nil
		}
	}

	trimmed := strings.TrimSpace(cleaned)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	return "", fmt.Errorf("no valid JSON object found in response")
}

// extractBalancedObject finds the first balanced {...} structure, tracking
// string literals and escapes so braces inside values don't break depth
// counting.
func extractBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into T.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}
