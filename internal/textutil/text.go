package textutil

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

// endKeywords is the closed set of messages that terminate a session.
// Matching is exact on the trimmed, lowercased input; "goodbye" is not a member.
var endKeywords = map[string]struct{}{
	"bye":       {},
	"exit":      {},
	"quit":      {},
	"stop":      {},
	"end":       {},
	"thank you": {},
	"thanks":    {},
}

var (
	ratingPattern = regexp.MustCompile(`\b(10|[1-9])\b`)
	letterPattern = regexp.MustCompile(`[a-zA-Z]`)
)

const (
	maxTechNameLen = 50
	maxTechCount   = 10
)

// IsEndMessage reports whether the input is one of the fixed end keywords.
func IsEndMessage(s string) bool {
	_, ok := endKeywords[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// MaskValue replaces most of the input with asterisks while keeping its shape:
// alphabetic runs longer than one character keep their first letter, digit
// runs of three or more characters are fully masked, everything else is kept
// verbatim.
func MaskValue(value string) string {
	if value == "" {
		return value
	}

	var out strings.Builder
	runes := []rune(value)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsLetter(r):
			j := i
			for j < len(runes) && unicode.IsLetter(runes[j]) {
				j++
			}
			out.WriteRune(runes[i])
			if j-i > 1 {
				out.WriteString(strings.Repeat("*", j-i-1))
			}
			i = j
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			if j-i >= 3 {
				out.WriteString(strings.Repeat("*", j-i))
			} else {
				out.WriteString(string(runes[i:j]))
			}
			i = j
		default:
			out.WriteRune(r)
			i++
		}
	}

	return out.String()
}

// MaskEmail keeps the first character of the local part and the whole domain.
// Inputs without an "@" or with an empty local part fall back to MaskValue.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)

	at := strings.Index(email, "@")
	if at <= 0 {
		return MaskValue(email)
	}

	local := []rune(email[:at])
	masked := len(local) - 1
	if masked < 1 {
		masked = 1
	}

	return string(local[0]) + strings.Repeat("*", masked) + email[at:]
}

// ExtractJSON pulls the first JSON object out of free-form model output. It
// tries the whole string first, then the substring between the first "{" and
// the last "}". Arrays and scalars are rejected.
func ExtractJSON(text string) (map[string]any, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	if obj, ok := parseObject(text); ok {
		return obj, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, false
	}

	return parseObject(text[start : end+1])
}

func parseObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// ParseTechList splits a comma-separated technology list, dropping empty
// tokens and tokens without a single letter. Names are distinct
// (case-insensitively, first spelling wins), capped at 50 characters, and the
// list at 10 entries.
func ParseTechList(s string) []string {
	techs := make([]string, 0)
	seen := make(map[string]struct{})

	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" || !letterPattern.MatchString(token) {
			continue
		}

		if runes := []rune(token); len(runes) > maxTechNameLen {
			token = string(runes[:maxTechNameLen])
		}

		key := strings.ToLower(token)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		techs = append(techs, token)
		if len(techs) == maxTechCount {
			break
		}
	}

	return techs
}

// ParseRating finds a standalone 1-10 token in the input. Digits embedded in
// longer numbers ("100", "11") never match.
func ParseRating(s string) (int, bool) {
	match := ratingPattern.FindString(strings.TrimSpace(s))
	if match == "" {
		return 0, false
	}

	if match == "10" {
		return 10, true
	}

	return int(match[0] - '0'), true
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
