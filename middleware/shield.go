package middleware

import (
	"net/url"
	"regexp"
	"strings"
)

var sqlInjectionPatterns = compileAll(
	`(?i)(union\s+select)`,
	`(?i)(insert\s+into)`,
	`(?i)(delete\s+from)`,
	`(?i)(drop\s+table)`,
	`(?i)(update\s+\w+\s+set)`,
	`(?i)(';\s*--)`,
	`(?i)(or\s+1\s*=\s*1)`,
	`(?i)(or\s+'1'\s*=\s*'1)`,
	`(?i)(;\s*drop)`,
)

var xssPatterns = compileAll(
	`(?i)(<script)`,
	`(?i)(javascript:)`,
	`(?i)(onerror\s*=)`,
	`(?i)(onload\s*=)`,
	`(?i)(<iframe)`,
	`(?i)(onclick\s*=)`,
	`(?i)(onmouseover\s*=)`,
)

// Mongo query operators smuggled through query keys, e.g. status[$ne]=cancelled.
var operatorInjectionPattern = regexp.MustCompile(`\$(where|ne|gt|gte|lt|lte|in|nin|regex|expr|or|and|not|exists|function)\b`)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, input string) bool {
	for _, p := range patterns {
		if p.MatchString(input) {
			return true
		}
	}
	return false
}

// Shield flags requests whose path or query carry common attack payloads.
type Shield struct{}

func NewShield() *Shield {
	return &Shield{}
}

// Inspect returns the name of the first matched attack class, or "" if the request
// looks clean.
func (s *Shield) Inspect(path, rawQuery string) string {
	decodedPath, err := url.PathUnescape(path)
	if err != nil {
		decodedPath = path
	}
	decodedQuery, err := url.QueryUnescape(rawQuery)
	if err != nil {
		decodedQuery = rawQuery
	}

	if strings.Contains(decodedPath, "../") || strings.Contains(decodedPath, `..\`) {
		return "path_traversal"
	}

	for _, input := range []string{decodedPath, decodedQuery} {
		if matchesAny(xssPatterns, input) {
			return "xss"
		}
		if matchesAny(sqlInjectionPatterns, input) {
			return "sql_injection"
		}
	}

	if operatorInjectionPattern.MatchString(decodedQuery) {
		return "operator_injection"
	}

	return ""
}
