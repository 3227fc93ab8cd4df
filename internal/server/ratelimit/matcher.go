package ratelimit

import "strings"

// MatchRule returns the first rule whose method and pattern match the request,
// or nil. "GET /health" is never limited.
//
// Patterns are slash-separated; a "*" segment matches any single path segment,
// so "/v1/admin/applications/*/approve" covers every application id.
func MatchRule(path, method string, rules []Rule) *Rule {
	if method == "GET" && path == "/health" {
		return &Rule{Name: "health"}
	}
	segments := splitPath(path)
	for i := range rules {
		r := &rules[i]
		if r.Method != "" && r.Method != method {
			continue
		}
		if segmentsMatch(splitPath(r.Pattern), segments) {
			return r
		}
	}
	return nil
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

func segmentsMatch(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, seg := range pattern {
		if seg != "*" && seg != path[i] {
			return false
		}
	}
	return true
}
