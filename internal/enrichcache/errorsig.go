package enrichcache

import (
	"encoding/json"
	"regexp"
)

// errorSignaturePatterns match textual payloads that describe a failure
// rather than usable enrichment data. Gateways sometimes wrap error prose in
// a 200 response, so the payload text is the only reliable signal.
var errorSignaturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*error[:\s]`),
	regexp.MustCompile(`(?i)\bauthorization (failed|error)\b`),
	regexp.MustCompile(`(?i)\bpermission denied\b`),
	regexp.MustCompile(`(?i)\baccess denied\b`),
	regexp.MustCompile(`(?i)\bunauthorized\b`),
	regexp.MustCompile(`(?i)\btimed? ?out\b`),
	regexp.MustCompile(`(?i)\bnetwork error\b`),
	regexp.MustCompile(`(?i)\bconnection refused\b`),
	regexp.MustCompile(`(?i)\brate limit`),
	regexp.MustCompile(`(?i)\binternal server error\b`),
}

// LooksLikeError reports whether content reads as an error payload. JSON
// content is inspected field by field so an error message nested inside an
// otherwise well-formed document is still caught; non-JSON content is
// matched as plain text.
func LooksLikeError(content string) bool {
	if content == "" {
		return false
	}

	var decoded any
	if err := json.Unmarshal([]byte(content), &decoded); err == nil {
		return anyStringMatches(decoded)
	}
	return matchesErrorSignature(content)
}

// anyStringMatches walks a decoded JSON value and matches every string leaf.
func anyStringMatches(value any) bool {
	switch v := value.(type) {
	case string:
		return matchesErrorSignature(v)
	case []any:
		for _, item := range v {
			if anyStringMatches(item) {
				return true
			}
		}
	case map[string]any:
		for _, item := range v {
			if anyStringMatches(item) {
				return true
			}
		}
	}
	return false
}

func matchesErrorSignature(text string) bool {
	for _, pattern := range errorSignaturePatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}
