package gateway

import (
	"encoding/json"
	"log"
	"mime"
	"regexp"
	"strings"
)

// delimiterTagPattern matches the provider-specific tag that encloses tool
// result payloads, e.g. <untrusted-data-1a2b3c> ... </untrusted-data-1a2b3c>.
var delimiterTagPattern = regexp.MustCompile(`(?s)<(untrusted-data-[0-9a-zA-Z-]+)>(.*)</(untrusted-data-[0-9a-zA-Z-]+)>`)

// IsEventStream reports whether the content type describes a streamed
// event sequence.
func IsEventStream(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.ToLower(contentType))
	}
	return mediaType == "text/event-stream"
}

// LastEventData extracts the data payload of the final event frame in a
// server-sent event stream. Multi-line data fields are joined with newlines,
// matching the SSE wire format.
func LastEventData(body []byte) []byte {
	var last []string
	var current []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				last = current
				current = nil
			}
			continue
		}
		if value, ok := strings.CutPrefix(line, "data:"); ok {
			current = append(current, strings.TrimPrefix(value, " "))
		}
	}
	if len(current) > 0 {
		last = current
	}
	if len(last) == 0 {
		return nil
	}
	return []byte(strings.Join(last, "\n"))
}

// StripDelimiterTag removes one enclosing provider delimiter tag when present.
func StripDelimiterTag(text string) string {
	trimmed := strings.TrimSpace(text)
	match := delimiterTagPattern.FindStringSubmatch(trimmed)
	if len(match) == 4 && match[1] == match[3] {
		return strings.TrimSpace(match[2])
	}
	return trimmed
}

// RecoverValue recovers a JSON value from a gateway payload on a best-effort
// basis. The payload may be double-encoded (escaped quotes and backslashes)
// because of how the upstream tool serializes query results. When no
// JSON-shaped value can be recovered the raw text is returned verbatim;
// RecoverValue never fails merely because the payload is not JSON.
func RecoverValue(text string) any {
	candidate := StripDelimiterTag(text)
	if candidate == "" {
		return text
	}

	if value, ok := parseJSON(candidate); ok {
		// A JSON string whose content is itself JSON is the double-encoded
		// shape; unwrap exactly one level.
		if inner, isString := value.(string); isString {
			if innerValue, ok := parseJSON(strings.TrimSpace(inner)); ok {
				return innerValue
			}
		}
		return value
	}

	if unescaped, changed := unescapeOnce(candidate); changed {
		if value, ok := parseJSON(unescaped); ok {
			return value
		}
	}

	log.Printf("gateway: payload is not JSON-shaped, returning raw text (%d bytes)", len(text))
	return text
}

// parseJSON parses candidate when it looks JSON-shaped.
func parseJSON(candidate string) (any, bool) {
	if !jsonShaped(candidate) {
		return nil, false
	}
	var value any
	if err := json.Unmarshal([]byte(candidate), &value); err != nil {
		return nil, false
	}
	return value, true
}

// jsonShaped reports whether the text starts like a JSON document.
func jsonShaped(text string) bool {
	switch {
	case text == "":
		return false
	case text[0] == '{', text[0] == '[', text[0] == '"':
		return true
	case text == "null" || text == "true" || text == "false":
		return true
	case text[0] == '-' || (text[0] >= '0' && text[0] <= '9'):
		return true
	}
	return false
}

// unescapeOnce reverses one level of JSON string escaping. It reports
// whether the input contained any escape sequences.
func unescapeOnce(text string) (string, bool) {
	if !strings.Contains(text, `\`) {
		return text, false
	}
	replacer := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\t`, "\t", `\r`, "\r")
	return replacer.Replace(text), true
}
