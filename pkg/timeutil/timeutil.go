// Package timeutil parses the timestamp formats the backend emits.
package timeutil

import (
	"strings"
	"time"
)

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999", // LocalDateTime without zone
	"2006-01-02T15:04:05",
}

// Parse accepts the backend's createdAt variants and returns UTC.
// An empty or unparseable value yields the zero time.
func Parse(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
