package apihttp

import (
	"time"

	"oee-backend/internal/apperr"
)

// timeLayouts are the accepted timestamp texts, all interpreted as UTC
// unless the text carries a zone of its own.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.999999Z",
}

// ParseTimestamp tries each accepted layout in order and returns the
// first match in UTC. Unparsable input is a validation error.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperr.Validation("timestamp is required")
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validationf("unparsable timestamp %q", value)
}
