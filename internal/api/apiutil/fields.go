package apiutil

import (
	"fmt"
	"strings"
	"time"

	appdb "github.com/codr1/Shuttleicious/internal/db"
)

// CheckIntRange reports a FieldError when value falls outside [minValue, maxValue].
func CheckIntRange(value int, field string, minValue, maxValue int) error {
	if value < minValue || value > maxValue {
		return FieldError{Field: field, Reason: fmt.Sprintf("must be between %d and %d", minValue, maxValue)}
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD day in UTC.
func ParseDate(raw string, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, FieldError{Field: field, Reason: "is required"}
	}
	parsed, err := time.ParseInLocation(appdb.DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, FieldError{Field: field, Reason: fmt.Sprintf("must be a date in %s format", appdb.DateLayout)}
	}
	return parsed, nil
}
