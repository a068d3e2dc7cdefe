package utils

import (
	"log"
	"time"
)

const DefaultDateFormat = time.RFC3339

// ParseDate parses a stored timestamp, trying the default format first and
// falling back to a bare date. Logs and returns the zero time if parsing
// fails; a bad date must never fail a read.
func ParseDate(dateStr string) time.Time {
	t, err := time.Parse(DefaultDateFormat, dateStr)
	if err == nil {
		return t
	}
	if t, fallbackErr := time.Parse("2006-01-02", dateStr); fallbackErr == nil {
		return t
	}
	log.Printf("Error parsing date '%s' with format '%s': %v. Returning zero time.", dateStr, DefaultDateFormat, err)
	return time.Time{}
}

// FormatDate renders a time in the stored form: RFC3339 in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DefaultDateFormat)
}
