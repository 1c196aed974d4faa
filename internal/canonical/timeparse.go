package canonical

import (
	"fmt"
	"strings"
	"time"
)

// Vendors disagree on date formats: some send pure dates, some a combined ISO
// string with or without a zone, some split date and clock into two fields.
// Everything is normalized to a timezone-aware time.Time here; naive values
// are interpreted in the supplied location.
var combinedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseVendorTime parses a vendor date or datetime string. loc may be nil,
// in which case UTC is used for naive values.
func ParseVendorTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("canonical: empty date string")
	}
	for _, layout := range combinedLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("canonical: unrecognized date format %q", s)
}

// CombineDateTime joins a pure date and a clock value ("15:04" or "15:04:05")
// into one instant in loc.
func CombineDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return ParseVendorTime(date, loc)
	}
	layout := "2006-01-02 15:04"
	if strings.Count(clock, ":") == 2 {
		layout = "2006-01-02 15:04:05"
	}
	t, err := time.ParseInLocation(layout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("canonical: combine %q %q: %w", date, clock, err)
	}
	return t, nil
}
