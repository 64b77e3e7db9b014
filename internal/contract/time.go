package contract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Matches compact and human-readable window formats: "7d", "2 weeks", "36 hours".
var windowDurationRe = regexp.MustCompile(`^(\d+)\s*(year|month|week|day|hour|minute|d|w|h|m)s?$`)

// ParseWindowDuration converts strings like "7d", "168h" or "2 weeks" into a
// time.Duration. It first tries Go's built-in time.ParseDuration for standard
// formats, then falls back to custom parsing for human-readable formats.
func ParseWindowDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	// Try Go's built-in duration parsing first (e.g., "720h", "168h", "30m")
	if duration, err := time.ParseDuration(s); err == nil {
		if duration <= 0 {
			return 0, errors.New("window must be positive")
		}
		return duration, nil
	}

	s = strings.ToLower(s)
	matches := windowDurationRe.FindStringSubmatch(s)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid window duration format: %s", s)
	}

	value, _ := strconv.Atoi(matches[1])
	unit := matches[2]

	var total time.Duration
	switch unit {
	case "year":
		// Approximation: 1 year ≈ 365 days
		total = time.Duration(value) * 365 * 24 * time.Hour
	case "month":
		// Approximation: 1 month ≈ 30 days
		total = time.Duration(value) * 30 * 24 * time.Hour
	case "week", "w":
		total = time.Duration(value) * 7 * 24 * time.Hour
	case "day", "d":
		total = time.Duration(value) * 24 * time.Hour
	case "hour", "h":
		total = time.Duration(value) * time.Hour
	case "minute", "m":
		total = time.Duration(value) * time.Minute
	default:
		// Should be caught by the regex
		return 0, errors.New("unsupported time unit")
	}

	if total == 0 {
		return 0, errors.New("window must be positive")
	}
	return total, nil
}

// WindowHours converts a window duration to fractional hours, the unit used
// throughout the decay and aggregation math.
func WindowHours(d time.Duration) float64 {
	return d.Hours()
}
