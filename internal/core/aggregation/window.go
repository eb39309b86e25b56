package aggregation

import (
	"fmt"
	"time"
)

// ParseFlushInterval parses a flush period.
// Supports Go duration syntax (e.g., "10s", "1m", "1h") plus "Xd" for days.
// Periods below one second are rejected: the flush driver ticks in whole seconds.
func ParseFlushInterval(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("flush_interval must not be empty")
	}

	// time.ParseDuration has no "d" unit.
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err != nil {
			return 0, fmt.Errorf("invalid flush_interval %q: %w", s, err)
		}
		if days <= 0 {
			return 0, fmt.Errorf("flush_interval must be positive, got %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid flush_interval %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("flush_interval must be positive, got %q", s)
	}
	if d < time.Second || d%time.Second != 0 {
		return 0, fmt.Errorf("flush_interval must be a whole number of seconds, got %q", s)
	}
	return d, nil
}
