package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDurationLabel turns pricing labels such as "30 mins", "1 hour",
// "2 hours" or "1.5 hours" into a duration. Plain Go durations ("90m") work too.
func ParseDurationLabel(label string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return 0, fmt.Errorf("empty duration label")
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return wholeMinutes(d, label)
	}

	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, fmt.Errorf("unrecognised duration label %q", label)
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unrecognised duration amount in %q", label)
	}

	var unit time.Duration
	switch fields[1] {
	case "min", "mins", "minute", "minutes", "m":
		unit = time.Minute
	case "hr", "hrs", "hour", "hours", "h":
		unit = time.Hour
	default:
		return 0, fmt.Errorf("unrecognised duration unit in %q", label)
	}
	return wholeMinutes(time.Duration(n*float64(unit)), label)
}

func wholeMinutes(d time.Duration, label string) (time.Duration, error) {
	if d%time.Minute != 0 {
		return 0, fmt.Errorf("duration %q is not a whole number of minutes", label)
	}
	return d, nil
}

// DurationLabel renders minutes the way the pricing table shows them.
func DurationLabel(minutes int) string {
	switch {
	case minutes%60 == 0 && minutes == 60:
		return "1 hour"
	case minutes%60 == 0:
		return fmt.Sprintf("%d hours", minutes/60)
	default:
		return fmt.Sprintf("%d mins", minutes)
	}
}
