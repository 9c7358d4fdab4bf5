package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock converts an "HH:MM" string into minutes from midnight of the
// event day. Hours may exceed 24: "38:00" is 14:00 on the following day.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 {
		return 0, fmt.Errorf("invalid clock %q: bad hour", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock %q: bad minute", s)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes as "HH:MM", keeping hours past 24.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
