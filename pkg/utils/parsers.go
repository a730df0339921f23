package utils

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate parses a CLI date argument. Accepts "today", "yesterday",
// YYYY-MM-DD and DD/MM/YYYY.
func ParseDate(input string) (time.Time, error) {
	input = strings.TrimSpace(input)

	switch input {
	case "today":
		return time.Now(), nil
	case "yesterday":
		return time.Now().AddDate(0, 0, -1), nil
	}

	formats := []string{"2006-01-02", "02/01/2006"}
	for _, f := range formats {
		if parsed, err := time.Parse(f, input); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q (want YYYY-MM-DD)", input)
}
