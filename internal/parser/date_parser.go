package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateRegex     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	lookbackRegex = regexp.MustCompile(`^(\d+)\s*(hour|hours|h|day|days|d|week|weeks|w)$`)
)

// ParseDate parses a dd/mm/yyyy calendar date as midnight UTC
func ParseDate(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	matches := dateRegex.FindStringSubmatch(input)
	if len(matches) != 4 {
		return time.Time{}, fmt.Errorf("invalid date %q. Use: dd/mm/yyyy", input)
	}

	day, _ := strconv.Atoi(matches[1])
	month, _ := strconv.Atoi(matches[2])
	year, _ := strconv.Atoi(matches[3])

	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day must be between 1 and 31")
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month must be between 1 and 12")
	}
	if year < 1970 || year > 2100 {
		return time.Time{}, fmt.Errorf("year must be between 1970 and 2100")
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)

	// time.Date normalizes 31/02 into March
	if date.Day() != day || date.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("invalid date %q", input)
	}
	return date, nil
}

// ParseLookback turns "3 days", "2 weeks" or "24 hours" into the instant that
// far before now. A dd/mm/yyyy date is accepted too.
func ParseLookback(input string, now time.Time) (time.Time, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return time.Time{}, nil
	}

	if date, err := ParseDate(input); err == nil {
		return date, nil
	}

	matches := lookbackRegex.FindStringSubmatch(input)
	if len(matches) != 3 {
		return time.Time{}, fmt.Errorf("invalid lookback %q. Use: dd/mm/yyyy, X days, X hours, or X weeks", input)
	}

	amount, err := strconv.Atoi(matches[1])
	if err != nil || amount < 1 {
		return time.Time{}, fmt.Errorf("lookback amount must be a positive number")
	}

	switch matches[2] {
	case "hour", "hours", "h":
		if amount > 8760 { // Max 1 year in hours
			return time.Time{}, fmt.Errorf("hours must be between 1 and 8760")
		}
		return now.Add(-time.Duration(amount) * time.Hour), nil
	case "day", "days", "d":
		if amount > 3650 {
			return time.Time{}, fmt.Errorf("days must be between 1 and 3650")
		}
		return now.AddDate(0, 0, -amount), nil
	default:
		if amount > 520 {
			return time.Time{}, fmt.Errorf("weeks must be between 1 and 520")
		}
		return now.AddDate(0, 0, -7*amount), nil
	}
}

// FormatDate renders a date the way ParseDate reads it
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatAge describes how long ago t was, in calendar days relative to now
func FormatAge(t, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	t = t.In(now.Location())
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
	days := int(today.Sub(day).Hours() / 24)

	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return FormatDate(t)
	}
}
