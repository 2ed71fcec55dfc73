package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar day key format used across the booking service.
// Dates carry no timezone; they are opaque day identifiers.
const DateLayout = "2006-01-02"

// Pattern selects which calendar dates within a range receive a generated occurrence.
type Pattern string

const (
	// PatternDaily includes every date in the range.
	PatternDaily Pattern = "daily"
	// PatternWeekdays includes Monday through Friday only.
	PatternWeekdays Pattern = "weekdays"
	// PatternWeekly includes every seventh day counted from the range start.
	PatternWeekly Pattern = "weekly"
)

// ErrInvalidPattern indicates the recurrence pattern is not supported.
var ErrInvalidPattern = errors.New("recurrence: invalid pattern")

// ErrInvalidRange indicates the end date precedes the start date.
var ErrInvalidRange = errors.New("recurrence: to date precedes from date")

// ErrInvalidDate indicates a date argument does not match DateLayout.
var ErrInvalidDate = errors.New("recurrence: invalid date")

// ParsePattern converts a caller supplied string into a Pattern.
func ParsePattern(value string) (Pattern, error) {
	switch Pattern(value) {
	case PatternDaily, PatternWeekdays, PatternWeekly:
		return Pattern(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPattern, value)
	}
}

// Expand returns the occurrence dates selected by the pattern over the
// inclusive range [fromDate, toDate], in ascending order.
//
// The range is validated before any date is produced so callers can reject an
// invalid request without partial work. Weekly expansion anchors to the day
// offset from fromDate, not to any weekday of a template booking.
func Expand(fromDate, toDate string, pattern Pattern) ([]string, error) {
	from, err := time.Parse(DateLayout, fromDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, fromDate)
	}
	to, err := time.Parse(DateLayout, toDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, toDate)
	}
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	days := int(to.Sub(from).Hours() / 24)
	dates := make([]string, 0, days+1)
	for offset := 0; offset <= days; offset++ {
		current := from.AddDate(0, 0, offset)
		include, err := includes(pattern, offset, current.Weekday())
		if err != nil {
			return nil, err
		}
		if include {
			dates = append(dates, current.Format(DateLayout))
		}
	}

	return dates, nil
}

func includes(pattern Pattern, offset int, day time.Weekday) (bool, error) {
	switch pattern {
	case PatternDaily:
		return true, nil
	case PatternWeekdays:
		return day != time.Saturday && day != time.Sunday, nil
	case PatternWeekly:
		return offset%7 == 0, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
}
