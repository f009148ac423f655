package event

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeZoneName is the zone all registration times are interpreted in.
// laget.se serves Swedish clubs only, so the zone is fixed.
const TimeZoneName = "Europe/Stockholm"

const (
	// defaultDuration is used when no end time can be parsed.
	defaultDuration = time.Hour

	// rolloverGrace is how far in the past a yearless date may fall before
	// it is assumed to mean next year. Registrations are always upcoming or
	// same-day; the grace keeps just-finished events in the current year.
	rolloverGrace = 7 * 24 * time.Hour
)

// LoadLocation resolves the fixed timezone.
func LoadLocation() (*time.Location, error) {
	return time.LoadLocation(TimeZoneName)
}

// ParseError reports an unparsable date or time field. Records with a
// ParseError are skipped, never fatal.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s %q", e.Field, e.Value)
}

// Swedish month names as they appear on the site, full and abbreviated.
// Parsed with an explicit table so no locale support is needed.
var swedishMonths = map[string]time.Month{
	"januari": time.January, "februari": time.February, "mars": time.March,
	"april": time.April, "maj": time.May, "juni": time.June,
	"juli": time.July, "augusti": time.August, "september": time.September,
	"oktober": time.October, "november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "okt": time.October,
	"nov": time.November, "dec": time.December,
}

var (
	datePattern  = regexp.MustCompile(`(\d{1,2})\s+(\p{L}+)`)
	clockPattern = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	endPattern   = regexp.MustCompile(`[-–](\d{1,2}):(\d{2})`)
)

// ParseDateTime converts the raw date, time and optional gathering-time
// strings into concrete start/end instants.
//
// dateStr looks like "14 november" (weekday prefixes are tolerated),
// timeStr like "18:00-19:30" or "18:00", gatherStr like "14 nov, 17:30".
// A gathering time, when present, becomes the event start since it is when
// attendees are expected. The site never states a year: the date is placed
// in now's year, rolling to the next year when it would land more than a
// grace window in the past.
func ParseDateTime(dateStr, timeStr, gatherStr string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	day, month, err := parseDate(dateStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	startHour, startMin, err := parseClock(timeStr)
	if err != nil {
		return time.Time{}, time.Time{}, &ParseError{Field: "time", Value: timeStr}
	}

	// Gathering time overrides the nominal start; fall back to the event
	// time when the gathering string has no parseable clock.
	if gatherStr != "" {
		if h, m, gerr := parseClock(gatherStr); gerr == nil {
			startHour, startMin = h, m
		}
	}

	start := time.Date(now.Year(), month, day, startHour, startMin, 0, 0, loc)
	end := start.Add(defaultDuration)

	if em := endPattern.FindStringSubmatch(timeStr); em != nil {
		endHour, _ := strconv.Atoi(em[1])
		endMin, _ := strconv.Atoi(em[2])
		end = time.Date(now.Year(), month, day, endHour, endMin, 0, 0, loc)
	}

	if start.Before(now.Add(-rolloverGrace)) {
		start = start.AddDate(1, 0, 0)
		end = end.AddDate(1, 0, 0)
	}

	// Keep start <= end; a malformed range falls back to the default length.
	if end.Before(start) {
		end = start.Add(defaultDuration)
	}

	return start, end, nil
}

func parseDate(dateStr string) (int, time.Month, error) {
	m := datePattern.FindStringSubmatch(dateStr)
	if m == nil {
		return 0, 0, &ParseError{Field: "date", Value: dateStr}
	}

	day, _ := strconv.Atoi(m[1])
	month, ok := swedishMonths[strings.ToLower(m[2])]
	if !ok || day < 1 || day > 31 {
		return 0, 0, &ParseError{Field: "date", Value: dateStr}
	}
	return day, month, nil
}

func parseClock(s string) (int, int, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("no clock in %q", s)
	}
	hour, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	if hour > 23 || min > 59 {
		return 0, 0, fmt.Errorf("clock out of range in %q", s)
	}
	return hour, min, nil
}
