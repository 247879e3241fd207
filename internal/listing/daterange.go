package listing

import (
	"fmt"
	"strings"
	"time"

	"ebaymonitor/server/pkg/errors"
)

// lastMinute is the offset of 23:59 from the start of a day
const lastMinute = 23*time.Hour + 59*time.Minute

var (
	// MinTime and MaxTime stand in for absent bounds
	MinTime = time.Time{}
	MaxTime = time.Unix(1<<63-62135596801, 999999999)

	boundLayouts = []string{
		"2006-01-02",
		"2006-01-02T15:04",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02 15:04:05",
		time.RFC3339,
	}
)

// DateRange is an inclusive [From, To] window over listing timestamps.
// The zero value accepts every timestamp.
type DateRange struct {
	From time.Time
	To   time.Time

	bounded bool
}

// NewDateRange resolves optional from/to strings into a concrete range.
// A bare date equal on both ends covers that whole day, and a "to" of today
// is stretched to today's last minute.
func NewDateRange(from, to string, now time.Time, loc *time.Location) (DateRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return DateRange{From: MinTime, To: MaxTime}, nil
	}

	r := DateRange{From: MinTime, To: MaxTime, bounded: true}
	if from != "" {
		t, err := parseBound(from, loc)
		if err != nil {
			return DateRange{}, errors.NewInput("dateFrom", fmt.Sprintf("unrecognized date %q", from), err)
		}
		r.From = t
	}
	if to != "" {
		t, err := parseBound(to, loc)
		if err != nil {
			return DateRange{}, errors.NewInput("dateTo", fmt.Sprintf("unrecognized date %q", to), err)
		}
		r.To = t
	}

	today := startOfDay(now.In(loc))
	switch {
	case r.From.Equal(r.To):
		day := startOfDay(r.From)
		r.From = day
		r.To = day.Add(lastMinute)
	case r.To.Equal(today):
		r.To = today.Add(lastMinute)
	}

	return r, nil
}

// Contains reports whether t falls inside the range, endpoints included
func (r DateRange) Contains(t time.Time) bool {
	if !r.bounded {
		return true
	}
	return !t.Before(r.From) && !t.After(r.To)
}

func parseBound(s string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range boundLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
