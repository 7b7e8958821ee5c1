package main

import (
	"fmt"
	"time"
)

func isAfterDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()

	// Use the local timezone from t1
	loc := t1.Location()

	// Compare only the year, month, and day in the local timezone
	return time.Date(y1, m1, d1, 0, 0, 0, 0, loc).After(
		time.Date(y2, m2, d2, 0, 0, 0, 0, loc),
	)
}

// isPastDay reports whether t falls strictly before today.
func isPastDay(t time.Time) bool {
	return isAfterDay(time.Now(), t)
}

func parseDate(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}

	var t time.Time
	var err error
	for _, layout := range layouts {
		t, err = time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}
