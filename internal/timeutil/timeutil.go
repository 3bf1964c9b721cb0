// Package timeutil parses the wire formats used throughout the reservation
// API: calendar dates as YYYY-MM-DD and minute-resolution clock times as
// HH:MM (24-hour). All times are facility-local; no timezone offsets appear
// on the wire.
package timeutil

import (
	"fmt"
	"regexp"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// ValidDate reports whether s is a well-formed YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.ParseInLocation(DateLayout, s, time.Local)
	return err == nil
}

// ValidClock reports whether s is a well-formed HH:MM 24-hour time.
func ValidClock(s string) bool {
	return clockRe.MatchString(s)
}

// At combines a date and a clock time into a local instant.
func At(date, hhmm string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+hhmm, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s %s: %w", date, hhmm, err)
	}
	return t, nil
}

// FormatDate renders t as a YYYY-MM-DD string in local time.
func FormatDate(t time.Time) string {
	return t.In(time.Local).Format(DateLayout)
}

// FormatClock renders t as an HH:MM string in local time.
func FormatClock(t time.Time) string {
	return t.In(time.Local).Format(ClockLayout)
}
