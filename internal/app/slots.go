package app

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tavola/internal/domain"
)

const (
	dateLayout    = "2006-01-02"
	clock12Layout = "3:04 PM"
	clock24Layout = "15:04"
)

// 24-hour clocks must carry a two-digit hour, so "7:00" is rejected
// instead of being read as 07:00.
var clock24Re = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Slotter derives the booking window for a date and wall-clock time.
// Build one from config and share it between the availability check and
// event creation so both agree on what a slot is.
type Slotter struct {
	loc *time.Location
	dur time.Duration
}

func NewSlotter(loc *time.Location, dur time.Duration) *Slotter {
	if loc == nil {
		loc = time.UTC
	}
	if dur <= 0 {
		dur = 2 * time.Hour
	}
	return &Slotter{loc: loc, dur: dur}
}

func (s *Slotter) Location() *time.Location { return s.loc }
func (s *Slotter) Duration() time.Duration  { return s.dur }

// Window returns [start, start+duration) in the venue location.
// clock is "7:00 PM" or "19:00"; anything else is domain.ErrInvalidDateTime.
func (s *Slotter) Window(date, clock string) (domain.TimeWindow, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), s.loc)
	if err != nil {
		return domain.TimeWindow{}, fmt.Errorf("%w: date %q", domain.ErrInvalidDateTime, date)
	}
	h, m, err := ParseClock(clock)
	if err != nil {
		return domain.TimeWindow{}, err
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, s.loc)
	return domain.TimeWindow{Start: start, End: start.Add(s.dur)}, nil
}

// ParseClock tries the 12-hour form first and falls back to the 24-hour form.
func ParseClock(clock string) (hour, minute int, err error) {
	c := strings.TrimSpace(clock)
	if t, err := time.Parse(clock12Layout, strings.ToUpper(c)); err == nil {
		// time.Parse lets hour 0 through the 12-hour layout
		if h, _ := strconv.Atoi(c[:strings.IndexByte(c, ':')]); h == 0 {
			return 0, 0, fmt.Errorf("%w: time %q", domain.ErrInvalidDateTime, clock)
		}
		return t.Hour(), t.Minute(), nil
	}
	if clock24Re.MatchString(c) {
		if t, err := time.Parse(clock24Layout, c); err == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("%w: time %q", domain.ErrInvalidDateTime, clock)
}

// sameClock reports whether two clock strings name the same wall-clock minute.
func sameClock(a, b string) bool {
	ah, am, err := ParseClock(a)
	if err != nil {
		return false
	}
	bh, bm, err := ParseClock(b)
	return err == nil && ah == bh && am == bm
}
