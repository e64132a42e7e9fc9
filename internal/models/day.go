package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/habitkeep/internal/constants"
)

// Day is a calendar date with no time component, held in its YYYY-MM-DD form.
// The zero value is not a valid day.
type Day string

// ParseDay validates s as YYYY-MM-DD.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(constants.DateFormat, s)
	if err != nil {
		return "", fmt.Errorf("%w %q (expected YYYY-MM-DD): %w", ErrInvalidDay, s, err)
	}
	return Day(t.Format(constants.DateFormat)), nil
}

// MustParseDay is ParseDay for literals known to be valid.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DayOf returns the calendar day of t in t's location.
func DayOf(t time.Time) Day {
	return Day(t.Format(constants.DateFormat))
}

// Today returns the current local day.
func Today() Day {
	return DayOf(time.Now())
}

func (d Day) String() string {
	return string(d)
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	t, _ := time.Parse(constants.DateFormat, string(d))
	return t
}

// MonthLabel returns the YYYY/MM grouping label.
func (d Day) MonthLabel() string {
	return d.Time().Format(constants.MonthFormat)
}

// AddDays returns the day n days away from d.
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time().AddDate(0, 0, n))
}

func (d Day) Before(other Day) bool {
	return d < other
}

func (d Day) IsValid() bool {
	_, err := ParseDay(string(d))
	return err == nil
}

func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("day must be a string: %w", err)
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// LastDays returns the n days ending at (and including) end, oldest first.
func LastDays(end Day, n int) []Day {
	if n <= 0 {
		return []Day{}
	}
	days := make([]Day, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, end.AddDays(-i))
	}
	return days
}
