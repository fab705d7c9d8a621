package models

import (
	"encoding/json"
	"fmt"
)

// Lesson duration bounds in minutes.
const (
	MinLessonMinutes = 30
	MaxLessonMinutes = 240
)

// MinuteOfDay counts minutes since midnight, 0..1439.
type MinuteOfDay int

// ParseClock converts an "HH:MM" string into a MinuteOfDay. The format is
// strict: exactly five characters, zero-padded, nothing trailing.
func ParseClock(raw string) (MinuteOfDay, error) {
	if len(raw) != 5 || raw[2] != ':' ||
		!isClockDigit(raw[0]) || !isClockDigit(raw[1]) || !isClockDigit(raw[3]) || !isClockDigit(raw[4]) {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", raw)
	}
	hours := int(raw[0]-'0')*10 + int(raw[1]-'0')
	minutes := int(raw[3]-'0')*10 + int(raw[4]-'0')
	if hours > 23 || minutes > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", raw)
	}
	return MinuteOfDay(hours*60 + minutes), nil
}

func isClockDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// String renders the minute as "HH:MM".
func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// MarshalJSON encodes the minute as an "HH:MM" string.
func (m MinuteOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes an "HH:MM" string.
func (m *MinuteOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// TimeInterval is a half-open [Start, End) time-of-day range at minute resolution.
type TimeInterval struct {
	Start MinuteOfDay `json:"start"`
	End   MinuteOfDay `json:"end"`
}

// NewTimeInterval builds a validated interval.
func NewTimeInterval(start, end MinuteOfDay) (TimeInterval, error) {
	interval := TimeInterval{Start: start, End: end}
	if err := interval.Validate(); err != nil {
		return TimeInterval{}, err
	}
	return interval, nil
}

// ParseTimeInterval builds an interval from "HH:MM" endpoint strings.
func ParseTimeInterval(start, end string) (TimeInterval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeInterval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeInterval{}, err
	}
	return NewTimeInterval(s, e)
}

// Validate enforces ordering and lesson duration bounds.
func (i TimeInterval) Validate() error {
	if i.Start >= i.End {
		return fmt.Errorf("interval %s: start must be before end", i)
	}
	duration := i.Minutes()
	if duration < MinLessonMinutes {
		return fmt.Errorf("interval %s: duration %d min is below the %d min minimum", i, duration, MinLessonMinutes)
	}
	if duration > MaxLessonMinutes {
		return fmt.Errorf("interval %s: duration %d min exceeds the %d min maximum", i, duration, MaxLessonMinutes)
	}
	return nil
}

// Minutes returns the interval duration in minutes.
func (i TimeInterval) Minutes() int {
	return int(i.End - i.Start)
}

// Overlaps reports whether two half-open intervals share any minute.
// Back-to-back intervals (one ending exactly when the other starts) do not overlap.
func (i TimeInterval) Overlaps(other TimeInterval) bool {
	return i.Start < other.End && i.End > other.Start
}

// String renders the interval as "HH:MM-HH:MM".
func (i TimeInterval) String() string {
	return fmt.Sprintf("%s-%s", i.Start, i.End)
}
