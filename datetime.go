// Package tradesim implements the core of a bar-based backtesting engine:
// time-aligned series, simulated positions, a scheduler that drives
// user-authored strategies over historical bars, and the equity/sizing and
// statistics passes that turn raw trades into a performance report.
package tradesim

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Duration is either a time-of-day duration (hours/minutes/seconds plus a
// fractional second) or a whole number of calendar days. The two kinds are
// never implicitly converted into each other.
type Duration struct {
	nanos int64 // time-duration, when isDays is false
	days  int64 // date-duration, when isDays is true
	isDays bool
}

// NewTimeDuration builds an H:M:S.frac duration.
func NewTimeDuration(d time.Duration) Duration {
	return Duration{nanos: int64(d)}
}

// NewDateDuration builds an integer-day duration.
func NewDateDuration(days int64) Duration {
	return Duration{days: days, isDays: true}
}

// IsDateDuration reports whether this duration counts whole calendar days
// rather than sub-second time.
func (d Duration) IsDateDuration() bool { return d.isDays }

// AsTimeDuration returns the equivalent time.Duration. Date-durations are
// converted at 24h/day.
func (d Duration) AsTimeDuration() time.Duration {
	if d.isDays {
		return time.Duration(d.days) * 24 * time.Hour
	}
	return time.Duration(d.nanos)
}

// Days returns the integer day count of a date-duration (0 for time-durations).
func (d Duration) Days() int64 {
	if d.isDays {
		return d.days
	}
	return 0
}

// DateTime is a calendar-accurate instant with sub-second resolution. The
// zero value is not a valid DateTime; use NotADateTime() or NewDateTime.
type DateTime struct {
	t      time.Time
	special specialKind
}

type specialKind uint8

const (
	specialNone specialKind = iota
	specialPosInf
	specialNegInf
	specialNaD // not-a-date
)

// NewDateTime constructs a DateTime from a standard library time.Time.
func NewDateTime(t time.Time) DateTime { return DateTime{t: t} }

// PositiveInfinityDateTime returns the +infinity sentinel DateTime.
func PositiveInfinityDateTime() DateTime { return DateTime{special: specialPosInf} }

// NegativeInfinityDateTime returns the -infinity sentinel DateTime.
func NegativeInfinityDateTime() DateTime { return DateTime{special: specialNegInf} }

// NotADateTime returns the not-a-date sentinel.
func NotADateTime() DateTime { return DateTime{special: specialNaD} }

// IsSpecial reports whether this is one of the non-calendar sentinel values.
func (d DateTime) IsSpecial() bool { return d.special != specialNone }

// IsNotADate reports whether this value is the not-a-date sentinel.
func (d DateTime) IsNotADate() bool { return d.special == specialNaD }

// Time returns the underlying time.Time. Undefined for special values.
func (d DateTime) Time() time.Time { return d.t }

// Date truncates to midnight, preserving the calendar day.
func (d DateTime) Date() DateTime {
	if d.IsSpecial() {
		return d
	}
	y, m, day := d.t.Date()
	return DateTime{t: time.Date(y, m, day, 0, 0, 0, 0, d.t.Location())}
}

// Before reports whether d occurs strictly before o, honoring the
// ±infinity and not-a-date sentinels (not-a-date compares false to
// everything, including itself).
func (d DateTime) Before(o DateTime) bool {
	if d.special == specialNaD || o.special == specialNaD {
		return false
	}
	if d.special == specialNegInf {
		return o.special != specialNegInf
	}
	if o.special == specialPosInf {
		return d.special != specialPosInf
	}
	if d.special == specialPosInf || o.special == specialNegInf {
		return false
	}
	return d.t.Before(o.t)
}

// After reports whether d occurs strictly after o.
func (d DateTime) After(o DateTime) bool { return o.Before(d) }

// Equal reports whether d and o represent the same instant. Not-a-date is
// never equal to anything, including another not-a-date.
func (d DateTime) Equal(o DateTime) bool {
	if d.special == specialNaD || o.special == specialNaD {
		return false
	}
	if d.special != specialNone || o.special != specialNone {
		return d.special == o.special
	}
	return d.t.Equal(o.t)
}

// Add returns d shifted by dur. Date-durations shift calendar days; time
// durations shift wall-clock time.
func (d DateTime) Add(dur Duration) DateTime {
	if d.IsSpecial() {
		return d
	}
	if dur.isDays {
		return DateTime{t: d.t.AddDate(0, 0, int(dur.days))}
	}
	return DateTime{t: d.t.Add(time.Duration(dur.nanos))}
}

// Sub returns the time-duration between d and o (d - o). Undefined if
// either operand is special.
func (d DateTime) Sub(o DateTime) Duration {
	return NewTimeDuration(d.t.Sub(o.t))
}

// ISOFormat is the canonical round-trip layout used by String/Parse.
const ISOFormat = "2006-01-02T15:04:05.999999999"

// String renders the ISO-8601-ish round-trip representation used throughout
// the engine (explicit trades CSV/JSON, logs, RuntimeStats).
func (d DateTime) String() string {
	switch d.special {
	case specialPosInf:
		return "+infinity"
	case specialNegInf:
		return "-infinity"
	case specialNaD:
		return "not-a-date"
	}
	return d.t.Format(ISOFormat)
}

// ParseDateTime parses the ISO layout produced by String, round-tripping
// exactly (§8: serialize -> parse -> re-serialize yields the same string).
func ParseDateTime(s string) (DateTime, error) {
	switch s {
	case "+infinity":
		return PositiveInfinityDateTime(), nil
	case "-infinity":
		return NegativeInfinityDateTime(), nil
	case "not-a-date":
		return NotADateTime(), nil
	}
	t, err := time.Parse(ISOFormat, s)
	if err != nil {
		// Accept a bare date or full RFC3339 as a convenience for
		// externally-authored explicit trade files.
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return DateTime{t: t2}, nil
		}
		if t2, err2 := time.Parse("2006-01-02", s); err2 == nil {
			return DateTime{t: t2}, nil
		}
		return DateTime{}, fmt.Errorf("tradesim: invalid datetime %q: %w", s, err)
	}
	return DateTime{t: t}, nil
}

// MarshalJSON renders d via String, so DateTime round-trips through JSON
// the same way it round-trips through CSV/log output (§8).
func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses d via ParseDateTime.
func (d *DateTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the number of calendar days between the dates of two
// DateTimes (d - o); the time of day of either operand is ignored.
func DaysBetween(d, o DateTime) int64 {
	dd := d.Date().t
	od := o.Date().t
	return int64(math.Round(dd.Sub(od).Hours() / 24))
}
