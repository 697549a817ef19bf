// Package calendar converts between epoch seconds and broken-down time.
//
// The epoch is 2000-01-01 00:00:00 UTC, a Saturday. That year sits at the
// conjunction of the 4, 100 and 400 year leap cycles, which lets Decompose map
// a timestamp into the cycles with a handful of divisions. The 400 year cycle
// is ignored: an uint32 counter ends in 2136.
//
// This package has NO external dependencies and performs no I/O.
package calendar

import (
	"fmt"
	"math"
	"time"
)

// Epoch is a count of seconds since 2000-01-01 00:00:00 UTC.
type Epoch uint32

// MaxEpoch is the last representable second (2136-02-07 06:28:15).
const MaxEpoch = Epoch(math.MaxUint32)

// EpochYear is the calendar year of Epoch zero.
const EpochYear = 2000

const secondsPerDay = 86400

// Days of the week, days since Sunday.
const (
	Sunday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Months, months since January.
const (
	January = iota
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

// WeekdayShort holds two-letter weekday labels indexed by Tm.WDay.
var WeekdayShort = [7]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

// Tm is a calendar date and time broken down into its components.
//
// Fields are plain ints so that callers can step a field out of range
// (MDay 32, Sec -1) and let Compose normalize it.
type Tm struct {
	Sec  int // seconds after the minute [0, 59]
	Min  int // minutes after the hour [0, 59]
	Hour int // hours since midnight [0, 23]
	MDay int // day of the month [1, 31]
	WDay int // days since Sunday [0, 6]
	Mon  int // months since January [0, 11]
	Year int // years since 2000 [0, 136]
	YDay int // days since January 1 [0, 365]
}

// String formats the time as "DD.MM.YYYY hh:mm:ss".
func (tm Tm) String() string {
	return fmt.Sprintf("%02d.%02d.%04d %02d:%02d:%02d",
		tm.MDay, tm.Mon+1, tm.Year+EpochYear, tm.Hour, tm.Min, tm.Sec)
}

// IsLeapYear reports whether the absolute year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	if year&3 != 0 {
		return false
	}
	if year%100 != 0 {
		return true
	}
	return (year/100)&3 == 0
}

// Decompose converts epoch seconds to broken-down UTC time.
func Decompose(t Epoch) Tm {
	var tm Tm

	days := int(t / secondsPerDay)
	fract := int(t % secondsPerDay)

	tm.Sec = fract % 60
	tm.Min = (fract / 60) % 60
	tm.Hour = fract / 3600
	tm.WDay = (days + Saturday) % 7

	// Map into a 100 year cycle, then into a 4 year cycle.
	years := 100 * (days / 36525)
	rem := days % 36525
	years += 4 * (rem / 1461)
	days = rem % 1461
	if years > 100 {
		// 2100 is not a leap year: the second century is one day short.
		days++
	}

	// years is now the first year of a 4 year cycle, a leap year unless 2100.
	leap := 1
	if years == 100 {
		leap = 0
	}
	if days > 364+leap {
		days -= leap
		leap = 0
		years += days / 365
		days %= 365
	}
	tm.Year = years
	tm.YDay = days

	// Jan/Feb are special, then March..July and August..December repeat
	// pairs of 31 and 30 day months.
	n := 59 + leap
	if days < n {
		tm.Mon = days / 31
		tm.MDay = days % 31
	} else {
		days -= n
		tm.Mon = 2 + (days/153)*5
		r := days % 153
		tm.Mon += (r / 61) * 2
		r %= 61
		tm.Mon += r / 31
		tm.MDay = r % 31
	}
	tm.MDay++

	return tm
}

// Compose converts broken-down time to epoch seconds and normalizes tm.
//
// WDay and YDay are ignored on input. The other fields may be out of range:
// MDay 32 of January is February 1, Sec -1 is the last second of the previous
// minute. On return tm holds the normalized fields. Times before the epoch
// clamp to 0 and times after MaxEpoch clamp to MaxEpoch.
func Compose(tm *Tm) Epoch {
	year := tm.Year + floorDiv(tm.Mon, 12)
	mon := floorMod(tm.Mon, 12)

	// Whole days from the epoch to January 1 of year.
	leaps := 0
	if year > 0 {
		m := year - 1
		leaps = m/4 - m/100 + 1
	} else if year < 0 {
		*tm = Decompose(0)
		return 0
	}
	elapsed := int64(365*year + leaps)

	d := tm.MDay - 1
	if mon < March {
		if mon == February {
			d += 31
		}
	} else {
		d += 59
		if IsLeapYear(year + EpochYear) {
			d++
		}
		n := mon - March
		if n > July-March {
			d += 153
		}
		n %= 5
		d += (n / 2) * 61
		if n&1 == 1 {
			d += 31
		}
	}

	secs := (elapsed+int64(d))*secondsPerDay +
		int64(tm.Hour)*3600 + int64(tm.Min)*60 + int64(tm.Sec)

	var ret Epoch
	switch {
	case secs < 0:
		ret = 0
	case secs > int64(MaxEpoch):
		ret = MaxEpoch
	default:
		ret = Epoch(secs)
	}
	*tm = Decompose(ret)
	return ret
}

var epochTime = time.Date(EpochYear, time.January, 1, 0, 0, 0, 0, time.UTC)

// ToTime converts epoch seconds to a UTC time.Time.
func ToTime(t Epoch) time.Time {
	return epochTime.Add(time.Duration(t) * time.Second)
}

// FromTime converts a time.Time to epoch seconds, clamping to the range.
func FromTime(t time.Time) Epoch {
	secs := t.Unix() - epochTime.Unix()
	if secs < 0 {
		return 0
	}
	if secs > int64(MaxEpoch) {
		return MaxEpoch
	}
	return Epoch(secs)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
