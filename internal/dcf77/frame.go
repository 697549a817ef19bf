package dcf77

import (
	"errors"
	"fmt"

	"github.com/sweeney/dcf-clock/internal/calendar"
)

// FrameBits is the number of second marks in one DCF77 telegram.
const FrameBits = 60

// PulseBits is the number of pulses in a telegram. Second 59 carries no
// pulse; the following frame gap marks it.
const PulseBits = FrameBits - 1

// Bit positions within the telegram.
const (
	bitCEST      = 17
	bitCET       = 18
	bitMinuteLo  = 21
	bitMinuteHi  = 27
	bitMinuteChk = 28
	bitHourLo    = 29
	bitHourHi    = 34
	bitHourChk   = 35
	bitDayLo     = 36
	bitDayHi     = 41
	bitWeekdayLo = 42
	bitWeekdayHi = 44
	bitMonthLo   = 45
	bitMonthHi   = 49
	bitYearLo    = 50
	bitYearHi    = 57
	bitDateChk   = 58
)

// bcdWeights are the BCD-like weights of consecutive bits of a field.
var bcdWeights = [8]int{1, 2, 4, 8, 10, 20, 40, 80}

var (
	ErrParityMinute = errors.New("invalid check bit for minutes")
	ErrParityHour   = errors.New("invalid check bit for hour")
	ErrParityDate   = errors.New("invalid check bit for date")
	ErrBitCount     = errors.New("invalid bits number")
)

// Frame holds one telegram, one bit (0 or 1) per second mark.
type Frame [FrameBits]uint8

// ParseFrame builds a frame from a string of '0' and '1'. Any other
// character (such as the '|' field separators) is skipped.
func ParseFrame(s string) (Frame, error) {
	var f Frame
	n := 0
	for _, c := range s {
		if c != '0' && c != '1' {
			continue
		}
		if n == FrameBits {
			return f, fmt.Errorf("parse frame: more than %d bits", FrameBits)
		}
		f[n] = uint8(c - '0')
		n++
	}
	if n < PulseBits {
		return f, fmt.Errorf("parse frame: %d bits: %w", n, ErrBitCount)
	}
	return f, nil
}

// Telegram is a decoded DCF77 time telegram.
type Telegram struct {
	Minute  int  // [0, 59]
	Hour    int  // [0, 23]
	Day     int  // day of month [1, 31]
	Weekday int  // ISO weekday, Monday = 1 ... Sunday = 7
	Month   int  // [1, 12]
	Year    int  // years since 2000
	CEST    bool // summer time announced
	CET     bool // winter time announced
}

// Tm converts the telegram to broken-down time at second 0.
//
// The telegram carries a two-digit year which is always read as 20xx.
func (t Telegram) Tm() calendar.Tm {
	return calendar.Tm{
		Sec:  0,
		Min:  t.Minute,
		Hour: t.Hour,
		MDay: t.Day,
		WDay: t.Weekday % 7,
		Mon:  t.Month - 1,
		Year: t.Year,
	}
}

// String formats the telegram as "DD.MM.YYYY hh:mm".
func (t Telegram) String() string {
	return fmt.Sprintf("%02d.%02d.%04d %02d:%02d",
		t.Day, t.Month, t.Year+calendar.EpochYear, t.Hour, t.Minute)
}

// SameHourAndDate reports whether two telegrams agree on hour, day, month
// and year. Minutes of consecutive telegrams differ by one.
func (t Telegram) SameHourAndDate(o Telegram) bool {
	return t.Hour == o.Hour && t.Day == o.Day && t.Month == o.Month && t.Year == o.Year
}

// DecodeFrame decodes minute, hour and date and validates the three parity
// groups independently. The telegram is only valid when all three pass;
// the returned error joins every failed check.
func DecodeFrame(f *Frame) (Telegram, error) {
	var t Telegram
	var errs []error

	t.CEST = f[bitCEST] == 1
	t.CET = f[bitCET] == 1

	if checkParity(f, bitMinuteLo, bitMinuteHi, bitMinuteChk) {
		t.Minute = weigh(f, bitMinuteLo, bitMinuteHi)
	} else {
		errs = append(errs, fmt.Errorf("%w: sum = %d, check bit = %d",
			ErrParityMinute, sum(f, bitMinuteLo, bitMinuteHi), f[bitMinuteChk]))
	}

	if checkParity(f, bitHourLo, bitHourHi, bitHourChk) {
		t.Hour = weigh(f, bitHourLo, bitHourHi)
	} else {
		errs = append(errs, fmt.Errorf("%w: sum = %d, check bit = %d",
			ErrParityHour, sum(f, bitHourLo, bitHourHi), f[bitHourChk]))
	}

	if checkParity(f, bitDayLo, bitYearHi, bitDateChk) {
		t.Day = weigh(f, bitDayLo, bitDayHi)
		t.Weekday = weigh(f, bitWeekdayLo, bitWeekdayHi)
		t.Month = weigh(f, bitMonthLo, bitMonthHi)
		t.Year = weigh(f, bitYearLo, bitYearHi)
	} else {
		errs = append(errs, fmt.Errorf("%w: sum = %d, check bit = %d",
			ErrParityDate, sum(f, bitDayLo, bitYearHi), f[bitDateChk]))
	}

	return t, errors.Join(errs...)
}

func sum(f *Frame, lo, hi int) int {
	s := 0
	for i := lo; i <= hi; i++ {
		s += int(f[i])
	}
	return s
}

func checkParity(f *Frame, lo, hi, chk int) bool {
	return sum(f, lo, hi)%2 == int(f[chk])
}

func weigh(f *Frame, lo, hi int) int {
	v := 0
	for i := lo; i <= hi; i++ {
		v += bcdWeights[i-lo] * int(f[i])
	}
	return v
}
