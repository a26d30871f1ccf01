package bitquery

import (
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

// Time-of-day suffixes appended to bare dates. The upper bound is 23:59:00 for
// every operation.
const (
	LowerBoundSuffix = "T00:00:00"
	UpperBoundSuffix = "T23:59:00"

	timestampLayout = "2006-01-02T15:04:05"
)

type timeKind int

const (
	timeNone timeKind = iota
	timeDate
	timeDateTime
	timeString
)

// TimeSpec is a caller supplied instant or range endpoint. The zero value
// means "not set".
type TimeSpec struct {
	kind timeKind
	date civil.Date
	at   time.Time
	raw  string
}

// Date is a calendar day without a time of day.
func Date(d civil.Date) TimeSpec {
	return TimeSpec{kind: timeDate, date: d}
}

// DateOf is shorthand for Date(civil.Date{...}).
func DateOf(year int, month time.Month, day int) TimeSpec {
	return Date(civil.Date{Year: year, Month: month, Day: day})
}

// DateTime is a full instant, formatted in its own location.
func DateTime(t time.Time) TimeSpec {
	return TimeSpec{kind: timeDateTime, at: t}
}

// ISO is a string such as "2023-01-01" or "2023-01-01T10:00:00". An empty
// string is treated as unset.
func ISO(s string) TimeSpec {
	if s == "" {
		return TimeSpec{}
	}
	return TimeSpec{kind: timeString, raw: s}
}

func (s TimeSpec) IsZero() bool {
	return s.kind == timeNone
}

func (s TimeSpec) String() string {
	return Normalize(true, s)
}

// Normalize renders a TimeSpec as a GraphQL ISO8601DateTime argument. Bare
// dates get 00:00:00 when lower is true and 23:59:00 otherwise; values that
// already carry a time of day are not touched by lower. No calendar validation
// is done, the remote API rejects bad dates.
func Normalize(lower bool, s TimeSpec) string {
	suffix := UpperBoundSuffix
	if lower {
		suffix = LowerBoundSuffix
	}

	switch s.kind {
	case timeDate:
		return s.date.String() + suffix
	case timeDateTime:
		return s.at.Format(timestampLayout)
	case timeString:
		if !strings.Contains(s.raw, "T") {
			return s.raw + suffix
		}
		return s.raw
	default:
		return ""
	}
}

// startOfYear is the default lower bound: January 1st of now's year.
func startOfYear(now time.Time) TimeSpec {
	return DateOf(now.Year(), time.January, 1)
}
