package forecast

import "time"

// monthDay keys the fixed-date Swedish public holidays.
type monthDay struct {
	Month time.Month
	Day   int
}

var fixedHolidays = map[monthDay]bool{
	{time.January, 1}:   true, // nyårsdagen
	{time.January, 6}:   true, // trettondedag jul
	{time.May, 1}:       true, // första maj
	{time.June, 6}:      true, // nationaldagen
	{time.December, 24}: true, // julafton
	{time.December, 25}: true,
	{time.December, 26}: true,
	{time.December, 31}: true, // nyårsafton
}

// Easter-bound and midsummer holidays move every year. The table covers the
// deployment window; outside these years only fixed dates apply.
// Per year: långfredagen, annandag påsk, kristi himmelsfärdsdag,
// midsommarafton, midsommardagen.
var moveableHolidays = map[int][]monthDay{
	2025: {
		{time.April, 18},
		{time.April, 21},
		{time.May, 29},
		{time.June, 20},
		{time.June, 21},
	},
	2026: {
		{time.April, 3},
		{time.April, 6},
		{time.May, 14},
		{time.June, 19},
		{time.June, 20},
	},
	2027: {
		{time.March, 26},
		{time.March, 29},
		{time.May, 6},
		{time.June, 25},
		{time.June, 26},
	},
}

// IsHoliday reports whether t falls on a Swedish public holiday.
func IsHoliday(t time.Time) bool {
	key := monthDay{t.Month(), t.Day()}
	if fixedHolidays[key] {
		return true
	}
	for _, md := range moveableHolidays[t.Year()] {
		if md == key {
			return true
		}
	}
	return false
}

// IsReducedDemandDay reports whether t is a weekend day or holiday, when the
// flatter diurnal price profile applies.
func IsReducedDemandDay(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday || IsHoliday(t)
}
