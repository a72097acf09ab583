// Package core holds the club's domain model and the financial rules over
// it: the savings calendar, loan interest accrual and fund-wide aggregation.
package core

import "time"

// savingsYearStart is the day-of-January the savings year begins on.
const savingsYearStart = 5

// WeekInfo derives the savings week number and savings year for a calendar
// date. The savings year runs from January 5th; dates before Jan 5 belong to
// the previous savings year. The anchor day itself is week 1, and each week
// spans 7 days. Day boundaries are UTC-normalized so local midnight never
// shifts a date across a week.
func WeekInfo(t time.Time) (weekNumber, savingsYear int) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	savingsYear = day.Year()
	anchor := time.Date(savingsYear, time.January, savingsYearStart, 0, 0, 0, 0, time.UTC)
	if day.Before(anchor) {
		savingsYear--
		anchor = time.Date(savingsYear, time.January, savingsYearStart, 0, 0, 0, 0, time.UTC)
	}

	daysPassed := int(day.Sub(anchor).Hours() / 24)
	weekNumber = daysPassed/7 + 1
	return weekNumber, savingsYear
}

// CurrentSavingsYear returns the savings year the given instant falls in.
func CurrentSavingsYear(now time.Time) int {
	_, year := WeekInfo(now)
	return year
}

// MonthsElapsed counts the whole calendar months between start and end, then
// adds one: interest is charged upfront, so a brand-new loan already owes its
// first month. A month only counts as complete once end's day-of-month has
// reached start's.
func MonthsElapsed(start, end time.Time) int {
	start, end = start.UTC(), end.UTC()
	months := (end.Year()-start.Year())*12 - int(start.Month()) + int(end.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 0 {
		months = 0
	}
	return months + 1
}
