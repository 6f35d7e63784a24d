package services

import "time"

const (
	// LoanPeriodDays is the number of days a patron may keep a book before incurring fines.
	LoanPeriodDays = 14

	// FinePerDay is the fine amount (in currency units) charged per day overdue.
	FinePerDay = 1
)

// DueDate returns the last day a loan borrowed on borrowDate may be returned
// without a fine.
func DueDate(borrowDate time.Time) time.Time {
	return calendarDay(borrowDate).AddDate(0, 0, LoanPeriodDays)
}

// CalculateFine computes the overdue days and fine for a loan borrowed on
// borrowDate and returned on returnDate.
//
// Both dates are reduced to their UTC calendar day, so the time of day a book
// comes back never changes the result. Returning on or before the due date
// costs nothing.
func CalculateFine(borrowDate, returnDate time.Time) (overdueDays, fine int) {
	due := DueDate(borrowDate)
	returned := calendarDay(returnDate)

	overdueDays = int(returned.Sub(due).Hours() / 24)
	if overdueDays < 0 {
		overdueDays = 0
	}
	return overdueDays, overdueDays * FinePerDay
}

// calendarDay truncates t to midnight UTC of its calendar day.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
