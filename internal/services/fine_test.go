package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateFine(t *testing.T) {
	borrowed := time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		returned    time.Time
		wantOverdue int
		wantFine    int
	}{
		{"same day", borrowed, 0, 0},
		{"within loan period", borrowed.AddDate(0, 0, 10), 0, 0},
		{"on due date", borrowed.AddDate(0, 0, LoanPeriodDays), 0, 0},
		{"one day late", borrowed.AddDate(0, 0, LoanPeriodDays+1), 1, 1},
		{"twenty days after borrowing", borrowed.AddDate(0, 0, 20), 6, 6},
		{"late in the evening of the due date", time.Date(2024, time.March, 15, 23, 59, 0, 0, time.UTC), 0, 0},
		{"returned before borrowed", borrowed.AddDate(0, 0, -3), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overdue, fine := CalculateFine(borrowed, tt.returned)
			assert.Equal(t, tt.wantOverdue, overdue)
			assert.Equal(t, tt.wantFine, fine)
		})
	}
}

func TestCalculateFine_AcrossMonthBoundary(t *testing.T) {
	borrowed := time.Date(2024, time.January, 25, 0, 0, 0, 0, time.UTC)
	// Due February 8th.
	overdue, fine := CalculateFine(borrowed, time.Date(2024, time.February, 12, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 4, overdue)
	assert.Equal(t, 4*FinePerDay, fine)
}

func TestDueDate(t *testing.T) {
	borrowed := time.Date(2024, time.March, 1, 17, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), DueDate(borrowed))
}
