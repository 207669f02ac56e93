package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// discountByMonths is the standing discount schedule for contract durations.
var discountByMonths = map[int]decimal.Decimal{
	1:  decimal.Zero,
	3:  decimal.NewFromFloat(0.05),
	6:  decimal.NewFromFloat(0.10),
	12: decimal.NewFromFloat(0.15),
}

// AllowedDurations returns the contract durations the schedule supports.
func AllowedDurations() []int {
	return []int{1, 3, 6, 12}
}

// DiscountRateFor returns the discount rate for the given duration and whether
// the duration is offered at all.
func DiscountRateFor(months int) (decimal.Decimal, bool) {
	rate, ok := discountByMonths[months]
	return rate, ok
}

// AddMonths advances t by the given number of calendar months, clamping to the
// last day of the target month when the source day does not exist there
// (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
