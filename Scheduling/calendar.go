package Scheduling

import (
	"time"

	"github.com/jinzhu/now"

	"Gmao/Models"
)

// AddInterval moves from by value units of freq. Month and year steps clamp to
// the last day of the target month (Jan 31 + 1 month = Feb 28/29). It returns
// false for usage-based frequencies, which have no calendar step.
func AddInterval(from time.Time, freq Models.FrequencyType, value int) (time.Time, bool) {
	if value < 1 {
		value = 1
	}
	switch freq {
	case Models.FrequencyDaily:
		return from.AddDate(0, 0, value), true
	case Models.FrequencyWeekly:
		return from.AddDate(0, 0, 7*value), true
	case Models.FrequencyMonthly:
		return addMonths(from, value), true
	case Models.FrequencyYearly:
		return addMonths(from, 12*value), true
	}
	return time.Time{}, false
}

func addMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := now.With(first).EndOfMonth().Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return first.AddDate(0, 0, day-1)
}

// NextExecutionDate is the calendar occurrence following from, or nil when the
// plan is usage-based or the occurrence falls after the plan's end date.
func NextExecutionDate(plan *Models.MaintenancePlan, from time.Time) *time.Time {
	next, ok := AddInterval(Models.Date(from), plan.FrequencyType, plan.FrequencyValue)
	if !ok {
		return nil
	}
	if plan.EndDate != nil && next.After(Models.DateValue(plan.EndDate)) {
		return nil
	}
	return &next
}

// NextCounter is the counter value of the occurrence following reading.
func NextCounter(plan *Models.MaintenancePlan, reading int64) *int64 {
	interval := plan.UsageInterval()
	if !plan.FrequencyType.IsUsage() || interval <= 0 {
		return nil
	}
	next := reading + interval
	return &next
}
