package Scheduling

import (
	"time"

	"Gmao/Models"
)

type PlanStatus string

const (
	PlanInactive PlanStatus = "inactive"
	PlanOverdue  PlanStatus = "overdue"
	PlanDueSoon  PlanStatus = "due_soon"
	PlanOnTrack  PlanStatus = "on_track"
)

// Evaluation is the classification of one plan at one instant. Counter is
// the asset's usage meter and is ignored by calendar plans.
type Evaluation struct {
	Status          PlanStatus `json:"status"`
	Due             bool       `json:"is_due"`
	DueSoon         bool       `json:"is_due_soon"`
	DaysUntilDue    *int       `json:"days_until_due"`
	CounterUntilDue *int64     `json:"counter_until_due"`
}

// IsDue reports whether the plan's current occurrence has been reached.
// Calendar and usage triggers are exclusive: the frequency type picks one.
func IsDue(plan *Models.MaintenancePlan, today time.Time, counter int64) bool {
	if !plan.IsActive {
		return false
	}
	if plan.FrequencyType.IsUsage() {
		return plan.NextMileage != nil && counter >= *plan.NextMileage
	}
	return plan.NextExecutionDate != nil && !Models.DateValue(plan.NextExecutionDate).After(Models.Date(today))
}

// IsDueSoon reports whether the plan is inside its advance window without
// being due yet. A zero window never triggers.
func IsDueSoon(plan *Models.MaintenancePlan, today time.Time, counter int64) bool {
	if !plan.IsActive || IsDue(plan, today, counter) {
		return false
	}
	if plan.FrequencyType.IsUsage() {
		if plan.NextMileage == nil || plan.AdvanceMileage <= 0 {
			return false
		}
		return counter >= *plan.NextMileage-plan.AdvanceMileage
	}
	if plan.NextExecutionDate == nil || plan.AdvanceDays <= 0 {
		return false
	}
	trigger := Models.DateValue(plan.NextExecutionDate).AddDate(0, 0, -plan.AdvanceDays)
	return !Models.Date(today).Before(trigger)
}

// Classify returns the display status, checked in priority order
// inactive, overdue, due_soon, on_track.
func Classify(plan *Models.MaintenancePlan, today time.Time, counter int64) PlanStatus {
	switch {
	case !plan.IsActive:
		return PlanInactive
	case IsDue(plan, today, counter):
		return PlanOverdue
	case IsDueSoon(plan, today, counter):
		return PlanDueSoon
	}
	return PlanOnTrack
}

// NeedsGeneration gates the generator: due, or inside the advance window.
func NeedsGeneration(plan *Models.MaintenancePlan, today time.Time, counter int64) bool {
	return IsDue(plan, today, counter) || IsDueSoon(plan, today, counter)
}

func Evaluate(plan *Models.MaintenancePlan, today time.Time, counter int64) Evaluation {
	ev := Evaluation{
		Status:  Classify(plan, today, counter),
		Due:     IsDue(plan, today, counter),
		DueSoon: IsDueSoon(plan, today, counter),
	}
	if plan.FrequencyType.IsUsage() {
		if plan.NextMileage != nil {
			left := *plan.NextMileage - counter
			ev.CounterUntilDue = &left
		}
	} else if plan.NextExecutionDate != nil {
		days := int(Models.DateValue(plan.NextExecutionDate).Sub(Models.Date(today)).Hours() / 24)
		ev.DaysUntilDue = &days
	}
	return ev
}
