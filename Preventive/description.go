package Preventive

import (
	"fmt"
	"strings"

	"Gmao/Models"
)

// describe renders the work order body: plan description, the trigger that
// fired and the ordered checklist.
func describe(plan *Models.MaintenancePlan, counter int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generated from plan %s (%s)\n", plan.Code, plan.Name)
	if d := strings.TrimSpace(plan.Description); d != "" {
		b.WriteString("\n")
		b.WriteString(d)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(triggerLine(plan, counter))
	b.WriteString("\n")

	if len(plan.Tasks) > 0 {
		b.WriteString("\nChecklist:\n")
		for i, task := range plan.Tasks {
			fmt.Fprintf(&b, "%d. [ ] %s", i+1, task.Description)
			if task.EstimatedDuration > 0 {
				fmt.Fprintf(&b, " (%d min)", task.EstimatedDuration)
			}
			b.WriteString("\n")
			if ins := strings.TrimSpace(task.Instructions); ins != "" {
				fmt.Fprintf(&b, "   %s\n", ins)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func triggerLine(plan *Models.MaintenancePlan, counter int64) string {
	if plan.FrequencyType.IsUsage() {
		unit := plan.CounterUnit
		if unit == "" {
			unit = "units"
		}
		if plan.NextMileage == nil {
			return fmt.Sprintf("Trigger: every %d %s", plan.UsageInterval(), unit)
		}
		return fmt.Sprintf("Trigger: every %d %s, due at %d (current %d)", plan.UsageInterval(), unit, *plan.NextMileage, counter)
	}
	line := fmt.Sprintf("Trigger: every %d %s", plan.FrequencyValue, frequencyUnit(plan.FrequencyType, plan.FrequencyValue))
	if plan.NextExecutionDate != nil {
		line += ", due on " + Models.DateValue(plan.NextExecutionDate).Format("2006-01-02")
	}
	return line
}

func frequencyUnit(freq Models.FrequencyType, value int) string {
	unit := map[Models.FrequencyType]string{
		Models.FrequencyDaily:   "day",
		Models.FrequencyWeekly:  "week",
		Models.FrequencyMonthly: "month",
		Models.FrequencyYearly:  "year",
	}[freq]
	if value != 1 {
		unit += "s"
	}
	return unit
}
