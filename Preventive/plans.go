package Preventive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"Gmao/Assets"
	"Gmao/Models"
	"Gmao/Scheduling"
)

type TaskInput struct {
	Description       string `json:"description"`
	Instructions      string `json:"instructions"`
	EstimatedDuration int    `json:"estimated_duration"`
}

// PlanInput carries the editable fields of a plan. Nil advance windows fall
// back to the service defaults.
type PlanInput struct {
	SiteID            uint
	Asset             Models.AssetRef
	Name              string
	Description       string
	FrequencyType     Models.FrequencyType
	FrequencyValue    int
	CounterThreshold  *int64
	CounterUnit       string
	MileageInterval   *int64
	StartDate         *time.Time
	EndDate           *time.Time
	AdvanceDays       *int
	AdvanceMileage    *int64
	Priority          Models.Priority
	EstimatedDuration int
	AssignedTo        *uint
	Tasks             []TaskInput
}

func (in *PlanInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return Models.InvalidField("name", "name is required")
	}
	if !in.Asset.Kind.IsValid() {
		return Models.InvalidField("asset_type", "unknown asset type %q", in.Asset.Kind)
	}
	if !in.FrequencyType.IsValid() {
		return Models.InvalidField("frequency_type", "unknown frequency %q", in.FrequencyType)
	}
	if in.Priority == "" {
		in.Priority = Models.PriorityMedium
	}
	if !in.Priority.IsValid() {
		return Models.InvalidField("priority", "unknown priority %q", in.Priority)
	}

	switch {
	case in.FrequencyType.IsCalendar():
		if in.FrequencyValue < 1 {
			return Models.InvalidField("frequency_value", "frequency value must be at least 1")
		}
		if in.StartDate == nil {
			return Models.InvalidField("start_date", "start date is required for calendar plans")
		}
	case in.FrequencyType == Models.FrequencyMileage:
		if in.Asset.Kind != Models.AssetTruck {
			return Models.InvalidField("frequency_type", "mileage plans apply to trucks only")
		}
		if in.MileageInterval == nil || *in.MileageInterval < 100 {
			return Models.InvalidField("mileage_interval", "mileage interval must be at least 100")
		}
	case in.FrequencyType == Models.FrequencyCounter:
		if in.CounterThreshold == nil || *in.CounterThreshold < 1 {
			return Models.InvalidField("counter_threshold", "counter threshold must be at least 1")
		}
	}

	if in.StartDate != nil && in.EndDate != nil && Models.Date(*in.EndDate).Before(Models.Date(*in.StartDate)) {
		return Models.InvalidField("end_date", "end date is before start date")
	}
	if in.AdvanceDays != nil && (*in.AdvanceDays < 0 || *in.AdvanceDays > 30) {
		return Models.InvalidField("advance_days", "advance days must be between 0 and 30")
	}
	if in.AdvanceMileage != nil && (*in.AdvanceMileage < 0 || *in.AdvanceMileage > 5000) {
		return Models.InvalidField("advance_mileage", "advance mileage must be between 0 and 5000")
	}
	for i, task := range in.Tasks {
		if strings.TrimSpace(task.Description) == "" {
			return Models.InvalidField(fmt.Sprintf("tasks[%d].description", i), "task description is required")
		}
	}
	return nil
}

// apply copies the input onto plan, keeping only the fields that matter for
// its frequency kind.
func (s *Service) apply(plan *Models.MaintenancePlan, in *PlanInput) {
	plan.SiteID = in.SiteID
	plan.AssetType = in.Asset.Kind
	plan.AssetID = in.Asset.ID
	plan.Name = strings.TrimSpace(in.Name)
	plan.Description = in.Description
	plan.FrequencyType = in.FrequencyType
	plan.Priority = in.Priority
	plan.EstimatedDuration = in.EstimatedDuration
	plan.AssignedTo = in.AssignedTo

	plan.AdvanceDays = s.AdvanceDays
	if in.AdvanceDays != nil {
		plan.AdvanceDays = *in.AdvanceDays
	}
	plan.AdvanceMileage = s.AdvanceMileage
	if in.AdvanceMileage != nil {
		plan.AdvanceMileage = *in.AdvanceMileage
	}

	plan.StartDate, plan.EndDate = nil, nil
	if in.StartDate != nil {
		plan.StartDate = Models.DatePtr(*in.StartDate)
	}
	if in.EndDate != nil {
		plan.EndDate = Models.DatePtr(*in.EndDate)
	}

	plan.FrequencyValue = 0
	plan.MileageInterval, plan.CounterThreshold, plan.CounterUnit = nil, nil, ""
	switch in.FrequencyType {
	case Models.FrequencyMileage:
		plan.MileageInterval = in.MileageInterval
		plan.CounterUnit = "km"
		plan.AdvanceDays = 0
	case Models.FrequencyCounter:
		plan.CounterThreshold = in.CounterThreshold
		plan.CounterUnit = in.CounterUnit
		plan.AdvanceDays = 0
	default:
		plan.FrequencyValue = in.FrequencyValue
		plan.AdvanceMileage = 0
	}
}

// recompute derives the next-due markers from the last execution, or from
// the start date / current counter when the plan never ran.
func recompute(plan *Models.MaintenancePlan, counter int64) {
	if plan.FrequencyType.IsUsage() {
		plan.LastExecutionDate, plan.NextExecutionDate = nil, nil
		if plan.LastMileage == nil {
			plan.LastMileage = Models.Int64Ptr(counter)
		}
		plan.NextMileage = Scheduling.NextCounter(plan, *plan.LastMileage)
		return
	}

	plan.LastMileage, plan.NextMileage = nil, nil
	if plan.LastExecutionDate != nil {
		plan.NextExecutionDate = nil
		if next := Scheduling.NextExecutionDate(plan, Models.DateValue(plan.LastExecutionDate)); next != nil {
			plan.NextExecutionDate = Models.DatePtr(*next)
		}
		return
	}
	plan.NextExecutionDate = plan.StartDate
	if plan.EndDate != nil && plan.StartDate != nil && Models.DateValue(plan.StartDate).After(Models.DateValue(plan.EndDate)) {
		plan.NextExecutionDate = nil
	}
}

func buildTasks(in []TaskInput) []Models.PlanTask {
	tasks := make([]Models.PlanTask, 0, len(in))
	for i, t := range in {
		tasks = append(tasks, Models.PlanTask{
			Order:             i + 1,
			Description:       strings.TrimSpace(t.Description),
			Instructions:      t.Instructions,
			EstimatedDuration: t.EstimatedDuration,
		})
	}
	return tasks
}

func (s *Service) CreatePlan(ctx context.Context, actor uint, in PlanInput) (*Models.MaintenancePlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	plan := &Models.MaintenancePlan{CreatedBy: actor, IsActive: true}
	s.apply(plan, &in)
	plan.Tasks = buildTasks(in.Tasks)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		asset, err := Assets.Load(tx, in.Asset)
		if err != nil {
			return err
		}
		if err := checkAssignee(tx, in.AssignedTo); err != nil {
			return err
		}
		code, err := Models.NextCode(tx, &Models.MaintenancePlan{}, Models.PlanCodePrefix, s.Clock.Now().Year())
		if err != nil {
			return err
		}
		plan.Code = code
		recompute(plan, asset.Counter())

		if err := tx.Create(plan).Error; err != nil {
			return fmt.Errorf("creating plan %s: %w", code, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// UpdatePlan replaces the editable fields and the checklist, then recomputes
// the next-due markers, stepping past occurrences that were already generated.
func (s *Service) UpdatePlan(ctx context.Context, id uint, in PlanInput) (*Models.MaintenancePlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var plan *Models.MaintenancePlan
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		plan, err = lockPlan(tx, id)
		if err != nil {
			return err
		}
		asset, err := Assets.Load(tx, in.Asset)
		if err != nil {
			return err
		}
		if err := checkAssignee(tx, in.AssignedTo); err != nil {
			return err
		}

		kindChanged := plan.FrequencyType != in.FrequencyType || plan.Asset() != in.Asset
		s.apply(plan, &in)
		if kindChanged {
			plan.LastExecutionDate, plan.LastMileage = nil, nil
		}
		recompute(plan, asset.Counter())
		if _, err := skipGenerated(tx, plan); err != nil {
			return err
		}

		if err := tx.Where("plan_id = ?", plan.ID).Delete(&Models.PlanTask{}).Error; err != nil {
			return fmt.Errorf("clearing tasks of %s: %w", plan.Code, err)
		}
		plan.Tasks = buildTasks(in.Tasks)
		for i := range plan.Tasks {
			plan.Tasks[i].PlanID = plan.ID
		}
		if len(plan.Tasks) > 0 {
			if err := tx.Create(&plan.Tasks).Error; err != nil {
				return fmt.Errorf("saving tasks of %s: %w", plan.Code, err)
			}
		}
		if err := tx.Omit("Tasks", "Logs").Save(plan).Error; err != nil {
			return fmt.Errorf("saving plan %s: %w", plan.Code, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// SetActive enables or disables a plan. Markers are left as they are; a
// plan re-enabled after its next date is simply overdue.
func (s *Service) SetActive(ctx context.Context, id uint, active bool) (*Models.MaintenancePlan, error) {
	var plan *Models.MaintenancePlan
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		plan, err = lockPlan(tx, id)
		if err != nil {
			return err
		}
		if plan.IsActive == active {
			return nil
		}
		plan.IsActive = active
		if err := tx.Model(plan).Update("is_active", active).Error; err != nil {
			return fmt.Errorf("toggling plan %s: %w", plan.Code, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// DeletePlan soft-deletes the plan; its logs and work orders keep pointing
// at it.
func (s *Service) DeletePlan(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := lockPlan(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(plan).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivating plan %s: %w", plan.Code, err)
		}
		if err := tx.Delete(plan).Error; err != nil {
			return fmt.Errorf("deleting plan %s: %w", plan.Code, err)
		}
		return nil
	})
}

// MarkAsExecuted records an execution outside the generator. Calendar plans
// advance from the execution date but never move their next occurrence
// earlier; usage plans advance from the reading (or the current counter).
func (s *Service) MarkAsExecuted(ctx context.Context, id uint, executed time.Time, reading *int64) (*Models.MaintenancePlan, error) {
	var plan *Models.MaintenancePlan
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		plan, err = lockPlan(tx, id)
		if err != nil {
			return err
		}
		day := Models.Date(executed)
		if plan.LastExecutionDate != nil && day.Before(Models.DateValue(plan.LastExecutionDate)) {
			return Models.InvalidField("executed_date", "execution date is before the last recorded execution")
		}

		if reading != nil {
			if _, err := Assets.RecordReading(tx, plan.Asset(), *reading); err != nil {
				return err
			}
		}

		if plan.FrequencyType.IsUsage() {
			counter, err := Assets.Counter(tx, plan.Asset())
			if err != nil {
				return err
			}
			if reading != nil {
				counter = *reading
			}
			plan.LastMileage = Models.Int64Ptr(counter)
			plan.NextMileage = Scheduling.NextCounter(plan, counter)
		} else {
			previous := plan.NextExecutionDate
			plan.LastExecutionDate = Models.DatePtr(day)
			plan.NextExecutionDate = nil
			if next := Scheduling.NextExecutionDate(plan, day); next != nil {
				plan.NextExecutionDate = Models.DatePtr(*next)
				if previous != nil && next.Before(Models.DateValue(previous)) {
					plan.NextExecutionDate = previous
				}
			}
		}
		return saveMarkers(tx, plan)
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func checkAssignee(tx *gorm.DB, id *uint) error {
	if id == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&Models.User{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return fmt.Errorf("looking up technician %d: %w", *id, err)
	}
	if count == 0 {
		return Models.InvalidField("assigned_to", "technician %d does not exist", *id)
	}
	return nil
}
