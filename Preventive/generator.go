package Preventive

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Gmao/Alerts"
	"Gmao/Assets"
	"Gmao/Models"
	"Gmao/Scheduling"
	"Gmao/WorkOrders"
)

// SkipReason says why Generate left a plan alone.
type SkipReason string

const (
	SkipInactive         SkipReason = "inactive"
	SkipDormant          SkipReason = "dormant"
	SkipNotDue           SkipReason = "not_due"
	SkipOpenWorkOrder    SkipReason = "open_work_order"
	SkipAlreadyGenerated SkipReason = "already_generated"
)

var errOccurrenceTaken = errors.New("occurrence already generated")

type GenerateOptions struct {
	Actor uint
	// MileageOverride is a fresh counter reading; it is stored on the asset
	// and used as the new last_mileage.
	MileageOverride *int64
	// Force bypasses the due gate and the active flag. The open work order
	// guard and the occurrence guard still apply.
	Force bool
}

type Result struct {
	WorkOrder  *Models.WorkOrder
	Plan       *Models.MaintenancePlan
	AssetName  string
	SkipReason SkipReason
}

func (r *Result) Skipped() bool { return r.WorkOrder == nil }

// Generate creates the work order for the plan's current occurrence and
// advances the plan. Everything happens in one transaction holding the plan
// row lock: the due state is re-read under the lock, so two concurrent
// callers cannot both generate the same occurrence.
func (s *Service) Generate(ctx context.Context, planID uint, opts GenerateOptions) (*Result, error) {
	now := s.Clock.Now()
	today := Models.Date(now)
	res := &Result{}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := lockPlan(tx, planID)
		if err != nil {
			return err
		}
		res.Plan = plan

		if !plan.IsActive && !opts.Force {
			res.SkipReason = SkipInactive
			return nil
		}

		asset, err := Assets.LoadForUpdate(tx, plan.Asset())
		if err != nil {
			return err
		}
		res.AssetName = asset.DisplayName()
		counter := asset.Counter()
		if opts.MileageOverride != nil {
			if !plan.FrequencyType.IsUsage() {
				return Models.InvalidField("mileage", "plan %s is not usage based", plan.Code)
			}
			if *opts.MileageOverride < counter {
				return Models.InvalidField("mileage", "reading %d is below the current counter %d", *opts.MileageOverride, counter)
			}
			counter = *opts.MileageOverride
		}

		key := plan.TriggerKey()
		if key == "" {
			res.SkipReason = SkipDormant
			return nil
		}
		if !opts.Force && !Scheduling.NeedsGeneration(plan, today, counter) {
			res.SkipReason = SkipNotDue
			return nil
		}

		open, err := hasOpenWorkOrder(tx, plan.ID)
		if err != nil {
			return err
		}
		if open {
			res.SkipReason = SkipOpenWorkOrder
			return nil
		}

		moved, err := skipGenerated(tx, plan)
		if err != nil {
			return err
		}
		if moved {
			if err := saveMarkers(tx, plan); err != nil {
				return err
			}
			log.WithFields(log.Fields{"plan_code": plan.Code, "trigger_key": key, "next": plan.TriggerKey()}).
				Warn("Occurrence already generated, plan moved to the next one")
			res.SkipReason = SkipAlreadyGenerated
			return nil
		}

		wo := buildWorkOrder(plan, now, counter)
		if err := WorkOrders.Insert(tx, wo, now, opts.Actor, "Generated from plan "+plan.Code); err != nil {
			return err
		}

		entry := Models.MaintenanceLog{
			PlanID:        plan.ID,
			TriggerKey:    key,
			WorkOrderID:   &wo.ID,
			ScheduledDate: *Models.DatePtr(scheduledDay(plan, today)),
			Status:        Models.LogGenerated,
		}
		if plan.FrequencyType.IsUsage() {
			entry.MileageAtGeneration = Models.Int64Ptr(counter)
		}
		if err := tx.Create(&entry).Error; err != nil {
			if Models.IsDuplicate(err) {
				return errOccurrenceTaken
			}
			return fmt.Errorf("logging generation of %s: %w", plan.Code, err)
		}

		if opts.MileageOverride != nil {
			if _, err := Assets.RecordReading(tx, plan.Asset(), counter); err != nil {
				return err
			}
		}
		advance(plan, counter)
		if err := saveMarkers(tx, plan); err != nil {
			return err
		}
		res.WorkOrder = wo
		return nil
	})
	if errors.Is(err, errOccurrenceTaken) {
		res.WorkOrder = nil
		res.SkipReason = SkipAlreadyGenerated
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	if res.WorkOrder != nil {
		Alerts.Emit(ctx, s.Notifier, generatedNotification(res))
	}
	return res, nil
}

// GenerateNow is the manual "generate" action: it ignores the due gate and
// accepts a fresh counter reading.
func (s *Service) GenerateNow(ctx context.Context, planID, actor uint, mileage *int64) (*Result, error) {
	return s.Generate(ctx, planID, GenerateOptions{Actor: actor, MileageOverride: mileage, Force: true})
}

func hasOpenWorkOrder(tx *gorm.DB, planID uint) (bool, error) {
	var count int64
	err := tx.Model(&Models.WorkOrder{}).
		Where("plan_id = ? AND status IN ?", planID, Models.OpenStatuses).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking open work orders of plan %d: %w", planID, err)
	}
	return count > 0, nil
}

func scheduledDay(plan *Models.MaintenancePlan, today time.Time) time.Time {
	if plan.FrequencyType.IsCalendar() && plan.NextExecutionDate != nil {
		return Models.DateValue(plan.NextExecutionDate)
	}
	return today
}

func buildWorkOrder(plan *Models.MaintenancePlan, now time.Time, counter int64) *Models.WorkOrder {
	start := scheduledDay(plan, Models.Date(now))
	wo := &Models.WorkOrder{
		SiteID:            plan.SiteID,
		AssetType:         plan.AssetType,
		AssetID:           plan.AssetID,
		PlanID:            &plan.ID,
		RequestedBy:       plan.CreatedBy,
		AssignedTo:        plan.AssignedTo,
		Title:             "Preventive maintenance: " + plan.Name,
		Description:       describe(plan, counter),
		Type:              Models.TypePreventive,
		Priority:          plan.Priority,
		ScheduledStart:    &start,
		EstimatedDuration: plan.EstimatedDuration,
	}
	if plan.EstimatedDuration > 0 {
		end := start.Add(time.Duration(plan.EstimatedDuration) * time.Minute)
		wo.ScheduledEnd = &end
	}
	if wo.Priority == "" {
		wo.Priority = Models.PriorityMedium
	}
	return wo
}

// advance moves the plan past the occurrence just generated. Calendar plans
// step from the occurrence date and go dormant past end_date; usage plans
// step from the counter at generation.
func advance(plan *Models.MaintenancePlan, counter int64) {
	if plan.FrequencyType.IsUsage() {
		plan.LastMileage = Models.Int64Ptr(counter)
		plan.NextMileage = Scheduling.NextCounter(plan, counter)
		return
	}
	occurrence := Models.DateValue(plan.NextExecutionDate)
	plan.LastExecutionDate = Models.DatePtr(occurrence)
	plan.NextExecutionDate = nil
	if next := Scheduling.NextExecutionDate(plan, occurrence); next != nil {
		plan.NextExecutionDate = Models.DatePtr(*next)
	}
}

// skipGenerated steps the markers past every occurrence that already has a
// log row. It reports whether the plan moved.
func skipGenerated(tx *gorm.DB, plan *Models.MaintenancePlan) (bool, error) {
	moved := false
	for key := plan.TriggerKey(); key != ""; key = plan.TriggerKey() {
		var taken int64
		err := tx.Model(&Models.MaintenanceLog{}).
			Where("plan_id = ? AND trigger_key = ?", plan.ID, key).
			Count(&taken).Error
		if err != nil {
			return moved, fmt.Errorf("checking occurrence %s of %s: %w", key, plan.Code, err)
		}
		if taken == 0 {
			return moved, nil
		}
		moved = true
		if plan.FrequencyType.IsUsage() {
			plan.LastMileage = plan.NextMileage
			plan.NextMileage = Scheduling.NextCounter(plan, *plan.LastMileage)
			continue
		}
		advance(plan, 0)
	}
	return moved, nil
}

func generatedNotification(res *Result) Alerts.Notification {
	wo := res.WorkOrder
	return Alerts.Notification{
		Type:    Models.NotifyWorkOrderGenerated,
		SiteID:  wo.SiteID,
		UserID:  wo.AssignedTo,
		Title:   fmt.Sprintf("Work order %s generated", wo.Code),
		Message: fmt.Sprintf("%s on %s", res.Plan.Name, res.AssetName),
		Link:    fmt.Sprintf("/work-orders/%d", wo.ID),
		Data: map[string]string{
			"work_order_code": wo.Code,
			"plan_code":       res.Plan.Code,
			"priority":        string(wo.Priority),
		},
	}
}
