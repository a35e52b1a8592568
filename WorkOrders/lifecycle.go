package WorkOrders

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"Gmao/Alerts"
	"Gmao/Assets"
	"Gmao/Models"
)

// CompletionReport is what a technician submits when closing an order.
// Mileage is mandatory for trucks.
type CompletionReport struct {
	WorkPerformed   string
	Diagnosis       string
	RootCause       string
	TechnicianNotes string
	Mileage         *int64
}

func (s *Service) Approve(ctx context.Context, id, actor uint) (*Models.WorkOrder, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, wo *Models.WorkOrder) ([]Alerts.Notification, error) {
		if wo.Status != Models.StatusPending {
			return nil, Models.Invalid("only pending work orders can be approved, %s is %s", wo.Code, wo.Status)
		}
		now := s.Clock.Now()
		old := wo.Status
		wo.Status = Models.StatusApproved
		wo.ApprovedBy = &actor
		wo.ApprovedAt = &now
		return nil, recordHistory(tx, wo.ID, actor, Models.ActionApproved, string(old), string(wo.Status), "Work order approved")
	})
}

// Assign sets the technician. Pending and approved orders move to assigned;
// orders already under way keep their status.
func (s *Service) Assign(ctx context.Context, id, actor, technician uint) (*Models.WorkOrder, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, wo *Models.WorkOrder) ([]Alerts.Notification, error) {
		if wo.Status.IsTerminal() {
			return nil, Models.Invalid("work order %s is %s and can no longer be assigned", wo.Code, wo.Status)
		}
		if err := checkTechnician(tx, &technician); err != nil {
			return nil, err
		}

		oldName := Models.UserName(tx, wo.AssignedTo)
		newName := Models.UserName(tx, &technician)
		oldID := ""
		if wo.AssignedTo != nil {
			oldID = strconv.FormatUint(uint64(*wo.AssignedTo), 10)
		}

		wo.AssignedTo = &technician
		if wo.Status == Models.StatusPending || wo.Status == Models.StatusApproved {
			wo.Status = Models.StatusAssigned
		}

		description := fmt.Sprintf("Assigned to %s (previously %s)", newName, oldName)
		err := recordHistory(tx, wo.ID, actor, Models.ActionAssigned, oldID, strconv.FormatUint(uint64(technician), 10), description)
		if err != nil {
			return nil, err
		}
		return []Alerts.Notification{assignedNotification(wo)}, nil
	})
}

// Start begins execution and takes the asset out of service.
func (s *Service) Start(ctx context.Context, id, actor uint) (*Models.WorkOrder, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, wo *Models.WorkOrder) ([]Alerts.Notification, error) {
		switch wo.Status {
		case Models.StatusPending, Models.StatusApproved, Models.StatusAssigned:
		default:
			return nil, Models.Invalid("work order %s cannot be started from %s", wo.Code, wo.Status)
		}
		old := wo.Status
		if wo.ActualStart == nil {
			now := s.Clock.Now()
			wo.ActualStart = &now
		}
		wo.Status = Models.StatusInProgress

		if err := Assets.SetUnderMaintenance(tx, wo.Asset()); err != nil {
			return nil, err
		}
		return nil, recordHistory(tx, wo.ID, actor, Models.ActionStarted, string(old), string(wo.Status), "Work started")
	})
}

func (s *Service) Pause(ctx context.Context, id, actor uint, reason string) (*Models.WorkOrder, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, wo *Models.WorkOrder) ([]Alerts.Notification, error) {
		if wo.Status != Models.StatusInProgress {
			return nil, Models.Invalid("only work orders in progress can be paused, %s is %s", wo.Code, wo.Status)
		}
		wo.Status = Models.StatusOnHold

		description := "Work paused"
		if reason = strings.TrimSpace(reason); reason != "" {
			description += ": " + reason
		}
		return nil, recordHistory(tx, wo.ID, actor, Models.ActionPaused, string(Models.StatusInProgress), string(wo.Status), description)
	})
}

func (s *Service) Resume(ctx context.Context, id, actor uint) (*Models.WorkOrder, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, wo *Models.WorkOrder) ([]Alerts.Notification, error) {
		if wo.Status != Models.StatusOnHold {
			return nil, Models.Invalid("only work orders on hold can be resumed, %s is %s", wo.Code, wo.Status)
		}
		wo.Status = Models.StatusInProgress
		return nil, recordHistory(tx, wo.ID, actor, Models.ActionResumed, string(Models.StatusOnHold), string(wo.Status), "Work resumed")
	})
}

// Complete closes the order: duration, labor cost, report, counter reading,
// then releases the asset unless another order still holds it.
func (s *Service) Complete(ctx context.Context, id, actor uint, report CompletionReport) (*Models.WorkOrder, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, wo *Models.WorkOrder) ([]Alerts.Notification, error) {
		if err := Models.ValidateWorkOrderTransition(wo.Status, Models.StatusCompleted); err != nil {
			return nil, err
		}
		if wo.AssetType == Models.AssetTruck && report.Mileage == nil {
			return nil, Models.InvalidField("mileage", "a mileage reading is required to complete a truck work order")
		}
		if report.Mileage != nil && *report.Mileage < 0 {
			return nil, Models.InvalidField("mileage", "mileage cannot be negative")
		}

		old := wo.Status
		now := s.Clock.Now()
		wo.Status = Models.StatusCompleted
		wo.ActualEnd = &now
		wo.CompletedBy = &actor
		wo.CompletedAt = &now
		wo.WorkPerformed = report.WorkPerformed
		wo.Diagnosis = report.Diagnosis
		wo.RootCause = report.RootCause
		wo.TechnicianNotes = report.TechnicianNotes

		if wo.ActualStart != nil {
			minutes := elapsedMinutes(*wo.ActualStart, now)
			wo.ActualDuration = &minutes
			wo.LaborCost = LaborCost(minutes, s.HourlyRate)
		}
		if err := recomputeCosts(tx, wo); err != nil {
			return nil, err
		}

		if report.Mileage != nil {
			wo.MileageAtIntervention = report.Mileage
			if _, err := Assets.RecordReading(tx, wo.Asset(), *report.Mileage); err != nil {
				return nil, err
			}
		}

		if err := recordHistory(tx, wo.ID, actor, Models.ActionCompleted, string(old), string(wo.Status), "Work completed"); err != nil {
			return nil, err
		}
		if _, err := Assets.SetOperational(tx, wo.Asset(), wo.ID); err != nil {
			return nil, err
		}
		if err := updatePlanLog(tx, wo, Models.LogCompleted, Models.DatePtr(now)); err != nil {
			return nil, err
		}

		return []Alerts.Notification{{
			Type:    Models.NotifyWorkOrderCompleted,
			SiteID:  wo.SiteID,
			UserID:  &wo.RequestedBy,
			Title:   fmt.Sprintf("Work order %s completed", wo.Code),
			Message: fmt.Sprintf("%s: total cost %s", wo.Title, wo.TotalCost.StringFixed(2)),
			Link:    fmt.Sprintf("/work-orders/%d", wo.ID),
		}}, nil
	})
}

// Cancel aborts the order. An order that was holding its asset (under way,
// or urgent from creation) releases it.
func (s *Service) Cancel(ctx context.Context, id, actor uint, reason string) (*Models.WorkOrder, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, wo *Models.WorkOrder) ([]Alerts.Notification, error) {
		if err := Models.ValidateWorkOrderTransition(wo.Status, Models.StatusCancelled); err != nil {
			return nil, err
		}
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, Models.InvalidField("reason", "a cancellation reason is required")
		}

		old := wo.Status
		now := s.Clock.Now()
		wo.Status = Models.StatusCancelled
		wo.CancelledBy = &actor
		wo.CancelledAt = &now
		wo.CancellationReason = reason

		if err := recordHistory(tx, wo.ID, actor, Models.ActionCancelled, string(old), string(wo.Status), "Cancelled: "+reason); err != nil {
			return nil, err
		}
		holding := old == Models.StatusInProgress || old == Models.StatusOnHold || wo.Priority == Models.PriorityUrgent
		if holding {
			if _, err := Assets.SetOperational(tx, wo.Asset(), wo.ID); err != nil {
				return nil, err
			}
		}
		return nil, updatePlanLog(tx, wo, Models.LogSkipped, nil)
	})
}

// AddComment appends a free-text note; allowed in any status.
func (s *Service) AddComment(ctx context.Context, id, actor uint, text string) (*Models.WorkOrderComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, Models.InvalidField("comment", "comment is empty")
	}
	comment := &Models.WorkOrderComment{WorkOrderID: id, UserID: actor, Comment: text}
	_, err := s.mutate(ctx, id, func(tx *gorm.DB, wo *Models.WorkOrder) ([]Alerts.Notification, error) {
		if err := tx.Create(comment).Error; err != nil {
			return nil, fmt.Errorf("adding comment to %s: %w", wo.Code, err)
		}
		return nil, recordHistory(tx, wo.ID, actor, Models.ActionCommentAdded, "", "", "Comment added")
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}
