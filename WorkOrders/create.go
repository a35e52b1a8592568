package WorkOrders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"Gmao/Alerts"
	"Gmao/Assets"
	"Gmao/Models"
)

// CreateInput is a manually requested work order.
type CreateInput struct {
	SiteID            uint
	Asset             Models.AssetRef
	Title             string
	Description       string
	Type              Models.WorkOrderType
	Priority          Models.Priority
	ScheduledStart    *time.Time
	ScheduledEnd      *time.Time
	EstimatedDuration int
	AssignedTo        *uint
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return Models.InvalidField("title", "title is required")
	}
	if !in.Asset.Kind.IsValid() {
		return Models.InvalidField("asset_type", "unknown asset type %q", in.Asset.Kind)
	}
	if !in.Type.IsValid() {
		return Models.InvalidField("type", "unknown work order type %q", in.Type)
	}
	if !in.Priority.IsValid() {
		return Models.InvalidField("priority", "unknown priority %q", in.Priority)
	}
	if in.ScheduledStart != nil && in.ScheduledEnd != nil && in.ScheduledEnd.Before(*in.ScheduledStart) {
		return Models.InvalidField("scheduled_end", "scheduled end is before scheduled start")
	}
	return nil
}

// Create opens a manual work order. Urgent orders take the asset out of
// service right away.
func (s *Service) Create(ctx context.Context, actor uint, in CreateInput) (*Models.WorkOrder, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	wo := &Models.WorkOrder{
		SiteID:            in.SiteID,
		AssetType:         in.Asset.Kind,
		AssetID:           in.Asset.ID,
		RequestedBy:       actor,
		AssignedTo:        in.AssignedTo,
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		Type:              in.Type,
		Priority:          in.Priority,
		ScheduledStart:    in.ScheduledStart,
		ScheduledEnd:      in.ScheduledEnd,
		EstimatedDuration: in.EstimatedDuration,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := Assets.Load(tx, in.Asset); err != nil {
			return err
		}
		if err := checkTechnician(tx, in.AssignedTo); err != nil {
			return err
		}
		if err := Insert(tx, wo, s.Clock.Now(), actor, "Work order created"); err != nil {
			return err
		}
		if wo.Priority == Models.PriorityUrgent {
			return Assets.SetUnderMaintenance(tx, wo.Asset())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if wo.AssignedTo != nil {
		Alerts.Emit(ctx, s.Notifier, assignedNotification(wo))
	}
	return wo, nil
}

// Insert numbers and stores a new work order inside tx and appends its
// "created" history row. Status defaults to assigned when an assignee is set,
// pending otherwise.
func Insert(tx *gorm.DB, wo *Models.WorkOrder, now time.Time, actor uint, description string) error {
	code, err := Models.NextCode(tx, &Models.WorkOrder{}, Models.WorkOrderCodePrefix, now.Year())
	if err != nil {
		return err
	}
	wo.Code = code
	if wo.Status == "" {
		wo.Status = Models.StatusPending
		if wo.AssignedTo != nil {
			wo.Status = Models.StatusAssigned
		}
	}
	wo.RecomputeTotal()

	if err := tx.Create(wo).Error; err != nil {
		return fmt.Errorf("creating work order %s: %w", code, err)
	}
	return recordHistory(tx, wo.ID, actor, Models.ActionCreated, "", string(wo.Status), description)
}

func checkTechnician(tx *gorm.DB, id *uint) error {
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

func assignedNotification(wo *Models.WorkOrder) Alerts.Notification {
	return Alerts.Notification{
		Type:    Models.NotifyWorkOrderAssigned,
		SiteID:  wo.SiteID,
		UserID:  wo.AssignedTo,
		Title:   fmt.Sprintf("Work order %s assigned", wo.Code),
		Message: wo.Title,
		Link:    fmt.Sprintf("/work-orders/%d", wo.ID),
		Data:    map[string]string{"work_order_code": wo.Code, "priority": string(wo.Priority)},
	}
}
