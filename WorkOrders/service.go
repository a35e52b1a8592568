package WorkOrders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gmao/Alerts"
	"Gmao/Models"
	"Gmao/Scheduling"
)

// DefaultHourlyRate is the labor rate used when none is configured.
var DefaultHourlyRate = decimal.NewFromInt(500)

// Service runs the work order lifecycle. Every operation is one transaction;
// notifications go out only after it commits.
type Service struct {
	DB         *gorm.DB
	Clock      Scheduling.Clock
	HourlyRate decimal.Decimal
	Notifier   Alerts.Notifier
}

func NewService(db *gorm.DB, clock Scheduling.Clock, hourlyRate decimal.Decimal, notifier Alerts.Notifier) *Service {
	if clock == nil {
		clock = Scheduling.SystemClock{}
	}
	if hourlyRate.IsZero() {
		hourlyRate = DefaultHourlyRate
	}
	if notifier == nil {
		notifier = Alerts.Discard{}
	}
	return &Service{DB: db, Clock: clock, HourlyRate: hourlyRate, Notifier: notifier}
}

// Get loads a work order with its parts, history and comments.
func (s *Service) Get(ctx context.Context, id uint) (*Models.WorkOrder, error) {
	var wo Models.WorkOrder
	err := s.DB.WithContext(ctx).
		Preload("Parts.Part").
		Preload("Histories", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&wo, id).Error
	if err != nil {
		return nil, Models.NotFound(err, fmt.Sprintf("work order %d", id))
	}
	return &wo, nil
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	SiteID     uint
	Status     Models.WorkOrderStatus
	AssignedTo uint
	PlanID     uint
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Models.WorkOrder, error) {
	q := s.DB.WithContext(ctx).Order("id DESC")
	if f.SiteID != 0 {
		q = q.Where("site_id = ?", f.SiteID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AssignedTo != 0 {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.PlanID != 0 {
		q = q.Where("plan_id = ?", f.PlanID)
	}
	var orders []Models.WorkOrder
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("listing work orders: %w", err)
	}
	return orders, nil
}

// mutate locks the work order row, runs fn and persists the order. The
// status read under the lock is what guards see, so a stale second request
// fails its guard instead of applying twice.
func (s *Service) mutate(ctx context.Context, id uint, fn func(tx *gorm.DB, wo *Models.WorkOrder) ([]Alerts.Notification, error)) (*Models.WorkOrder, error) {
	var (
		wo      Models.WorkOrder
		pending []Alerts.Notification
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wo, id).Error; err != nil {
			return Models.NotFound(err, fmt.Sprintf("work order %d", id))
		}
		out, err := fn(tx, &wo)
		if err != nil {
			return err
		}
		pending = out
		if err := tx.Omit(clause.Associations).Save(&wo).Error; err != nil {
			return fmt.Errorf("saving work order %s: %w", wo.Code, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, n := range pending {
		Alerts.Emit(ctx, s.Notifier, n)
	}
	return &wo, nil
}

func recordHistory(tx *gorm.DB, woID, actor uint, action Models.HistoryAction, oldValue, newValue, description string) error {
	entry := Models.WorkOrderHistory{
		WorkOrderID: woID,
		UserID:      actor,
		Action:      action,
		OldValue:    oldValue,
		NewValue:    newValue,
		Description: description,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("recording %s history for work order %d: %w", action, woID, err)
	}
	return nil
}

// updatePlanLog moves the generation log of a preventive order along with
// the order itself.
func updatePlanLog(tx *gorm.DB, wo *Models.WorkOrder, status Models.LogStatus, executed *datatypes.Date) error {
	if wo.PlanID == nil {
		return nil
	}
	updates := map[string]interface{}{"status": status}
	if executed != nil {
		updates["executed_date"] = executed
	}
	err := tx.Model(&Models.MaintenanceLog{}).
		Where("plan_id = ? AND work_order_id = ?", *wo.PlanID, wo.ID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("updating maintenance log of %s: %w", wo.Code, err)
	}
	return nil
}
