package WorkOrders

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"Gmao/Alerts"
	"Gmao/Models"
	"Gmao/Stock"
)

var minutesPerHour = decimal.NewFromInt(60)

// LaborCost is minutes/60 * hourly rate, rounded to cents.
func LaborCost(minutes int, hourlyRate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Mul(hourlyRate).Div(minutesPerHour).Round(2)
}

func elapsedMinutes(start, end time.Time) int {
	minutes := int(end.Sub(start) / time.Minute)
	if minutes < 0 {
		return 0
	}
	return minutes
}

// recomputeCosts sums the remaining part lines into parts_cost and refreshes
// the total. The caller persists wo.
func recomputeCosts(tx *gorm.DB, wo *Models.WorkOrder) error {
	var lines []Models.WorkOrderPart
	if err := tx.Where("work_order_id = ?", wo.ID).Find(&lines).Error; err != nil {
		return fmt.Errorf("loading parts of %s: %w", wo.Code, err)
	}
	parts := decimal.Zero
	for _, line := range lines {
		parts = parts.Add(line.TotalPrice)
	}
	wo.PartsCost = parts
	wo.RecomputeTotal()
	return nil
}

// AddPart withdraws quantity of a part from stock and charges it to the order.
func (s *Service) AddPart(ctx context.Context, id, actor, partID uint, quantity int64) (*Models.WorkOrderPart, error) {
	var line *Models.WorkOrderPart
	_, err := s.mutate(ctx, id, func(tx *gorm.DB, wo *Models.WorkOrder) ([]Alerts.Notification, error) {
		if wo.Status.IsTerminal() {
			return nil, Models.Invalid("parts cannot be added to a %s work order", wo.Status)
		}

		part, err := Stock.Withdraw(tx, partID, quantity, Stock.Movement{
			UserID:      actor,
			WorkOrderID: &wo.ID,
			Reason:      "Used on " + wo.Code,
		})
		if err != nil {
			return nil, err
		}

		line = &Models.WorkOrderPart{
			WorkOrderID:  wo.ID,
			PartID:       part.ID,
			QuantityUsed: quantity,
			UnitPrice:    part.UnitPrice,
			TotalPrice:   part.UnitPrice.Mul(decimal.NewFromInt(quantity)),
			AddedBy:      actor,
		}
		if err := tx.Create(line).Error; err != nil {
			return nil, fmt.Errorf("adding part %s to %s: %w", part.Code, wo.Code, err)
		}
		if err := recomputeCosts(tx, wo); err != nil {
			return nil, err
		}

		description := fmt.Sprintf("Added %d x %s (%s)", quantity, part.Name, line.TotalPrice.StringFixed(2))
		if err := recordHistory(tx, wo.ID, actor, Models.ActionPartAdded, "", part.Code, description); err != nil {
			return nil, err
		}

		if part.IsLow() {
			return []Alerts.Notification{lowStockNotification(part)}, nil
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// RemovePart reverses a part line: stock comes back, the line goes, costs
// are recomputed.
func (s *Service) RemovePart(ctx context.Context, id, actor, lineID uint) (*Models.WorkOrder, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, wo *Models.WorkOrder) ([]Alerts.Notification, error) {
		if wo.Status.IsTerminal() {
			return nil, Models.Invalid("parts cannot be removed from a %s work order", wo.Status)
		}

		var line Models.WorkOrderPart
		if err := tx.Where("work_order_id = ?", wo.ID).First(&line, lineID).Error; err != nil {
			return nil, Models.NotFound(err, fmt.Sprintf("part line %d of %s", lineID, wo.Code))
		}

		part, err := Stock.Restock(tx, line.PartID, line.QuantityUsed, Stock.Movement{
			UserID:      actor,
			WorkOrderID: &wo.ID,
			Reason:      "Removed from " + wo.Code,
		})
		if err != nil {
			return nil, err
		}
		if err := tx.Delete(&line).Error; err != nil {
			return nil, fmt.Errorf("removing part line %d: %w", line.ID, err)
		}
		if err := recomputeCosts(tx, wo); err != nil {
			return nil, err
		}

		description := fmt.Sprintf("Removed %d x %s", line.QuantityUsed, part.Name)
		return nil, recordHistory(tx, wo.ID, actor, Models.ActionPartRemoved, part.Code, "", description)
	})
}

func lowStockNotification(part *Models.Part) Alerts.Notification {
	return Alerts.Notification{
		Type:    Models.NotifyLowStock,
		SiteID:  part.SiteID,
		Title:   fmt.Sprintf("Low stock: %s", part.Code),
		Message: fmt.Sprintf("%s is down to %d (minimum %d)", part.Name, part.QuantityInStock, part.MinimumStock),
		Link:    fmt.Sprintf("/parts/%d", part.ID),
		Data:    map[string]string{"part_code": part.Code},
	}
}
