package Stock

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gmao/Models"
)

// Movement describes who moves stock and why.
type Movement struct {
	UserID      uint
	WorkOrderID *uint
	Reason      string
}

// Withdraw removes quantity from stock inside tx and records an "out"
// movement. Availability is checked on the locked row and enforced again by
// the conditional update, so a concurrent withdrawal cannot oversell.
func Withdraw(tx *gorm.DB, partID uint, quantity int64, m Movement) (*Models.Part, error) {
	if quantity <= 0 {
		return nil, Models.InvalidField("quantity", "quantity must be positive")
	}
	part, err := lock(tx, partID)
	if err != nil {
		return nil, err
	}
	if quantity > part.QuantityInStock {
		return nil, Models.InvalidField("quantity",
			"insufficient stock for %s: %d available, %d requested", part.Code, part.QuantityInStock, quantity)
	}

	res := tx.Model(&Models.Part{}).
		Where("id = ? AND quantity_in_stock >= ?", partID, quantity).
		UpdateColumn("quantity_in_stock", gorm.Expr("quantity_in_stock - ?", quantity))
	if res.Error != nil {
		return nil, fmt.Errorf("decrementing stock of part %d: %w", partID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, Models.InvalidField("quantity", "insufficient stock for %s", part.Code)
	}

	before := part.QuantityInStock
	part.QuantityInStock -= quantity
	if err := record(tx, part, Models.MovementOut, quantity, before, m); err != nil {
		return nil, err
	}
	return part, nil
}

// Restock puts quantity back and records an "in" movement.
func Restock(tx *gorm.DB, partID uint, quantity int64, m Movement) (*Models.Part, error) {
	if quantity <= 0 {
		return nil, Models.InvalidField("quantity", "quantity must be positive")
	}
	part, err := lock(tx, partID)
	if err != nil {
		return nil, err
	}

	err = tx.Model(&Models.Part{}).
		Where("id = ?", partID).
		UpdateColumn("quantity_in_stock", gorm.Expr("quantity_in_stock + ?", quantity)).Error
	if err != nil {
		return nil, fmt.Errorf("incrementing stock of part %d: %w", partID, err)
	}

	before := part.QuantityInStock
	part.QuantityInStock += quantity
	if err := record(tx, part, Models.MovementIn, quantity, before, m); err != nil {
		return nil, err
	}
	return part, nil
}

func lock(tx *gorm.DB, partID uint) (*Models.Part, error) {
	var part Models.Part
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&part, partID).Error
	if err != nil {
		return nil, Models.NotFound(err, fmt.Sprintf("part %d", partID))
	}
	return &part, nil
}

func record(tx *gorm.DB, part *Models.Part, kind Models.MovementType, quantity, before int64, m Movement) error {
	movement := Models.StockMovement{
		SiteID:         part.SiteID,
		PartID:         part.ID,
		UserID:         m.UserID,
		WorkOrderID:    m.WorkOrderID,
		Type:           kind,
		Quantity:       quantity,
		QuantityBefore: before,
		QuantityAfter:  part.QuantityInStock,
		UnitPrice:      part.UnitPrice,
		Reason:         m.Reason,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return fmt.Errorf("recording stock movement for part %d: %w", part.ID, err)
	}
	return nil
}
