package Models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Part struct {
	gorm.Model
	SiteID          uint            `json:"site_id" gorm:"index"`
	Code            string          `json:"code" gorm:"uniqueIndex;size:64"`
	Name            string          `json:"name" gorm:"not null"`
	Unit            string          `json:"unit"`
	UnitPrice       decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2)"`
	QuantityInStock int64           `json:"quantity_in_stock"`
	MinimumStock    int64           `json:"minimum_stock"`
}

// IsLow reports whether stock has fallen to the reorder level.
func (p *Part) IsLow() bool {
	return p.MinimumStock > 0 && p.QuantityInStock <= p.MinimumStock
}

type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// StockMovement is the append-only audit row for every stock change.
type StockMovement struct {
	gorm.Model
	SiteID         uint            `json:"site_id" gorm:"index"`
	PartID         uint            `json:"part_id" gorm:"not null;index"`
	UserID         uint            `json:"user_id"`
	WorkOrderID    *uint           `json:"work_order_id" gorm:"index"`
	Type           MovementType    `json:"type" gorm:"size:8;not null"`
	Quantity       int64           `json:"quantity"`
	QuantityBefore int64           `json:"quantity_before"`
	QuantityAfter  int64           `json:"quantity_after"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2)"`
	Reason         string          `json:"reason"`
}
