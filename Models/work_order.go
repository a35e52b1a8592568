package Models

import (
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type WorkOrder struct {
	gorm.Model
	SiteID      uint      `json:"site_id" gorm:"index"`
	Code        string    `json:"code" gorm:"uniqueIndex;size:32"`
	AssetType   AssetKind `json:"asset_type" gorm:"size:16;not null;index:idx_wo_asset"`
	AssetID     uint      `json:"asset_id" gorm:"not null;index:idx_wo_asset"`
	PlanID      *uint     `json:"plan_id" gorm:"index"`
	RequestedBy uint      `json:"requested_by"`
	AssignedTo  *uint     `json:"assigned_to" gorm:"index"`

	Title       string          `json:"title" gorm:"not null"`
	Description string          `json:"description"`
	Type        WorkOrderType   `json:"type" gorm:"size:16;not null"`
	Priority    Priority        `json:"priority" gorm:"size:16;not null"`
	Status      WorkOrderStatus `json:"status" gorm:"size:16;not null;index"`

	ScheduledStart    *time.Time `json:"scheduled_start"`
	ScheduledEnd      *time.Time `json:"scheduled_end"`
	ActualStart       *time.Time `json:"actual_start"`
	ActualEnd         *time.Time `json:"actual_end"`
	EstimatedDuration int        `json:"estimated_duration"`
	ActualDuration    *int       `json:"actual_duration"`

	WorkPerformed         string `json:"work_performed"`
	Diagnosis             string `json:"diagnosis"`
	RootCause             string `json:"root_cause"`
	TechnicianNotes       string `json:"technician_notes"`
	MileageAtIntervention *int64 `json:"mileage_at_intervention"`

	LaborCost decimal.Decimal `json:"labor_cost" gorm:"type:decimal(12,2)"`
	PartsCost decimal.Decimal `json:"parts_cost" gorm:"type:decimal(12,2)"`
	TotalCost decimal.Decimal `json:"total_cost" gorm:"type:decimal(12,2)"`

	ApprovedBy         *uint      `json:"approved_by"`
	ApprovedAt         *time.Time `json:"approved_at"`
	CompletedBy        *uint      `json:"completed_by"`
	CompletedAt        *time.Time `json:"completed_at"`
	CancelledBy        *uint      `json:"cancelled_by"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	CancellationReason string     `json:"cancellation_reason"`

	Parts     []WorkOrderPart    `json:"parts,omitempty" gorm:"foreignKey:WorkOrderID"`
	Histories []WorkOrderHistory `json:"histories,omitempty" gorm:"foreignKey:WorkOrderID"`
	Comments  []WorkOrderComment `json:"comments,omitempty" gorm:"foreignKey:WorkOrderID"`
}

func (w *WorkOrder) Asset() AssetRef {
	return AssetRef{Kind: w.AssetType, ID: w.AssetID}
}

// RecomputeTotal keeps total_cost equal to labor plus parts.
func (w *WorkOrder) RecomputeTotal() {
	w.TotalCost = w.LaborCost.Add(w.PartsCost)
	w.AssertCostInvariant()
}

// AssertCostInvariant panics when the stored totals drifted apart. Every cost
// mutation goes through RecomputeTotal, so a failure here is a bug.
func (w *WorkOrder) AssertCostInvariant() {
	if !w.TotalCost.Equal(w.LaborCost.Add(w.PartsCost)) {
		log.WithFields(log.Fields{
			"work_order": w.Code,
			"labor":      w.LaborCost.String(),
			"parts":      w.PartsCost.String(),
			"total":      w.TotalCost.String(),
		}).Panic("work order cost totals are inconsistent")
	}
}

type WorkOrderPart struct {
	gorm.Model
	WorkOrderID  uint            `json:"work_order_id" gorm:"not null;index"`
	PartID       uint            `json:"part_id" gorm:"not null;index"`
	Part         *Part           `json:"part,omitempty" gorm:"foreignKey:PartID"`
	QuantityUsed int64           `json:"quantity_used"`
	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2)"`
	TotalPrice   decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2)"`
	AddedBy      uint            `json:"added_by"`
}

type HistoryAction string

const (
	ActionCreated      HistoryAction = "created"
	ActionApproved     HistoryAction = "approved"
	ActionAssigned     HistoryAction = "assigned"
	ActionStarted      HistoryAction = "started"
	ActionPaused       HistoryAction = "paused"
	ActionResumed      HistoryAction = "resumed"
	ActionCompleted    HistoryAction = "completed"
	ActionCancelled    HistoryAction = "cancelled"
	ActionPartAdded    HistoryAction = "part_added"
	ActionPartRemoved  HistoryAction = "part_removed"
	ActionCommentAdded HistoryAction = "comment_added"
)

// WorkOrderHistory is append-only.
type WorkOrderHistory struct {
	ID          uint          `json:"id" gorm:"primarykey"`
	CreatedAt   time.Time     `json:"created_at"`
	WorkOrderID uint          `json:"work_order_id" gorm:"not null;index"`
	UserID      uint          `json:"user_id"`
	Action      HistoryAction `json:"action" gorm:"size:32;not null"`
	OldValue    string        `json:"old_value"`
	NewValue    string        `json:"new_value"`
	Description string        `json:"description"`
}

func (WorkOrderHistory) TableName() string { return "work_order_histories" }

type WorkOrderComment struct {
	gorm.Model
	WorkOrderID uint   `json:"work_order_id" gorm:"not null;index"`
	UserID      uint   `json:"user_id"`
	Comment     string `json:"comment" gorm:"not null"`
}
