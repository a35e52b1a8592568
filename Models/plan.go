package Models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FrequencyType string

const (
	FrequencyDaily   FrequencyType = "daily"
	FrequencyWeekly  FrequencyType = "weekly"
	FrequencyMonthly FrequencyType = "monthly"
	FrequencyYearly  FrequencyType = "yearly"
	FrequencyCounter FrequencyType = "counter"
	FrequencyMileage FrequencyType = "mileage"
)

func (f FrequencyType) IsValid() bool {
	return f.IsCalendar() || f.IsUsage()
}

// IsCalendar is true when next_execution_date drives the plan.
func (f FrequencyType) IsCalendar() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// IsUsage is true when the asset counter against next_mileage drives the plan.
func (f FrequencyType) IsUsage() bool {
	return f == FrequencyCounter || f == FrequencyMileage
}

// MaintenancePlan is a recurring maintenance obligation for one asset.
// Calendar plans use the execution dates; usage plans (mileage, counter) use
// LastMileage/NextMileage as generic counter markers.
type MaintenancePlan struct {
	gorm.Model
	SiteID      uint      `json:"site_id" gorm:"index"`
	AssetType   AssetKind `json:"asset_type" gorm:"size:16;not null;index:idx_plan_asset"`
	AssetID     uint      `json:"asset_id" gorm:"not null;index:idx_plan_asset"`
	Code        string    `json:"code" gorm:"uniqueIndex;size:32"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`

	FrequencyType    FrequencyType `json:"frequency_type" gorm:"size:16;not null"`
	FrequencyValue   int           `json:"frequency_value"`
	CounterThreshold *int64        `json:"counter_threshold"`
	CounterUnit      string        `json:"counter_unit"`
	MileageInterval  *int64        `json:"mileage_interval"`

	StartDate         *datatypes.Date `json:"start_date"`
	EndDate           *datatypes.Date `json:"end_date"`
	LastExecutionDate *datatypes.Date `json:"last_execution_date"`
	NextExecutionDate *datatypes.Date `json:"next_execution_date"`
	LastMileage       *int64          `json:"last_mileage"`
	NextMileage       *int64          `json:"next_mileage"`

	AdvanceDays    int   `json:"advance_days"`
	AdvanceMileage int64 `json:"advance_mileage"`

	Priority          Priority `json:"priority" gorm:"size:16"`
	EstimatedDuration int      `json:"estimated_duration"`
	AssignedTo        *uint    `json:"assigned_to"`
	CreatedBy         uint     `json:"created_by"`
	IsActive          bool     `json:"is_active" gorm:"index"`

	Tasks []PlanTask       `json:"tasks,omitempty" gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`
	Logs  []MaintenanceLog `json:"logs,omitempty" gorm:"foreignKey:PlanID"`
}

func (p *MaintenancePlan) Asset() AssetRef {
	return AssetRef{Kind: p.AssetType, ID: p.AssetID}
}

// UsageInterval is the counter distance between two occurrences.
func (p *MaintenancePlan) UsageInterval() int64 {
	switch p.FrequencyType {
	case FrequencyMileage:
		if p.MileageInterval != nil {
			return *p.MileageInterval
		}
	case FrequencyCounter:
		if p.CounterThreshold != nil {
			return *p.CounterThreshold
		}
	}
	return 0
}

// TriggerKey identifies the occurrence the plan currently waits for. It is
// unique per plan in maintenance_logs.
func (p *MaintenancePlan) TriggerKey() string {
	if p.FrequencyType.IsUsage() {
		if p.NextMileage == nil {
			return ""
		}
		return fmt.Sprintf("counter:%d", *p.NextMileage)
	}
	if p.NextExecutionDate == nil {
		return ""
	}
	return "date:" + DateValue(p.NextExecutionDate).Format("2006-01-02")
}

type PlanTask struct {
	gorm.Model
	PlanID            uint   `json:"plan_id" gorm:"not null;index"`
	Order             int    `json:"order" gorm:"column:sort_order"`
	Description       string `json:"description" gorm:"not null"`
	Instructions      string `json:"instructions"`
	EstimatedDuration int    `json:"estimated_duration"`
}

type LogStatus string

const (
	LogScheduled LogStatus = "scheduled"
	LogGenerated LogStatus = "generated"
	LogCompleted LogStatus = "completed"
	LogSkipped   LogStatus = "skipped"
)

// MaintenanceLog is one row per generation event. The (plan_id, trigger_key)
// unique index is the storage-level dedup guard.
type MaintenanceLog struct {
	gorm.Model
	PlanID              uint            `json:"plan_id" gorm:"not null;uniqueIndex:idx_log_plan_trigger"`
	TriggerKey          string          `json:"trigger_key" gorm:"size:64;not null;uniqueIndex:idx_log_plan_trigger"`
	WorkOrderID         *uint           `json:"work_order_id" gorm:"index"`
	ScheduledDate       datatypes.Date  `json:"scheduled_date"`
	ExecutedDate        *datatypes.Date `json:"executed_date"`
	MileageAtGeneration *int64          `json:"mileage_at_generation"`
	Status              LogStatus       `json:"status" gorm:"size:16;not null"`
	Notes               string          `json:"notes"`
}

// Date truncates t to a calendar day in UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr wraps a day for a nullable date column.
func DatePtr(t time.Time) *datatypes.Date {
	d := datatypes.Date(Date(t))
	return &d
}

// DateValue unwraps a date column; the zero time when nil.
func DateValue(d *datatypes.Date) time.Time {
	if d == nil {
		return time.Time{}
	}
	return Date(time.Time(*d))
}

func Int64Ptr(v int64) *int64 { return &v }
