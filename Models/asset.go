package Models

import (
	"fmt"

	"gorm.io/gorm"
)

type AssetKind string

const (
	AssetEquipment AssetKind = "equipment"
	AssetTruck     AssetKind = "truck"
)

func (k AssetKind) IsValid() bool {
	return k == AssetEquipment || k == AssetTruck
}

// AssetRef identifies an asset by kind and id.
type AssetRef struct {
	Kind AssetKind `json:"asset_type"`
	ID   uint      `json:"asset_id"`
}

func (r AssetRef) String() string {
	return fmt.Sprintf("%s#%d", r.Kind, r.ID)
}

// Asset is what the lifecycle and the availability policy need from a
// maintained thing, whatever its kind.
type Asset interface {
	Ref() AssetRef
	DisplayName() string
	// Counter is the usage meter: odometer for trucks, operating hours for
	// equipment.
	Counter() int64
	// RaiseCounter stores reading if it is higher than the current value.
	RaiseCounter(reading int64) bool
	Status() string
	SetStatus(status string)
	MaintenanceStatus() string
	OperationalStatus() string
}

const (
	EquipmentOperational      = "operational"
	EquipmentUnderMaintenance = "under_maintenance"
	EquipmentOutOfService     = "out_of_service"

	TruckAvailable    = "available"
	TruckMaintenance  = "maintenance"
	TruckOutOfService = "out_of_service"
)

type Site struct {
	gorm.Model
	Code     string `json:"code" gorm:"uniqueIndex;size:32"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type Equipment struct {
	gorm.Model
	SiteID         uint   `json:"site_id" gorm:"index"`
	Code           string `json:"code" gorm:"uniqueIndex;size:64"`
	Name           string `json:"name" gorm:"not null"`
	Category       string `json:"category"`
	OperatingHours int64  `json:"operating_hours"`
	State          string `json:"status" gorm:"column:status;default:operational"`
}

func (Equipment) TableName() string { return "equipment" }

func (e *Equipment) Ref() AssetRef { return AssetRef{Kind: AssetEquipment, ID: e.ID} }
func (e *Equipment) DisplayName() string { return e.Name }
func (e *Equipment) Counter() int64 { return e.OperatingHours }
func (e *Equipment) Status() string { return e.State }
func (e *Equipment) SetStatus(s string) { e.State = s }
func (e *Equipment) MaintenanceStatus() string { return EquipmentUnderMaintenance }
func (e *Equipment) OperationalStatus() string { return EquipmentOperational }

func (e *Equipment) RaiseCounter(reading int64) bool {
	if reading <= e.OperatingHours {
		return false
	}
	e.OperatingHours = reading
	return true
}

type Truck struct {
	gorm.Model
	SiteID      uint   `json:"site_id" gorm:"index"`
	PlateNumber string `json:"plate_number" gorm:"uniqueIndex;size:32"`
	Brand       string `json:"brand"`
	ModelName   string `json:"model" gorm:"column:model"`
	Mileage     int64  `json:"mileage"`
	State       string `json:"status" gorm:"column:status;default:available"`
}

func (t *Truck) Ref() AssetRef { return AssetRef{Kind: AssetTruck, ID: t.ID} }
func (t *Truck) Counter() int64 { return t.Mileage }
func (t *Truck) Status() string { return t.State }
func (t *Truck) SetStatus(s string) { t.State = s }
func (t *Truck) MaintenanceStatus() string { return TruckMaintenance }
func (t *Truck) OperationalStatus() string { return TruckAvailable }

func (t *Truck) DisplayName() string {
	if t.Brand == "" {
		return t.PlateNumber
	}
	return fmt.Sprintf("%s %s (%s)", t.Brand, t.ModelName, t.PlateNumber)
}

// RaiseCounter never lowers the odometer.
func (t *Truck) RaiseCounter(reading int64) bool {
	if reading <= t.Mileage {
		return false
	}
	t.Mileage = reading
	return true
}

// NewAsset returns an empty model for the given kind, ready to be loaded.
func NewAsset(kind AssetKind) (Asset, error) {
	switch kind {
	case AssetEquipment:
		return &Equipment{}, nil
	case AssetTruck:
		return &Truck{}, nil
	}
	return nil, InvalidField("asset_type", "unknown asset type %q", kind)
}
