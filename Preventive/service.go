package Preventive

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gmao/Alerts"
	"Gmao/Assets"
	"Gmao/Models"
	"Gmao/Scheduling"
)

const (
	DefaultAdvanceDays    = 7
	DefaultAdvanceMileage = 500
)

// Service owns maintenance plans: their CRUD, the generator that turns due
// plans into work orders, and the batch runner.
type Service struct {
	DB       *gorm.DB
	Clock    Scheduling.Clock
	Notifier Alerts.Notifier

	AdvanceDays    int
	AdvanceMileage int64
}

func NewService(db *gorm.DB, clock Scheduling.Clock, notifier Alerts.Notifier) *Service {
	if clock == nil {
		clock = Scheduling.SystemClock{}
	}
	if notifier == nil {
		notifier = Alerts.Discard{}
	}
	return &Service{
		DB:             db,
		Clock:          clock,
		Notifier:       notifier,
		AdvanceDays:    DefaultAdvanceDays,
		AdvanceMileage: DefaultAdvanceMileage,
	}
}

// PlanView is a plan with its live classification.
type PlanView struct {
	Models.MaintenancePlan
	AssetName  string                `json:"asset_name"`
	Counter    int64                 `json:"asset_counter"`
	Evaluation Scheduling.Evaluation `json:"evaluation"`
}

func (s *Service) view(db *gorm.DB, plan Models.MaintenancePlan) PlanView {
	v := PlanView{MaintenancePlan: plan, AssetName: plan.Asset().String()}
	if asset, err := Assets.Load(db, plan.Asset()); err == nil {
		v.AssetName = asset.DisplayName()
		v.Counter = asset.Counter()
	}
	v.Evaluation = Scheduling.Evaluate(&v.MaintenancePlan, Scheduling.Today(s.Clock), v.Counter)
	return v
}

func (s *Service) Get(ctx context.Context, id uint) (*PlanView, error) {
	db := s.DB.WithContext(ctx)
	var plan Models.MaintenancePlan
	err := db.
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Preload("Logs", func(db *gorm.DB) *gorm.DB { return db.Order("id DESC") }).
		First(&plan, id).Error
	if err != nil {
		return nil, Models.NotFound(err, fmt.Sprintf("plan %d", id))
	}
	v := s.view(db, plan)
	return &v, nil
}

// PlanFilter narrows List. SiteID 0 means every site.
type PlanFilter struct {
	SiteID     uint
	ActiveOnly bool
	Asset      *Models.AssetRef
}

func (s *Service) List(ctx context.Context, f PlanFilter) ([]PlanView, error) {
	db := s.DB.WithContext(ctx)
	q := db.Order("id")
	if f.SiteID != 0 {
		q = q.Where("site_id = ?", f.SiteID)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.Asset != nil {
		q = q.Where("asset_type = ? AND asset_id = ?", f.Asset.Kind, f.Asset.ID)
	}
	var plans []Models.MaintenancePlan
	if err := q.Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	views := make([]PlanView, 0, len(plans))
	for _, p := range plans {
		views = append(views, s.view(db, p))
	}
	return views, nil
}

func lockPlan(tx *gorm.DB, id uint) (*Models.MaintenancePlan, error) {
	var plan Models.MaintenancePlan
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		First(&plan, id).Error
	if err != nil {
		return nil, Models.NotFound(err, fmt.Sprintf("plan %d", id))
	}
	return &plan, nil
}

// saveMarkers persists the next-due markers, nulls included.
func saveMarkers(tx *gorm.DB, plan *Models.MaintenancePlan) error {
	err := tx.Model(plan).
		Select("last_execution_date", "next_execution_date", "last_mileage", "next_mileage").
		Updates(plan).Error
	if err != nil {
		return fmt.Errorf("advancing plan %s: %w", plan.Code, err)
	}
	return nil
}
