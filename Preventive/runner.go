package Preventive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"Gmao/Models"
	"Gmao/Scheduling"
)

// Scope bounds one batch run. SiteID 0 covers every site.
type Scope struct {
	SiteID uint
	DryRun bool
	Actor  uint
}

type Generated struct {
	PlanCode      string `json:"plan_code"`
	PlanName      string `json:"plan_name"`
	WorkOrderCode string `json:"work_order_code,omitempty"`
	AssetName     string `json:"asset_name"`
}

type Report struct {
	RunID     string        `json:"run_id"`
	SiteID    uint          `json:"site_id"`
	DryRun    bool          `json:"dry_run"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Analyzed  int           `json:"analyzed"`
	Generated int           `json:"generated"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
	Items     []Generated   `json:"items"`
}

// CheckAndGenerateDue walks the active plans of the scope and generates a
// work order for each one that needs it. A plan that fails is logged and
// counted; the run carries on with the next plan. In dry-run mode nothing is
// written and Items lists what would be generated.
func (s *Service) CheckAndGenerateDue(ctx context.Context, scope Scope) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report := &Report{
		RunID:     uuid.NewString(),
		SiteID:    scope.SiteID,
		DryRun:    scope.DryRun,
		StartedAt: s.Clock.Now(),
		Items:     []Generated{},
	}
	logger := log.WithFields(log.Fields{"run_id": report.RunID, "site_id": scope.SiteID, "dry_run": scope.DryRun})

	q := s.DB.WithContext(ctx).Model(&Models.MaintenancePlan{}).Where("is_active = ?", true).Order("id")
	if scope.SiteID != 0 {
		q = q.Where("site_id = ?", scope.SiteID)
	}
	var ids []uint
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("listing active plans: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			logger.WithError(err).Warn("Preventive run interrupted")
			break
		}
		report.Analyzed++

		if scope.DryRun {
			item, due, err := s.preview(ctx, id)
			switch {
			case err != nil:
				report.Errors++
				logger.WithError(err).WithField("plan_id", id).Error("Failed to evaluate plan")
			case due:
				report.Generated++
				report.Items = append(report.Items, item)
			default:
				report.Skipped++
			}
			continue
		}

		res, err := s.Generate(ctx, id, GenerateOptions{Actor: scope.Actor})
		if err != nil {
			report.Errors++
			logger.WithError(err).WithField("plan_id", id).Error("Failed to generate preventive work order")
			continue
		}
		if res.Skipped() {
			report.Skipped++
			if res.SkipReason != SkipNotDue {
				logger.WithFields(log.Fields{"plan_code": res.Plan.Code, "reason": res.SkipReason}).Debug("Plan skipped")
			}
			continue
		}
		report.Generated++
		report.Items = append(report.Items, Generated{
			PlanCode:      res.Plan.Code,
			PlanName:      res.Plan.Name,
			WorkOrderCode: res.WorkOrder.Code,
			AssetName:     res.AssetName,
		})
		logger.WithFields(log.Fields{"plan_code": res.Plan.Code, "work_order": res.WorkOrder.Code}).Info("Preventive work order generated")
	}

	report.Duration = s.Clock.Now().Sub(report.StartedAt)
	logger.WithFields(log.Fields{
		"analyzed":  report.Analyzed,
		"generated": report.Generated,
		"skipped":   report.Skipped,
		"errors":    report.Errors,
	}).Info("Preventive run finished")
	return report, nil
}

// preview answers what Generate would do without taking any lock or writing.
func (s *Service) preview(ctx context.Context, id uint) (Generated, bool, error) {
	db := s.DB.WithContext(ctx)
	var plan Models.MaintenancePlan
	if err := db.First(&plan, id).Error; err != nil {
		return Generated{}, false, Models.NotFound(err, fmt.Sprintf("plan %d", id))
	}
	v := s.view(db, plan)
	item := Generated{PlanCode: plan.Code, PlanName: plan.Name, AssetName: v.AssetName}
	if plan.TriggerKey() == "" || !Scheduling.NeedsGeneration(&plan, Scheduling.Today(s.Clock), v.Counter) {
		return item, false, nil
	}
	open, err := hasOpenWorkOrder(db, plan.ID)
	if err != nil {
		return item, false, err
	}
	return item, !open, nil
}
