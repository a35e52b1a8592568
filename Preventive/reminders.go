package Preventive

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"Gmao/Alerts"
	"Gmao/Models"
	"Gmao/Scheduling"
)

// Upcoming lists active plans that are overdue, inside their advance window,
// or whose next calendar occurrence falls within days. Soonest first.
func (s *Service) Upcoming(ctx context.Context, siteID uint, days int) ([]PlanView, error) {
	if days < 0 {
		return nil, Models.InvalidField("days", "days must not be negative")
	}
	views, err := s.List(ctx, PlanFilter{SiteID: siteID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	var out []PlanView
	for _, v := range views {
		ev := v.Evaluation
		if ev.Due || ev.DueSoon || (ev.DaysUntilDue != nil && *ev.DaysUntilDue <= days) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return urgency(out[i]) < urgency(out[j])
	})
	return out, nil
}

// urgency orders overdue before due soon before the rest, then by days left.
func urgency(v PlanView) int {
	rank := map[Scheduling.PlanStatus]int{
		Scheduling.PlanOverdue: 0,
		Scheduling.PlanDueSoon: 1,
		Scheduling.PlanOnTrack: 2,
	}[v.Evaluation.Status] * 100000
	if v.Evaluation.DaysUntilDue != nil {
		rank += *v.Evaluation.DaysUntilDue
	}
	return rank
}

type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Inactive  int `json:"inactive"`
	Overdue   int `json:"overdue"`
	DueSoon   int `json:"due_soon"`
	OnTrack   int `json:"on_track"`
	Calendar  int `json:"calendar"`
	Usage     int `json:"usage"`
	OpenOrder int `json:"open_work_orders"`
}

func (s *Service) Stats(ctx context.Context, siteID uint) (*Stats, error) {
	views, err := s.List(ctx, PlanFilter{SiteID: siteID})
	if err != nil {
		return nil, err
	}
	st := &Stats{Total: len(views)}
	for _, v := range views {
		if v.IsActive {
			st.Active++
		}
		if v.FrequencyType.IsUsage() {
			st.Usage++
		} else {
			st.Calendar++
		}
		switch v.Evaluation.Status {
		case Scheduling.PlanInactive:
			st.Inactive++
		case Scheduling.PlanOverdue:
			st.Overdue++
		case Scheduling.PlanDueSoon:
			st.DueSoon++
		default:
			st.OnTrack++
		}
	}

	var open int64
	q := s.DB.WithContext(ctx).Model(&Models.WorkOrder{}).
		Where("plan_id IS NOT NULL AND status IN ?", Models.OpenStatuses)
	if siteID != 0 {
		q = q.Where("site_id = ?", siteID)
	}
	if err := q.Count(&open).Error; err != nil {
		return nil, fmt.Errorf("counting open preventive work orders: %w", err)
	}
	st.OpenOrder = int(open)
	return st, nil
}

// SendReminders notifies about every active plan that is due soon or
// overdue and has no open work order yet. It returns how many reminders went
// out.
func (s *Service) SendReminders(ctx context.Context, siteID uint) (int, error) {
	views, err := s.List(ctx, PlanFilter{SiteID: siteID, ActiveOnly: true})
	if err != nil {
		return 0, err
	}
	db := s.DB.WithContext(ctx)
	sent := 0
	for _, v := range views {
		if !v.Evaluation.Due && !v.Evaluation.DueSoon {
			continue
		}
		open, err := hasOpenWorkOrder(db, v.ID)
		if err != nil {
			log.WithError(err).WithField("plan_code", v.Code).Error("Failed to check open work orders")
			continue
		}
		if open {
			continue
		}
		Alerts.Emit(ctx, s.Notifier, reminderNotification(v))
		sent++
	}
	return sent, nil
}

func reminderNotification(v PlanView) Alerts.Notification {
	when := "is overdue"
	if !v.Evaluation.Due {
		switch {
		case v.Evaluation.DaysUntilDue != nil:
			when = fmt.Sprintf("is due in %d day(s)", *v.Evaluation.DaysUntilDue)
		case v.Evaluation.CounterUntilDue != nil:
			when = fmt.Sprintf("is due in %d %s", *v.Evaluation.CounterUntilDue, v.CounterUnit)
		default:
			when = "is due soon"
		}
	}
	return Alerts.Notification{
		Type:    Models.NotifyPlanReminder,
		SiteID:  v.SiteID,
		UserID:  v.AssignedTo,
		Title:   fmt.Sprintf("Maintenance %s %s", v.Code, when),
		Message: fmt.Sprintf("%s on %s", v.Name, v.AssetName),
		Link:    fmt.Sprintf("/plans/%d", v.ID),
		Data:    map[string]string{"plan_code": v.Code, "status": string(v.Evaluation.Status)},
	}
}
