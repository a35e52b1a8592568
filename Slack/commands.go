// Package Slack answers maintenance commands typed in a Slack channel.
package Slack

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"Gmao/Assets"
	"Gmao/Models"
	"Gmao/Preventive"
	"Gmao/Scheduling"
	"Gmao/WorkOrders"
)

var errUnknownCommand = errors.New("unknown command")

// Commands runs chat commands against one site. Actor is the user recorded
// on anything the bot changes.
type Commands struct {
	Plans      *Preventive.Service
	WorkOrders *WorkOrders.Service
	SiteID     uint
	Actor      uint
}

// Process handles one "!command args" message and returns the reply.
func (c *Commands) Process(ctx context.Context, text string) (string, error) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", fmt.Errorf("empty command")
	}

	switch strings.ToLower(parts[0]) {
	case "!due":
		return c.due(ctx)
	case "!generate":
		if len(parts) < 2 {
			return "Usage: `!generate [plan_code]`", nil
		}
		return c.generate(ctx, parts[1])
	case "!wo":
		if len(parts) < 2 {
			return "Usage: `!wo [work_order_code]`", nil
		}
		return c.workOrder(ctx, parts[1])
	case "!help":
		return help(), nil
	}
	return "", errUnknownCommand
}

func (c *Commands) due(ctx context.Context) (string, error) {
	plans, err := c.Plans.Upcoming(ctx, c.SiteID, 0)
	if err != nil {
		return "", err
	}
	if len(plans) == 0 {
		return "No maintenance due :white_check_mark:", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Maintenance due (%d)*\n", len(plans))
	for _, p := range plans {
		marker := ":large_yellow_circle:"
		if p.Evaluation.Status == Scheduling.PlanOverdue {
			marker = ":red_circle:"
		}
		fmt.Fprintf(&b, "%s `%s` %s on %s: %s\n", marker, p.Code, p.Name, p.AssetName, dueText(p))
	}
	return b.String(), nil
}

func dueText(p Preventive.PlanView) string {
	ev := p.Evaluation
	switch {
	case ev.CounterUntilDue != nil && *ev.CounterUntilDue <= 0:
		return fmt.Sprintf("over by %d %s", -*ev.CounterUntilDue, p.CounterUnit)
	case ev.CounterUntilDue != nil:
		return fmt.Sprintf("%d %s left", *ev.CounterUntilDue, p.CounterUnit)
	case ev.DaysUntilDue != nil && *ev.DaysUntilDue < 0:
		return fmt.Sprintf("%d days late", -*ev.DaysUntilDue)
	case ev.DaysUntilDue != nil && *ev.DaysUntilDue == 0:
		return "due today"
	case ev.DaysUntilDue != nil:
		return fmt.Sprintf("in %d days", *ev.DaysUntilDue)
	}
	return string(ev.Status)
}

func (c *Commands) generate(ctx context.Context, code string) (string, error) {
	var plan Models.MaintenancePlan
	err := c.Plans.DB.WithContext(ctx).
		Where("code = ? AND site_id = ?", strings.ToUpper(code), c.SiteID).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Sprintf("Plan `%s` not found", code), nil
		}
		return "", Models.NotFound(err, "plan "+code)
	}

	res, err := c.Plans.GenerateNow(ctx, plan.ID, c.Actor, nil)
	if err != nil {
		return "", err
	}
	if res.Skipped() {
		return fmt.Sprintf("No work order generated for `%s`: %s", plan.Code, res.SkipReason), nil
	}
	return fmt.Sprintf("Generated `%s` for %s", res.WorkOrder.Code, res.AssetName), nil
}

func (c *Commands) workOrder(ctx context.Context, code string) (string, error) {
	var wo Models.WorkOrder
	err := c.WorkOrders.DB.WithContext(ctx).
		Where("code = ? AND site_id = ?", strings.ToUpper(code), c.SiteID).
		First(&wo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Sprintf("Work order `%s` not found", code), nil
		}
		return "", Models.NotFound(err, "work order "+code)
	}
	db := c.WorkOrders.DB.WithContext(ctx)
	assignee := Models.UserName(db, wo.AssignedTo)
	return fmt.Sprintf("`%s` %s on %s\nStatus: *%s*, priority %s, assigned to %s\nTotal cost: %s",
		wo.Code, wo.Title, Assets.DisplayName(db, wo.Asset()), wo.Status, wo.Priority, assignee, wo.TotalCost.StringFixed(2)), nil
}

func help() string {
	var b strings.Builder
	b.WriteString("*Maintenance bot*\n\n")
	b.WriteString("`!due` - Plans overdue or due soon\n")
	b.WriteString("`!generate [plan_code]` - Generate the plan's work order now\n")
	b.WriteString("`!wo [work_order_code]` - Show a work order\n")
	b.WriteString("`!help` - Show this help message")
	return b.String()
}
