package Controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"Gmao/Models"
	"Gmao/Preventive"
	"Gmao/Reports"
)

// PlanController exposes maintenance plans and the generation batch.
type PlanController struct {
	Service *Preventive.Service
}

func NewPlanController(service *Preventive.Service) *PlanController {
	return &PlanController{Service: service}
}

type taskRequest struct {
	Description       string `json:"description" validate:"required,max=500"`
	Instructions      string `json:"instructions"`
	EstimatedDuration int    `json:"estimated_duration" validate:"gte=0"`
}

type planRequest struct {
	AssetType         string        `json:"asset_type" validate:"required,oneof=equipment truck"`
	AssetID           uint          `json:"asset_id" validate:"required"`
	Name              string        `json:"name" validate:"required,max=255"`
	Description       string        `json:"description"`
	FrequencyType     string        `json:"frequency_type" validate:"required,oneof=daily weekly monthly yearly counter mileage"`
	FrequencyValue    int           `json:"frequency_value" validate:"gte=0"`
	CounterThreshold  *int64        `json:"counter_threshold" validate:"omitempty,gte=1"`
	CounterUnit       string        `json:"counter_unit" validate:"max=16"`
	MileageInterval   *int64        `json:"mileage_interval" validate:"omitempty,gte=100"`
	StartDate         string        `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate           string        `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	AdvanceDays       *int          `json:"advance_days" validate:"omitempty,gte=0,lte=30"`
	AdvanceMileage    *int64        `json:"advance_mileage" validate:"omitempty,gte=0,lte=5000"`
	Priority          string        `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	EstimatedDuration int           `json:"estimated_duration" validate:"gte=0"`
	AssignedTo        *uint         `json:"assigned_to"`
	Tasks             []taskRequest `json:"tasks" validate:"dive"`
}

func (r planRequest) input(siteID uint) Preventive.PlanInput {
	in := Preventive.PlanInput{
		SiteID:            siteID,
		Asset:             Models.AssetRef{Kind: Models.AssetKind(r.AssetType), ID: r.AssetID},
		Name:              r.Name,
		Description:       r.Description,
		FrequencyType:     Models.FrequencyType(r.FrequencyType),
		FrequencyValue:    r.FrequencyValue,
		CounterThreshold:  r.CounterThreshold,
		CounterUnit:       r.CounterUnit,
		MileageInterval:   r.MileageInterval,
		StartDate:         parseDay(r.StartDate),
		EndDate:           parseDay(r.EndDate),
		AdvanceDays:       r.AdvanceDays,
		AdvanceMileage:    r.AdvanceMileage,
		Priority:          Models.Priority(r.Priority),
		EstimatedDuration: r.EstimatedDuration,
		AssignedTo:        r.AssignedTo,
	}
	for _, t := range r.Tasks {
		in.Tasks = append(in.Tasks, Preventive.TaskInput{
			Description:       t.Description,
			Instructions:      t.Instructions,
			EstimatedDuration: t.EstimatedDuration,
		})
	}
	return in
}

// parseDay reads a validated YYYY-MM-DD value; empty means unset.
func parseDay(s string) *time.Time {
	if s == "" {
		return nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &d
}

// ownPlan loads the plan and hides plans of other sites.
func (c *PlanController) ownPlan(ctx *fiber.Ctx) (*Preventive.PlanView, error) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return nil, badID(ctx)
	}
	plan, err := c.Service.Get(ctx.UserContext(), id)
	if err != nil {
		return nil, respond(ctx, err)
	}
	if !sameSite(currentUser(ctx), plan.SiteID) {
		return nil, ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Plan not found"})
	}
	return plan, nil
}

// GetPlans lists the plans of the caller's site with their live status.
func (c *PlanController) GetPlans(ctx *fiber.Ctx) error {
	user := currentUser(ctx)
	filter := Preventive.PlanFilter{SiteID: user.SiteID, ActiveOnly: queryBool(ctx, "active")}
	if kind := ctx.Query("asset_type"); kind != "" {
		filter.Asset = &Models.AssetRef{Kind: Models.AssetKind(kind), ID: uint(queryInt(ctx, "asset_id", 0))}
	}
	plans, err := c.Service.List(ctx.UserContext(), filter)
	if err != nil {
		return respond(ctx, err)
	}
	if status := ctx.Query("status"); status != "" {
		filtered := plans[:0]
		for _, p := range plans {
			if string(p.Evaluation.Status) == status {
				filtered = append(filtered, p)
			}
		}
		plans = filtered
	}
	return ctx.JSON(plans)
}

func (c *PlanController) GetPlan(ctx *fiber.Ctx) error {
	plan, err := c.ownPlan(ctx)
	if plan == nil {
		return err
	}
	return ctx.JSON(plan)
}

func (c *PlanController) CreatePlan(ctx *fiber.Ctx) error {
	var req planRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}
	user := currentUser(ctx)
	plan, err := c.Service.CreatePlan(ctx.UserContext(), user.ID, req.input(user.SiteID))
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(plan)
}

func (c *PlanController) UpdatePlan(ctx *fiber.Ctx) error {
	existing, err := c.ownPlan(ctx)
	if existing == nil {
		return err
	}
	var req planRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}
	plan, err := c.Service.UpdatePlan(ctx.UserContext(), existing.ID, req.input(existing.SiteID))
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(plan)
}

// TogglePlan flips is_active.
func (c *PlanController) TogglePlan(ctx *fiber.Ctx) error {
	existing, err := c.ownPlan(ctx)
	if existing == nil {
		return err
	}
	plan, err := c.Service.SetActive(ctx.UserContext(), existing.ID, !existing.IsActive)
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(plan)
}

func (c *PlanController) DeletePlan(ctx *fiber.Ctx) error {
	existing, err := c.ownPlan(ctx)
	if existing == nil {
		return err
	}
	if err := c.Service.DeletePlan(ctx.UserContext(), existing.ID); err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(fiber.Map{"message": "Plan deleted successfully"})
}

type generateRequest struct {
	Mileage *int64 `json:"mileage" validate:"omitempty,gte=0"`
}

// GenerateWorkOrder generates the plan's work order now, due or not.
func (c *PlanController) GenerateWorkOrder(ctx *fiber.Ctx) error {
	existing, err := c.ownPlan(ctx)
	if existing == nil {
		return err
	}
	var req generateRequest
	if len(ctx.Body()) > 0 {
		if ok, err := bind(ctx, &req); !ok {
			return err
		}
	}
	res, err := c.Service.GenerateNow(ctx.UserContext(), existing.ID, currentUser(ctx).ID, req.Mileage)
	if err != nil {
		return respond(ctx, err)
	}
	if res.Skipped() {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  "No work order generated",
			"reason": res.SkipReason,
		})
	}
	return ctx.Status(fiber.StatusCreated).JSON(res.WorkOrder)
}

type executedRequest struct {
	ExecutedDate string `json:"executed_date" validate:"required,datetime=2006-01-02"`
	Mileage      *int64 `json:"mileage" validate:"omitempty,gte=0"`
}

// MarkExecuted records a maintenance done outside a generated work order.
func (c *PlanController) MarkExecuted(ctx *fiber.Ctx) error {
	existing, err := c.ownPlan(ctx)
	if existing == nil {
		return err
	}
	var req executedRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}
	plan, err := c.Service.MarkAsExecuted(ctx.UserContext(), existing.ID, *parseDay(req.ExecutedDate), req.Mileage)
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(plan)
}

func (c *PlanController) Upcoming(ctx *fiber.Ctx) error {
	plans, err := c.Service.Upcoming(ctx.UserContext(), currentUser(ctx).SiteID, queryInt(ctx, "days", 30))
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(plans)
}

func (c *PlanController) Stats(ctx *fiber.Ctx) error {
	stats, err := c.Service.Stats(ctx.UserContext(), currentUser(ctx).SiteID)
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(stats)
}

// CheckDue runs the generation batch for the caller's site.
func (c *PlanController) CheckDue(ctx *fiber.Ctx) error {
	user := currentUser(ctx)
	report, err := c.Service.CheckAndGenerateDue(ctx.UserContext(), Preventive.Scope{
		SiteID: user.SiteID,
		DryRun: queryBool(ctx, "dry_run"),
		Actor:  user.ID,
	})
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(report)
}

// ExportPlans downloads the site's plans with their live status.
func (c *PlanController) ExportPlans(ctx *fiber.Ctx) error {
	plans, err := c.Service.List(ctx.UserContext(), Preventive.PlanFilter{SiteID: currentUser(ctx).SiteID})
	if err != nil {
		return respond(ctx, err)
	}
	buf, err := Reports.Plans(plans)
	if err != nil {
		return respond(ctx, err)
	}
	return sendWorkbook(ctx, Reports.FileName("plans", c.Service.Clock.Now()), buf.Bytes())
}
