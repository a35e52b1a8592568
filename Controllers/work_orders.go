package Controllers

import (
	"github.com/gofiber/fiber/v2"

	"Gmao/Models"
	"Gmao/Reports"
	"Gmao/WorkOrders"
)

// WorkOrderController exposes the work order lifecycle.
type WorkOrderController struct {
	Service *WorkOrders.Service
}

func NewWorkOrderController(service *WorkOrders.Service) *WorkOrderController {
	return &WorkOrderController{Service: service}
}

type workOrderRequest struct {
	AssetType         string `json:"asset_type" validate:"required,oneof=equipment truck"`
	AssetID           uint   `json:"asset_id" validate:"required"`
	Title             string `json:"title" validate:"required,max=255"`
	Description       string `json:"description"`
	Type              string `json:"type" validate:"required,oneof=corrective preventive improvement inspection"`
	Priority          string `json:"priority" validate:"required,oneof=low medium high urgent"`
	ScheduledStart    string `json:"scheduled_start" validate:"omitempty,datetime=2006-01-02"`
	ScheduledEnd      string `json:"scheduled_end" validate:"omitempty,datetime=2006-01-02"`
	EstimatedDuration int    `json:"estimated_duration" validate:"gte=0"`
	AssignedTo        *uint  `json:"assigned_to"`
}

type assignRequest struct {
	TechnicianID uint `json:"technician_id" validate:"required"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type completeRequest struct {
	WorkPerformed   string `json:"work_performed" validate:"required"`
	Diagnosis       string `json:"diagnosis"`
	RootCause       string `json:"root_cause"`
	TechnicianNotes string `json:"technician_notes"`
	Mileage         *int64 `json:"mileage" validate:"omitempty,gte=0"`
}

type partRequest struct {
	PartID   uint  `json:"part_id" validate:"required"`
	Quantity int64 `json:"quantity" validate:"required,gte=1"`
}

type commentRequest struct {
	Comment string `json:"comment" validate:"required,max=2000"`
}

// ownOrder resolves :id to a work order of the caller's site.
func (c *WorkOrderController) ownOrder(ctx *fiber.Ctx) (*Models.WorkOrder, error) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return nil, badID(ctx)
	}
	wo, err := c.Service.Get(ctx.UserContext(), id)
	if err != nil {
		return nil, respond(ctx, err)
	}
	if !sameSite(currentUser(ctx), wo.SiteID) {
		return nil, ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Work order not found"})
	}
	return wo, nil
}

func (c *WorkOrderController) GetWorkOrders(ctx *fiber.Ctx) error {
	orders, err := c.Service.List(ctx.UserContext(), WorkOrders.ListFilter{
		SiteID:     currentUser(ctx).SiteID,
		Status:     Models.WorkOrderStatus(ctx.Query("status")),
		AssignedTo: uint(queryInt(ctx, "assigned_to", 0)),
		PlanID:     uint(queryInt(ctx, "plan_id", 0)),
	})
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(orders)
}

func (c *WorkOrderController) GetWorkOrder(ctx *fiber.Ctx) error {
	wo, err := c.ownOrder(ctx)
	if wo == nil {
		return err
	}
	return ctx.JSON(wo)
}

func (c *WorkOrderController) CreateWorkOrder(ctx *fiber.Ctx) error {
	var req workOrderRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}
	user := currentUser(ctx)
	wo, err := c.Service.Create(ctx.UserContext(), user.ID, WorkOrders.CreateInput{
		SiteID:            user.SiteID,
		Asset:             Models.AssetRef{Kind: Models.AssetKind(req.AssetType), ID: req.AssetID},
		Title:             req.Title,
		Description:       req.Description,
		Type:              Models.WorkOrderType(req.Type),
		Priority:          Models.Priority(req.Priority),
		ScheduledStart:    parseDay(req.ScheduledStart),
		ScheduledEnd:      parseDay(req.ScheduledEnd),
		EstimatedDuration: req.EstimatedDuration,
		AssignedTo:        req.AssignedTo,
	})
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(wo)
}

// transition runs a lifecycle operation that needs no body.
func (c *WorkOrderController) transition(op func(c *WorkOrders.Service, ctx *fiber.Ctx, id, actor uint) (*Models.WorkOrder, error)) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		wo, err := c.ownOrder(ctx)
		if wo == nil {
			return err
		}
		updated, err := op(c.Service, ctx, wo.ID, currentUser(ctx).ID)
		if err != nil {
			return respond(ctx, err)
		}
		return ctx.JSON(updated)
	}
}

func (c *WorkOrderController) Approve() fiber.Handler {
	return c.transition(func(s *WorkOrders.Service, ctx *fiber.Ctx, id, actor uint) (*Models.WorkOrder, error) {
		return s.Approve(ctx.UserContext(), id, actor)
	})
}

func (c *WorkOrderController) Start() fiber.Handler {
	return c.transition(func(s *WorkOrders.Service, ctx *fiber.Ctx, id, actor uint) (*Models.WorkOrder, error) {
		return s.Start(ctx.UserContext(), id, actor)
	})
}

func (c *WorkOrderController) Resume() fiber.Handler {
	return c.transition(func(s *WorkOrders.Service, ctx *fiber.Ctx, id, actor uint) (*Models.WorkOrder, error) {
		return s.Resume(ctx.UserContext(), id, actor)
	})
}

func (c *WorkOrderController) Assign(ctx *fiber.Ctx) error {
	wo, err := c.ownOrder(ctx)
	if wo == nil {
		return err
	}
	var req assignRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}
	updated, err := c.Service.Assign(ctx.UserContext(), wo.ID, currentUser(ctx).ID, req.TechnicianID)
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(updated)
}

func (c *WorkOrderController) Pause(ctx *fiber.Ctx) error {
	wo, err := c.ownOrder(ctx)
	if wo == nil {
		return err
	}
	var req reasonRequest
	if len(ctx.Body()) > 0 {
		if ok, err := bind(ctx, &req); !ok {
			return err
		}
	}
	updated, err := c.Service.Pause(ctx.UserContext(), wo.ID, currentUser(ctx).ID, req.Reason)
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(updated)
}

func (c *WorkOrderController) Cancel(ctx *fiber.Ctx) error {
	wo, err := c.ownOrder(ctx)
	if wo == nil {
		return err
	}
	var req reasonRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}
	updated, err := c.Service.Cancel(ctx.UserContext(), wo.ID, currentUser(ctx).ID, req.Reason)
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(updated)
}

func (c *WorkOrderController) Complete(ctx *fiber.Ctx) error {
	wo, err := c.ownOrder(ctx)
	if wo == nil {
		return err
	}
	var req completeRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}
	updated, err := c.Service.Complete(ctx.UserContext(), wo.ID, currentUser(ctx).ID, WorkOrders.CompletionReport{
		WorkPerformed:   req.WorkPerformed,
		Diagnosis:       req.Diagnosis,
		RootCause:       req.RootCause,
		TechnicianNotes: req.TechnicianNotes,
		Mileage:         req.Mileage,
	})
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(updated)
}

func (c *WorkOrderController) AddPart(ctx *fiber.Ctx) error {
	wo, err := c.ownOrder(ctx)
	if wo == nil {
		return err
	}
	var req partRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}
	line, err := c.Service.AddPart(ctx.UserContext(), wo.ID, currentUser(ctx).ID, req.PartID, req.Quantity)
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(line)
}

func (c *WorkOrderController) RemovePart(ctx *fiber.Ctx) error {
	wo, err := c.ownOrder(ctx)
	if wo == nil {
		return err
	}
	lineID, ok := paramID(ctx, "partId")
	if !ok {
		return badID(ctx)
	}
	updated, err := c.Service.RemovePart(ctx.UserContext(), wo.ID, currentUser(ctx).ID, lineID)
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.JSON(updated)
}

func (c *WorkOrderController) AddComment(ctx *fiber.Ctx) error {
	wo, err := c.ownOrder(ctx)
	if wo == nil {
		return err
	}
	var req commentRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}
	comment, err := c.Service.AddComment(ctx.UserContext(), wo.ID, currentUser(ctx).ID, req.Comment)
	if err != nil {
		return respond(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(comment)
}

// ExportWorkOrders downloads the filtered list as an Excel workbook.
func (c *WorkOrderController) ExportWorkOrders(ctx *fiber.Ctx) error {
	orders, err := c.Service.List(ctx.UserContext(), WorkOrders.ListFilter{
		SiteID: currentUser(ctx).SiteID,
		Status: Models.WorkOrderStatus(ctx.Query("status")),
		PlanID: uint(queryInt(ctx, "plan_id", 0)),
	})
	if err != nil {
		return respond(ctx, err)
	}
	buf, err := Reports.WorkOrders(orders)
	if err != nil {
		return respond(ctx, err)
	}
	return sendWorkbook(ctx, Reports.FileName("work_orders", c.Service.Clock.Now()), buf.Bytes())
}
