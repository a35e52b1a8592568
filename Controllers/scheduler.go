package Controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"Gmao/Preventive"
)

// Scheduler is the part of CronJobs.PreventiveScheduler exposed over HTTP.
type Scheduler interface {
	Schedule() (string, time.Time)
	UpdateSchedule(schedule string) error
	RunGeneration(ctx context.Context) []*Preventive.Report
	RunReminders(ctx context.Context) int
}

type SchedulerController struct {
	Scheduler Scheduler
}

func NewSchedulerController(scheduler Scheduler) *SchedulerController {
	return &SchedulerController{Scheduler: scheduler}
}

type scheduleRequest struct {
	Schedule string `json:"schedule" validate:"required"`
}

func (c *SchedulerController) GetSchedule(ctx *fiber.Ctx) error {
	spec, next := c.Scheduler.Schedule()
	body := fiber.Map{"schedule": spec, "next_run": nil}
	if !next.IsZero() {
		body["next_run"] = next
	}
	return ctx.JSON(body)
}

func (c *SchedulerController) UpdateSchedule(ctx *fiber.Ctx) error {
	var req scheduleRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}
	if err := c.Scheduler.UpdateSchedule(req.Schedule); err != nil {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error(), "field": "schedule"})
	}
	return c.GetSchedule(ctx)
}

// RunAll runs the generation batch for every site now.
func (c *SchedulerController) RunAll(ctx *fiber.Ctx) error {
	return ctx.JSON(c.Scheduler.RunGeneration(ctx.UserContext()))
}

func (c *SchedulerController) SendReminders(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"sent": c.Scheduler.RunReminders(ctx.UserContext())})
}
