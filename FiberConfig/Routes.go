package FiberConfig

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Gmao/Controllers"
	"Gmao/CronJobs"
	"Gmao/Models"
	"Gmao/Preventive"
	"Gmao/WorkOrders"
	"Gmao/middleware"
)

// Services is everything the HTTP layer serves.
type Services struct {
	DB         *gorm.DB
	Auth       *middleware.Auth
	Plans      *Preventive.Service
	WorkOrders *WorkOrders.Service
	Scheduler  *CronJobs.PreventiveScheduler
}

func SetupRoutes(app *fiber.App, s Services) {
	planController := Controllers.NewPlanController(s.Plans)
	workOrderController := Controllers.NewWorkOrderController(s.WorkOrders)

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		sqlDB, err := s.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API group
	api := app.Group("/api")

	// Plan routes; planners manage plans, technicians may read them
	plans := api.Group("/plans", s.Auth.Verify(Models.PermissionTechnician))
	plans.Get("/", planController.GetPlans)

	// Fixed paths go BEFORE the ID routes to avoid conflicts
	plans.Get("/upcoming", planController.Upcoming)
	plans.Get("/stats", planController.Stats)
	plans.Get("/export", planController.ExportPlans)
	plans.Post("/check", s.Auth.Verify(Models.PermissionPlanner), planController.CheckDue)

	plans.Get("/:id", planController.GetPlan)
	plans.Post("/", s.Auth.Verify(Models.PermissionPlanner), planController.CreatePlan)
	plans.Put("/:id", s.Auth.Verify(Models.PermissionPlanner), planController.UpdatePlan)
	plans.Patch("/:id/toggle", s.Auth.Verify(Models.PermissionPlanner), planController.TogglePlan)
	plans.Delete("/:id", s.Auth.Verify(Models.PermissionPlanner), planController.DeletePlan)
	plans.Post("/:id/generate", s.Auth.Verify(Models.PermissionPlanner), planController.GenerateWorkOrder)
	plans.Post("/:id/executed", s.Auth.Verify(Models.PermissionPlanner), planController.MarkExecuted)

	// Work order routes
	orders := api.Group("/work-orders", s.Auth.Verify(Models.PermissionTechnician))
	orders.Get("/", workOrderController.GetWorkOrders)
	orders.Post("/", workOrderController.CreateWorkOrder)
	orders.Get("/export", workOrderController.ExportWorkOrders)
	orders.Get("/:id", workOrderController.GetWorkOrder)
	orders.Post("/:id/approve", s.Auth.Verify(Models.PermissionPlanner), workOrderController.Approve())
	orders.Post("/:id/assign", s.Auth.Verify(Models.PermissionPlanner), workOrderController.Assign)
	orders.Post("/:id/cancel", s.Auth.Verify(Models.PermissionPlanner), workOrderController.Cancel)
	orders.Post("/:id/start", workOrderController.Start())
	orders.Post("/:id/pause", workOrderController.Pause)
	orders.Post("/:id/resume", workOrderController.Resume())
	orders.Post("/:id/complete", workOrderController.Complete)
	orders.Post("/:id/parts", workOrderController.AddPart)
	orders.Delete("/:id/parts/:partId", workOrderController.RemovePart)
	orders.Post("/:id/comments", workOrderController.AddComment)

	// Scheduler routes
	if s.Scheduler != nil {
		schedulerController := Controllers.NewSchedulerController(s.Scheduler)
		scheduler := api.Group("/scheduler", s.Auth.Verify(Models.PermissionManager))
		scheduler.Get("/", schedulerController.GetSchedule)
		scheduler.Put("/", schedulerController.UpdateSchedule)
		scheduler.Post("/run", schedulerController.RunAll)
		scheduler.Post("/reminders", schedulerController.SendReminders)
	}
}

// NewApp builds the fiber app with the shared middleware stack.
func NewApp(s Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Gmao",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	SetupRoutes(app, s)
	return app
}

// Serve listens on port until ctx is cancelled, then drains in-flight requests.
func Serve(ctx context.Context, app *fiber.App, port string) error {
	errs := make(chan error, 1)
	go func() {
		log.WithField("port", port).Info("Server Up...")
		errs <- app.Listen(":" + port)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		log.Info("Shutting down HTTP server")
		return app.Shutdown()
	}
}
