package Controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"Gmao/Models"
	"Gmao/Preventive"
	"Gmao/Reports"
	"Gmao/Scheduling"
	"Gmao/WorkOrders"
	"Gmao/testutil"
)

type harness struct {
	db    *gorm.DB
	app   *fiber.App
	truck *Models.Truck
	user  *Models.User
}

// newHarness mounts the controllers behind a stub that authenticates every
// request as the site 1 planner.
func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	clock := Scheduling.NewManualClock(time.Date(2025, 5, 25, 6, 0, 0, 0, time.UTC))
	user := testutil.User(t, db, 1, "Leila")
	require.NoError(t, db.Model(user).Update("permission", Models.PermissionPlanner).Error)
	user.Permission = Models.PermissionPlanner

	plans := NewPlanController(Preventive.NewService(db, clock, nil))
	orders := NewWorkOrderController(WorkOrders.NewService(db, clock, WorkOrders.DefaultHourlyRate, nil))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", *user)
		return c.Next()
	})
	app.Get("/plans/upcoming", plans.Upcoming)
	app.Get("/plans/stats", plans.Stats)
	app.Get("/plans/export", plans.ExportPlans)
	app.Post("/plans/check", plans.CheckDue)
	app.Get("/plans", plans.GetPlans)
	app.Post("/plans", plans.CreatePlan)
	app.Get("/plans/:id", plans.GetPlan)
	app.Put("/plans/:id", plans.UpdatePlan)
	app.Patch("/plans/:id/toggle", plans.TogglePlan)
	app.Delete("/plans/:id", plans.DeletePlan)
	app.Post("/plans/:id/generate", plans.GenerateWorkOrder)
	app.Post("/plans/:id/executed", plans.MarkExecuted)

	app.Get("/work-orders", orders.GetWorkOrders)
	app.Post("/work-orders", orders.CreateWorkOrder)
	app.Get("/work-orders/export", orders.ExportWorkOrders)
	app.Get("/work-orders/:id", orders.GetWorkOrder)
	app.Post("/work-orders/:id/approve", orders.Approve())
	app.Post("/work-orders/:id/assign", orders.Assign)
	app.Post("/work-orders/:id/start", orders.Start())
	app.Post("/work-orders/:id/pause", orders.Pause)
	app.Post("/work-orders/:id/resume", orders.Resume())
	app.Post("/work-orders/:id/complete", orders.Complete)
	app.Post("/work-orders/:id/cancel", orders.Cancel)
	app.Post("/work-orders/:id/parts", orders.AddPart)
	app.Delete("/work-orders/:id/parts/:partId", orders.RemovePart)
	app.Post("/work-orders/:id/comments", orders.AddComment)

	return &harness{
		db:    db,
		app:   app,
		truck: testutil.Truck(t, db, 1, "214-TU-9087", 10000),
		user:  user,
	}
}

func (h *harness) do(t *testing.T, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode(t *testing.T, raw []byte, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dst), string(raw))
}

func (h *harness) createMileagePlan(t *testing.T) uint {
	t.Helper()
	status, body := h.do(t, http.MethodPost, "/plans", fiber.Map{
		"asset_type":       "truck",
		"asset_id":         h.truck.ID,
		"name":             "Oil change",
		"frequency_type":   "mileage",
		"mileage_interval": 10000,
		"advance_mileage":  500,
		"tasks": []fiber.Map{
			{"description": "Drain engine oil", "estimated_duration": 30},
		},
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var plan struct {
		ID          uint   `json:"ID"`
		Code        string `json:"code"`
		NextMileage *int64 `json:"next_mileage"`
	}
	decode(t, body, &plan)
	require.NotNil(t, plan.NextMileage)
	assert.Equal(t, int64(20000), *plan.NextMileage)
	assert.NotEmpty(t, plan.Code)
	return plan.ID
}

func TestCreatePlanValidation(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, http.MethodPost, "/plans", fiber.Map{
		"asset_type":     "boat",
		"name":           "",
		"frequency_type": "hourly",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	var res struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, body, &res)
	assert.Equal(t, "Validation failed", res.Error)
	assert.Contains(t, res.Fields, "asset_type")
	assert.Contains(t, res.Fields, "name")
	assert.Contains(t, res.Fields, "frequency_type")

	// passes the request shape but fails the plan rules
	status, body = h.do(t, http.MethodPost, "/plans", fiber.Map{
		"asset_type":     "truck",
		"asset_id":       h.truck.ID,
		"name":           "Brakes",
		"frequency_type": "mileage",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status, string(body))

	status, _ = h.do(t, http.MethodGet, "/plans/abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = h.do(t, http.MethodGet, "/plans/404", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPlanEndpoints(t *testing.T) {
	h := newHarness(t)
	id := h.createMileagePlan(t)
	path := fmt.Sprintf("/plans/%d", id)

	status, body := h.do(t, http.MethodGet, path, nil)
	require.Equal(t, fiber.StatusOK, status)
	var view struct {
		AssetName  string `json:"asset_name"`
		Evaluation struct {
			Status string `json:"status"`
		} `json:"evaluation"`
	}
	decode(t, body, &view)
	assert.Equal(t, "on_track", view.Evaluation.Status)

	status, body = h.do(t, http.MethodGet, "/plans?status=on_track", nil)
	require.Equal(t, fiber.StatusOK, status)
	var list []map[string]interface{}
	decode(t, body, &list)
	assert.Len(t, list, 1)

	status, body = h.do(t, http.MethodGet, "/plans?status=overdue", nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, body, &list)
	assert.Empty(t, list)

	status, _ = h.do(t, http.MethodPatch, path+"/toggle", nil)
	require.Equal(t, fiber.StatusOK, status)
	status, body = h.do(t, http.MethodGet, "/plans?active=true", nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, body, &list)
	assert.Empty(t, list)

	status, body = h.do(t, http.MethodGet, "/plans/stats", nil)
	require.Equal(t, fiber.StatusOK, status)
	var stats Preventive.Stats
	decode(t, body, &stats)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Inactive)

	status, _ = h.do(t, http.MethodGet, "/plans/upcoming?days=-1", nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = h.do(t, http.MethodDelete, path, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = h.do(t, http.MethodGet, path, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestGenerateThroughAPI(t *testing.T) {
	h := newHarness(t)
	id := h.createMileagePlan(t)
	path := fmt.Sprintf("/plans/%d/generate", id)

	status, body := h.do(t, http.MethodPost, path, fiber.Map{"mileage": 19800})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var wo Models.WorkOrder
	decode(t, body, &wo)
	assert.Equal(t, Models.TypePreventive, wo.Type)
	require.NotNil(t, wo.PlanID)
	assert.Equal(t, id, *wo.PlanID)

	// the open order blocks a second generation
	status, body = h.do(t, http.MethodPost, path, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	var skipped struct {
		Reason string `json:"reason"`
	}
	decode(t, body, &skipped)
	assert.Equal(t, string(Preventive.SkipOpenWorkOrder), skipped.Reason)

	status, body = h.do(t, http.MethodPost, "/plans/check?dry_run=true", nil)
	require.Equal(t, fiber.StatusOK, status)
	var report Preventive.Report
	decode(t, body, &report)
	assert.True(t, report.DryRun)
	assert.Zero(t, report.Generated)
}

func TestMarkExecuted(t *testing.T) {
	h := newHarness(t)
	id := h.createMileagePlan(t)
	path := fmt.Sprintf("/plans/%d/executed", id)

	status, _ := h.do(t, http.MethodPost, path, fiber.Map{"executed_date": "25/05/2025"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, body := h.do(t, http.MethodPost, path, fiber.Map{"executed_date": "2025-05-20", "mileage": 12000})
	require.Equal(t, fiber.StatusOK, status, string(body))
	var plan struct {
		LastMileage *int64 `json:"last_mileage"`
		NextMileage *int64 `json:"next_mileage"`
	}
	decode(t, body, &plan)
	require.NotNil(t, plan.NextMileage)
	assert.Equal(t, int64(12000), *plan.LastMileage)
	assert.Equal(t, int64(22000), *plan.NextMileage)
}

func TestWorkOrderLifecycleThroughAPI(t *testing.T) {
	h := newHarness(t)
	part := testutil.Part(t, h.db, 1, "FLT-01", "120.00", 10)

	status, body := h.do(t, http.MethodPost, "/work-orders", fiber.Map{
		"asset_type":         "truck",
		"asset_id":           h.truck.ID,
		"title":              "Broken mirror",
		"type":               "corrective",
		"priority":           "high",
		"scheduled_start":    "2025-05-26",
		"estimated_duration": 60,
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var wo Models.WorkOrder
	decode(t, body, &wo)
	assert.Equal(t, Models.StatusPending, wo.Status)
	base := fmt.Sprintf("/work-orders/%d", wo.ID)

	// pending orders cannot start
	status, _ = h.do(t, http.MethodPost, base+"/start", nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	steps := []struct {
		path   string
		body   interface{}
		expect Models.WorkOrderStatus
	}{
		{"/approve", nil, Models.StatusApproved},
		{"/assign", fiber.Map{"technician_id": h.user.ID}, Models.StatusAssigned},
		{"/start", nil, Models.StatusInProgress},
		{"/pause", fiber.Map{"reason": "waiting for part"}, Models.StatusOnHold},
		{"/resume", nil, Models.StatusInProgress},
	}
	for _, step := range steps {
		status, body = h.do(t, http.MethodPost, base+step.path, step.body)
		require.Equal(t, fiber.StatusOK, status, step.path+": "+string(body))
		decode(t, body, &wo)
		assert.Equal(t, step.expect, wo.Status, step.path)
	}

	status, _ = h.do(t, http.MethodPost, base+"/parts", fiber.Map{"part_id": part.ID, "quantity": 0})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	status, body = h.do(t, http.MethodPost, base+"/parts", fiber.Map{"part_id": part.ID, "quantity": 2})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var line Models.WorkOrderPart
	decode(t, body, &line)

	status, _ = h.do(t, http.MethodPost, base+"/comments", fiber.Map{"comment": "Mirror arm cracked"})
	assert.Equal(t, fiber.StatusCreated, status)

	status, _ = h.do(t, http.MethodPost, base+"/complete", fiber.Map{})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	status, body = h.do(t, http.MethodPost, base+"/complete", fiber.Map{"work_performed": "Replaced mirror", "mileage": 10100})
	require.Equal(t, fiber.StatusOK, status, string(body))
	decode(t, body, &wo)
	assert.Equal(t, Models.StatusCompleted, wo.Status)
	assert.True(t, wo.PartsCost.Equal(line.TotalPrice), wo.PartsCost.String())

	status, _ = h.do(t, http.MethodDelete, fmt.Sprintf("%s/parts/%d", base, line.ID), nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, body = h.do(t, http.MethodGet, "/work-orders?status=completed", nil)
	require.Equal(t, fiber.StatusOK, status)
	var orders []Models.WorkOrder
	decode(t, body, &orders)
	assert.Len(t, orders, 1)
}

func TestCancelRequiresReasonBody(t *testing.T) {
	h := newHarness(t)
	status, body := h.do(t, http.MethodPost, "/work-orders", fiber.Map{
		"asset_type": "truck",
		"asset_id":   h.truck.ID,
		"title":      "Noise in cab",
		"type":       "inspection",
		"priority":   "low",
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var wo Models.WorkOrder
	decode(t, body, &wo)

	status, body = h.do(t, http.MethodPost, fmt.Sprintf("/work-orders/%d/cancel", wo.ID), fiber.Map{"reason": "duplicate"})
	require.Equal(t, fiber.StatusOK, status, string(body))
	decode(t, body, &wo)
	assert.Equal(t, Models.StatusCancelled, wo.Status)
	assert.Equal(t, "duplicate", wo.CancellationReason)
}

func TestOtherSiteIsHidden(t *testing.T) {
	h := newHarness(t)
	other := testutil.Truck(t, h.db, 2, "99-TU-1", 500)
	wo := &Models.WorkOrder{
		SiteID: 2, Code: "WO-OTHER", AssetType: Models.AssetTruck, AssetID: other.ID,
		Title: "Other site", Type: Models.TypeCorrective, Priority: Models.PriorityLow, Status: Models.StatusPending,
	}
	require.NoError(t, h.db.Create(wo).Error)

	status, _ := h.do(t, http.MethodGet, fmt.Sprintf("/work-orders/%d", wo.ID), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = h.do(t, http.MethodPost, fmt.Sprintf("/work-orders/%d/approve", wo.ID), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestExports(t *testing.T) {
	h := newHarness(t)
	h.createMileagePlan(t)

	for _, path := range []string{"/plans/export", "/work-orders/export"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := h.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
		assert.Equal(t, Reports.ContentType, resp.Header.Get(fiber.HeaderContentType))
		assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "_export_20250525_060000.xlsx")
	}
}
