package Preventive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Gmao/Models"
	"Gmao/testutil"
)

func TestCreatePlanInitialMarkers(t *testing.T) {
	f := newFixture(t)
	monthly := f.monthlyPlan(t, "2025-06-01", 7)
	assert.Equal(t, "PM-2025-0001", monthly.Code)
	assert.True(t, monthly.IsActive)
	assert.Equal(t, "2025-06-01", formatDay(monthly.NextExecutionDate))
	assert.Nil(t, monthly.NextMileage)
	assert.Zero(t, monthly.AdvanceMileage)

	mileage := f.mileagePlan(t, 5000, 500)
	assert.Equal(t, "PM-2025-0002", mileage.Code)
	assert.Equal(t, int64(10000), *mileage.LastMileage)
	assert.Equal(t, int64(15000), *mileage.NextMileage)
	assert.Nil(t, mileage.NextExecutionDate)
	assert.Zero(t, mileage.AdvanceDays)
	assert.Equal(t, "km", mileage.CounterUnit)
}

func TestCreatePlanDefaults(t *testing.T) {
	f := newFixture(t)
	plan, err := f.svc.CreatePlan(context.Background(), f.planner.ID, PlanInput{
		SiteID:         1,
		Asset:          f.truck.Ref(),
		Name:           "Weekly wash",
		FrequencyType:  Models.FrequencyWeekly,
		FrequencyValue: 1,
		StartDate:      dayPtr(t, "2025-06-02"),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultAdvanceDays, plan.AdvanceDays)
	assert.Equal(t, Models.PriorityMedium, plan.Priority)
	assert.Equal(t, f.planner.ID, plan.CreatedBy)
}

func TestCreatePlanValidation(t *testing.T) {
	f := newFixture(t)
	eq := testutil.Equipment(t, f.db, 1, "GEN-1")
	tooFar := 45
	short := int64(50)
	interval := int64(5000)
	zero := int64(0)
	ghost := uint(404)

	cases := map[string]PlanInput{
		"missing name": {
			Asset: f.truck.Ref(), FrequencyType: Models.FrequencyDaily, FrequencyValue: 1, StartDate: dayPtr(t, "2025-06-01"),
		},
		"unknown frequency": {
			Name: "x", Asset: f.truck.Ref(), FrequencyType: "hourly",
		},
		"calendar without start": {
			Name: "x", Asset: f.truck.Ref(), FrequencyType: Models.FrequencyDaily, FrequencyValue: 1,
		},
		"zero frequency value": {
			Name: "x", Asset: f.truck.Ref(), FrequencyType: Models.FrequencyDaily, StartDate: dayPtr(t, "2025-06-01"),
		},
		"mileage on equipment": {
			Name: "x", Asset: eq.Ref(), FrequencyType: Models.FrequencyMileage, MileageInterval: &interval,
		},
		"short mileage interval": {
			Name: "x", Asset: f.truck.Ref(), FrequencyType: Models.FrequencyMileage, MileageInterval: &short,
		},
		"zero counter threshold": {
			Name: "x", Asset: eq.Ref(), FrequencyType: Models.FrequencyCounter, CounterThreshold: &zero,
		},
		"end before start": {
			Name: "x", Asset: f.truck.Ref(), FrequencyType: Models.FrequencyDaily, FrequencyValue: 1,
			StartDate: dayPtr(t, "2025-06-10"), EndDate: dayPtr(t, "2025-06-01"),
		},
		"advance window too wide": {
			Name: "x", Asset: f.truck.Ref(), FrequencyType: Models.FrequencyDaily, FrequencyValue: 1,
			StartDate: dayPtr(t, "2025-06-01"), AdvanceDays: &tooFar,
		},
		"unknown technician": {
			Name: "x", Asset: f.truck.Ref(), FrequencyType: Models.FrequencyDaily, FrequencyValue: 1,
			StartDate: dayPtr(t, "2025-06-01"), AssignedTo: &ghost,
		},
		"blank task": {
			Name: "x", Asset: f.truck.Ref(), FrequencyType: Models.FrequencyDaily, FrequencyValue: 1,
			StartDate: dayPtr(t, "2025-06-01"), Tasks: []TaskInput{{Description: "  "}},
		},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreatePlan(context.Background(), f.planner.ID, in)
			require.Error(t, err)
			assert.True(t, Models.IsValidation(err), err.Error())
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&Models.MaintenancePlan{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreatePlanUnknownAsset(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreatePlan(context.Background(), f.planner.ID, PlanInput{
		Name:           "x",
		Asset:          Models.AssetRef{Kind: Models.AssetTruck, ID: 77},
		FrequencyType:  Models.FrequencyDaily,
		FrequencyValue: 1,
		StartDate:      dayPtr(t, "2025-06-01"),
	})
	assert.ErrorIs(t, err, Models.ErrNotFound)
}

func TestUpdatePlanRecomputesAndReplacesTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.monthlyPlan(t, "2025-06-01", 7)
	_, err := f.svc.Generate(ctx, plan.ID, GenerateOptions{})
	require.NoError(t, err)

	updated, err := f.svc.UpdatePlan(ctx, plan.ID, PlanInput{
		SiteID:         1,
		Asset:          f.truck.Ref(),
		Name:           "Quarterly inspection",
		FrequencyType:  Models.FrequencyMonthly,
		FrequencyValue: 3,
		StartDate:      dayPtr(t, "2025-06-01"),
		Tasks:          []TaskInput{{Description: "Full chassis check"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", formatDay(updated.LastExecutionDate))
	assert.Equal(t, "2025-09-01", formatDay(updated.NextExecutionDate))

	v, err := f.svc.Get(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly inspection", v.Name)
	require.Len(t, v.Tasks, 1)
	assert.Equal(t, "Full chassis check", v.Tasks[0].Description)
	assert.Equal(t, plan.Code, v.Code)
}

func TestUpdatePlanSwitchingToMileageResetsMarkers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.monthlyPlan(t, "2025-06-01", 7)
	interval := int64(8000)

	updated, err := f.svc.UpdatePlan(ctx, plan.ID, PlanInput{
		SiteID:          1,
		Asset:           f.truck.Ref(),
		Name:            "Service",
		FrequencyType:   Models.FrequencyMileage,
		MileageInterval: &interval,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.NextExecutionDate)
	assert.Nil(t, updated.StartDate)
	assert.Equal(t, int64(18000), *updated.NextMileage)

	stored := f.plan(t, plan.ID)
	assert.Nil(t, stored.NextExecutionDate)
	assert.Equal(t, int64(18000), *stored.NextMileage)
}

func TestMarkAsExecutedMonthly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.monthlyPlan(t, "2025-06-01", 7)

	updated, err := f.svc.MarkAsExecuted(ctx, plan.ID, day(t, "2025-06-03"), nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-03", formatDay(updated.LastExecutionDate))
	assert.Equal(t, "2025-07-03", formatDay(updated.NextExecutionDate))

	_, err = f.svc.MarkAsExecuted(ctx, plan.ID, day(t, "2025-06-01"), nil)
	assert.True(t, Models.IsValidation(err))
}

func TestMarkAsExecutedNeverMovesNextEarlier(t *testing.T) {
	f := newFixture(t)
	plan := f.monthlyPlan(t, "2025-08-01", 7)

	updated, err := f.svc.MarkAsExecuted(context.Background(), plan.ID, day(t, "2025-06-10"), nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", formatDay(updated.LastExecutionDate))
	assert.Equal(t, "2025-08-01", formatDay(f.plan(t, plan.ID).NextExecutionDate))
}

func TestMarkAsExecutedMonthEndClamps(t *testing.T) {
	f := newFixture(t)
	plan := f.monthlyPlan(t, "2025-01-31", 7)

	updated, err := f.svc.MarkAsExecuted(context.Background(), plan.ID, day(t, "2025-01-31"), nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28", formatDay(updated.NextExecutionDate))
}

func TestMarkAsExecutedMileageReading(t *testing.T) {
	f := newFixture(t)
	plan := f.mileagePlan(t, 5000, 500)

	updated, err := f.svc.MarkAsExecuted(context.Background(), plan.ID, day(t, "2025-05-25"), Models.Int64Ptr(13000))
	require.NoError(t, err)
	assert.Equal(t, int64(13000), *updated.LastMileage)
	assert.Equal(t, int64(18000), *updated.NextMileage)

	var truck Models.Truck
	require.NoError(t, f.db.First(&truck, f.truck.ID).Error)
	assert.Equal(t, int64(13000), truck.Mileage)
}

func TestSetActiveAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.monthlyPlan(t, "2025-06-01", 7)

	off, err := f.svc.SetActive(ctx, plan.ID, false)
	require.NoError(t, err)
	assert.False(t, off.IsActive)
	assert.False(t, f.plan(t, plan.ID).IsActive)

	f.clock.Set(day(t, "2025-06-10"))
	on, err := f.svc.SetActive(ctx, plan.ID, true)
	require.NoError(t, err)
	assert.True(t, on.IsActive)
	assert.Equal(t, "2025-06-01", formatDay(f.plan(t, plan.ID).NextExecutionDate))

	require.NoError(t, f.svc.DeletePlan(ctx, plan.ID))
	_, err = f.svc.Get(ctx, plan.ID)
	assert.ErrorIs(t, err, Models.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeletePlan(ctx, plan.ID), Models.ErrNotFound)

	next := f.monthlyPlan(t, "2025-06-01", 7)
	assert.Equal(t, "PM-2025-0002", next.Code)
}
