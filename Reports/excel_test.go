package Reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"Gmao/Models"
	"Gmao/Preventive"
	"Gmao/Scheduling"
)

func TestWorkOrdersExport(t *testing.T) {
	start := time.Date(2025, 5, 26, 8, 0, 0, 0, time.UTC)
	minutes := 90
	planID := uint(4)
	orders := []Models.WorkOrder{{
		Code: "OT-2025-0001", Title: "Oil change", AssetType: Models.AssetTruck, AssetID: 1,
		Type: Models.TypePreventive, Priority: Models.PriorityMedium, Status: Models.StatusCompleted,
		ScheduledStart: &start, ActualStart: &start, ActualDuration: &minutes, PlanID: &planID,
		LaborCost: decimal.NewFromInt(750), PartsCost: decimal.NewFromInt(240), TotalCost: decimal.NewFromInt(990),
	}}

	buf, err := WorkOrders(orders)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Work Orders"}, f.GetSheetList())

	rows, err := f.GetRows("Work Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Code", rows[0][0])
	assert.Equal(t, "OT-2025-0001", rows[1][0])
	assert.Equal(t, "completed", rows[1][5])
	assert.Equal(t, "2025-05-26", rows[1][6])
	assert.Equal(t, "90", rows[1][9])
	assert.Equal(t, "990", rows[1][12])
	assert.Equal(t, "4", rows[1][13])
}

func TestPlansExport(t *testing.T) {
	next := Models.Date(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	interval := int64(10000)
	nextMileage := int64(20000)
	plans := []Preventive.PlanView{
		{
			MaintenancePlan: Models.MaintenancePlan{
				Code: "PM-2025-0001", Name: "Monthly inspection", FrequencyType: Models.FrequencyMonthly,
				FrequencyValue: 1, NextExecutionDate: Models.DatePtr(next), IsActive: true,
			},
			AssetName:  "Compressor C1",
			Evaluation: Scheduling.Evaluation{Status: Scheduling.PlanOnTrack},
		},
		{
			MaintenancePlan: Models.MaintenancePlan{
				Code: "PM-2025-0002", Name: "Oil change", FrequencyType: Models.FrequencyMileage,
				MileageInterval: &interval, CounterUnit: "km", NextMileage: &nextMileage, IsActive: true,
			},
			AssetName:  "214-TU-9087",
			Counter:    19800,
			Evaluation: Scheduling.Evaluation{Status: Scheduling.PlanDueSoon},
		},
	}

	buf, err := Plans(plans)
	require.NoError(t, err)
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Plans")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2025-06-30", rows[1][7])
	assert.Equal(t, "10000 km", rows[2][4])
	assert.Equal(t, "due_soon", rows[2][5])
	assert.Equal(t, "20000", rows[2][9])
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "plans_export_20250525_060000.xlsx", FileName("plans", time.Date(2025, 5, 25, 6, 0, 0, 0, time.UTC)))
}

func TestWorkbookStylesHeaderAndColumns(t *testing.T) {
	buf, err := workbook("Sheet", []string{"Code", "Name", "Status"}, [][]interface{}{{"PM-2025-0001", "Oil change", "on_track"}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	style, err := f.GetCellStyle("Sheet", "A1")
	require.NoError(t, err)
	assert.NotZero(t, style)
	width, err := f.GetColWidth("Sheet", "C")
	require.NoError(t, err)
	assert.Equal(t, 16.0, width)

	_, err = workbook("Empty", nil, nil)
	assert.Error(t, err)
}
