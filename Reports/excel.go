// Package Reports renders plans and work orders as spreadsheets.
package Reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"Gmao/Models"
	"Gmao/Preventive"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FileName is the download name for an export taken at t.
func FileName(kind string, t time.Time) string {
	return fmt.Sprintf("%s_export_%s.xlsx", kind, t.Format("20060102_150405"))
}

func WorkOrders(orders []Models.WorkOrder) (*bytes.Buffer, error) {
	headers := []string{
		"Code", "Title", "Asset", "Type", "Priority", "Status",
		"Scheduled Start", "Actual Start", "Actual End", "Duration (min)",
		"Labor Cost", "Parts Cost", "Total Cost", "Plan ID",
	}
	rows := make([][]interface{}, 0, len(orders))
	for _, wo := range orders {
		duration := ""
		if wo.ActualDuration != nil {
			duration = fmt.Sprint(*wo.ActualDuration)
		}
		plan := ""
		if wo.PlanID != nil {
			plan = fmt.Sprint(*wo.PlanID)
		}
		labor, _ := wo.LaborCost.Float64()
		parts, _ := wo.PartsCost.Float64()
		total, _ := wo.TotalCost.Float64()
		rows = append(rows, []interface{}{
			wo.Code, wo.Title, wo.Asset().String(), string(wo.Type), string(wo.Priority), string(wo.Status),
			formatTime(wo.ScheduledStart, "2006-01-02"), formatTime(wo.ActualStart, "2006-01-02 15:04"),
			formatTime(wo.ActualEnd, "2006-01-02 15:04"), duration,
			labor, parts, total, plan,
		})
	}
	return workbook("Work Orders", headers, rows)
}

func Plans(plans []Preventive.PlanView) (*bytes.Buffer, error) {
	headers := []string{
		"Code", "Name", "Asset", "Frequency", "Interval", "Status",
		"Last Execution", "Next Execution", "Last Counter", "Next Counter", "Counter", "Active",
	}
	rows := make([][]interface{}, 0, len(plans))
	for _, p := range plans {
		interval := fmt.Sprint(p.FrequencyValue)
		switch {
		case p.MileageInterval != nil:
			interval = fmt.Sprintf("%d %s", *p.MileageInterval, p.CounterUnit)
		case p.CounterThreshold != nil:
			interval = fmt.Sprintf("%d %s", *p.CounterThreshold, p.CounterUnit)
		}
		rows = append(rows, []interface{}{
			p.Code, p.Name, p.AssetName, string(p.FrequencyType), interval, string(p.Evaluation.Status),
			formatDate(p.LastExecutionDate), formatDate(p.NextExecutionDate),
			formatInt(p.LastMileage), formatInt(p.NextMileage), p.Counter, p.IsActive,
		})
	}
	return workbook("Plans", headers, rows)
}

func workbook(sheet string, headers []string, rows [][]interface{}) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("error removing default sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("error writing headers: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return nil, fmt.Errorf("error styling headers: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("error writing row %d: %w", i+2, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", last, 16); err != nil {
		return nil, fmt.Errorf("error sizing columns: %w", err)
	}
	if err := f.AutoFilter(sheet, "A1:"+last+"1", nil); err != nil {
		return nil, fmt.Errorf("error adding filter: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %w", err)
	}
	return &buf, nil
}

func formatTime(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}

func formatDate(d *datatypes.Date) string {
	if d == nil {
		return ""
	}
	return Models.DateValue(d).Format("2006-01-02")
}

func formatInt(v *int64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
