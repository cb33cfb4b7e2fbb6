package reporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"golang-payroll-reconciler/internal/reconciler"
)

// generateXLSXReport writes the report as a single plain-value worksheet.
// Hours and money land as numbers so downstream spreadsheet formulas work;
// no styling is applied.
func (rg *ReportGenerator) generateXLSXReport(report *reconciler.Report, writer io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := rg.config.SheetName
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	headers := headerColumns(report)
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to build header cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %q: %w", header, err)
		}
	}

	for i, row := range report.Rows {
		rowNum := i + 2
		col := 1

		setString := func(v string) error {
			cell, err := excelize.CoordinatesToCellName(col, rowNum)
			if err != nil {
				return err
			}
			col++
			return f.SetCellValue(sheet, cell, v)
		}
		setNumber := func(v float64) error {
			cell, err := excelize.CoordinatesToCellName(col, rowNum)
			if err != nil {
				return err
			}
			col++
			return f.SetCellValue(sheet, cell, v)
		}

		if err := setString(row.DriverKey); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}
		if err := setString(string(row.PayType)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}

		numbers := []float64{
			row.FixedPay.InexactFloat64(),
			float64(row.TargetLoads),
		}
		for _, date := range report.TripDates {
			numbers = append(numbers, row.TripHoursOn(date).InexactFloat64())
		}
		for _, date := range report.TimesheetDates {
			numbers = append(numbers, row.TimesheetHoursOn(date).InexactFloat64())
		}
		numbers = append(numbers,
			row.TotalTripHours.InexactFloat64(),
			float64(row.TripLoads),
			row.Week1Hours.InexactFloat64(),
			row.Week1Regular.InexactFloat64(),
			row.Week1OT.InexactFloat64(),
			row.Week2Hours.InexactFloat64(),
			row.Week2Regular.InexactFloat64(),
			row.Week2OT.InexactFloat64(),
			row.TotalTimesheetHours.InexactFloat64(),
			row.TotalRegular.InexactFloat64(),
			row.TotalOT.InexactFloat64(),
			row.OverridePay.InexactFloat64(),
			row.FinalPay.InexactFloat64(),
			row.EquivalentHours.InexactFloat64(),
			row.HourAdjustment.InexactFloat64(),
		)
		for _, v := range numbers {
			if err := setNumber(v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", rowNum, err)
			}
		}

		anomaly := ""
		if row.Anomaly {
			anomaly = "YES"
		}
		if err := setString(anomaly); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}
	}

	if _, err := f.WriteTo(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
