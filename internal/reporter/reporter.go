// Package reporter renders a reconciled payroll report in console, JSON,
// CSV, or XLSX form. Every format carries the same column set: identity and
// policy fields, one column per trip-feed date, one per timesheet-feed date,
// then the calculated pay columns and the anomaly flag.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang-payroll-reconciler/internal/models"
	"golang-payroll-reconciler/internal/reconciler"
	"golang-payroll-reconciler/pkg/errors"
	"golang-payroll-reconciler/pkg/logger"
)

// OutputFormat represents the output format for reports.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatXLSX:
		return true
	}
	return false
}

// dateColumnFormat renders report date columns, e.g. "06-Jan".
const dateColumnFormat = "02-Jan"

// calculatedColumns are the derived columns appended after the per-date
// hour columns, in output order.
var calculatedColumns = []string{
	"Total Trip Hours", "Trip Loads",
	"W1 Hours", "W1 Regular", "W1 OT",
	"W2 Hours", "W2 Regular", "W2 OT",
	"Total Timesheet Hours", "Total Regular", "Total OT",
	"Override Pay", "Final Pay",
	"Equivalent Hours", "Hour Adjustment",
	"Anomaly",
}

// ReportConfig holds configuration for report generation.
type ReportConfig struct {
	Format OutputFormat
	// IncludeSummary prepends run totals to console output.
	IncludeSummary bool
	// SheetName names the worksheet in XLSX output.
	SheetName string
}

// DefaultReportConfig returns a configuration with sensible defaults.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		IncludeSummary: true,
		SheetName:      "Payroll",
	}
}

// Validate checks the report configuration.
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"output_format",
			string(c.Format),
			fmt.Errorf("supported formats: console, json, csv, xlsx"),
		)
	}
	if c.Format == FormatXLSX && c.SheetName == "" {
		return errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"sheet_name",
			c.SheetName,
			fmt.Errorf("sheet name cannot be empty for xlsx output"),
		)
	}
	return nil
}

// ReportGenerator renders reconciliation reports.
type ReportGenerator struct {
	config *ReportConfig
	logger logger.Logger
}

// NewReportGenerator creates a report generator with the given configuration.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ReportGenerator{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("reporter"),
	}, nil
}

// GenerateReport writes the report to the writer in the configured format.
func (rg *ReportGenerator) GenerateReport(report *reconciler.Report, writer io.Writer) error {
	rg.logger.WithFields(logger.Fields{
		"format":  rg.config.Format,
		"drivers": len(report.Rows),
	}).Debug("Generating report")

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	case FormatXLSX:
		return rg.generateXLSXReport(report, writer)
	default:
		return errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"output_format",
			string(rg.config.Format),
			fmt.Errorf("unsupported output format"),
		)
	}
}

// headerColumns builds the full header row for tabular formats.
func headerColumns(report *reconciler.Report) []string {
	headers := []string{"Driver", "Pay Type", "Fixed Pay", "Target Loads"}
	for _, date := range report.TripDates {
		headers = append(headers, "Trip "+date.Format(dateColumnFormat))
	}
	for _, date := range report.TimesheetDates {
		headers = append(headers, "TS "+date.Format(dateColumnFormat))
	}
	return append(headers, calculatedColumns...)
}

// rowValues renders one driver row in header order.
func rowValues(row *models.ReconciledRow, report *reconciler.Report) []string {
	values := []string{
		row.DriverKey,
		string(row.PayType),
		row.FixedPay.StringFixed(2),
		fmt.Sprintf("%d", row.TargetLoads),
	}
	for _, date := range report.TripDates {
		values = append(values, row.TripHoursOn(date).StringFixed(2))
	}
	for _, date := range report.TimesheetDates {
		values = append(values, row.TimesheetHoursOn(date).StringFixed(2))
	}
	values = append(values,
		row.TotalTripHours.StringFixed(2),
		fmt.Sprintf("%d", row.TripLoads),
		row.Week1Hours.StringFixed(2),
		row.Week1Regular.StringFixed(2),
		row.Week1OT.StringFixed(2),
		row.Week2Hours.StringFixed(2),
		row.Week2Regular.StringFixed(2),
		row.Week2OT.StringFixed(2),
		row.TotalTimesheetHours.StringFixed(2),
		row.TotalRegular.StringFixed(2),
		row.TotalOT.StringFixed(2),
		row.OverridePay.StringFixed(2),
		row.FinalPay.StringFixed(2),
		row.EquivalentHours.StringFixed(2),
		row.HourAdjustment.StringFixed(2),
		fmt.Sprintf("%t", row.Anomaly),
	)
	return values
}

// generateConsoleReport writes a human-readable report.
func (rg *ReportGenerator) generateConsoleReport(report *reconciler.Report, writer io.Writer) error {
	fmt.Fprintf(writer, "Payroll Reconciliation: %s\n", report.Label)
	fmt.Fprintln(writer, "==========================================")
	fmt.Fprintln(writer)

	if rg.config.IncludeSummary {
		fmt.Fprintf(writer, "Drivers:        %d\n", len(report.Rows))
		fmt.Fprintf(writer, "Trip dates:     %d\n", len(report.TripDates))
		fmt.Fprintf(writer, "Timesheet dates: %d\n", len(report.TimesheetDates))
		fmt.Fprintf(writer, "Anomalies:      %d\n", len(report.AnomalyDrivers))
		fmt.Fprintf(writer, "Override cells: %d\n", len(report.OverrideCells))
		fmt.Fprintln(writer)
	}

	fmt.Fprintf(writer, "%-25s %-7s %10s %6s %10s %10s %12s %8s\n",
		"Driver", "Type", "Fixed", "Loads", "TS Hours", "OT", "Final Pay", "Anomaly")
	fmt.Fprintln(writer, "--------------------------------------------------------------------------------------------")

	for _, row := range report.Rows {
		anomaly := ""
		if row.Anomaly {
			anomaly = "YES"
		}
		fmt.Fprintf(writer, "%-25s %-7s %10s %6d %10s %10s %12s %8s\n",
			truncate(row.DriverKey, 25),
			row.PayType,
			row.FixedPay.StringFixed(2),
			row.TripLoads,
			row.TotalTimesheetHours.StringFixed(2),
			row.TotalOT.StringFixed(2),
			row.FinalPay.StringFixed(2),
			anomaly,
		)
	}

	if len(report.AnomalyDrivers) > 0 {
		fmt.Fprintln(writer)
		fmt.Fprintln(writer, "Drivers with trip activity but no timesheet hours:")
		for _, key := range report.AnomalyDrivers {
			fmt.Fprintf(writer, "  - %s\n", key)
		}
	}

	return nil
}

// jsonReport is the JSON output shape.
type jsonReport struct {
	Label          string            `json:"label"`
	TripDates      []string          `json:"trip_dates"`
	TimesheetDates []string          `json:"timesheet_dates"`
	Rows           []jsonRow         `json:"rows"`
	AnomalyDrivers []string          `json:"anomaly_drivers"`
	OverrideCells  []jsonCell        `json:"override_cells"`
}

type jsonRow struct {
	Driver              string            `json:"driver"`
	PayType             string            `json:"pay_type"`
	FixedPay            string            `json:"fixed_pay"`
	TargetLoads         int               `json:"target_loads"`
	TripHours           map[string]string `json:"trip_hours"`
	TimesheetHours      map[string]string `json:"timesheet_hours"`
	TotalTripHours      string            `json:"total_trip_hours"`
	TripLoads           int               `json:"trip_loads"`
	Week1Hours          string            `json:"week1_hours"`
	Week1Regular        string            `json:"week1_regular"`
	Week1OT             string            `json:"week1_ot"`
	Week2Hours          string            `json:"week2_hours"`
	Week2Regular        string            `json:"week2_regular"`
	Week2OT             string            `json:"week2_ot"`
	TotalTimesheetHours string            `json:"total_timesheet_hours"`
	TotalRegular        string            `json:"total_regular"`
	TotalOT             string            `json:"total_ot"`
	OverridePay         string            `json:"override_pay"`
	FinalPay            string            `json:"final_pay"`
	EquivalentHours     string            `json:"equivalent_hours"`
	HourAdjustment      string            `json:"hour_adjustment"`
	Anomaly             bool              `json:"anomaly"`
}

type jsonCell struct {
	Driver string `json:"driver"`
	Date   string `json:"date"`
}

// generateJSONReport writes the report as indented JSON.
func (rg *ReportGenerator) generateJSONReport(report *reconciler.Report, writer io.Writer) error {
	out := jsonReport{
		Label:          report.Label,
		TripDates:      formatDates(report.TripDates),
		TimesheetDates: formatDates(report.TimesheetDates),
		AnomalyDrivers: report.AnomalyDrivers,
	}

	for _, row := range report.Rows {
		jr := jsonRow{
			Driver:              row.DriverKey,
			PayType:             string(row.PayType),
			FixedPay:            row.FixedPay.StringFixed(2),
			TargetLoads:         row.TargetLoads,
			TripHours:           make(map[string]string, len(row.TripHours)),
			TimesheetHours:      make(map[string]string, len(row.TimesheetHours)),
			TotalTripHours:      row.TotalTripHours.StringFixed(2),
			TripLoads:           row.TripLoads,
			Week1Hours:          row.Week1Hours.StringFixed(2),
			Week1Regular:        row.Week1Regular.StringFixed(2),
			Week1OT:             row.Week1OT.StringFixed(2),
			Week2Hours:          row.Week2Hours.StringFixed(2),
			Week2Regular:        row.Week2Regular.StringFixed(2),
			Week2OT:             row.Week2OT.StringFixed(2),
			TotalTimesheetHours: row.TotalTimesheetHours.StringFixed(2),
			TotalRegular:        row.TotalRegular.StringFixed(2),
			TotalOT:             row.TotalOT.StringFixed(2),
			OverridePay:         row.OverridePay.StringFixed(2),
			FinalPay:            row.FinalPay.StringFixed(2),
			EquivalentHours:     row.EquivalentHours.StringFixed(2),
			HourAdjustment:      row.HourAdjustment.StringFixed(2),
			Anomaly:             row.Anomaly,
		}
		for key, hours := range row.TripHours {
			jr.TripHours[key] = hours.StringFixed(2)
		}
		for key, hours := range row.TimesheetHours {
			jr.TimesheetHours[key] = hours.StringFixed(2)
		}
		out.Rows = append(out.Rows, jr)
	}

	for _, cell := range report.OverrideCells {
		out.OverrideCells = append(out.OverrideCells, jsonCell{
			Driver: cell.DriverKey,
			Date:   models.DateKey(cell.Date),
		})
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// generateCSVReport writes the full column set as CSV.
func (rg *ReportGenerator) generateCSVReport(report *reconciler.Report, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	defer csvWriter.Flush()

	if err := csvWriter.Write(headerColumns(report)); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range report.Rows {
		if err := csvWriter.Write(rowValues(row, report)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// formatDates renders dates with DateKey for machine-readable output.
func formatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, date := range dates {
		out = append(out, models.DateKey(date))
	}
	return out
}

// truncate shortens a string for fixed-width console columns.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
