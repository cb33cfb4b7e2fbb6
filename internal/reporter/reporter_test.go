package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"golang-payroll-reconciler/internal/models"
	"golang-payroll-reconciler/internal/reconciler"
)

func fixtureReport() *reconciler.Report {
	day1 := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)

	smith := &models.ReconciledRow{
		DriverKey:   "SMITH JOHN",
		HasPolicy:   true,
		PayType:     models.PayTypeFixed,
		FixedPay:    decimal.RequireFromString("1000"),
		TargetLoads: 10,
		TripHours: map[string]decimal.Decimal{
			models.DateKey(day1): decimal.RequireFromString("8.5"),
		},
		TimesheetHours: map[string]decimal.Decimal{
			models.DateKey(day1): decimal.RequireFromString("8"),
			models.DateKey(day2): decimal.RequireFromString("9"),
		},
		TotalTripHours: decimal.RequireFromString("8.5"),
		TripLoads:      1,
		OverridePay:    decimal.RequireFromString("50"),
		FinalPay:       decimal.RequireFromString("150"),
	}

	ghost := &models.ReconciledRow{
		DriverKey: "GHOST DRIVER",
		PayType:   models.PayTypeHourly,
		TripHours: map[string]decimal.Decimal{
			models.DateKey(day2): decimal.RequireFromString("5"),
		},
		TimesheetHours: map[string]decimal.Decimal{},
		TotalTripHours: decimal.RequireFromString("5"),
		TripLoads:      1,
		Anomaly:        true,
	}

	return &reconciler.Report{
		Label:          "06-Jan to 07-Jan",
		TripDates:      []time.Time{day1, day2},
		TimesheetDates: []time.Time{day1, day2},
		Rows:           []*models.ReconciledRow{ghost, smith},
		AnomalyDrivers: []string{"GHOST DRIVER"},
		OverrideCells: []reconciler.OverrideCell{
			{DriverKey: "SMITH JOHN", Date: day1},
		},
	}
}

func TestReportConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *ReportConfig
		wantErr bool
	}{
		{"default is valid", DefaultReportConfig(), false},
		{"csv", &ReportConfig{Format: FormatCSV}, false},
		{"unknown format", &ReportConfig{Format: "yaml"}, true},
		{"xlsx without sheet name", &ReportConfig{Format: FormatXLSX}, true},
		{"xlsx with sheet name", &ReportConfig{Format: FormatXLSX, SheetName: "Payroll"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateCSVReport(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatCSV})
	if err != nil {
		t.Fatalf("NewReportGenerator() error = %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(fixtureReport(), &buf); err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d CSV rows, want header + 2", len(records))
	}

	header := records[0]
	if header[0] != "Driver" {
		t.Errorf("first header = %q, want %q", header[0], "Driver")
	}
	// 4 identity columns, 2 trip dates, 2 timesheet dates, 16 calculated.
	if len(header) != 24 {
		t.Errorf("got %d columns, want 24", len(header))
	}

	smith := records[2]
	if smith[0] != "SMITH JOHN" {
		t.Errorf("row driver = %q, want %q", smith[0], "SMITH JOHN")
	}
	if smith[1] != "FIXED" {
		t.Errorf("pay type = %q, want FIXED", smith[1])
	}
	if smith[4] != "8.50" {
		t.Errorf("first trip column = %q, want 8.50", smith[4])
	}
	if smith[len(smith)-1] != "false" {
		t.Errorf("anomaly column = %q, want false", smith[len(smith)-1])
	}
}

func TestGenerateJSONReport(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatJSON})
	if err != nil {
		t.Fatalf("NewReportGenerator() error = %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(fixtureReport(), &buf); err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}

	var decoded struct {
		Label string `json:"label"`
		Rows  []struct {
			Driver   string `json:"driver"`
			FinalPay string `json:"final_pay"`
			Anomaly  bool   `json:"anomaly"`
		} `json:"rows"`
		AnomalyDrivers []string `json:"anomaly_drivers"`
		OverrideCells  []struct {
			Driver string `json:"driver"`
			Date   string `json:"date"`
		} `json:"override_cells"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if decoded.Label != "06-Jan to 07-Jan" {
		t.Errorf("label = %q, want %q", decoded.Label, "06-Jan to 07-Jan")
	}
	if len(decoded.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(decoded.Rows))
	}
	if decoded.Rows[1].FinalPay != "150.00" {
		t.Errorf("final_pay = %q, want %q", decoded.Rows[1].FinalPay, "150.00")
	}
	if !decoded.Rows[0].Anomaly {
		t.Error("anomalous row not marked in JSON")
	}
	if len(decoded.OverrideCells) != 1 || decoded.OverrideCells[0].Date != "2025-01-06" {
		t.Errorf("override_cells = %+v, want one cell on 2025-01-06", decoded.OverrideCells)
	}
}

func TestGenerateConsoleReport(t *testing.T) {
	generator, err := NewReportGenerator(DefaultReportConfig())
	if err != nil {
		t.Fatalf("NewReportGenerator() error = %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(fixtureReport(), &buf); err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"06-Jan to 07-Jan",
		"SMITH JOHN",
		"GHOST DRIVER",
		"Drivers with trip activity but no timesheet hours:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q", want)
		}
	}
}

func TestGenerateXLSXReport(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatXLSX, SheetName: "Payroll"})
	if err != nil {
		t.Fatalf("NewReportGenerator() error = %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(fixtureReport(), &buf); err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a readable workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Payroll")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d sheet rows, want header + 2", len(rows))
	}
	if rows[0][0] != "Driver" {
		t.Errorf("first header cell = %q, want %q", rows[0][0], "Driver")
	}
	if rows[2][0] != "SMITH JOHN" {
		t.Errorf("driver cell = %q, want %q", rows[2][0], "SMITH JOHN")
	}
	if rows[2][1] != "FIXED" {
		t.Errorf("pay type cell = %q, want FIXED", rows[2][1])
	}
}
