package parsers

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"golang-payroll-reconciler/pkg/errors"
)

const tripFeedCSV = `Trip ID,Driver Name,Stop 1 Planned Arrival Date,Stop 1 Planned Arrival Time,Stop 1  Actual Arrival Date,Stop 1  Actual Arrival Time,Stop 2  Actual Arrival Date,Stop 2  Actual Arrival Time
T-1001,"Smith, John",01/05/2025,08:00,01/05/2025,08:15,01/05/2025,16:30
T-1002,"Smith, John",01/06/2025,07:00,01/06/2025,07:05,01/06/2025,15:45
T-1003,Jane Doe,,,01/07/2025,09:00,,
`

func TestTripParserParse(t *testing.T) {
	parser := NewTripParser(nil)

	events, stats, err := parser.Parse(context.Background(), strings.NewReader(tripFeedCSV), "trips.csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("Parse() returned %d events, want 3", len(events))
	}
	if stats.RecordsParsed != 3 {
		t.Errorf("RecordsParsed = %d, want 3", stats.RecordsParsed)
	}
	if stats.RecordsValid != 2 {
		t.Errorf("RecordsValid = %d, want 2 (one event is missing its final stop)", stats.RecordsValid)
	}

	first := events[0]
	if first.TripID != "T-1001" {
		t.Errorf("TripID = %q, want %q", first.TripID, "T-1001")
	}
	if first.DriverName != "Smith, John" {
		t.Errorf("DriverName = %q, want %q", first.DriverName, "Smith, John")
	}
	if first.Stop1Actual == nil || first.Stop1Actual.Hour() != 8 || first.Stop1Actual.Minute() != 15 {
		t.Errorf("Stop1Actual = %v, want 08:15", first.Stop1Actual)
	}
	if first.Stop1Planned == nil {
		t.Error("Stop1Planned = nil, want parsed timestamp")
	}
	if first.FinalActual == nil || first.FinalActual.Hour() != 16 {
		t.Errorf("FinalActual = %v, want 16:30", first.FinalActual)
	}

	third := events[2]
	if third.Stop1Planned != nil {
		t.Errorf("Stop1Planned = %v, want nil for empty cells", third.Stop1Planned)
	}
	if third.FinalActual != nil {
		t.Errorf("FinalActual = %v, want nil for empty cells", third.FinalActual)
	}
	if third.HasActuals() {
		t.Error("HasActuals() = true for event missing its final stop")
	}
}

func TestTripParserMissingColumns(t *testing.T) {
	parser := NewTripParser(nil)
	input := "Trip ID,Driver Name\nT-1,Jane Doe\n"

	_, _, err := parser.Parse(context.Background(), strings.NewReader(input), "trips.csv")
	if err == nil {
		t.Fatal("Parse() error = nil, want missing-column error")
	}

	payrollErr, ok := errors.AsPayrollError(err)
	if !ok {
		t.Fatalf("error %v is not a PayrollError", err)
	}
	if payrollErr.Code != errors.CodeMissingColumn {
		t.Errorf("Code = %v, want %v", payrollErr.Code, errors.CodeMissingColumn)
	}
	if !strings.Contains(payrollErr.Message, "trips.csv") {
		t.Errorf("Message %q does not name the source", payrollErr.Message)
	}
	if !strings.Contains(payrollErr.Message, "Stop 1 Actual Arrival Date") {
		t.Errorf("Message %q does not name the missing column", payrollErr.Message)
	}
	if !strings.Contains(payrollErr.Message, "Stop 1 Planned Arrival Date") {
		t.Errorf("Message %q does not name the missing planned column", payrollErr.Message)
	}
}

func TestTripParserBadTimestampBecomesNil(t *testing.T) {
	parser := NewTripParser(nil)
	input := `Trip ID,Driver Name,Stop 1 Planned Arrival Date,Stop 1 Planned Arrival Time,Stop 1  Actual Arrival Date,Stop 1  Actual Arrival Time,Stop 2  Actual Arrival Date,Stop 2  Actual Arrival Time
T-1,Jane Doe,,,not-a-date,08:00,01/05/2025,17:00
`

	events, stats, err := parser.Parse(context.Background(), strings.NewReader(input), "trips.csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if events[0].Stop1Actual != nil {
		t.Errorf("Stop1Actual = %v, want nil for unparsable value", events[0].Stop1Actual)
	}
	if !stats.HasErrors() {
		t.Error("stats recorded no error for the unparsable timestamp")
	}
}

func TestTimesheetParserParse(t *testing.T) {
	parser := NewTimesheetParser(nil)
	input := `Payroll Name,Pay Date,Hours
"Smith, John",01/05/2025,8.5
"Smith, John",01/05/2025,2.0
Jane Doe,01/06/2025,seven
`

	records, stats, err := parser.Parse(context.Background(), strings.NewReader(input), "timesheet.csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Parse() returned %d records, want 3", len(records))
	}
	if stats.RecordsValid != 3 {
		t.Errorf("RecordsValid = %d, want 3", stats.RecordsValid)
	}

	if records[0].DriverKey != "SMITH JOHN" {
		t.Errorf("DriverKey = %q, want %q", records[0].DriverKey, "SMITH JOHN")
	}
	if !records[0].Hours.Equal(decimal.RequireFromString("8.5")) {
		t.Errorf("Hours = %v, want 8.5", records[0].Hours)
	}
	if records[0].WorkDate.Day() != 5 || records[0].WorkDate.Month() != 1 {
		t.Errorf("WorkDate = %v, want Jan 5", records[0].WorkDate)
	}

	// Unparsable hours degrade to zero instead of failing the run.
	if !records[2].Hours.IsZero() {
		t.Errorf("Hours = %v, want 0 for unparsable value", records[2].Hours)
	}
}

func TestTimesheetParserBadDateIsFatal(t *testing.T) {
	parser := NewTimesheetParser(nil)
	input := "Payroll Name,Pay Date,Hours\nJane Doe,yesterday,8\n"

	_, _, err := parser.Parse(context.Background(), strings.NewReader(input), "timesheet.csv")
	if err == nil {
		t.Fatal("Parse() error = nil, want invalid-date error")
	}

	payrollErr, ok := errors.AsPayrollError(err)
	if !ok {
		t.Fatalf("error %v is not a PayrollError", err)
	}
	if payrollErr.Code != errors.CodeInvalidDate {
		t.Errorf("Code = %v, want %v", payrollErr.Code, errors.CodeInvalidDate)
	}
}

func TestPayPolicyParserParse(t *testing.T) {
	parser := NewPayPolicyParser(nil)
	input := `Drivers,Fixed Pay,Total Loads
"Smith, John","$2,400.00",10
Jane Doe,,not-a-number
"Smith, John","$2,600.00",12
`

	rows, _, err := parser.Parse(context.Background(), strings.NewReader(input), "pay.csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Parse() returned %d rows, want 2 (duplicate driver collapses)", len(rows))
	}

	// The later row for the same driver wins.
	smith := rows[0]
	if smith.DriverKey != "SMITH JOHN" {
		t.Errorf("DriverKey = %q, want %q", smith.DriverKey, "SMITH JOHN")
	}
	if !smith.FixedPay.Equal(decimal.RequireFromString("2600")) {
		t.Errorf("FixedPay = %v, want 2600", smith.FixedPay)
	}
	if smith.TargetLoads != 12 {
		t.Errorf("TargetLoads = %d, want 12", smith.TargetLoads)
	}

	jane := rows[1]
	if !jane.FixedPay.IsZero() {
		t.Errorf("FixedPay = %v, want 0 for empty cell", jane.FixedPay)
	}
	if jane.TargetLoads != 1 {
		t.Errorf("TargetLoads = %d, want 1 default for unparsable cell", jane.TargetLoads)
	}
	if jane.PayType() != "HOURLY" {
		t.Errorf("PayType() = %v, want HOURLY for zero fixed pay", jane.PayType())
	}
}

func TestPayPolicyParserDriverOnlyTable(t *testing.T) {
	parser := NewPayPolicyParser(nil)
	input := `Drivers
"Smith, John"
Jane Doe
`

	rows, stats, err := parser.Parse(context.Background(), strings.NewReader(input), "pay.csv")
	if err != nil {
		t.Fatalf("Parse() error = %v for a table without pay columns", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Parse() returned %d rows, want 2", len(rows))
	}
	if stats.HasErrors() {
		t.Errorf("got %d parse errors, want none for absent optional columns", stats.ErrorCount)
	}
	for _, row := range rows {
		if !row.FixedPay.IsZero() {
			t.Errorf("FixedPay = %v for %s, want 0 default", row.FixedPay, row.DriverKey)
		}
		if row.TargetLoads != 1 {
			t.Errorf("TargetLoads = %d for %s, want 1 default", row.TargetLoads, row.DriverKey)
		}
	}
}

func TestPayPolicyParserMissingDriverColumn(t *testing.T) {
	parser := NewPayPolicyParser(nil)
	input := "Fixed Pay,Total Loads\n100,5\n"

	_, _, err := parser.Parse(context.Background(), strings.NewReader(input), "pay.csv")
	if err == nil {
		t.Fatal("Parse() error = nil, want missing-column failure for absent Drivers column")
	}
	payrollErr, ok := errors.AsPayrollError(err)
	if !ok {
		t.Fatalf("error %v is not a PayrollError", err)
	}
	if payrollErr.Code != errors.CodeMissingColumn {
		t.Errorf("Code = %v, want %v", payrollErr.Code, errors.CodeMissingColumn)
	}
}

func TestOverrideParserSkipsBadRows(t *testing.T) {
	parser := NewOverrideParser(nil)
	input := `Driver,Date,Override Price
"Smith, John",01/05/2025,"$150.00"
Jane Doe,not-a-date,100
Jane Doe,01/06/2025,free
,01/07/2025,50
Jane Doe,01/06/2025,75.25
`

	overrides, stats, err := parser.Parse(context.Background(), strings.NewReader(input), "overrides.csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(overrides) != 2 {
		t.Fatalf("Parse() returned %d overrides, want 2", len(overrides))
	}
	if stats.ErrorCount != 3 {
		t.Errorf("ErrorCount = %d, want 3 skipped rows", stats.ErrorCount)
	}

	if overrides[0].DriverKey != "SMITH JOHN" {
		t.Errorf("DriverKey = %q, want %q", overrides[0].DriverKey, "SMITH JOHN")
	}
	if !overrides[0].Price.Equal(decimal.RequireFromString("150")) {
		t.Errorf("Price = %v, want 150", overrides[0].Price)
	}
	if !overrides[1].Price.Equal(decimal.RequireFromString("75.25")) {
		t.Errorf("Price = %v, want 75.25", overrides[1].Price)
	}
}

func TestBaseParserEmptyFile(t *testing.T) {
	parser := NewTripParser(nil)

	_, _, err := parser.Parse(context.Background(), strings.NewReader(""), "empty.csv")
	if err == nil {
		t.Fatal("Parse() error = nil, want empty-file error")
	}

	payrollErr, ok := errors.AsPayrollError(err)
	if !ok {
		t.Fatalf("error %v is not a PayrollError", err)
	}
	if payrollErr.Category != errors.CategoryParse {
		t.Errorf("Category = %v, want %v", payrollErr.Category, errors.CategoryParse)
	}
}

func TestParseContextColumnLookupIsCaseInsensitive(t *testing.T) {
	pc := NewParseContext(context.Background(), "test.csv")
	pc.Headers = []string{"Driver Name", "Hours"}
	pc.HeaderMap = map[string]int{"Driver Name": 0, "Hours": 1}

	if got := pc.GetColumnIndex("driver name"); got != 0 {
		t.Errorf("GetColumnIndex(%q) = %d, want 0", "driver name", got)
	}
	if got := pc.GetColumnIndex("HOURS"); got != 1 {
		t.Errorf("GetColumnIndex(%q) = %d, want 1", "HOURS", got)
	}
	if got := pc.GetColumnIndex("Missing"); got != -1 {
		t.Errorf("GetColumnIndex(%q) = %d, want -1", "Missing", got)
	}
}
