package parsers

// TripParserConfig configures parsing of the trip feed.
type TripParserConfig struct {
	*ParseConfig

	DriverColumn       string
	TripIDColumn       string
	Stop1PlannedColumn string
	Stop1ActualColumn  string
	Stop2ActualColumn  string

	// ColumnAliases maps the canonical column names above to alternative
	// header spellings. Upstream exports are inconsistent about spacing
	// (some versions emit double spaces between words) so every stop
	// column carries aliases by default.
	ColumnAliases map[string][]string
}

// DefaultTripParserConfig returns the trip feed configuration matching the
// current upstream export.
func DefaultTripParserConfig() *TripParserConfig {
	return &TripParserConfig{
		ParseConfig:        DefaultParseConfig(),
		DriverColumn:       "Driver Name",
		TripIDColumn:       "Trip ID",
		Stop1PlannedColumn: "Stop 1 Planned Arrival Date",
		Stop1ActualColumn:  "Stop 1 Actual Arrival Date",
		Stop2ActualColumn:  "Stop 2 Actual Arrival Date",
		ColumnAliases: map[string][]string{
			"Driver Name":                 {"Driver", "Driver  Name"},
			"Trip ID":                     {"TripID", "Trip Id"},
			"Stop 1 Planned Arrival Date": {"Stop 1  Planned Arrival Date", "Stop1 Planned Arrival Date"},
			"Stop 1 Actual Arrival Date":  {"Stop 1  Actual Arrival Date", "Stop1 Actual Arrival Date"},
			"Stop 2 Actual Arrival Date":  {"Stop 2  Actual Arrival Date", "Stop2 Actual Arrival Date"},
		},
	}
}

// timeColumnFor returns the companion time-of-day column name for a date
// column. The trip feed splits every timestamp into a date cell and a time
// cell; the time header is derived by substituting "Time" for "Date".
func timeColumnFor(dateColumn string) string {
	return dateColumn[:len(dateColumn)-len("Date")] + "Time"
}

// TimesheetParserConfig configures parsing of the timesheet feed.
type TimesheetParserConfig struct {
	*ParseConfig

	DriverColumn  string
	PayDateColumn string
	HoursColumn   string

	ColumnAliases map[string][]string
}

// DefaultTimesheetParserConfig returns the timesheet feed configuration.
func DefaultTimesheetParserConfig() *TimesheetParserConfig {
	return &TimesheetParserConfig{
		ParseConfig:   DefaultParseConfig(),
		DriverColumn:  "Payroll Name",
		PayDateColumn: "Pay Date",
		HoursColumn:   "Hours",
		ColumnAliases: map[string][]string{
			"Payroll Name": {"Employee Name", "Payroll  Name"},
			"Pay Date":     {"PayDate", "Date"},
			"Hours":        {"Total Hours", "Worked Hours"},
		},
	}
}

// PayPolicyParserConfig configures parsing of the pay policy table.
type PayPolicyParserConfig struct {
	*ParseConfig

	DriverColumn     string
	FixedPayColumn   string
	TotalLoadsColumn string

	ColumnAliases map[string][]string
}

// DefaultPayPolicyParserConfig returns the pay policy table configuration.
func DefaultPayPolicyParserConfig() *PayPolicyParserConfig {
	return &PayPolicyParserConfig{
		ParseConfig:      DefaultParseConfig(),
		DriverColumn:     "Drivers",
		FixedPayColumn:   "Fixed Pay",
		TotalLoadsColumn: "Total Loads",
		ColumnAliases: map[string][]string{
			"Drivers":     {"Driver", "Driver Name"},
			"Fixed Pay":   {"FixedPay", "Fixed  Pay"},
			"Total Loads": {"Target Loads", "Loads"},
		},
	}
}

// OverrideParserConfig configures parsing of the override table.
type OverrideParserConfig struct {
	*ParseConfig

	DriverColumn string
	DateColumn   string
	PriceColumn  string

	ColumnAliases map[string][]string
}

// DefaultOverrideParserConfig returns the override table configuration.
func DefaultOverrideParserConfig() *OverrideParserConfig {
	return &OverrideParserConfig{
		ParseConfig:  DefaultParseConfig(),
		DriverColumn: "Driver",
		DateColumn:   "Date",
		PriceColumn:  "Override Price",
		ColumnAliases: map[string][]string{
			"Driver":         {"Driver Name", "Drivers"},
			"Date":           {"Pay Date", "Work Date"},
			"Override Price": {"Override", "Price"},
		},
	}
}

// resolveColumn returns the first header name from the canonical name and
// its aliases that is present in the parse context, or the canonical name
// when none match (so missing-column errors report the expected name).
func resolveColumn(parseCtx *ParseContext, canonical string, aliases map[string][]string) string {
	if parseCtx.GetColumnIndex(canonical) != -1 {
		return canonical
	}
	for _, alias := range aliases[canonical] {
		if parseCtx.GetColumnIndex(alias) != -1 {
			return alias
		}
	}
	return canonical
}
