// Package reconciler merges the two aggregated hours sources with the pay
// policy and override tables and derives the payroll figures for each
// driver: weekly overtime splits, fixed or hourly final pay, override
// additions, diagnostics, and anomaly flags.
package reconciler

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"golang-payroll-reconciler/internal/aggregator"
	"golang-payroll-reconciler/internal/models"
	"golang-payroll-reconciler/pkg/logger"
)

// Default pay policy constants, in currency units per hour.
var (
	DefaultRegularRate  = decimal.NewFromInt(24)
	DefaultOvertimeRate = decimal.NewFromInt(36)
)

// Config holds the reconciliation policy parameters.
type Config struct {
	// RegularRate is the hourly rate paid for regular hours.
	RegularRate decimal.Decimal
	// OvertimeRate is the hourly rate paid for overtime hours.
	OvertimeRate decimal.Decimal
	// WeeklyRegularCap is the hours per week paid at the regular rate.
	WeeklyRegularCap decimal.Decimal
	// DatesPerWeek is how many sorted distinct timesheet dates form one
	// week window.
	DatesPerWeek int
}

// DefaultConfig returns the standard reconciliation configuration.
func DefaultConfig() *Config {
	return &Config{
		RegularRate:      DefaultRegularRate,
		OvertimeRate:     DefaultOvertimeRate,
		WeeklyRegularCap: decimal.NewFromInt(40),
		DatesPerWeek:     7,
	}
}

// OverrideCell identifies a (driver, date) report cell backed by an
// override price.
type OverrideCell struct {
	DriverKey string
	Date      time.Time
}

// Report is the fully reconciled output of one run.
type Report struct {
	// Label names the reporting window, derived from the timesheet date
	// range, e.g. "05-Jan to 18-Jan".
	Label string

	// TripDates and TimesheetDates are the sorted distinct work dates
	// present in each source. Report columns follow these orders.
	TripDates      []time.Time
	TimesheetDates []time.Time

	// Rows are ordered by driver key.
	Rows []*models.ReconciledRow

	// AnomalyDrivers lists the driver keys flagged anomalous, in row order.
	AnomalyDrivers []string

	// OverrideCells lists the timesheet-side cells that carry an override.
	OverrideCells []OverrideCell
}

// Reconciler produces the final report from aggregated inputs.
type Reconciler struct {
	config *Config
	logger logger.Logger
}

// NewReconciler creates a reconciler with the given configuration.
func NewReconciler(config *Config) *Reconciler {
	if config == nil {
		config = DefaultConfig()
	}

	return &Reconciler{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("reconciler"),
	}
}

// Reconcile outer-joins the two hours aggregates on driver key, left-joins
// the pay policy, and derives every calculated field. Every driver present
// in either source appears in exactly one row.
func (r *Reconciler) Reconcile(
	tripRecords []*models.DailyHoursRecord,
	timesheetRecords []*models.DailyHoursRecord,
	policy []*models.PayPolicyRow,
	overrides *aggregator.OverrideTable,
) *Report {
	if overrides == nil {
		overrides = aggregator.NewOverrideTable(nil)
	}

	tripDates := distinctDates(tripRecords)
	timesheetDates := distinctDates(timesheetRecords)

	rows := r.buildRows(tripRecords, timesheetRecords, policy)

	report := &Report{
		Label:          windowLabel(timesheetDates),
		TripDates:      tripDates,
		TimesheetDates: timesheetDates,
		Rows:           rows,
	}

	for _, row := range rows {
		r.deriveTripFields(row, tripDates)
		r.deriveWeeklySplit(row, timesheetDates)
		row.OverridePay = overrides.TotalFor(row.DriverKey)
		r.derivePay(row)
		r.deriveDiagnostics(row)
		r.flagAnomaly(row, tripDates, timesheetDates)

		if row.Anomaly {
			report.AnomalyDrivers = append(report.AnomalyDrivers, row.DriverKey)
		}
		for _, date := range timesheetDates {
			if overrides.Has(row.DriverKey, date) {
				report.OverrideCells = append(report.OverrideCells, OverrideCell{
					DriverKey: row.DriverKey,
					Date:      date,
				})
			}
		}
	}

	r.logger.WithFields(logger.Fields{
		"drivers":         len(rows),
		"trip_dates":      len(tripDates),
		"timesheet_dates": len(timesheetDates),
		"anomalies":       len(report.AnomalyDrivers),
		"override_cells":  len(report.OverrideCells),
	}).Info("Reconciliation complete")

	return report
}

// buildRows outer-joins the hours aggregates and left-joins the policy
// table. Rows are ordered by driver key.
func (r *Reconciler) buildRows(
	tripRecords []*models.DailyHoursRecord,
	timesheetRecords []*models.DailyHoursRecord,
	policy []*models.PayPolicyRow,
) []*models.ReconciledRow {
	byDriver := make(map[string]*models.ReconciledRow)

	row := func(key string) *models.ReconciledRow {
		if existing, ok := byDriver[key]; ok {
			return existing
		}
		created := &models.ReconciledRow{
			DriverKey:      key,
			TripHours:      make(map[string]decimal.Decimal),
			TimesheetHours: make(map[string]decimal.Decimal),
		}
		byDriver[key] = created
		return created
	}

	// Identity resolution can fold several trip-feed spellings onto one
	// timesheet key, so hours landing on the same (driver, date) cell sum.
	for _, record := range tripRecords {
		cell := row(record.DriverKey)
		dateKey := models.DateKey(record.WorkDate)
		cell.TripHours[dateKey] = cell.TripHours[dateKey].Add(record.Hours)
	}
	for _, record := range timesheetRecords {
		cell := row(record.DriverKey)
		dateKey := models.DateKey(record.WorkDate)
		cell.TimesheetHours[dateKey] = cell.TimesheetHours[dateKey].Add(record.Hours)
	}

	policyByDriver := make(map[string]*models.PayPolicyRow)
	for _, p := range policy {
		policyByDriver[p.DriverKey] = p
	}

	keys := make([]string, 0, len(byDriver))
	for key := range byDriver {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]*models.ReconciledRow, 0, len(keys))
	for _, key := range keys {
		reconciled := byDriver[key]
		if p, ok := policyByDriver[key]; ok {
			reconciled.HasPolicy = true
			reconciled.FixedPay = p.FixedPay
			reconciled.TargetLoads = p.TargetLoads
		}
		reconciled.PayType = models.DerivePayType(reconciled.FixedPay)
		rows = append(rows, reconciled)
	}

	return rows
}

// deriveTripFields totals the trip-side columns and counts loads: one load
// per date with positive trip hours.
func (r *Reconciler) deriveTripFields(row *models.ReconciledRow, tripDates []time.Time) {
	total := decimal.Zero
	loads := 0
	for _, date := range tripDates {
		hours := row.TripHoursOn(date)
		total = total.Add(hours)
		if hours.IsPositive() {
			loads++
		}
	}
	row.TotalTripHours = total
	row.TripLoads = loads
}

// deriveWeeklySplit partitions the sorted timesheet dates into two week
// windows and splits each into regular and overtime hours. A window is only
// computed when fully populated with dates; a short tail leaves that week's
// fields at zero.
func (r *Reconciler) deriveWeeklySplit(row *models.ReconciledRow, timesheetDates []time.Time) {
	week := r.config.DatesPerWeek

	if len(timesheetDates) >= week {
		row.Week1Hours = r.sumWindow(row, timesheetDates[:week])
		row.Week1Regular = decimal.Min(row.Week1Hours, r.config.WeeklyRegularCap)
		row.Week1OT = decimal.Max(decimal.Zero, row.Week1Hours.Sub(r.config.WeeklyRegularCap))
	}
	if len(timesheetDates) >= 2*week {
		row.Week2Hours = r.sumWindow(row, timesheetDates[week:2*week])
		row.Week2Regular = decimal.Min(row.Week2Hours, r.config.WeeklyRegularCap)
		row.Week2OT = decimal.Max(decimal.Zero, row.Week2Hours.Sub(r.config.WeeklyRegularCap))
	}

	row.TotalTimesheetHours = row.Week1Hours.Add(row.Week2Hours)
	row.TotalRegular = row.Week1Regular.Add(row.Week2Regular)
	row.TotalOT = row.Week1OT.Add(row.Week2OT)
}

func (r *Reconciler) sumWindow(row *models.ReconciledRow, window []time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, date := range window {
		total = total.Add(row.TimesheetHoursOn(date))
	}
	return total
}

// derivePay computes the final pay. Fixed-pay drivers are prorated per
// completed load against their target; hourly drivers are paid the regular
// rate on regular hours plus the overtime premium on overtime hours. The
// override total is added to either branch.
func (r *Reconciler) derivePay(row *models.ReconciledRow) {
	var pay decimal.Decimal

	if row.PayType == models.PayTypeFixed {
		target := int64(row.TargetLoads)
		if target < 1 {
			target = 1
		}
		perLoad := row.FixedPay.Div(decimal.NewFromInt(target))
		pay = perLoad.Mul(decimal.NewFromInt(int64(row.TripLoads)))
	} else {
		premium := r.config.OvertimeRate.Sub(r.config.RegularRate)
		pay = row.TotalRegular.Mul(r.config.RegularRate).
			Add(row.Week1OT.Mul(premium)).
			Add(row.Week2OT.Mul(premium))
	}

	row.FinalPay = pay.Add(row.OverridePay).Round(2)
}

// deriveDiagnostics expresses the final pay back in regular-rate hours and
// the distance from reported hours. Visual-flagging aids only.
func (r *Reconciler) deriveDiagnostics(row *models.ReconciledRow) {
	row.EquivalentHours = row.FinalPay.Div(r.config.RegularRate).Round(2)
	row.HourAdjustment = row.EquivalentHours.Sub(row.TotalTimesheetHours).Round(2)
}

// flagAnomaly marks drivers with trip activity but no timesheet hours at
// all in the window.
func (r *Reconciler) flagAnomaly(row *models.ReconciledRow, tripDates, timesheetDates []time.Time) {
	hasTrip := false
	for _, date := range tripDates {
		if row.TripHoursOn(date).IsPositive() {
			hasTrip = true
			break
		}
	}

	hasTimesheet := false
	for _, date := range timesheetDates {
		if row.TimesheetHoursOn(date).IsPositive() {
			hasTimesheet = true
			break
		}
	}

	row.Anomaly = hasTrip && !hasTimesheet
}

// distinctDates returns the sorted distinct work dates in the records.
func distinctDates(records []*models.DailyHoursRecord) []time.Time {
	seen := make(map[string]time.Time)
	for _, record := range records {
		seen[models.DateKey(record.WorkDate)] = models.DateOf(record.WorkDate)
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	dates := make([]time.Time, 0, len(keys))
	for _, key := range keys {
		dates = append(dates, seen[key])
	}
	return dates
}

// windowLabel derives the report label from the timesheet date range.
func windowLabel(timesheetDates []time.Time) string {
	if len(timesheetDates) == 0 {
		return "empty window"
	}
	first := timesheetDates[0]
	last := timesheetDates[len(timesheetDates)-1]
	return fmt.Sprintf("%s to %s", first.Format("02-Jan"), last.Format("02-Jan"))
}
