package aggregator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"golang-payroll-reconciler/internal/models"
	"golang-payroll-reconciler/pkg/logger"
)

// TimesheetAggregator sums reported daily hours per (driver, date). The
// timesheet feed already reports discrete daily hours, so there is no
// duration or rollover logic on this side.
type TimesheetAggregator struct {
	logger logger.Logger
}

// NewTimesheetAggregator creates a timesheet aggregator.
func NewTimesheetAggregator() *TimesheetAggregator {
	return &TimesheetAggregator{
		logger: logger.GetGlobalLogger().WithComponent("timesheet_aggregator"),
	}
}

// Aggregate sums hours by (driver, date). Input rows may span multiple
// source files; duplicates collapse into a single record per pair.
func (ta *TimesheetAggregator) Aggregate(records []*models.DailyHoursRecord) []*models.DailyHoursRecord {
	totals := make(map[string]map[string]decimal.Decimal)
	dates := make(map[string]map[string]time.Time)
	var keyOrder []string

	for _, record := range records {
		if record.DriverKey == "" {
			continue
		}
		if _, seen := totals[record.DriverKey]; !seen {
			totals[record.DriverKey] = make(map[string]decimal.Decimal)
			dates[record.DriverKey] = make(map[string]time.Time)
			keyOrder = append(keyOrder, record.DriverKey)
		}
		dk := models.DateKey(record.WorkDate)
		totals[record.DriverKey][dk] = totals[record.DriverKey][dk].Add(record.Hours)
		dates[record.DriverKey][dk] = models.DateOf(record.WorkDate)
	}

	var out []*models.DailyHoursRecord
	for _, key := range keyOrder {
		dayKeys := make([]string, 0, len(totals[key]))
		for dk := range totals[key] {
			dayKeys = append(dayKeys, dk)
		}
		sort.Strings(dayKeys)

		for _, dk := range dayKeys {
			out = append(out, &models.DailyHoursRecord{
				DriverKey: key,
				WorkDate:  dates[key][dk],
				Hours:     totals[key][dk],
			})
		}
	}

	ta.logger.WithFields(logger.Fields{
		"rows":    len(records),
		"records": len(out),
		"drivers": len(keyOrder),
	}).Info("Timesheet feed aggregated")

	return out
}
