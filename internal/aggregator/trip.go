// Package aggregator reduces parsed feed rows into one daily-hours record
// per (driver, date) pair per source. The trip side derives hours from stop
// timestamps; the timesheet side sums reported hours directly. Both sides
// produce the same DailyHoursRecord shape so the reconciler can treat them
// symmetrically.
package aggregator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"golang-payroll-reconciler/internal/models"
	"golang-payroll-reconciler/pkg/logger"
)

// longTripThresholdHours is the raw duration above which a trip's actual
// start is considered suspect and the planned start is substituted when one
// exists.
var longTripThresholdHours = decimal.NewFromInt(20)

// TripAggregator reduces trip events into daily hours per driver.
type TripAggregator struct {
	logger logger.Logger
}

// NewTripAggregator creates a trip aggregator.
func NewTripAggregator() *TripAggregator {
	return &TripAggregator{
		logger: logger.GetGlobalLogger().WithComponent("trip_aggregator"),
	}
}

// Aggregate reduces the events to one DailyHoursRecord per (driver, date).
//
// Events missing either actual timestamp are excluded. Within each trip the
// rows are ordered by stop-1 actual arrival; the trip spans from the first
// row's stop-1 arrival to the last row's final-stop arrival. A final stamp
// earlier than the start is assumed to have lost a day and is rolled forward
// 24 hours. Raw durations above the long-trip threshold fall back to the
// planned start when one exists.
func (ta *TripAggregator) Aggregate(events []*models.TripEvent) []*models.DailyHoursRecord {
	groups := make(map[string][]*models.TripEvent)
	var tripOrder []string

	for _, event := range events {
		if !event.HasActuals() {
			continue
		}
		if _, seen := groups[event.TripID]; !seen {
			tripOrder = append(tripOrder, event.TripID)
		}
		groups[event.TripID] = append(groups[event.TripID], event)
	}

	totals := make(map[string]map[string]decimal.Decimal)
	dates := make(map[string]map[string]time.Time)
	var keyOrder []string

	for _, tripID := range tripOrder {
		group := groups[tripID]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Stop1Actual.Before(*group[j].Stop1Actual)
		})

		first := group[0]
		last := group[len(group)-1]

		startActual := *first.Stop1Actual
		final := *last.FinalActual
		if final.Before(startActual) {
			// Midnight crossings sometimes arrive with a stale date on
			// the final stop; roll it forward one day.
			final = final.Add(24 * time.Hour)
		}

		start := startActual
		raw := models.DurationHours(startActual, final)
		if raw.GreaterThan(longTripThresholdHours) && first.Stop1Planned != nil {
			start = *first.Stop1Planned
		}

		key := modalDriverKey(group)
		if key == "" {
			continue
		}

		workDate := models.DateOf(start)
		hours := models.RoundHours(models.DurationHours(start, final))

		if _, seen := totals[key]; !seen {
			totals[key] = make(map[string]decimal.Decimal)
			dates[key] = make(map[string]time.Time)
			keyOrder = append(keyOrder, key)
		}
		dk := models.DateKey(workDate)
		totals[key][dk] = totals[key][dk].Add(hours)
		dates[key][dk] = workDate
	}

	var records []*models.DailyHoursRecord
	for _, key := range keyOrder {
		dayKeys := make([]string, 0, len(totals[key]))
		for dk := range totals[key] {
			dayKeys = append(dayKeys, dk)
		}
		sort.Strings(dayKeys)

		for _, dk := range dayKeys {
			records = append(records, &models.DailyHoursRecord{
				DriverKey: key,
				WorkDate:  dates[key][dk],
				Hours:     totals[key][dk],
			})
		}
	}

	ta.logger.WithFields(logger.Fields{
		"events":  len(events),
		"trips":   len(tripOrder),
		"records": len(records),
	}).Info("Trip feed aggregated")

	return records
}

// modalDriverKey returns the normalized driver key occurring most often in
// the group. Ties go to the key seen first.
func modalDriverKey(group []*models.TripEvent) string {
	counts := make(map[string]int)
	var order []string

	for _, event := range group {
		key := models.NormalizeDriverKey(event.DriverName)
		if key == "" {
			continue
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	best := ""
	bestCount := 0
	for _, key := range order {
		if counts[key] > bestCount {
			best = key
			bestCount = counts[key]
		}
	}
	return best
}
