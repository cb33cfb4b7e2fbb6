package aggregator

import (
	"time"

	"github.com/shopspring/decimal"

	"golang-payroll-reconciler/internal/models"
)

// OverrideTable maps (driver, date) to an override price. Later entries for
// the same key overwrite earlier ones. An empty table is valid: the override
// feed is optional.
type OverrideTable struct {
	prices map[string]map[string]decimal.Decimal
	dates  map[string]map[string]time.Time
}

// NewOverrideTable builds the table from parsed override rows.
func NewOverrideTable(overrides []*models.OverridePrice) *OverrideTable {
	table := &OverrideTable{
		prices: make(map[string]map[string]decimal.Decimal),
		dates:  make(map[string]map[string]time.Time),
	}

	for _, override := range overrides {
		if override.DriverKey == "" {
			continue
		}
		if _, seen := table.prices[override.DriverKey]; !seen {
			table.prices[override.DriverKey] = make(map[string]decimal.Decimal)
			table.dates[override.DriverKey] = make(map[string]time.Time)
		}
		dk := models.DateKey(override.WorkDate)
		table.prices[override.DriverKey][dk] = override.Price
		table.dates[override.DriverKey][dk] = models.DateOf(override.WorkDate)
	}

	return table
}

// Lookup returns the override price for a driver on a date.
func (ot *OverrideTable) Lookup(driverKey string, date time.Time) (decimal.Decimal, bool) {
	byDate, ok := ot.prices[driverKey]
	if !ok {
		return decimal.Zero, false
	}
	price, ok := byDate[models.DateKey(date)]
	return price, ok
}

// Has reports whether an override exists for a driver on a date.
func (ot *OverrideTable) Has(driverKey string, date time.Time) bool {
	_, ok := ot.Lookup(driverKey, date)
	return ok
}

// TotalFor sums every override price recorded for a driver, across all dates
// in the table regardless of whether they appear in the report window.
func (ot *OverrideTable) TotalFor(driverKey string) decimal.Decimal {
	total := decimal.Zero
	for _, price := range ot.prices[driverKey] {
		total = total.Add(price)
	}
	return total
}

// Len returns the number of (driver, date) entries in the table.
func (ot *OverrideTable) Len() int {
	n := 0
	for _, byDate := range ot.prices {
		n += len(byDate)
	}
	return n
}
