// Package models defines the typed records flowing through the payroll
// reconciliation pipeline.
//
// The two hour feeds, the pay policy table, and the override table all
// arrive as loosely formatted CSV; everything here is the normalized,
// strongly typed form the aggregation and reconciliation stages operate on.
// Hours and currency values use decimal arithmetic throughout - float money
// does not survive a payroll audit.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PayType describes how a driver is compensated.
type PayType string

const (
	// PayTypeFixed pays a fixed amount prorated over a target load count.
	PayTypeFixed PayType = "FIXED"
	// PayTypeHourly pays regular and overtime rates on reported hours.
	PayTypeHourly PayType = "HOURLY"
)

// String returns the string representation of PayType.
func (p PayType) String() string {
	return string(p)
}

// IsValid checks if the pay type is valid.
func (p PayType) IsValid() bool {
	return p == PayTypeFixed || p == PayTypeHourly
}

// DerivePayType returns the pay type implied by a fixed pay amount. A
// driver with a positive fixed pay is FIXED; everyone else is HOURLY.
func DerivePayType(fixedPay decimal.Decimal) PayType {
	if fixedPay.IsPositive() {
		return PayTypeFixed
	}
	return PayTypeHourly
}

// TripEvent is one row of the trip feed: a single stop of a (possibly
// multi-stop) trip. Timestamps are nil when the source cells could not be
// parsed; incomplete rows are dropped during aggregation, never raised.
type TripEvent struct {
	TripID       string
	DriverName   string
	Stop1Planned *time.Time
	Stop1Actual  *time.Time
	FinalActual  *time.Time
}

// HasActuals reports whether both actual-arrival timestamps parsed.
func (e *TripEvent) HasActuals() bool {
	return e.Stop1Actual != nil && e.FinalActual != nil
}

// DailyHoursRecord is the common normalized unit both hour feeds reduce to:
// one driver, one calendar date, a non-negative hour total.
type DailyHoursRecord struct {
	DriverKey string
	WorkDate  time.Time
	Hours     decimal.Decimal
}

// Validate performs basic validation on the DailyHoursRecord.
func (r *DailyHoursRecord) Validate() error {
	if strings.TrimSpace(r.DriverKey) == "" {
		return fmt.Errorf("driver key cannot be empty")
	}

	if r.WorkDate.IsZero() {
		return fmt.Errorf("work date cannot be zero")
	}

	if r.Hours.IsNegative() {
		return fmt.Errorf("hours cannot be negative: %s", r.Hours.String())
	}

	return nil
}

// String returns a string representation of the DailyHoursRecord.
func (r *DailyHoursRecord) String() string {
	return fmt.Sprintf("DailyHours{Driver: %s, Date: %s, Hours: %s}",
		r.DriverKey, r.WorkDate.Format("2006-01-02"), r.Hours.String())
}

// OverridePrice is a manually specified price for one driver on one date.
type OverridePrice struct {
	DriverKey string
	WorkDate  time.Time
	Price     decimal.Decimal
}

// PayPolicyRow is one driver's pay policy. FixedPay is zero when the source
// cell was absent or unparseable; TargetLoads defaults to 1.
type PayPolicyRow struct {
	DriverKey   string
	FixedPay    decimal.Decimal
	TargetLoads int
}

// PayType derives the pay type from the fixed pay amount.
func (p *PayPolicyRow) PayType() PayType {
	return DerivePayType(p.FixedPay)
}

// Validate performs basic validation on the PayPolicyRow.
func (p *PayPolicyRow) Validate() error {
	if strings.TrimSpace(p.DriverKey) == "" {
		return fmt.Errorf("driver key cannot be empty")
	}

	if p.FixedPay.IsNegative() {
		return fmt.Errorf("fixed pay cannot be negative: %s", p.FixedPay.String())
	}

	if p.TargetLoads < 1 {
		return fmt.Errorf("target loads must be positive, got %d", p.TargetLoads)
	}

	return nil
}

// ReconciledRow is one driver's line in the final report. The per-source
// hour maps are sparse (missing date = zero hours); the derived fields are
// populated by the reconciler.
type ReconciledRow struct {
	DriverKey string

	// Pay policy fields. HasPolicy is false for drivers absent from the
	// pay policy table; their policy fields stay at zero values.
	HasPolicy   bool
	PayType     PayType
	FixedPay    decimal.Decimal
	TargetLoads int

	// Sparse date -> hours maps, keyed by DateKey.
	TripHours      map[string]decimal.Decimal
	TimesheetHours map[string]decimal.Decimal

	// Derived trip-side fields.
	TotalTripHours decimal.Decimal
	TripLoads      int

	// Weekly overtime split over the timesheet dates.
	Week1Hours   decimal.Decimal
	Week1Regular decimal.Decimal
	Week1OT      decimal.Decimal
	Week2Hours   decimal.Decimal
	Week2Regular decimal.Decimal
	Week2OT      decimal.Decimal

	// Combined totals and pay.
	TotalTimesheetHours decimal.Decimal
	TotalRegular        decimal.Decimal
	TotalOT             decimal.Decimal
	OverridePay         decimal.Decimal
	FinalPay            decimal.Decimal

	// Diagnostics.
	EquivalentHours decimal.Decimal
	HourAdjustment  decimal.Decimal

	// Anomaly marks trip activity with no corresponding timesheet hours.
	Anomaly bool
}

// TripHoursOn returns the trip-side hours for a date, zero when absent.
func (r *ReconciledRow) TripHoursOn(date time.Time) decimal.Decimal {
	if h, ok := r.TripHours[DateKey(date)]; ok {
		return h
	}
	return decimal.Zero
}

// TimesheetHoursOn returns the timesheet-side hours for a date, zero when absent.
func (r *ReconciledRow) TimesheetHoursOn(date time.Time) decimal.Decimal {
	if h, ok := r.TimesheetHours[DateKey(date)]; ok {
		return h
	}
	return decimal.Zero
}

// NormalizeDriverKey canonicalizes a reported driver name into the join
// identity used across sources: uppercase, punctuation stripped, interior
// whitespace collapsed.
func NormalizeDriverKey(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))

	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		switch r {
		case ',', '.', '\'', '"':
			// dropped
		default:
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// DateOf truncates a timestamp to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateKey formats a date as the canonical map key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDecimalFromString parses a decimal value from string, tolerating
// currency symbols and thousand separators as found in the pay policy and
// override feeds.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// CoerceHours parses an hours cell, coercing anything unparsable to zero.
// Malformed cells must not abort a whole batch. Hours are never negative,
// so a negative cell also coerces to zero.
func CoerceHours(s string) decimal.Decimal {
	d, err := ParseDecimalFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// dateFormats are the calendar-date layouts accepted across all feeds.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"02-01-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// timeFormats are the time-of-day layouts accepted in the trip feed.
var timeFormats = []string{
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3:04:05 PM",
	"03:04 PM",
}

// ParseDateWithFormats parses a calendar date trying the accepted layouts
// in order. The result is truncated to midnight UTC.
func ParseDateWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return DateOf(t), nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// ParseTimestamp combines separate date and time cells into one timestamp.
// The boolean is false when the combination cannot be parsed; callers treat
// that as a null timestamp rather than an error.
func ParseTimestamp(dateStr, timeStr string) (time.Time, bool) {
	dateStr = strings.TrimSpace(dateStr)
	timeStr = strings.TrimSpace(timeStr)
	if dateStr == "" || timeStr == "" {
		return time.Time{}, false
	}

	for _, df := range dateFormats {
		d, err := time.Parse(df, dateStr)
		if err != nil {
			continue
		}
		for _, tf := range timeFormats {
			clock, err := time.Parse(tf, timeStr)
			if err != nil {
				continue
			}
			return time.Date(d.Year(), d.Month(), d.Day(),
				clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC), true
		}
	}

	return time.Time{}, false
}

// DurationHours returns the span between two timestamps in decimal hours.
func DurationHours(from, to time.Time) decimal.Decimal {
	return decimal.NewFromFloat(to.Sub(from).Hours())
}

// RoundHours rounds an hour total to two decimal places, flooring at zero.
func RoundHours(h decimal.Decimal) decimal.Decimal {
	rounded := h.Round(2)
	if rounded.IsNegative() {
		return decimal.Zero
	}
	return rounded
}
