package config

import (
	"testing"

	"github.com/shopspring/decimal"

	"golang-payroll-reconciler/internal/reporter"
)

func TestCreateServiceConfig(t *testing.T) {
	serviceConfig := CreateServiceConfig(75, 26, 39)

	if serviceConfig.Resolver.Threshold != 75 {
		t.Errorf("Threshold = %v, want 75", serviceConfig.Resolver.Threshold)
	}
	if serviceConfig.Resolver.Scorer == nil {
		t.Error("Scorer is nil")
	}
	if !serviceConfig.Reconciler.RegularRate.Equal(decimal.NewFromInt(26)) {
		t.Errorf("RegularRate = %v, want 26", serviceConfig.Reconciler.RegularRate)
	}
	if !serviceConfig.Reconciler.OvertimeRate.Equal(decimal.NewFromInt(39)) {
		t.Errorf("OvertimeRate = %v, want 39", serviceConfig.Reconciler.OvertimeRate)
	}

	// Feed parser configs keep their defaults.
	if serviceConfig.Trip == nil || serviceConfig.Trip.TripIDColumn != "Trip ID" {
		t.Error("trip parser config not defaulted")
	}
	if serviceConfig.Reconciler.DatesPerWeek != 7 {
		t.Errorf("DatesPerWeek = %d, want 7", serviceConfig.Reconciler.DatesPerWeek)
	}
}

func TestCreateReportConfig(t *testing.T) {
	reportConfig := CreateReportConfig("xlsx", "January")

	if reportConfig.Format != reporter.FormatXLSX {
		t.Errorf("Format = %v, want xlsx", reportConfig.Format)
	}
	if reportConfig.SheetName != "January" {
		t.Errorf("SheetName = %q, want %q", reportConfig.SheetName, "January")
	}
	if err := reportConfig.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
