// Package config assembles component configurations from CLI flag values.
package config

import (
	"github.com/shopspring/decimal"

	"golang-payroll-reconciler/internal/matcher"
	"golang-payroll-reconciler/internal/reconciler"
	"golang-payroll-reconciler/internal/reporter"
)

// CreateServiceConfig builds the pipeline configuration from flag values.
// Feed parser configurations stay at their defaults; the policy knobs come
// from flags.
func CreateServiceConfig(similarityThreshold, regRate, otRate float64) *reconciler.ServiceConfig {
	serviceConfig := reconciler.DefaultServiceConfig()

	serviceConfig.Resolver = &matcher.ResolverConfig{
		Threshold: similarityThreshold,
		Scorer:    matcher.NewTokenSortScorer(),
	}

	reconcilerConfig := reconciler.DefaultConfig()
	reconcilerConfig.RegularRate = decimal.NewFromFloat(regRate)
	reconcilerConfig.OvertimeRate = decimal.NewFromFloat(otRate)
	serviceConfig.Reconciler = reconcilerConfig

	return serviceConfig
}

// CreateReportConfig builds the reporter configuration from flag values.
func CreateReportConfig(format, sheetName string) *reporter.ReportConfig {
	reportConfig := reporter.DefaultReportConfig()
	reportConfig.Format = reporter.OutputFormat(format)
	reportConfig.SheetName = sheetName
	return reportConfig
}
