package reconciler

import (
	"context"
	"io"
	"os"
	"time"

	"golang-payroll-reconciler/internal/aggregator"
	"golang-payroll-reconciler/internal/matcher"
	"golang-payroll-reconciler/internal/models"
	"golang-payroll-reconciler/internal/parsers"
	"golang-payroll-reconciler/pkg/errors"
	"golang-payroll-reconciler/pkg/logger"
)

// Source is one named input stream. The name appears in error messages and
// logs; for files it is the path.
type Source struct {
	Name   string
	Reader io.Reader
}

// Request carries every input of one reconciliation run. The override
// source is optional; everything else is required.
type Request struct {
	TripSources      []Source
	TimesheetSources []Source
	PayPolicySource  Source
	OverrideSource   *Source
}

// Result is the outcome of one run: the report plus per-stage diagnostics.
type Result struct {
	Report *Report

	// MatchDecisions records how each distinct trip-feed driver key was
	// resolved against the timesheet spellings.
	MatchDecisions []matcher.Match

	// Per-feed parse statistics, in input order.
	TripStats      []*parsers.ParseStats
	TimesheetStats []*parsers.ParseStats
	PayPolicyStats *parsers.ParseStats
	OverrideStats  *parsers.ParseStats

	Duration time.Duration
}

// ServiceConfig wires the pipeline components' configurations together.
type ServiceConfig struct {
	Trip       *parsers.TripParserConfig
	Timesheet  *parsers.TimesheetParserConfig
	PayPolicy  *parsers.PayPolicyParserConfig
	Override   *parsers.OverrideParserConfig
	Resolver   *matcher.ResolverConfig
	Reconciler *Config
}

// DefaultServiceConfig returns the standard pipeline configuration.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Trip:       parsers.DefaultTripParserConfig(),
		Timesheet:  parsers.DefaultTimesheetParserConfig(),
		PayPolicy:  parsers.DefaultPayPolicyParserConfig(),
		Override:   parsers.DefaultOverrideParserConfig(),
		Resolver:   matcher.DefaultResolverConfig(),
		Reconciler: DefaultConfig(),
	}
}

// Service runs the full reconciliation pipeline: parse the feeds, aggregate
// both hours sources, resolve driver identities, then reconcile. Each run is
// a pure function of the request inputs; the service holds no state between
// runs.
type Service struct {
	config *ServiceConfig
	logger logger.Logger
}

// NewService creates a reconciliation service.
func NewService(config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}

	return &Service{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("service"),
	}
}

// Process runs one reconciliation over the request's sources. Fatal feed
// problems (missing columns, unparsable pay dates) abort the run; no partial
// report is returned.
func (s *Service) Process(ctx context.Context, req *Request) (*Result, error) {
	started := time.Now()
	stages := logger.NewStageTracker("reconciliation", s.logger)
	result := &Result{}

	stages.StartStage("parse_trip_feed")
	tripParser := parsers.NewTripParser(s.config.Trip)
	events, err := s.parseTripSources(ctx, tripParser, req.TripSources, result)
	if err != nil {
		stages.CompleteWithError(err)
		return nil, err
	}
	stages.EndStage(len(events))

	stages.StartStage("parse_timesheet_feed")
	timesheetParser := parsers.NewTimesheetParser(s.config.Timesheet)
	timesheetRows, err := s.parseTimesheetSources(ctx, timesheetParser, req.TimesheetSources, result)
	if err != nil {
		stages.CompleteWithError(err)
		return nil, err
	}
	stages.EndStage(len(timesheetRows))

	stages.StartStage("parse_pay_policy")
	payParser := parsers.NewPayPolicyParser(s.config.PayPolicy)
	policy, payStats, err := payParser.Parse(ctx, req.PayPolicySource.Reader, req.PayPolicySource.Name)
	if err != nil {
		stages.CompleteWithError(err)
		return nil, err
	}
	result.PayPolicyStats = payStats
	stages.EndStage(len(policy))

	stages.StartStage("parse_overrides")
	overrideTable := aggregator.NewOverrideTable(nil)
	if req.OverrideSource != nil {
		overrideParser := parsers.NewOverrideParser(s.config.Override)
		overrideRows, overrideStats, err := overrideParser.Parse(ctx, req.OverrideSource.Reader, req.OverrideSource.Name)
		if err != nil {
			stages.CompleteWithError(err)
			return nil, err
		}
		result.OverrideStats = overrideStats
		overrideTable = aggregator.NewOverrideTable(overrideRows)
	}
	stages.EndStage(overrideTable.Len())

	stages.StartStage("aggregate")
	tripRecords := aggregator.NewTripAggregator().Aggregate(events)
	timesheetRecords := aggregator.NewTimesheetAggregator().Aggregate(timesheetRows)
	stages.EndStage(len(tripRecords) + len(timesheetRecords))

	stages.StartStage("resolve_identities")
	resolver := matcher.NewIdentityResolver(s.config.Resolver)
	resolvedTrips, matches := resolver.Resolve(tripRecords, timesheetRecords)
	result.MatchDecisions = matches
	stages.EndStage(len(matches))

	stages.StartStage("reconcile")
	report := NewReconciler(s.config.Reconciler).Reconcile(resolvedTrips, timesheetRecords, policy, overrideTable)
	result.Report = report
	stages.EndStage(len(report.Rows))

	stages.Complete()
	result.Duration = time.Since(started)

	s.logger.WithFields(logger.Fields{
		"drivers":   len(report.Rows),
		"anomalies": len(report.AnomalyDrivers),
		"duration":  result.Duration.String(),
	}).Info("Reconciliation run finished")

	return result, nil
}

// parseTripSources parses every trip source and concatenates the events.
func (s *Service) parseTripSources(ctx context.Context, parser *parsers.TripParser, sources []Source, result *Result) ([]*models.TripEvent, error) {
	var events []*models.TripEvent
	for _, source := range sources {
		parsed, stats, err := parser.Parse(ctx, source.Reader, source.Name)
		if err != nil {
			return nil, err
		}
		result.TripStats = append(result.TripStats, stats)
		events = append(events, parsed...)
	}
	return events, nil
}

// parseTimesheetSources parses every timesheet source and concatenates the
// rows.
func (s *Service) parseTimesheetSources(ctx context.Context, parser *parsers.TimesheetParser, sources []Source, result *Result) ([]*models.DailyHoursRecord, error) {
	var rows []*models.DailyHoursRecord
	for _, source := range sources {
		parsed, stats, err := parser.Parse(ctx, source.Reader, source.Name)
		if err != nil {
			return nil, err
		}
		result.TimesheetStats = append(result.TimesheetStats, stats)
		rows = append(rows, parsed...)
	}
	return rows, nil
}

// ProcessFiles opens the named files and runs Process. The override path may
// be empty.
func (s *Service) ProcessFiles(ctx context.Context, tripPaths, timesheetPaths []string, payPolicyPath, overridePath string) (*Result, error) {
	req := &Request{}

	var toClose []io.Closer
	defer func() {
		for _, c := range toClose {
			c.Close()
		}
	}()

	open := func(path string) (*os.File, error) {
		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.FileError(errors.CodeFileNotFound, path, err)
			}
			if os.IsPermission(err) {
				return nil, errors.FileError(errors.CodeFilePermission, path, err)
			}
			return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
		}
		toClose = append(toClose, file)
		return file, nil
	}

	for _, path := range tripPaths {
		file, err := open(path)
		if err != nil {
			return nil, err
		}
		req.TripSources = append(req.TripSources, Source{Name: path, Reader: file})
	}
	for _, path := range timesheetPaths {
		file, err := open(path)
		if err != nil {
			return nil, err
		}
		req.TimesheetSources = append(req.TimesheetSources, Source{Name: path, Reader: file})
	}

	payFile, err := open(payPolicyPath)
	if err != nil {
		return nil, err
	}
	req.PayPolicySource = Source{Name: payPolicyPath, Reader: payFile}

	if overridePath != "" {
		overrideFile, err := open(overridePath)
		if err != nil {
			return nil, err
		}
		req.OverrideSource = &Source{Name: overridePath, Reader: overrideFile}
	}

	return s.Process(ctx, req)
}
