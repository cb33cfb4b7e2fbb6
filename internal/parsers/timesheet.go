package parsers

import (
	"context"
	"fmt"
	"io"

	"golang-payroll-reconciler/internal/models"
	"golang-payroll-reconciler/pkg/errors"
	"golang-payroll-reconciler/pkg/logger"
)

// TimesheetParser parses the timesheet feed into per-row DailyHoursRecord
// values. Driver names are normalized to the canonical key form at parse
// time. Hours that fail to parse degrade to zero; a pay date that fails to
// parse is fatal because every downstream week window hangs off it.
type TimesheetParser struct {
	*BaseParser
	config *TimesheetParserConfig
	logger logger.Logger
}

// NewTimesheetParser creates a parser for the timesheet feed.
func NewTimesheetParser(config *TimesheetParserConfig) *TimesheetParser {
	if config == nil {
		config = DefaultTimesheetParserConfig()
	}

	return &TimesheetParser{
		BaseParser: NewBaseParser(config.ParseConfig),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("timesheet_parser"),
	}
}

// Parse reads the timesheet feed from r.
func (tp *TimesheetParser) Parse(ctx context.Context, r io.Reader, source string) ([]*models.DailyHoursRecord, *ParseStats, error) {
	parseCtx := NewParseContext(ctx, source)
	stats := NewParseStats()
	reader := tp.NewReader(r)

	if err := tp.ReadHeaders(reader, parseCtx, nil); err != nil {
		return nil, stats, err
	}

	driverCol := resolveColumn(parseCtx, tp.config.DriverColumn, tp.config.ColumnAliases)
	dateCol := resolveColumn(parseCtx, tp.config.PayDateColumn, tp.config.ColumnAliases)
	hoursCol := resolveColumn(parseCtx, tp.config.HoursColumn, tp.config.ColumnAliases)

	var missing []string
	for _, col := range []string{driverCol, dateCol, hoursCol} {
		if parseCtx.GetColumnIndex(col) == -1 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, stats, errors.MissingColumnsError(source, missing)
	}

	var records []*models.DailyHoursRecord

	for {
		record, err := tp.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   "record",
				Message: "failed to read CSV record",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++

		name, _ := tp.GetFieldValue(record, parseCtx, driverCol)
		dateVal, _ := tp.GetFieldValue(record, parseCtx, dateCol)
		hoursVal, _ := tp.GetFieldValue(record, parseCtx, hoursCol)

		key := models.NormalizeDriverKey(name)
		if key == "" {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   driverCol,
				Value:   name,
				Message: "empty driver name, row skipped",
			})
			continue
		}

		payDate, err := models.ParseDateWithFormats(dateVal)
		if err != nil {
			return nil, stats, errors.ValidationError(
				errors.CodeInvalidDate,
				dateCol,
				dateVal,
				fmt.Errorf("line %d of %s: %w", parseCtx.LineNumber, source, err),
			).WithSuggestion("Check the pay date column for non-date values")
		}

		records = append(records, &models.DailyHoursRecord{
			DriverKey: key,
			WorkDate:  models.DateOf(payDate),
			Hours:     models.CoerceHours(hoursVal),
		})
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	tp.logger.WithFields(logger.Fields{
		"source":       source,
		"total_lines":  stats.TotalLines,
		"records":      stats.RecordsValid,
		"parse_errors": stats.ErrorCount,
	}).Info("Timesheet feed parsed")

	return records, stats, nil
}

// ParseFile parses the timesheet feed from a file path.
func (tp *TimesheetParser) ParseFile(ctx context.Context, filePath string) ([]*models.DailyHoursRecord, *ParseStats, error) {
	file, _, err := tp.OpenFile(filePath)
	if err != nil {
		return nil, NewParseStats(), err
	}
	defer file.Close()

	return tp.Parse(ctx, file, filePath)
}
