package parsers

import (
	"context"
	"io"
	"time"

	"golang-payroll-reconciler/internal/models"
	"golang-payroll-reconciler/pkg/errors"
	"golang-payroll-reconciler/pkg/logger"
)

// TripParser parses the trip feed into TripEvent records. Each row carries a
// trip identifier, a driver name, and three timestamps split across date and
// time cells; malformed timestamps become nulls rather than errors so partial
// rows still contribute what they can.
type TripParser struct {
	*BaseParser
	config *TripParserConfig
	logger logger.Logger
}

// NewTripParser creates a parser for the trip feed.
func NewTripParser(config *TripParserConfig) *TripParser {
	if config == nil {
		config = DefaultTripParserConfig()
	}

	return &TripParser{
		BaseParser: NewBaseParser(config.ParseConfig),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("trip_parser"),
	}
}

// Parse reads the trip feed from r. The source name is used in error
// messages and logs.
func (tp *TripParser) Parse(ctx context.Context, r io.Reader, source string) ([]*models.TripEvent, *ParseStats, error) {
	parseCtx := NewParseContext(ctx, source)
	stats := NewParseStats()
	reader := tp.NewReader(r)

	if err := tp.ReadHeaders(reader, parseCtx, nil); err != nil {
		return nil, stats, err
	}

	// Alias resolution happens after the header row loads. All five
	// columns are required; only their cell values may be unparsable.
	tripIDCol := resolveColumn(parseCtx, tp.config.TripIDColumn, tp.config.ColumnAliases)
	driverCol := resolveColumn(parseCtx, tp.config.DriverColumn, tp.config.ColumnAliases)
	plannedCol := resolveColumn(parseCtx, tp.config.Stop1PlannedColumn, tp.config.ColumnAliases)
	stop1Col := resolveColumn(parseCtx, tp.config.Stop1ActualColumn, tp.config.ColumnAliases)
	stop2Col := resolveColumn(parseCtx, tp.config.Stop2ActualColumn, tp.config.ColumnAliases)

	var missing []string
	for _, col := range []string{tripIDCol, driverCol, plannedCol, stop1Col, stop2Col} {
		if parseCtx.GetColumnIndex(col) == -1 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		tp.logger.WithFields(logger.Fields{
			"source":            source,
			"missing_headers":   missing,
			"available_headers": parseCtx.Headers,
		}).Error("Required trip feed headers are missing")
		return nil, stats, errors.MissingColumnsError(source, missing)
	}

	var events []*models.TripEvent

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

		tripID, _ := tp.GetFieldValue(record, parseCtx, tripIDCol)
		driver, _ := tp.GetFieldValue(record, parseCtx, driverCol)

		event := &models.TripEvent{
			TripID:     tripID,
			DriverName: driver,
		}
		event.Stop1Planned = tp.parseStamp(record, parseCtx, plannedCol, stats)
		event.Stop1Actual = tp.parseStamp(record, parseCtx, stop1Col, stats)
		event.FinalActual = tp.parseStamp(record, parseCtx, stop2Col, stats)

		if event.HasActuals() {
			stats.RecordsValid++
		}
		events = append(events, event)
	}

	stats.TotalLines = parseCtx.LineNumber

	tp.logger.WithFields(logger.Fields{
		"source":       source,
		"total_lines":  stats.TotalLines,
		"events":       stats.RecordsParsed,
		"with_actuals": stats.RecordsValid,
		"parse_errors": stats.ErrorCount,
	}).Info("Trip feed parsed")

	return events, stats, nil
}

// ParseFile parses the trip feed from a file path.
func (tp *TripParser) ParseFile(ctx context.Context, filePath string) ([]*models.TripEvent, *ParseStats, error) {
	file, _, err := tp.OpenFile(filePath)
	if err != nil {
		return nil, NewParseStats(), err
	}
	defer file.Close()

	return tp.Parse(ctx, file, filePath)
}

// parseStamp combines the date cell and its companion time cell into a
// timestamp. Unparsable or missing values yield nil.
func (tp *TripParser) parseStamp(record []string, parseCtx *ParseContext, dateCol string, stats *ParseStats) *time.Time {
	dateVal, _ := tp.GetFieldValue(record, parseCtx, dateCol)
	timeVal, _ := tp.GetFieldValue(record, parseCtx, timeColumnFor(dateCol))

	stamp, ok := models.ParseTimestamp(dateVal, timeVal)
	if !ok {
		if dateVal != "" {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   dateCol,
				Value:   dateVal + " " + timeVal,
				Message: "unparsable timestamp, treated as missing",
			})
		}
		return nil
	}
	return &stamp
}
