package parsers

import (
	"context"
	"io"

	"golang-payroll-reconciler/internal/models"
	"golang-payroll-reconciler/pkg/errors"
	"golang-payroll-reconciler/pkg/logger"
)

// OverrideParser parses the optional per-day override price table. Override
// rows are best-effort: any row whose driver, date, or price fails to parse
// is skipped and recorded in the stats, never fatal, because a partial
// override table is still useful.
type OverrideParser struct {
	*BaseParser
	config *OverrideParserConfig
	logger logger.Logger
}

// NewOverrideParser creates a parser for the override table.
func NewOverrideParser(config *OverrideParserConfig) *OverrideParser {
	if config == nil {
		config = DefaultOverrideParserConfig()
	}

	return &OverrideParser{
		BaseParser: NewBaseParser(config.ParseConfig),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("override_parser"),
	}
}

// Parse reads the override table from r.
func (op *OverrideParser) Parse(ctx context.Context, r io.Reader, source string) ([]*models.OverridePrice, *ParseStats, error) {
	parseCtx := NewParseContext(ctx, source)
	stats := NewParseStats()
	reader := op.NewReader(r)

	if err := op.ReadHeaders(reader, parseCtx, nil); err != nil {
		return nil, stats, err
	}

	driverCol := resolveColumn(parseCtx, op.config.DriverColumn, op.config.ColumnAliases)
	dateCol := resolveColumn(parseCtx, op.config.DateColumn, op.config.ColumnAliases)
	priceCol := resolveColumn(parseCtx, op.config.PriceColumn, op.config.ColumnAliases)

	var missing []string
	for _, col := range []string{driverCol, dateCol, priceCol} {
		if parseCtx.GetColumnIndex(col) == -1 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, stats, errors.MissingColumnsError(source, missing)
	}

	var overrides []*models.OverridePrice

	for {
		record, err := op.ReadRecord(reader, parseCtx)
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

		name, _ := op.GetFieldValue(record, parseCtx, driverCol)
		dateVal, _ := op.GetFieldValue(record, parseCtx, dateCol)
		priceVal, _ := op.GetFieldValue(record, parseCtx, priceCol)

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

		workDate, err := models.ParseDateWithFormats(dateVal)
		if err != nil {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   dateCol,
				Value:   dateVal,
				Message: "unparsable override date, row skipped",
				Err:     err,
			})
			continue
		}

		price, err := models.ParseDecimalFromString(priceVal)
		if err != nil {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   priceCol,
				Value:   priceVal,
				Message: "unparsable override price, row skipped",
				Err:     err,
			})
			continue
		}

		overrides = append(overrides, &models.OverridePrice{
			DriverKey: key,
			WorkDate:  models.DateOf(workDate),
			Price:     price,
		})
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	op.logger.WithFields(logger.Fields{
		"source":       source,
		"total_lines":  stats.TotalLines,
		"overrides":    stats.RecordsValid,
		"parse_errors": stats.ErrorCount,
	}).Info("Override table parsed")

	return overrides, stats, nil
}

// ParseFile parses the override table from a file path.
func (op *OverrideParser) ParseFile(ctx context.Context, filePath string) ([]*models.OverridePrice, *ParseStats, error) {
	file, _, err := op.OpenFile(filePath)
	if err != nil {
		return nil, NewParseStats(), err
	}
	defer file.Close()

	return op.Parse(ctx, file, filePath)
}
