package parsers

import (
	"context"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"golang-payroll-reconciler/internal/models"
	"golang-payroll-reconciler/pkg/errors"
	"golang-payroll-reconciler/pkg/logger"
)

// PayPolicyParser parses the pay policy table: one row per driver with an
// optional fixed biweekly amount and a target load count. Later rows for the
// same driver replace earlier ones.
type PayPolicyParser struct {
	*BaseParser
	config *PayPolicyParserConfig
	logger logger.Logger
}

// NewPayPolicyParser creates a parser for the pay policy table.
func NewPayPolicyParser(config *PayPolicyParserConfig) *PayPolicyParser {
	if config == nil {
		config = DefaultPayPolicyParserConfig()
	}

	return &PayPolicyParser{
		BaseParser: NewBaseParser(config.ParseConfig),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("pay_policy_parser"),
	}
}

// Parse reads the pay policy table from r.
func (pp *PayPolicyParser) Parse(ctx context.Context, r io.Reader, source string) ([]*models.PayPolicyRow, *ParseStats, error) {
	parseCtx := NewParseContext(ctx, source)
	stats := NewParseStats()
	reader := pp.NewReader(r)

	if err := pp.ReadHeaders(reader, parseCtx, nil); err != nil {
		return nil, stats, err
	}

	driverCol := resolveColumn(parseCtx, pp.config.DriverColumn, pp.config.ColumnAliases)
	fixedCol := resolveColumn(parseCtx, pp.config.FixedPayColumn, pp.config.ColumnAliases)
	loadsCol := resolveColumn(parseCtx, pp.config.TotalLoadsColumn, pp.config.ColumnAliases)

	if parseCtx.GetColumnIndex(driverCol) == -1 {
		return nil, stats, errors.MissingColumnsError(source, []string{driverCol})
	}
	// Fixed pay and target loads are optional columns: a roster-only table
	// means every listed driver defaults to zero fixed pay and one load.
	hasFixed := parseCtx.GetColumnIndex(fixedCol) != -1
	hasLoads := parseCtx.GetColumnIndex(loadsCol) != -1

	byDriver := make(map[string]int)
	var rows []*models.PayPolicyRow

	for {
		record, err := pp.ReadRecord(reader, parseCtx)
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

		name, _ := pp.GetFieldValue(record, parseCtx, driverCol)
		var fixedVal, loadsVal string
		if hasFixed {
			fixedVal, _ = pp.GetFieldValue(record, parseCtx, fixedCol)
		}
		if hasLoads {
			loadsVal, _ = pp.GetFieldValue(record, parseCtx, loadsCol)
		}

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

		fixedPay, err := models.ParseDecimalFromString(fixedVal)
		if err != nil {
			if fixedVal != "" {
				stats.AddError(&ParseError{
					Line:    parseCtx.LineNumber,
					Field:   fixedCol,
					Value:   fixedVal,
					Message: "unparsable fixed pay, treated as zero",
					Err:     err,
				})
			}
			fixedPay = decimal.Zero
		}

		loads, err := strconv.Atoi(loadsVal)
		if err != nil || loads < 1 {
			if loadsVal != "" && err != nil {
				stats.AddError(&ParseError{
					Line:    parseCtx.LineNumber,
					Field:   loadsCol,
					Value:   loadsVal,
					Message: "unparsable target loads, treated as one",
					Err:     err,
				})
			}
			// Target loads feed the fixed-pay proration divisor and
			// must never be zero.
			loads = 1
		}

		row := &models.PayPolicyRow{
			DriverKey:   key,
			FixedPay:    fixedPay,
			TargetLoads: loads,
		}

		if idx, seen := byDriver[key]; seen {
			rows[idx] = row
		} else {
			byDriver[key] = len(rows)
			rows = append(rows, row)
		}
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	pp.logger.WithFields(logger.Fields{
		"source":       source,
		"total_lines":  stats.TotalLines,
		"drivers":      len(rows),
		"parse_errors": stats.ErrorCount,
	}).Info("Pay policy table parsed")

	return rows, stats, nil
}

// ParseFile parses the pay policy table from a file path.
func (pp *PayPolicyParser) ParseFile(ctx context.Context, filePath string) ([]*models.PayPolicyRow, *ParseStats, error) {
	file, _, err := pp.OpenFile(filePath)
	if err != nil {
		return nil, NewParseStats(), err
	}
	defer file.Close()

	return pp.Parse(ctx, file, filePath)
}
