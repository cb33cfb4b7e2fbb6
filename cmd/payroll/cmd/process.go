package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-payroll-reconciler/cmd/payroll/config"
	"golang-payroll-reconciler/internal/reconciler"
	"golang-payroll-reconciler/internal/reporter"
)

// Flags for the process command
var (
	tripFiles      []string
	timesheetFiles []string
	payFile        string
	overrideFile   string
	outputFormat   string
	outputFile     string
	sheetName      string

	similarityThreshold float64
	regRate             float64
	otRate              float64
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Reconcile the trip and timesheet feeds into a payroll report",
	Long: `Process parses the trip feed and the timesheet feed, aggregates both
into daily hours per driver, unifies driver name spellings, and derives
each driver's biweekly pay from the pay policy table plus any per-day
override prices.

This command requires:
- One or more trip feed files (CSV format)
- One or more timesheet feed files (CSV format)
- A pay policy file (CSV format)

Examples:
  # Basic run, console report
  payroll process --trip-files trips.csv --timesheet-files hours.csv --pay-file pay.csv

  # Multiple feed files with overrides, XLSX report
  payroll process --trip-files week1.csv,week2.csv --timesheet-files hours.csv \
    --pay-file pay.csv --override-file overrides.csv \
    --output-format xlsx --output-file payroll.xlsx

  # Custom matching threshold and rates
  payroll process --trip-files trips.csv --timesheet-files hours.csv \
    --pay-file pay.csv --similarity-threshold 75 --reg-rate 26 --ot-rate 39`,

	PreRunE: validateProcessFlags,
	RunE:    runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	// Required flags
	processCmd.Flags().StringSliceVarP(&tripFiles, "trip-files", "t", []string{}, "comma-separated paths to trip feed CSV files (required)")
	processCmd.Flags().StringSliceVarP(&timesheetFiles, "timesheet-files", "s", []string{}, "comma-separated paths to timesheet feed CSV files (required)")
	processCmd.Flags().StringVarP(&payFile, "pay-file", "p", "", "path to pay policy CSV file (required)")

	// Optional inputs
	processCmd.Flags().StringVar(&overrideFile, "override-file", "", "path to override price CSV file (optional)")

	// Output flags
	processCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv, xlsx")
	processCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	processCmd.Flags().StringVar(&sheetName, "sheet-name", "Payroll", "worksheet name for xlsx output")

	// Policy flags
	processCmd.Flags().Float64Var(&similarityThreshold, "similarity-threshold", 60, "minimum name similarity score for identity matching (0-100)")
	processCmd.Flags().Float64Var(&regRate, "reg-rate", 24, "regular hourly rate in currency units")
	processCmd.Flags().Float64Var(&otRate, "ot-rate", 36, "overtime hourly rate in currency units")

	// Mark required flags
	processCmd.MarkFlagRequired("trip-files")
	processCmd.MarkFlagRequired("timesheet-files")
	processCmd.MarkFlagRequired("pay-file")

	// Bind flags to viper
	viper.BindPFlag("trip-files", processCmd.Flags().Lookup("trip-files"))
	viper.BindPFlag("timesheet-files", processCmd.Flags().Lookup("timesheet-files"))
	viper.BindPFlag("pay-file", processCmd.Flags().Lookup("pay-file"))
	viper.BindPFlag("override-file", processCmd.Flags().Lookup("override-file"))
	viper.BindPFlag("output-format", processCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", processCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("sheet-name", processCmd.Flags().Lookup("sheet-name"))
	viper.BindPFlag("similarity-threshold", processCmd.Flags().Lookup("similarity-threshold"))
	viper.BindPFlag("reg-rate", processCmd.Flags().Lookup("reg-rate"))
	viper.BindPFlag("ot-rate", processCmd.Flags().Lookup("ot-rate"))
}

func validateProcessFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	tripFiles = viper.GetStringSlice("trip-files")
	timesheetFiles = viper.GetStringSlice("timesheet-files")
	payFile = viper.GetString("pay-file")
	overrideFile = viper.GetString("override-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	sheetName = viper.GetString("sheet-name")
	similarityThreshold = viper.GetFloat64("similarity-threshold")
	regRate = viper.GetFloat64("reg-rate")
	otRate = viper.GetFloat64("ot-rate")

	// Validate required flags
	if len(tripFiles) == 0 {
		return fmt.Errorf("at least one trip-file is required")
	}
	if len(timesheetFiles) == 0 {
		return fmt.Errorf("at least one timesheet-file is required")
	}
	if payFile == "" {
		return fmt.Errorf("pay-file is required")
	}

	// Validate file existence
	for i, tripFile := range tripFiles {
		if err := validateFileExists(tripFile, fmt.Sprintf("trip file %d", i+1)); err != nil {
			return err
		}
	}
	for i, timesheetFile := range timesheetFiles {
		if err := validateFileExists(timesheetFile, fmt.Sprintf("timesheet file %d", i+1)); err != nil {
			return err
		}
	}
	if err := validateFileExists(payFile, "pay policy file"); err != nil {
		return err
	}
	if overrideFile != "" {
		if err := validateFileExists(overrideFile, "override file"); err != nil {
			return err
		}
	}

	// Validate output format
	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv, xlsx", outputFormat)
	}
	if outputFormat == string(reporter.FormatXLSX) && outputFile == "" {
		return fmt.Errorf("xlsx output requires --output-file")
	}

	// Validate policy values
	if similarityThreshold < 0 || similarityThreshold > 100 {
		return fmt.Errorf("similarity threshold must be between 0 and 100")
	}
	if regRate <= 0 {
		return fmt.Errorf("regular rate must be positive")
	}
	if otRate < regRate {
		return fmt.Errorf("overtime rate cannot be below the regular rate")
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	errorHandler := NewCLIErrorHandler()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting payroll reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Trip files: %s\n", strings.Join(tripFiles, ", "))
		fmt.Fprintf(os.Stderr, "Timesheet files: %s\n", strings.Join(timesheetFiles, ", "))
		fmt.Fprintf(os.Stderr, "Pay policy file: %s\n", payFile)
		if overrideFile != "" {
			fmt.Fprintf(os.Stderr, "Override file: %s\n", overrideFile)
		}
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
	}

	serviceConfig := config.CreateServiceConfig(similarityThreshold, regRate, otRate)
	service := reconciler.NewService(serviceConfig)

	result, err := service.ProcessFiles(ctx, tripFiles, timesheetFiles, payFile, overrideFile)
	if err != nil {
		os.Exit(errorHandler.HandleError(err))
	}

	reportConfig := config.CreateReportConfig(outputFormat, sheetName)
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		os.Exit(errorHandler.HandleError(err))
	}

	var writer io.Writer = os.Stdout
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		writer = file
	}

	if err := generator.GenerateReport(result.Report, writer); err != nil {
		os.Exit(errorHandler.HandleError(err))
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Completed in %s: %d drivers, %d anomalies\n",
			result.Duration, len(result.Report.Rows), len(result.Report.AnomalyDrivers))
	}

	return nil
}
