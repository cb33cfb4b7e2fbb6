package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-payroll-reconciler/pkg/logger"
)

var (
	cfgFile  string
	verbose  bool
	logLevel string
	version  = "dev"
	commit   = "unknown"
	date     = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "payroll",
	Short: "Driver payroll reconciliation tool",
	Long: `Payroll reconciles two work-hour feeds for a driver roster: the trip
feed (per-stop arrival timestamps from dispatch) and the timesheet feed
(daily hours from payroll). Driver name spellings are unified with fuzzy
matching, hours are split into biweekly regular and overtime buckets, and
final pay is derived per driver from the pay policy and override tables.

Examples:
  payroll process --trip-files trips.csv --timesheet-files hours.csv --pay-file pay.csv
  payroll process --trip-files t1.csv,t2.csv --timesheet-files hours.csv \
    --pay-file pay.csv --override-file overrides.csv --output-format xlsx -o payroll.xlsx
  payroll version`,
	Version: getVersionString(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)

		// If a config file is specified, read it in.
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// Read environment variables that match
	viper.SetEnvPrefix("PAYROLL")
	viper.AutomaticEnv()

	configureLogging()
}

// configureLogging applies the log flags to the global logger. Report output
// goes to stdout, so logs stay on stderr.
func configureLogging() {
	level := logger.Level(viper.GetString("log-level"))
	if viper.GetBool("verbose") {
		level = logger.DebugLevel
	}

	config := logger.DefaultConfig()
	config.Level = level
	config.Output = logger.StderrOutput

	log, err := logger.NewLogger(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %s\n", err)
		return
	}
	logger.SetGlobalLogger(log)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}
