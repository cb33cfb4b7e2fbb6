package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"golang-payroll-reconciler/pkg/errors"
	"golang-payroll-reconciler/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints a user-friendly message and returns the process exit
// code for the error.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if payrollErr, ok := errors.AsPayrollError(err); ok {
		return h.handlePayrollError(payrollErr)
	}

	return h.handleGenericError(err)
}

// handlePayrollError prints the structured error with its context and
// suggestion.
func (h *CLIErrorHandler) handlePayrollError(err *errors.PayrollError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nCause: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError prints errors that carry no taxonomy.
func (h *CLIErrorHandler) handleGenericError(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
