package cli

import (
	"fmt"
	"os"

	"github.com/hivetools/hive/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
	}
}

// Handle provides user-friendly error messages based on error type
func (h *ErrorHandler) Handle(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(os.Stderr, "❌ Configuration file not found.\n")
		fmt.Fprintf(os.Stderr, "Run any hive command without --config to create a default one.\n")
		return err

	case errors.ErrCodeManagerUnavailable:
		fmt.Fprintf(os.Stderr, "❌ tmux is not available. Install tmux and make sure it is on your PATH.\n")
		return err

	case errors.ErrCodeCreateConflict:
		if hiveErr, ok := err.(*errors.HiveError); ok {
			fmt.Fprintf(os.Stderr, "❌ Session '%s' already exists\n", hiveErr.Details["session"])
			fmt.Fprintf(os.Stderr, "Attach to it with 'hive attach %s' or pick another name.\n", hiveErr.Details["session"])
		}
		return err

	case errors.ErrCodeSessionVanished:
		if hiveErr, ok := err.(*errors.HiveError); ok {
			fmt.Fprintf(os.Stderr, "❌ Session '%s' no longer exists\n", hiveErr.Details["session"])
		}
		fmt.Fprintf(os.Stderr, "Run 'hive status' to see live sessions, or 'hive cleanup' to clear leftovers.\n")
		return err

	case errors.ErrCodeMetadataCorrupt:
		fmt.Fprintf(os.Stderr, "❌ Session metadata is unreadable\n")
		fmt.Fprintf(os.Stderr, "Run 'hive cleanup' to remove broken session records.\n")
		return err

	default:
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)

		// If verbose mode, show full error details
		if h.Verbose {
			if hiveErr, ok := err.(*errors.HiveError); ok {
				fmt.Fprintf(os.Stderr, "\nError details:\n%s\n", hiveErr.ToJSON())
			}
		}
		return err
	}
}
