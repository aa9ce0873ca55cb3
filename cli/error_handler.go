package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/tui/theme"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a message suited to the error code and returns err unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	label := theme.DefaultTheme.Error.Render("Error:")
	hint := func(format string, args ...interface{}) {
		fmt.Fprintln(h.Out, theme.DefaultTheme.Muted.Render(fmt.Sprintf(format, args...)))
	}

	bridgeErr, _ := err.(*errors.BridgeError)
	detail := func(key string) interface{} {
		if bridgeErr == nil {
			return nil
		}
		return bridgeErr.Details[key]
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "%s configuration not found\n", label)
		hint("Pass --config or create lombridge.yml in the project directory.")

	case errors.ErrCodeConnection:
		fmt.Fprintf(h.Out, "%s %s\n", label, errors.Describe(err))
		hint("Start the host with 'lombridge host start' or check client.address.")

	case errors.ErrCodeTimeout:
		fmt.Fprintf(h.Out, "%s %s\n", label, errors.Describe(err))
		hint("The host may still apply the command. Raise client.command_timeouts for slow commands.")

	case errors.ErrCodeCommandFailed:
		if cmd := detail("command"); cmd != nil {
			fmt.Fprintf(h.Out, "%s %v failed: %v\n", label, cmd, detail("host_message"))
		} else {
			fmt.Fprintf(h.Out, "%s %s\n", label, errors.Describe(err))
		}

	default:
		fmt.Fprintf(h.Out, "%s %s\n", label, errors.Describe(err))
	}

	if h.Verbose && bridgeErr != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", bridgeErr.ToJSON())
	}
	return err
}
