package cli

import (
	"fmt"
	"io"

	"github.com/grovetools/pyfinder/errors"
)

// ErrorHandler turns errors into user-facing messages.
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

func NewErrorHandler(out io.Writer, verbose bool) *ErrorHandler {
	return &ErrorHandler{Verbose: verbose, Out: out}
}

// Handle prints a message for err and returns it unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	t := DefaultTheme
	prefix := t.Error.Render("Error:")

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "%s configuration file not found: %v\n", prefix, detail(err, "path"))
		fmt.Fprintln(h.Out, t.Muted.Render("Run 'pyfinder config schema' to see the supported settings."))
	case errors.ErrCodeConfigInvalid:
		fmt.Fprintf(h.Out, "%s %v\n", prefix, err)
		fmt.Fprintln(h.Out, t.Muted.Render("Check the file against 'pyfinder config schema'."))
	case errors.ErrCodeExecutableNotFound:
		fmt.Fprintf(h.Out, "%s no interpreter at %v\n", prefix, detail(err, "executable"))
	default:
		fmt.Fprintf(h.Out, "%s %v\n", prefix, err)
	}

	if h.Verbose {
		if fe, ok := err.(*errors.FinderError); ok {
			fmt.Fprintf(h.Out, "\nError details:\n%s\n", fe.ToJSON())
		}
	}
	return err
}

func detail(err error, key string) interface{} {
	if fe, ok := err.(*errors.FinderError); ok {
		if v, ok := fe.Details[key]; ok {
			return v
		}
	}
	return "?"
}
