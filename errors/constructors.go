package errors

import (
	"fmt"
	"os/exec"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *FinderError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *FinderError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// LocatorFailed wraps an error or recovered panic raised by a locator.
func LocatorFailed(locator string, cause error) *FinderError {
	return Wrap(cause, ErrCodeLocatorFailed, fmt.Sprintf("locator '%s' failed", locator)).
		WithDetail("locator", locator)
}

// ResolveFailed reports that an executable could not be identified.
func ResolveFailed(executable, reason string) *FinderError {
	return New(ErrCodeResolveFailed, fmt.Sprintf("unable to resolve %s: %s", executable, reason)).
		WithDetail("executable", executable)
}

// ExecutableNotFound reports a resolve target that does not exist on disk.
func ExecutableNotFound(executable string) *FinderError {
	return New(ErrCodeExecutableNotFound, fmt.Sprintf("executable does not exist: %s", executable)).
		WithDetail("executable", executable)
}

// MalformedFrame reports an unparseable transport frame.
func MalformedFrame(reason string, cause error) *FinderError {
	return Wrap(cause, ErrCodeMalformedFrame, fmt.Sprintf("malformed frame: %s", reason))
}

// ConnectionClosed reports that the peer went away.
func ConnectionClosed(cause error) *FinderError {
	return Wrap(cause, ErrCodeConnectionClosed, "connection closed")
}

func MethodNotFound(method string) *FinderError {
	return New(ErrCodeMethodNotFound, fmt.Sprintf("method not found: %s", method)).
		WithDetail("method", method)
}

// InvalidParams wraps a request parameter decoding or validation failure.
func InvalidParams(method string, cause error) *FinderError {
	return Wrap(cause, ErrCodeInvalidInput, fmt.Sprintf("invalid params for %s", method)).
		WithDetail("method", method)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *FinderError {
	fe := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	if exitErr, ok := err.(*exec.ExitError); ok {
		fe = fe.WithDetail("exitCode", exitErr.ExitCode())
	}

	return fe
}
