package types

import "github.com/cockroachdb/errors"

// RemoteOutcome - Structure for the result of a command run on a remote host
type RemoteOutcome struct {
	Host     string `json:"host"`
	Command  string `json:"command"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exit_code"`
}

var (
	// ErrInvalidArgument marks malformed input, always raised before any remote call
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRemoteExecution marks a failure classified from a remote exit code
	ErrRemoteExecution = errors.New("remote execution failed")

	// ErrAssertion marks an outcome that did not match the asserted state
	ErrAssertion = errors.New("assertion failed")
)

// InvalidArgumentf - Create an error marked as ErrInvalidArgument
func InvalidArgumentf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArgument)
}

// RemoteExecutionf - Create an error marked as ErrRemoteExecution
func RemoteExecutionf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrRemoteExecution)
}

// Assertionf - Create an error marked as ErrAssertion
func Assertionf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrAssertion)
}
