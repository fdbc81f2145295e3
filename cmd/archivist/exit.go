package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"archivist/internal/outcome"
)

// exitError carries a process exit status out of a command. The command has
// already reported the failure, so main does not print it again.
type exitError struct {
	status outcome.Status
	err    error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return e.status.String()
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitCode maps a command error to the process exit code, printing errors
// that have not been reported yet.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return outcome.StatusSuccess.ExitCode()
	}
	var coded *exitError
	if errors.As(err, &coded) {
		return coded.status.ExitCode()
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, err)
	}
	return outcome.StatusGenericError.ExitCode()
}
