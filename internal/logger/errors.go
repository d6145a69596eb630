package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrAppNameIsEmpty is returned if Log.AppName was not defined.
	ErrAppNameIsEmpty = errors.New("config Log.AppName can not be empty")

	// ErrServiceNameIsEmpty is returned if Log.ServiceName was not defined.
	ErrServiceNameIsEmpty = errors.New("config Log.ServiceName can not be empty")
)

// errorOutput receives events zerolog failed to write.
var errorOutput io.Writer = os.Stderr //nolint:gochecknoglobals

// ErrorHandler reports a log event that could not be written to any writer.
func ErrorHandler(err error) {
	_, _ = fmt.Fprintf(errorOutput, "logger: dropped log event: %v\n", err)
}
