package logger

import "io"

// SetErrorOutput swaps the ErrorHandler output and returns a restore func.
func SetErrorOutput(w io.Writer) func() {
	old := errorOutput
	errorOutput = w

	return func() { errorOutput = old }
}
