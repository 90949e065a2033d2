package cli

import "fmt"

// ExitError is an error that carries a specific process exit code.
// Cobra's RunE returns this to signal the desired exit code to main.
//
// Grounded on the teacher's cli/exit.go, reused verbatim.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Exit codes, generalized from the teacher's FRD §3.2 table to this
// engine's error surface (apperr.Kind, JSON decode, I/O).
const (
	exitSuccess     = 0
	exitInputParse  = 1
	exitValidation  = 2
	exitRuntime     = 3
	exitFileNotFound = 4
)
