package cli

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/infigaming-com/go-fxconvert/errors"
)

const (
	ExitSuccess      = 0
	ExitFailure      = 1 // rejected input or an unavailable upstream
	ExitCommandError = 2 // the command could not run at all
	ExitUsageError   = 64
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
	// Reported is set once the error has been shown to the user.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that are not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// IsReported tells main whether err still needs printing.
func IsReported(err error) bool {
	var exitErr *ExitError
	return stderrors.As(err, &exitErr) && exitErr.Reported
}

// Response is the JSON envelope of every command.
type Response struct {
	Status  string   `json:"status"`
	Data    any      `json:"data,omitempty"`
	Error   *Error   `json:"error,omitempty"`
	Notices []string `json:"notices,omitempty"`
}

type Error struct {
	Code    int64  `json:"code,omitempty"`
	Message string `json:"message"`
}

// OutputFormatter renders command results as JSON or text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	notices   []string
}

// Notice is an advisory for the user, e.g. that favorites are not
// persisted. Text mode prints it to ErrWriter right away.
func (f *OutputFormatter) Notice(msg string) {
	if msg == "" {
		return
	}
	if f.Format == FormatJSON {
		f.notices = append(f.notices, msg)
		return
	}
	fmt.Fprintln(f.ErrWriter, msg)
}

// Success writes data as JSON, or calls text in text mode.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.Format == FormatJSON {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data, Notices: f.notices})
	}
	text(f.Writer)
	return nil
}

// Fail reports err and returns an ExitError with code.
func (f *OutputFormatter) Fail(code int, err error) error {
	if f.Format == FormatJSON {
		_ = json.NewEncoder(f.Writer).Encode(Response{
			Status:  "error",
			Error:   &Error{Code: errors.CodeOf(err), Message: err.Error()},
			Notices: f.notices,
		})
	} else {
		fmt.Fprintf(f.ErrWriter, "Error: %s\n", err.Error())
	}
	exitErr := WrapExitError(code, "command failed", err)
	exitErr.Reported = true
	return exitErr
}
