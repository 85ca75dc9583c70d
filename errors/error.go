package errors

import stderrors "errors"

// Error codes shared by the converter packages. Each package owns a block of
// one thousand codes.
const (
	ErrCodeInvalidAmount int64 = 1000 + iota
	ErrCodeAmountRequired
	ErrCodeAmountNotPositive
)

const (
	ErrCodeUnsupportedCurrency int64 = 2000 + iota
	ErrCodeFavoritesFull
	ErrCodeDuplicateFavorite
)

const (
	ErrCodeRatesUnavailable int64 = 3000 + iota
	ErrCodeRatesMalformed
	ErrCodeRateMissing
)

const (
	ErrCodeValueNotFoundInContext int64 = 4000 + iota
	ErrCodeInvalidValueInContext
)

const (
	ErrCodeInvalidConfig int64 = 5000 + iota
	ErrCodeExportFailed
)

type Error struct {
	Code       int64  `json:"code"`
	Message    string `json:"message"`
	Cause      error  // the underlying error
	Details    any    `json:"details,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

func NewError(code int64, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func (e *Error) WithStatusCode(statusCode int) *Error {
	e.StatusCode = statusCode
	return e
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) GetCode() int64 {
	return e.Code
}

func (e *Error) GetMessage() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) GetDetails() any {
	return e.Details
}

func (e *Error) GetStatusCode() int {
	return e.StatusCode
}

// Is matches another *Error by code so callers can compare against the
// package-level sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) int64 {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return 0
}
