package core

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable code returned to API clients.
type ErrorCode string

const (
	CodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	CodeCSVParse         ErrorCode = "CSV_PARSE_ERROR"
	CodeEmptyCSV         ErrorCode = "EMPTY_CSV"
	CodeMissingColumns   ErrorCode = "MISSING_COLUMNS"
	CodeValidationErrors ErrorCode = "VALIDATION_ERRORS"
	CodeTooManyImports   ErrorCode = "TOO_MANY_IMPORTS"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// ImportError is a request-level failure that stops an import before any
// student is written. Message is safe to show to the caller.
type ImportError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ImportError) Error() string {
	return e.Message
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// ValidationFailure rejects a whole batch because at least one row is invalid.
type ValidationFailure struct {
	Total   int
	Valid   int
	Invalid int
	Errors  []RowError
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("%d of %d %s validation errors. No students were imported.",
		e.Invalid, e.Total, plural(e.Total, "row has", "rows have"))
}

// ErrorCodeOf returns the code carried by err, or CodeInternal when err is
// not one of the import error types.
func ErrorCodeOf(err error) ErrorCode {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Code
	}
	var vf *ValidationFailure
	if errors.As(err, &vf) {
		return CodeValidationErrors
	}
	return CodeInternal
}

func invalidRequest(msg string) *ImportError {
	return &ImportError{Code: CodeInvalidRequest, Message: msg}
}
