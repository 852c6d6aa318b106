package core

// error_messages.go maps commit errors to user-facing messages.
//
// When a single student fails to persist, the technical error is mapped to
// a user-facing message with a code that support staff can look up:
//
//	PAR001 - Parent account could not be created
//	DB001 - Duplicate student: the same student is already on the roster
//	DB002 - Unique constraint: a value must be unique but already exists
//	DB003 - Foreign key: a referenced record does not exist
//	DB004 - Connection refused: unable to connect to the database
//	DB005 - Connection reset: the database connection was interrupted
//	DB006 - Timeout: the operation timed out
//	DB007 - Deadlock: the database was busy with conflicting writes
//	IMP001 - Import cancelled by the client
//	IMP002 - Import timed out
//	ERR000 - Anything else; check the logs for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Checked first: wraps whatever made the parent insert fail.
	{"create parent", UserMessage{
		Message: "Parent account could not be created",
		Action:  "Create the parent account manually and re-import the student",
		Code:    "PAR001",
	}},

	// Constraint violations
	{"duplicate key", UserMessage{
		Message: "Student already exists with the same name, date of birth and parent email",
		Action:  "Remove the duplicate row or update the existing student",
		Code:    "DB001",
	}},
	{"unique constraint", UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check for duplicate entries in your CSV",
		Code:    "DB002",
	}},
	{"violates unique", UserMessage{
		Message: "A duplicate value was found",
		Action:  "Review your data for duplicate rows",
		Code:    "DB002",
	}},
	{"foreign key", UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Check that the parent account still exists",
		Code:    "DB003",
	}},

	// Connectivity
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try importing a smaller file or try again later",
		Code:    "DB006",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}},

	{"context canceled", UserMessage{
		Message: "Import was cancelled",
		Action:  "Please try again",
		Code:    "IMP001",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Import timed out",
		Action:  "Split the file into smaller batches",
		Code:    "IMP002",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. When no
// pattern matches, a generic fallback with code ERR000 is returned.
//
// Example:
//
//	msg := MapError(errors.New("duplicate key value violates unique constraint"))
//	// msg.Code == "DB001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matched a specific pattern rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
