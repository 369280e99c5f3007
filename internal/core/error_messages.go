package core

// # Error Codes Reference
//
// User-facing error messages carry a code so clients can quote it to
// support. Codes are grouped by category:
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - System busy: Too many imports in progress
//	         Patterns: "too many concurrent imports"
//	IMP002 - Invalid document: The import document could not be read
//	         Patterns: "invalid import payload"
//	IMP003 - Document too large: The import document exceeds the size limit
//	         Patterns: "request body too large"
//	IMP004 - Unknown import: Import status not found
//	         Patterns: "import status not found", "invalid import status id"
//	IMP005 - Missing document: The stored import document is gone
//	         Patterns: "blob not found"
//	IMP006 - Unknown record: Restaurant or menu not found
//	         Patterns: "record not found"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key            Patterns: "duplicate key"
//	DB002 - Unique constraint        Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key              Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused       Patterns: "connection refused"
//	DB005 - Connection reset         Patterns: "connection reset"
//	DB006 - Timeout                  Patterns: "timeout"
//	DB007 - Deadlock                 Patterns: "deadlock"
//	DB008 - Not null                 Patterns: "not-null constraint", "null value in column"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled       Patterns: "context canceled"
//	REQ002 - Request timeout         Patterns: "context deadline exceeded"
//	RATE001 - Rate limited           Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the server logs, keyed by
// request_id, for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones
// ("context deadline exceeded" before "timeout").

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

var (
	msgTooManyImports = UserMessage{
		Message: "Too many imports in progress",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}
	msgInvalidPayload = UserMessage{
		Message: "The import document could not be read",
		Action:  "Send a JSON or YAML object with a restaurants list",
		Code:    "IMP002",
	}
	msgPayloadTooLarge = UserMessage{
		Message: "The import document is too large",
		Action:  "Split the restaurants across several imports",
		Code:    "IMP003",
	}
	msgStatusNotFound = UserMessage{
		Message: "Import status not found",
		Action:  "Check the id returned when the import was queued",
		Code:    "IMP004",
	}
	msgUniqueViolation = UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check for conflicting names in concurrent imports",
		Code:    "DB002",
	}
	msgForeignKey = UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Ensure the referenced menu or item was imported",
		Code:    "DB003",
	}
	msgNotNull = UserMessage{
		Message: "A required value is missing",
		Action:  "Ensure every restaurant, menu and item has a name",
		Code:    "DB008",
	}
)

var errorPatterns = []errorPattern{
	// Import
	{"too many concurrent imports", msgTooManyImports},
	{"request body too large", msgPayloadTooLarge},
	{"invalid import payload", msgInvalidPayload},
	{"import status not found", msgStatusNotFound},
	{"invalid import status id", msgStatusNotFound},
	{"blob not found", UserMessage{
		Message: "The stored import document is missing",
		Action:  "Queue the import again",
		Code:    "IMP005",
	}},
	{"record not found", UserMessage{
		Message: "Restaurant or menu not found",
		Action:  "Check the id in the request",
		Code:    "IMP006",
	}},

	// Database constraints
	{"duplicate key", UserMessage{
		Message: "A record with this key already exists",
		Action:  "Retry the import; concurrent imports may have raced",
		Code:    "DB001",
	}},
	{"unique constraint", msgUniqueViolation},
	{"violates unique", msgUniqueViolation},
	{"foreign key constraint", msgForeignKey},
	{"violates foreign key", msgForeignKey},
	{"not-null constraint", msgNotNull},
	{"null value in column", msgNotNull},

	// Request lifecycle, before the generic "timeout"
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller import or use the async endpoint",
		Code:    "REQ002",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},

	// Database connectivity
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
		Action:  "Try a smaller import or try again later",
		Code:    "DB006",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error into a user-friendly message.
// Returns an empty UserMessage for nil and the ERR000 default when nothing
// matches.
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

// FormatUserError renders "Message (Code: XXX). Action".
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

// UserError pairs a technical error, kept for logging, with the message
// shown to clients.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
