package core

// error_messages.go maps technical errors to user-facing messages with a
// code that users can quote to support.
//
// # Validation Errors (VAL)
//
//	VAL004 - Missing column: the header row has no Description column
//	         Patterns: "missing required column"
//
// # File Errors (FILE)
//
//	FILE001 - File too large: upload exceeds the configured size limit
//	          Patterns: "file too large", "request body too large"
//	FILE002 - Invalid file: the file could not be read as a workbook or CSV
//	          Patterns: "invalid file"
//	FILE004 - No file: no file was selected
//	          Patterns: "no file provided"
//	FILE005 - Empty file: the file has no header row
//	          Patterns: "empty file"
//	FILE006 - Unsupported type: extension is not .xlsx or .csv
//	          Patterns: "unsupported file type"
//
// # Data Errors (DATA)
//
//	DATA001 - No data loaded: a query was made before any upload
//	          Patterns: "no dataset loaded"
//	DATA002 - No query: neither keywords nor filters were given
//	          Patterns: "no query"
//
// # Upload Errors (UPL)
//
//	UPL002 - System busy: every upload slot is taken
//	         Patterns: "too many concurrent uploads"
//	UPL004 - Request cancelled
//	         Patterns: "context canceled"
//	UPL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Request Errors (REQ)
//
//	REQ001 - Malformed request body
//	         Patterns: "invalid request body"
//
// # Rate Limiting (RATE)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default (ERR000)
//
//	ERR000 - Unknown error; check the server log for the request id.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dartsearch/internal/catalog"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Reference for support
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from the file",
			Action:  "Make sure the header row contains a Description column",
			Code:    "VAL004",
		},
	},

	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused sheets or columns, or split the file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused sheets or columns, or split the file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid file",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check that it is a valid .xlsx workbook or comma-separated .csv file",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please choose an .xlsx or .csv file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header row followed by data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Invalid file type",
			Action:  "Only .xlsx and .csv files are allowed",
			Code:    "FILE006",
		},
	},

	// Data errors
	{
		pattern: "no dataset loaded",
		msg: UserMessage{
			Message: "No data loaded",
			Action:  "Please upload a file first",
			Code:    "DATA001",
		},
	},
	{
		pattern: "no query",
		msg: UserMessage{
			Message: "Nothing to search for",
			Action:  "Please enter search keywords or apply filters",
			Code:    "DATA002",
		},
	},

	// Upload errors
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Refresh the page and try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. If no
// pattern matches, the ERR000 fallback is returned; a nil error maps to the
// zero UserMessage.
//
//	msg := MapError(catalog.ErrNoDataset)
//	// msg.Code == "DATA001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var mc *catalog.MissingColumnError
	if errors.As(err, &mc) {
		return missingColumnMessage(mc.Column)
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// missingColumnMessage names the absent column in the VAL004 message.
func missingColumnMessage(column string) UserMessage {
	return UserMessage{
		Message: fmt.Sprintf("Required column %q is missing from the file", column),
		Action:  "Make sure the header row contains a Description column",
		Code:    "VAL004",
	}
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern, as opposed to
// falling back to ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with the message
// shown to users.
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

// NewUserError maps err; it returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
