package core

// error_messages.go maps technical errors to user-facing text.
//
// Batch-level failures are shown to users as one line built from the table
// below, "Message (Code: XXX). Action". Per-row CRM outcomes are not mapped;
// they are shown verbatim. Codes:
//
//	CRM001 - connection refused: CRM endpoint refused the connection
//	CRM002 - no such host: CRM host could not be resolved
//	CRM003 - timeout / deadline: CRM did not answer in time
//	FILE001 - file too large
//	FILE002 - invalid csv
//	FILE005 - empty file
//	UPL002 - too many uploads
//	UPL004 - context canceled
//	RATE001 - rate limit
//	ERR000 - anything else
//
// Patterns are matched case-insensitively with strings.Contains, first
// match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for batch-level aborts.
var (
	// ErrEmptyFile is returned when the upload has no header row.
	ErrEmptyFile = errors.New("empty file: no header row")

	// ErrFileTooLarge is returned when the upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
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
	// CRM transport
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "The CRM refused the connection",
			Action:  "Check CRM_ENDPOINT and try again later",
			Code:    "CRM001",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "The CRM host could not be resolved",
			Action:  "Check CRM_ENDPOINT and DNS",
			Code:    "CRM002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The CRM did not respond in time",
			Action:  "Try again later",
			Code:    "CRM003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The CRM did not respond in time",
			Action:  "Try again later",
			Code:    "CRM003",
		},
	},

	// File
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with balanced quotes",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a CSV with a header row: object,name,listValues,type",
			Code:    "FILE005",
		},
	},

	// Upload
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

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the zero UserMessage for a nil error and ERR000 when nothing matches.
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a specific pattern rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
