package core

// error_messages.go maps technical errors to messages safe to show to the
// person who uploaded the file. Every message carries a code that support
// staff can look up here.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large             "file too large"
//	FILE002 - Unsupported file type      "unsupported file type"
//	FILE003 - No data rows               "no data rows"
//	FILE004 - No file                    "no file provided"
//	FILE005 - Unreadable spreadsheet     "decode"
//
// # Student Errors (STU001-STU099)
//
//	STU001 - Student not found           "student not found"
//	STU002 - Student directory down      "load students"
//
// # Ledger Errors (LED001-LED099)
//
//	LED001 - Ledger unavailable          "load ledger entries"
//	LED002 - Insert rejected             "bulk insert"
//	LED003 - Update rejected             "update "
//	LED004 - Duplicate ledger row        "duplicate key"
//	LED005 - Connection refused          "connection refused"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - System busy                 "too many imports"
//	IMP002 - Job not found               "import job not found"
//	IMP003 - Request cancelled           "context canceled"
//	IMP004 - Request timed out           "context deadline exceeded"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error. Check the application log for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains. The first
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
	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "File type is not supported",
			Action:  "Upload a .csv, .xlsx or .xls file",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no data rows",
		msg: UserMessage{
			Message: "The file has no payment rows",
			Action:  "Check that the first sheet has a header row followed by data",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "decode",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Re-save the file from your spreadsheet program and try again",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Student Errors
	// =========================================================================
	{
		pattern: "student not found",
		msg: UserMessage{
			Message: "No active student matches this row",
			Action:  "Check the student code or full name against the student list",
			Code:    "STU001",
		},
	},
	{
		pattern: "load students",
		msg: UserMessage{
			Message: "The student list could not be loaded",
			Action:  "Please try again in a few moments",
			Code:    "STU002",
		},
	},

	// =========================================================================
	// Ledger Errors
	// =========================================================================
	{
		pattern: "load ledger entries",
		msg: UserMessage{
			Message: "Existing payments could not be loaded",
			Action:  "Please try again in a few moments",
			Code:    "LED001",
		},
	},
	{
		pattern: "bulk insert",
		msg: UserMessage{
			Message: "New payments in this batch were rejected",
			Action:  "Re-upload the file; rows already imported will be skipped",
			Code:    "LED002",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A payment for this student and cycle already exists",
			Action:  "Re-upload the file to reconcile against the current ledger",
			Code:    "LED004",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the database",
			Action:  "Please try again in a few moments",
			Code:    "LED005",
		},
	},

	// =========================================================================
	// Import Errors
	// =========================================================================
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "import job not found",
		msg: UserMessage{
			Message: "Import job not found",
			Action:  "The job may have expired. Please upload the file again",
			Code:    "IMP002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "IMP004",
		},
	},

	// Generic update failures match last so the patterns above take priority.
	{
		pattern: "update ",
		msg: UserMessage{
			Message: "An existing payment could not be updated",
			Action:  "Re-upload the file to retry the remaining rows",
			Code:    "LED003",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	return mapMessage(err.Error())
}

func mapMessage(s string) UserMessage {
	lower := strings.ToLower(s)
	for _, ep := range errorPatterns {
		if strings.Contains(lower, ep.pattern) {
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

// RowErrorCode returns the support code for a row-level import error.
func RowErrorCode(e ImportError) string {
	return mapMessage(e.Message).Code
}
