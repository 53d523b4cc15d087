package toolerr

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Code defines a canonical tool error code used across the MCP surface.
type Code string

const (
	// Validation & input
	Validation    Code = "VALIDATION"
	InvalidHandle Code = "INVALID_HANDLE"
	CursorInvalid Code = "CURSOR_INVALID"

	// Resource & limits
	BusyResource  Code = "BUSY_RESOURCE"
	Timeout       Code = "TIMEOUT"
	LimitExceeded Code = "LIMIT_EXCEEDED"

	// IO & formats
	OpenFailed        Code = "OPEN_FAILED"
	LoadFailed        Code = "LOAD_FAILED"
	ExportFailed      Code = "EXPORT_FAILED"
	NotFound          Code = "NOT_FOUND"
	UnsupportedFormat Code = "UNSUPPORTED_FORMAT"
	PermissionDenied  Code = "PERMISSION_DENIED"

	// Analysis
	InsufficientData Code = "INSUFFICIENT_DATA"
	AnalysisFailed   Code = "ANALYSIS_FAILED"
)

// Entry documents a code's standard message, retry semantics, and next steps.
type Entry struct {
	Code      Code
	Message   string
	Retryable bool
	NextSteps []string
}

// catalog maps canonical codes to guidance. Messages can be overridden per error.
var catalog = map[Code]Entry{
	Validation:    {Code: Validation, Message: "invalid inputs", Retryable: true, NextSteps: []string{"Correct the inputs per schema and retry", "See examples in tool description"}},
	InvalidHandle: {Code: InvalidHandle, Message: "dataset handle not found or expired", Retryable: true, NextSteps: []string{"Reopen the dataset via open_dataset and retry"}},
	CursorInvalid: {Code: CursorInvalid, Message: "cursor is invalid for current context", Retryable: true, NextSteps: []string{"Restart pagination from the first page", "Reopen the dataset if the source files changed"}},

	BusyResource:  {Code: BusyResource, Message: "concurrent request limit reached", Retryable: true, NextSteps: []string{"Retry after a short delay"}},
	Timeout:       {Code: Timeout, Message: "operation exceeded configured time limit", Retryable: true, NextSteps: []string{"Narrow the filter or increase the timeout"}},
	LimitExceeded: {Code: LimitExceeded, Message: "operation exceeded configured limits", Retryable: true, NextSteps: []string{"Reduce rows or page size"}},

	OpenFailed:        {Code: OpenFailed, Message: "failed to open dataset directory", Retryable: true, NextSteps: []string{"Verify the data directory exists and contains enrolment CSV files"}},
	LoadFailed:        {Code: LoadFailed, Message: "failed to load source files", Retryable: true, NextSteps: []string{"Check file permissions and formats (.csv, .xlsx)"}},
	ExportFailed:      {Code: ExportFailed, Message: "failed to write export file", Retryable: true, NextSteps: []string{"Verify the export directory is writable"}},
	NotFound:          {Code: NotFound, Message: "requested table or column not found", Retryable: true, NextSteps: []string{"Call list_structure to inspect available tables and columns"}},
	UnsupportedFormat: {Code: UnsupportedFormat, Message: "unsupported source file format", Retryable: false, NextSteps: []string{"Provide .csv or .xlsx extracts"}},
	PermissionDenied:  {Code: PermissionDenied, Message: "insufficient permissions to access path", Retryable: false, NextSteps: []string{"Adjust permissions or choose another directory"}},

	InsufficientData: {Code: InsufficientData, Message: "not enough data for this metric family", Retryable: false, NextSteps: []string{"Widen the filter or supply the missing columns"}},
	AnalysisFailed:   {Code: AnalysisFailed, Message: "analysis failed", Retryable: true, NextSteps: []string{"Verify the resolved columns via list_structure", "Narrow the filter and retry"}},
}

// normalize builds a standard error string including next steps for MCP clients that
// surface only a message string. Format: "CODE: message" followed by a guidance tail.
func normalize(code Code, msg string) string {
	base := strings.TrimSpace(msg)
	e, ok := catalog[code]
	if !ok {
		if base == "" {
			return string(code)
		}
		return fmt.Sprintf("%s: %s", string(code), base)
	}
	if base == "" {
		base = e.Message
	}
	guidance := ""
	if len(e.NextSteps) > 0 {
		guidance = " | nextSteps: " + strings.Join(e.NextSteps, "; ")
	}
	return fmt.Sprintf("%s: %s%s", e.Code, base, guidance)
}

// New returns an MCP error result for a given code and optional message override.
func New(code Code, message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, message))
}

// Wrapf formats details and returns an MCP error result for the code.
func Wrapf(code Code, format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, fmt.Sprintf(format, args...)))
}

// FromText parses a "CODE: message" string and enriches it with catalog guidance.
func FromText(text string) *mcp.CallToolResult {
	t := strings.TrimSpace(text)
	if t == "" {
		return mcp.NewToolResultError(normalize(Validation, ""))
	}
	parts := strings.SplitN(t, ":", 2)
	code := Code(strings.TrimSpace(parts[0]))
	msg := ""
	if len(parts) > 1 {
		msg = strings.TrimSpace(parts[1])
	}
	return mcp.NewToolResultError(normalize(code, msg))
}
