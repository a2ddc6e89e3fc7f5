// Typed tool errors fed back to the model. A tool error never fails a
// turn: it becomes a structured tool-result so the model can
// self-correct or explain the limitation to the user.

package tools

import (
	"encoding/json"
	"fmt"
)

// ErrorCode is the closed set of tool failure codes.
type ErrorCode string

const (
	// CodeValidation means the model supplied malformed arguments.
	// Self-correctable within the same turn.
	CodeValidation ErrorCode = "validation_error"

	// CodeUnknownTool means the model requested a tool that does not
	// exist in the catalog.
	CodeUnknownTool ErrorCode = "unknown_tool"

	// CodeProviderTimeout means the provider call exceeded its deadline.
	CodeProviderTimeout ErrorCode = "provider_timeout"

	// CodeProviderUnavailable means the provider could not be reached
	// or returned an unusable response.
	CodeProviderUnavailable ErrorCode = "provider_unavailable"

	// CodeCredentialsInvalid means a private fantasy league rejected
	// the stored credentials.
	CodeCredentialsInvalid ErrorCode = "credentials_invalid"

	// CodeLeagueNotFound means the fantasy league identifier does not
	// exist.
	CodeLeagueNotFound ErrorCode = "league_not_found"

	// CodeRateLimited means the fantasy provider refused for quota
	// reasons.
	CodeRateLimited ErrorCode = "rate_limited"
)

// ToolError is a structured tool failure.
type ToolError struct {
	Code    ErrorCode `json:"error"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ResultJSON renders the error as a tool-result payload for the model.
func (e *ToolError) ResultJSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":%q,"message":"encoding failed"}`, e.Code)
	}
	return string(data)
}

// Validationf builds a validation error.
func Validationf(format string, args ...any) *ToolError {
	return &ToolError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}
