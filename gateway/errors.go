package gateway

import (
	"encoding/json"
	"fmt"
)

// GatewayError represents a failed gateway call. The original remote error
// text is always preserved in Message or Cause, never replaced.
type GatewayError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"http_status,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is / errors.As.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// FormatError returns the plain message, or full JSON when debugMode is set.
func (e *GatewayError) FormatError(debugMode bool) string {
	if !debugMode {
		return e.Error()
	}

	data := map[string]interface{}{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.HTTPStatus != 0 {
		data["http_status"] = e.HTTPStatus
	}
	if len(e.Details) > 0 {
		data["details"] = e.Details
	}
	if e.Cause != nil {
		data["cause"] = e.Cause.Error()
	}

	b, _ := json.MarshalIndent(data, "", "  ")
	return string(b)
}

// Error codes returned by the REST client.
const (
	CodeRequestFailed   = "GATEWAY_REQUEST_FAILED"
	CodeBadResponse     = "GATEWAY_BAD_RESPONSE"
	CodeRemoteError     = "GATEWAY_REMOTE_ERROR"
	CodeInvalidEndpoint = "GATEWAY_INVALID_ENDPOINT"
)

func requestError(msg string, cause error) *GatewayError {
	return &GatewayError{Code: CodeRequestFailed, Message: msg, Cause: cause}
}

func responseError(msg string, cause error) *GatewayError {
	return &GatewayError{Code: CodeBadResponse, Message: msg, Cause: cause}
}
