package router

import (
	"errors"
	"net/http"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
)

// Transport error codes. Domain failures use the codes from engine/core.
const (
	ErrInternalCode           = "INTERNAL_ERROR"
	ErrBadRequestCode         = "BAD_REQUEST"
	ErrNotFoundCode           = "NOT_FOUND"
	ErrRateLimitedCode        = "RATE_LIMITED"
	ErrPayloadTooLargeCode    = "PAYLOAD_TOO_LARGE"
	ErrServiceUnavailableCode = "SERVICE_UNAVAILABLE"
)

type ErrorInfo struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusForCode maps an error code to its HTTP status.
func StatusForCode(code string) int {
	switch code {
	case ErrBadRequestCode, core.ErrCodeAgentInvalidConfig, core.ErrCodeUnsupportedProvider:
		return http.StatusBadRequest
	case ErrNotFoundCode,
		core.ErrCodeAgentNotFound,
		core.ErrCodeExecutionNotFound,
		core.ErrCodeCheckpointNotFound:
		return http.StatusNotFound
	case core.ErrCodeExecutionInvalidState, core.ErrCodeExecutionCancelled:
		return http.StatusConflict
	case core.ErrCodeMissingCredentials:
		return http.StatusUnprocessableEntity
	case core.ErrCodeExecutionTimeout:
		return http.StatusGatewayTimeout
	case core.ErrCodeLLMGeneration, core.ErrCodeAgentBuild:
		return http.StatusBadGateway
	case ErrPayloadTooLargeCode:
		return http.StatusRequestEntityTooLarge
	case ErrRateLimitedCode:
		return http.StatusTooManyRequests
	case ErrServiceUnavailableCode:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorInfoFrom converts err into the response error body. Uncoded errors
// become INTERNAL_ERROR.
func ErrorInfoFrom(err error) *ErrorInfo {
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr.Code != "" {
		return &ErrorInfo{
			Code:    coreErr.Code,
			Message: coreErr.Message,
			Details: coreErr.Details,
		}
	}
	return &ErrorInfo{Code: ErrInternalCode, Message: err.Error()}
}
