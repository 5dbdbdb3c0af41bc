package router

import (
	"errors"
	"net/http"

	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Response is the envelope returned by every API endpoint.
type Response struct {
	Status  int        `json:"status"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

func RespondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{Status: http.StatusOK, Message: message, Data: data})
}

func RespondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Response{Status: http.StatusCreated, Message: message, Data: data})
}

func RespondWithError(c *gin.Context, status int, code, message string, details map[string]any) {
	c.JSON(status, Response{
		Status:  status,
		Message: message,
		Error:   &ErrorInfo{Code: code, Message: message, Details: details},
	})
}

// RespondWithDomainError maps err's code to a status and writes the
// envelope. Server errors are logged.
func RespondWithDomainError(c *gin.Context, message string, err error) {
	info := ErrorInfoFrom(err)
	status := StatusForCode(info.Code)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error(message, "error", err, "path", c.FullPath())
	}
	c.JSON(status, Response{Status: status, Message: message, Error: info})
}

// RespondBadRequest writes a 400, or a 413 when err comes from reading a
// body past the configured limit.
func RespondBadRequest(c *gin.Context, message string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondWithError(c, http.StatusRequestEntityTooLarge, ErrPayloadTooLargeCode, "request body too large",
			map[string]any{"limit_bytes": tooLarge.Limit})
		return
	}
	var details map[string]any
	if err != nil {
		details = map[string]any{"reason": err.Error()}
	}
	RespondWithError(c, http.StatusBadRequest, ErrBadRequestCode, message, details)
}
