package core

import (
	"errors"
	"fmt"
)

// Error is a coded error carried across package boundaries so callers can
// map failures to response codes without matching on messages.
type Error struct {
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func NewError(err error, code string, details map[string]any) *Error {
	msg := code
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Message: msg,
		Code:    code,
		Details: details,
		Err:     err,
	}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by code so sentinel-style comparisons work.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return e.Code != "" && e.Code == other.Code
}

// ErrorCode returns the code of the outermost *Error in err's chain.
func ErrorCode(err error) string {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return ""
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var coreErr *Error
		if !errors.As(err, &coreErr) {
			return false
		}
		if coreErr.Code == code {
			return true
		}
		err = coreErr.Err
	}
	return false
}
