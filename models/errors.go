package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeEngineLaunch    = "ENGINE_LAUNCH_FAILED"
	ErrCodeRender          = "RENDER_FAILED"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// MsgHTMLRequired is returned verbatim when a request carries no markup.
const MsgHTMLRequired = "HTML content is required"

// MsgNoInvoiceData is returned when an invoice request carries no invoices.
const MsgNoInvoiceData = "No data provided"

// RenderError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type RenderError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// NewRenderError creates a new RenderError.
func NewRenderError(code, message string, err error) *RenderError {
	return &RenderError{Code: code, Message: message, Err: err}
}

// InvalidInput is shorthand for an INVALID_INPUT error without a cause.
func InvalidInput(message string) *RenderError {
	return NewRenderError(ErrCodeInvalidInput, message, nil)
}

// CodeOf returns the code of the first RenderError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) string {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Code
	}
	return ErrCodeInternal
}

// ToResponse converts an internal error to the API-facing error body.
func (e *RenderError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message, Code: e.Code}
}
