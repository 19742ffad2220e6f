package dto

import "github.com/erp/backoffice/internal/domain/finance"

// Response represents a standard API response
type Response struct {
	Success       bool               `json:"success"`
	Data          any                `json:"data,omitempty"`
	Message       string             `json:"message,omitempty"`
	Code          string             `json:"code,omitempty"`
	SecurityError bool               `json:"securityError,omitempty"`
	Warnings      []finance.Warning  `json:"warnings,omitempty"`
	Details       []ValidationDetail `json:"details,omitempty"`
	RequestID     string             `json:"request_id,omitempty"`
}

// ValidationDetail describes a single invalid request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewSuccessResponseWithWarnings creates a success response that carries
// degraded-mode warnings next to the data
func NewSuccessResponseWithWarnings(data any, warnings []finance.Warning) Response {
	return Response{
		Success:  true,
		Data:     data,
		Warnings: warnings,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// NewErrorResponseWithRequestID creates an error response tagged with the request ID
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	resp := NewErrorResponse(code, message)
	resp.RequestID = requestID
	return resp
}

// NewSecurityErrorResponse creates the response for a tenant isolation failure.
// The message never echoes tenant identifiers.
func NewSecurityErrorResponse(message, requestID string) Response {
	return Response{
		Success:       false,
		Code:          ErrCodeAccessDenied,
		Message:       message,
		SecurityError: true,
		RequestID:     requestID,
	}
}

// NewValidationErrorResponse creates a validation error response with field details
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	return Response{
		Success:   false,
		Code:      ErrCodeValidation,
		Message:   message,
		Details:   details,
		RequestID: requestID,
	}
}

// IDRequest represents a request with a numeric ID path parameter
type IDRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}
