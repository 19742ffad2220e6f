package handler

import (
	"errors"
	"net/http"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithWarnings sends a success response carrying degraded-mode warnings
func (h *BaseHandler) SuccessWithWarnings(c *gin.Context, data any, warnings []finance.Warning) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithWarnings(data, warnings))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any, warnings ...finance.Warning) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponseWithWarnings(data, warnings))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ValidationError sends a 400 response for a failed request binding
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError converts service errors to HTTP responses:
// security errors are 403 with securityError set, schema errors 422,
// domain errors follow the error-code table, anything else is 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := middleware.GetRequestID(c)
	log := logger.L(c.Request.Context())

	var secErr *finance.SecurityError
	if errors.As(err, &secErr) {
		log.Warn("Request rejected by tenant isolation", zap.String("kind", string(secErr.Kind)))
		c.JSON(http.StatusForbidden, dto.NewSecurityErrorResponse(secErr.Message, requestID))
		return
	}

	var schemaErr *finance.SchemaError
	if errors.As(err, &schemaErr) {
		log.Warn("Operation needs schema the store does not have", zap.Error(schemaErr))
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeSchemaUnavailable, schemaErr.Error(), requestID))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	log.Error("Unhandled error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}
