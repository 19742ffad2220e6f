package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandler_Success(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "/")

	h.Success(c, gin.H{"ok": true})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Warnings)
}

func TestBaseHandler_CreatedWithWarnings(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodPost, "/")

	h.Created(c, gin.H{"id": 1}, finance.NewWarning(finance.WarningCompanyScope, "scoped by company"))

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, finance.WarningCompanyScope, resp.Warnings[0].Code)
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		securityError  bool
	}{
		{
			name:           "missing tenant",
			err:            finance.NewMissingTenantError(0),
			expectedStatus: http.StatusForbidden,
			expectedCode:   dto.ErrCodeAccessDenied,
			securityError:  true,
		},
		{
			name:           "wrapped persistence mismatch",
			err:            fmt.Errorf("save: %w", finance.NewPersistenceMismatchError(42, nil)),
			expectedStatus: http.StatusForbidden,
			expectedCode:   dto.ErrCodeAccessDenied,
			securityError:  true,
		},
		{
			name:           "schema unavailable",
			err:            finance.NewSchemaError("purchases", "status", "realization status unavailable"),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   dto.ErrCodeSchemaUnavailable,
		},
		{
			name:           "domain not found",
			err:            shared.NewDomainError("NOT_FOUND", "budget not found"),
			expectedStatus: http.StatusNotFound,
			expectedCode:   dto.ErrCodeNotFound,
		},
		{
			name:           "domain forbidden",
			err:            shared.NewDomainError("FORBIDDEN", "not the owner"),
			expectedStatus: http.StatusForbidden,
			expectedCode:   dto.ErrCodeForbidden,
		},
		{
			name:           "domain invalid input",
			err:            shared.NewDomainError("INVALID_INPUT", "amount must be positive"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   dto.ErrCodeInvalidInput,
		},
		{
			name:           "domain already exists",
			err:            shared.NewDomainError("ALREADY_EXISTS", "category exists"),
			expectedStatus: http.StatusConflict,
			expectedCode:   dto.ErrCodeAlreadyExists,
		},
		{
			name:           "unknown error",
			err:            errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext(http.MethodGet, "/")
			c.Set(middleware.RequestIDKey, "req-1")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedCode, resp.Code)
			assert.Equal(t, tt.securityError, resp.SecurityError)
			assert.Equal(t, "req-1", resp.RequestID)
		})
	}
}

func TestBaseHandler_HandleErrorHidesInternalDetails(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "/")

	h.HandleError(c, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password")
}

func TestBaseHandler_HandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "/")

	h.HandleError(c, nil)

	assert.False(t, c.Writer.Written())
	assert.Equal(t, http.StatusOK, w.Code)
}
