package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope is the response body every finance endpoint writes
type Envelope struct {
	Success       bool              `json:"success"`
	Code          string            `json:"code"`
	Message       string            `json:"message"`
	SecurityError bool              `json:"securityError"`
	Data          json.RawMessage   `json:"data"`
	Warnings      []finance.Warning `json:"warnings"`
}

// DataAs decodes the payload into T
func DataAs[T any](t *testing.T, env Envelope) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

// WarningCodes lists the warning codes in response order
func (e Envelope) WarningCodes() []string {
	codes := make([]string, 0, len(e.Warnings))
	for _, w := range e.Warnings {
		codes = append(codes, string(w.Code))
	}
	return codes
}

// Shop identifies the caller the way the point-of-sale client does. Zero
// fields send no header.
type Shop struct {
	Device  int64
	Company int64
	User    string
}

func (s Shop) apply(req *http.Request) {
	if s.Device != 0 {
		req.Header.Set(middleware.DeviceHeaderKey, strconv.FormatInt(s.Device, 10))
	}
	if s.Company != 0 {
		req.Header.Set(middleware.CompanyHeader, strconv.FormatInt(s.Company, 10))
	}
	if s.User != "" {
		req.Header.Set(middleware.UserHeaderKey, s.User)
	}
}

// Call sends a JSON request as shop and decodes the envelope
func Call(t *testing.T, h http.Handler, shop Shop, method, path string, body any) (int, Envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	shop.apply(req)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

// AssertSecurityRejection checks a tenant isolation refusal
func AssertSecurityRejection(t *testing.T, status int, env Envelope) {
	t.Helper()

	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, env.Success)
	assert.True(t, env.SecurityError, "Expected securityError to be set")
}
