package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRegistrar struct {
	prefix string
}

func (s stubRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group(s.prefix)
	g.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	g.GET("/tenant", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"device_id":  middleware.GetDeviceID(c),
			"company_id": middleware.GetCompanyID(c),
			"request_id": middleware.GetRequestID(c),
		})
	})
	g.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterRegister(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine).
		Register(stubRegistrar{prefix: "/a"}).
		Register(stubRegistrar{prefix: "/b"})

	assert.Len(t, r.registrars, 2)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	NewRouter(engine, WithAPIVersion("v2")).Register(stubRegistrar{prefix: "/test"}).Setup()

	req := httptest.NewRequest(http.MethodGet, "/api/v2/test/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()

	engine, err := NewEngine(EngineConfig{
		ServiceName: "finance-backoffice-test",
		CORS:        middleware.DefaultCORSConfig(),
		MaxBodySize: 1 << 20,
	}, zap.NewNop())
	require.NoError(t, err)

	NewRouter(engine).Register(stubRegistrar{prefix: "/test"}).Setup()
	return engine
}

func TestNewEngine_TenantAndRequestID(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/test/tenant", nil)
	req.Header.Set(middleware.DeviceHeaderKey, "42")
	req.Header.Set(middleware.CompanyHeader, "9")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	requestID := w.Header().Get(middleware.RequestIDHeader)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(42), body["device_id"])
	assert.Equal(t, float64(9), body["company_id"])
	assert.Equal(t, requestID, body["request_id"])
}

func TestNewEngine_RecoversPanics(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/test/panic", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"internal server error"}`, w.Body.String())
}

func TestNewEngine_InvalidTrustedProxy(t *testing.T) {
	_, err := NewEngine(EngineConfig{TrustedProxies: []string{"not-an-ip"}}, zap.NewNop())

	assert.Error(t, err)
}
