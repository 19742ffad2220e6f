package middleware

import (
	"strconv"
	"strings"

	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys and headers carrying the caller's tenant identity
const (
	DeviceIDKey     = "device_id"
	CompanyIDKey    = "company_id"
	UserIDKey       = "user_id"
	DeviceHeaderKey = "X-Device-ID"
	CompanyHeader   = "X-Company-ID"
	UserHeaderKey   = "X-User-ID"
)

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	// SkipPaths are paths that don't carry tenant context (e.g., health check)
	SkipPaths []string
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready", "/metrics"},
	}
}

// TenantMiddleware extracts the device, company and user identifiers from
// the request headers
func TenantMiddleware() gin.HandlerFunc {
	return TenantMiddlewareWithConfig(DefaultTenantConfig())
}

// TenantMiddlewareWithConfig returns tenant middleware with custom configuration.
// Absent or malformed identifiers are stored as zero and never rejected here:
// the finance services own the isolation decision and answer with a security error.
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		ctx := c.Request.Context()
		log := cfg.Logger
		if log == nil {
			log = logger.FromContext(ctx)
		}

		deviceID := parseIdentifier(log, DeviceHeaderKey, c.GetHeader(DeviceHeaderKey))
		companyID := parseIdentifier(log, CompanyHeader, c.GetHeader(CompanyHeader))
		userID := strings.TrimSpace(c.GetHeader(UserHeaderKey))

		c.Set(DeviceIDKey, deviceID)
		c.Set(CompanyIDKey, companyID)
		c.Set(UserIDKey, userID)

		ctx, reqLog := logger.WithTenant(ctx, logger.FromContext(ctx), deviceID, companyID)
		if userID != "" {
			ctx, _ = logger.WithUserID(ctx, reqLog, userID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// parseIdentifier reads a positive integer header, returning 0 when it is
// absent or malformed
func parseIdentifier(log *zap.Logger, header, raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Warn("Ignoring malformed tenant header",
			zap.String("header", header),
			zap.Error(err),
		)
		return 0
	}
	return id
}

// GetDeviceID retrieves the device (tenant) ID from gin.Context
func GetDeviceID(c *gin.Context) int64 {
	return c.GetInt64(DeviceIDKey)
}

// GetCompanyID retrieves the company ID from gin.Context
func GetCompanyID(c *gin.Context) int64 {
	return c.GetInt64(CompanyIDKey)
}

// GetUserID retrieves the acting user ID from gin.Context
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
