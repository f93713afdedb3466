package server

import (
	"strings"
	"time"

	"github.com/Intuitive-Solution/neibrPay-sub000/pkg/tenantctx"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderTenant       = "X-Tenant-ID"
	HeaderActor        = "X-Actor"
	HeaderServiceToken = "X-Service-Token"
	HeaderRequestID    = "X-Request-ID"
)

// RequestLogger tags every request with an id and logs one line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		start := time.Now()
		c.Next()

		log.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// TenantContext resolves the acting tenant from the X-Tenant-ID header and
// injects it into the request context. Requests without a valid tenant are
// rejected before any handler runs.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderTenant))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		tenantID, err := snowflake.ParseString(raw)
		if err != nil || tenantID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
		if actor := strings.TrimSpace(c.GetHeader(HeaderActor)); actor != "" {
			ctx = tenantctx.WithActor(ctx, actor)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ServiceTokenRequired guards internal endpoints, the schedule runner and
// the bank-feed sync, with a shared secret.
func (s *Server) ServiceTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(HeaderServiceToken))
		if s.cfg.ServiceToken == "" || token != s.cfg.ServiceToken {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func tenantFromRequest(c *gin.Context) (snowflake.ID, bool) {
	return tenantctx.TenantID(c.Request.Context())
}
