package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	identitydomain "github.com/lumenis/lumenis/internal/identity/domain"
	"github.com/lumenis/lumenis/internal/tenantctx"
)

const claimsContextKey = "auth.claims"

// authenticate verifies the bearer token and threads the tenant
// identifiers through the request context.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" || token == header {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		claims, err := s.identitySvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(claimsContextKey, claims)

		ctx := c.Request.Context()
		ctx = tenantctx.WithSchoolID(ctx, claims.SchoolID)
		ctx = tenantctx.WithAccountID(ctx, claims.AccountID)
		ctx = tenantctx.WithRole(ctx, string(claims.Role))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func claimsFrom(c *gin.Context) *identitydomain.Claims {
	value, ok := c.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*identitydomain.Claims)
	return claims
}

func (s *Server) requirePermission(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), claims, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// rateLimit throttles per account. Fails open when redis is absent or
// unreachable so money flows never depend on the limiter being up.
func (s *Server) rateLimit(name string, rate float64, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		claims := claimsFrom(c)
		if claims == nil {
			c.Next()
			return
		}
		key := "ratelimit:" + name + ":" + claims.AccountID.String()
		result, err := s.limiter.Allow(c.Request.Context(), key, rate, burst)
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.String("name", name), zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
