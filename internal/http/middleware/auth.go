package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/services"
)

type AdminMiddleware struct {
	log  *logger.Logger
	auth services.AdminAuthService
}

func NewAdminMiddleware(log *logger.Logger, auth services.AdminAuthService) *AdminMiddleware {
	return &AdminMiddleware{log: log.With("Middleware", "AdminMiddleware"), auth: auth}
}

// RequireAdmin guards the mutating admin surface. Every public read endpoint
// stays outside this group.
func (am *AdminMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		if err := am.auth.VerifyToken(tokenString); err != nil {
			am.log.Warn("Rejected admin token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": err.Error(), "code": "unauthorized"},
			})
			return
		}
		c.Next()
	}
}

func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
