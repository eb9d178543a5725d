package middleware

import (
	"bizbox_backend/internal/config"
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/util"
	"bizbox_backend/pkg/logger"
	"bizbox_backend/pkg/tracing"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func bearerToken(c *gin.Context) string {
	tokenString := ""
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Browsers cannot set headers on WebSocket upgrades.
	if tokenString == "" {
		tokenString = c.Query("token")
	}
	return tokenString
}

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseAccessToken(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT rejected", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		tracing.SetIdentity(c.Request.Context(), claims.UserID, claims.OrganizationID, string(claims.Role))
		c.Next()
	}
}

// TryAuthMiddleware attaches claims when a valid token is present and lets
// anonymous requests through otherwise.
func TryAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if claims, err := util.ParseAccessToken(tokenString, cfg.JWT.Secret); err == nil {
				c.Set("user", claims)
				tracing.SetIdentity(c.Request.Context(), claims.UserID, claims.OrganizationID, string(claims.Role))
			}
		}
		c.Next()
	}
}

func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := false
		for _, role := range roles {
			// Admins pass every role check.
			if user.Role == model.Admin || user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// OrganizationMiddleware rejects callers whose token carries no organization.
func OrganizationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}
		if user.OrganizationID == 0 {
			util.BadRequest(c, util.ErrNoOrganization.Error())
			c.Abort()
			return
		}
		c.Next()
	}
}
