package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/reviewloop/review-service/internal/domain"
	"github.com/reviewloop/review-service/internal/dto"
	"github.com/reviewloop/review-service/internal/utils"
)

// AuthMiddleware validates the JWT access token and adds tenant info to context
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Authorization header is required",
			})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("tenant_id", claims.TenantID)
		c.Set("claims", claims)

		c.Next()
	}
}

// AdminMiddleware rejects tokens without the admin role. Must run after
// AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Missing token claims",
			})
			c.Abort()
			return
		}

		tenantClaims, ok := claims.(*domain.TenantClaims)
		if !ok || !tenantClaims.IsAdmin() {
			c.JSON(http.StatusForbidden, dto.ErrorResponse{
				Error:   "Forbidden",
				Message: "Admin role required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// tenantID returns the authenticated tenant id from the context
func tenantID(c *gin.Context) string {
	id, _ := c.Get("tenant_id")
	s, _ := id.(string)
	return s
}
