package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"phlebcare-backend/internal/models"
	"phlebcare-backend/pkg/utils"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.APIResponse(c, http.StatusUnauthorized, false, "Missing token", nil)
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.APIResponse(c, http.StatusUnauthorized, false, "Malformed authorization header", nil)
			c.Abort()
			return
		}

		token, err := utils.ValidateToken(parts[1])
		if err != nil || !token.Valid {
			utils.APIResponse(c, http.StatusUnauthorized, false, "Invalid token", nil)
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			utils.APIResponse(c, http.StatusUnauthorized, false, "Invalid token claims", nil)
			c.Abort()
			return
		}

		// JWT numbers parse as float64.
		var userID uint64
		if val, ok := claims["user_id"].(float64); ok {
			userID = uint64(val)
		}
		var roleID uint
		if val, ok := claims["role_id"].(float64); ok {
			roleID = uint(val)
		}

		c.Set("userID", userID)
		c.Set("roleID", roleID)
		c.Next()
	}
}

func requireRole(c *gin.Context, allowed ...uint) bool {
	roleID, exists := c.Get("roleID")
	if !exists {
		utils.APIResponse(c, http.StatusForbidden, false, "Access denied", nil)
		c.Abort()
		return false
	}
	role := roleID.(uint)
	for _, a := range allowed {
		if role == a || role == models.RoleAdmin {
			return true
		}
	}
	utils.APIResponse(c, http.StatusForbidden, false, "Access denied", nil)
	c.Abort()
	return false
}

// PractitionerOnly gates checkout and payment management.
func PractitionerOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if requireRole(c, models.RolePractitioner) {
			c.Next()
		}
	}
}

// PlebOnly gates the availability and jobs surface.
func PlebOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if requireRole(c, models.RolePleb) {
			c.Next()
		}
	}
}

// CallerID reads the authenticated user id set by AuthMiddleware.
func CallerID(c *gin.Context) uint64 {
	val, _ := c.Get("userID")
	id, _ := val.(uint64)
	return id
}
