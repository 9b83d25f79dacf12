package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quartermaster/booking-backend/internal/models"
	"github.com/quartermaster/booking-backend/internal/services"
)

// AdminContextKey is the key used to store the authenticated admin in Gin context
const AdminContextKey = "admin_user"

// RequireAdmin validates the Bearer token and loads the admin user into the
// request context. Requests without a valid token are rejected.
func RequireAdmin(authService *services.AdminAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := authenticate(c, authService)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "valid authorization token required",
			})
			c.Abort()
			return
		}

		c.Set(AdminContextKey, admin)
		c.Next()
	}
}

// OptionalAdmin loads the admin user when a valid Bearer token is present and
// continues anonymously otherwise. Used on public endpoints where admins get
// extra privileges, like booking restricted trips.
func OptionalAdmin(authService *services.AdminAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if admin, ok := authenticate(c, authService); ok {
			c.Set(AdminContextKey, admin)
		}
		c.Next()
	}
}

// RequireSuperuser rejects authenticated admins without the superuser flag.
// Must run after RequireAdmin.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, exists := GetAdminUser(c)
		if !exists || !admin.IsSuperuser {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "superuser access required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, authService *services.AdminAuthService) (*models.AdminUser, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, false
	}

	claims, err := authService.ValidateToken(tokenString)
	if err != nil {
		return nil, false
	}

	admin, err := authService.GetAdminUser(claims.UserID)
	if err != nil {
		return nil, false
	}
	return admin, true
}

// GetAdminUser retrieves the authenticated admin from Gin context
func GetAdminUser(c *gin.Context) (*models.AdminUser, bool) {
	value, exists := c.Get(AdminContextKey)
	if !exists {
		return nil, false
	}
	admin, ok := value.(*models.AdminUser)
	if !ok {
		return nil, false
	}
	return admin, true
}
