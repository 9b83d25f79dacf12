package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quartermaster/booking-backend/internal/middleware"
	"github.com/quartermaster/booking-backend/internal/models"
	"github.com/quartermaster/booking-backend/internal/services"
)

// AuthHandler handles admin authentication HTTP requests
type AuthHandler struct {
	authService *services.AdminAuthService
	logger      *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AdminAuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles admin login requests
// @Summary Admin login
// @Description Authenticate admin user and return an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param loginRequest body models.AdminLoginRequest true "Login credentials"
// @Success 200 {object} models.AdminLoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /admin/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	response, err := h.authService.Login(&req)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"email": req.Email,
			"error": err.Error(),
		}).Warn("Admin login failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// Me returns the authenticated admin's profile
// @Summary Get admin profile
// @Tags Auth
// @Produce json
// @Success 200 {object} models.AdminUser
// @Failure 401 {object} ErrorResponse
// @Router /admin/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	admin, exists := middleware.GetAdminUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "valid authorization token required"})
		return
	}
	c.JSON(http.StatusOK, admin)
}
