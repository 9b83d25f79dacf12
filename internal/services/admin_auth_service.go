package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/quartermaster/booking-backend/internal/database"
	"github.com/quartermaster/booking-backend/internal/models"
	"github.com/quartermaster/booking-backend/pkg/jwt"
)

// AdminAuthService handles admin dashboard authentication
type AdminAuthService struct {
	adminRepo  *database.AdminUserRepository
	jwtService *jwt.Service
	logger     *logrus.Logger
}

// NewAdminAuthService creates a new AdminAuthService
func NewAdminAuthService(
	adminRepo *database.AdminUserRepository,
	jwtService *jwt.Service,
	logger *logrus.Logger,
) *AdminAuthService {
	return &AdminAuthService{
		adminRepo:  adminRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Login authenticates an admin user and issues an access token. Unknown
// emails, wrong passwords and disabled accounts all return the same error
// so callers cannot probe for registered emails.
func (s *AdminAuthService) Login(req *models.AdminLoginRequest) (*models.AdminLoginResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	admin, err := s.adminRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", models.ErrAccessDenied)
		}
		return nil, err
	}

	if !admin.IsActive {
		s.logger.WithField("email", email).Warn("Login attempt for inactive admin account")
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrAccessDenied)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.WithField("email", email).Warn("Login attempt with wrong password")
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrAccessDenied)
	}

	token, err := s.jwtService.GenerateAccessToken(admin.ID, admin.Email, admin.IsSuperuser)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	// Last login is informational only
	if err := s.adminRepo.UpdateLastLogin(admin.ID); err != nil {
		s.logger.WithError(err).WithField("admin_id", admin.ID).Warn("Failed to update last login timestamp")
	}

	s.logger.WithFields(logrus.Fields{
		"admin_id": admin.ID,
		"email":    admin.Email,
	}).Info("Admin logged in")

	return &models.AdminLoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.jwtService.AccessTokenExpiry().Seconds()),
		AdminUser:   admin,
	}, nil
}

// ValidateToken validates a bearer token and returns its claims
func (s *AdminAuthService) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.jwtService.ValidateAccessToken(tokenString)
}

// GetAdminUser loads an active admin user by ID for request authentication
func (s *AdminAuthService) GetAdminUser(id string) (*models.AdminUser, error) {
	admin, err := s.adminRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !admin.IsActive {
		return nil, fmt.Errorf("%w: account disabled", models.ErrAccessDenied)
	}
	return admin, nil
}
