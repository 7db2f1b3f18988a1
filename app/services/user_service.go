package services

import (
	"fmt"
	"strings"

	"ShopPOS/app/models"
	"ShopPOS/app/security"

	"gorm.io/gorm"
)

const minPasswordLength = 4

// UserService handles staff accounts
type UserService struct {
	BaseService
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{BaseService: NewBaseService(db)}
}

// GetUsers gets all users (active and inactive)
func (s *UserService) GetUsers() ([]models.User, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}
	var users []models.User
	err := s.db.Order("username").Find(&users).Error
	return users, err
}

// GetUser gets a user by ID
func (s *UserService) GetUser(id uint) (*models.User, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, translateDBError(err, fmt.Sprintf("user %d", id))
	}
	return &user, nil
}

// CreateUser creates a new account with a hashed password
func (s *UserService) CreateUser(user *models.User, password string, createdBy *uint) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return validationf(ErrInvalidInput, "username is required")
	}
	if user.Role == "" {
		user.Role = models.RoleEmployee
	}
	if !user.Role.Valid() {
		return validationf(ErrInvalidInput, "unknown role %q", user.Role)
	}
	if len(password) < minPasswordLength {
		return validationf(ErrInvalidInput, "password must be at least %d characters", minPasswordLength)
	}

	hashed, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	user.Password = hashed
	user.IsActive = true
	user.CreatedByID = createdBy

	if err := s.db.Create(user).Error; err != nil {
		return translateDBError(err, "user "+user.Username)
	}
	return nil
}

// UpdateUser updates profile fields and role
func (s *UserService) UpdateUser(user *models.User) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}
	if !user.Role.Valid() {
		return validationf(ErrInvalidInput, "unknown role %q", user.Role)
	}
	res := s.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"full_name": user.FullName,
		"phone":     user.Phone,
		"role":      user.Role,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", user.ID, ErrNotFound)
	}
	return nil
}

// ChangePassword replaces a user's password after checking the current one
func (s *UserService) ChangePassword(userID uint, current, newPassword string) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	if !security.CheckPassword(user.Password, current) {
		return validationf(ErrInvalidCredentials, "current password is incorrect")
	}
	if len(newPassword) < minPasswordLength {
		return validationf(ErrInvalidInput, "password must be at least %d characters", minPasswordLength)
	}

	hashed, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.db.Model(&models.User{}).Where("id = ?", userID).Update("password", hashed).Error
}

// Authenticate checks username and password of an active account
func (s *UserService) Authenticate(username, password string) (*models.User, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}
	var user models.User

	if err := s.db.Where("username = ? AND is_active = ?", strings.TrimSpace(username), true).First(&user).Error; err != nil {
		return nil, validationf(ErrInvalidCredentials, "invalid credentials")
	}
	if !security.CheckPassword(user.Password, password) {
		return nil, validationf(ErrInvalidCredentials, "invalid credentials")
	}

	now := s.clock().UTC()
	user.LastLoginAt = &now
	s.db.Model(&user).Update("last_login_at", now)

	return &user, nil
}

// SetActive enables or disables an account
func (s *UserService) SetActive(id uint, active bool) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}
	return s.db.Model(&models.User{}).Where("id = ?", id).Update("is_active", active).Error
}
