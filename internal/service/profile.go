package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"finance-portal/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLen = 8

// ProfileService lets a signed-in admin maintain their own account.
type ProfileService struct {
	db         *gorm.DB
	bcryptCost int
	log        *slog.Logger
}

func NewProfileService(db *gorm.DB, bcryptCost int, log *slog.Logger) *ProfileService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = slog.Default()
	}
	return &ProfileService{db: db, bcryptCost: bcryptCost, log: log}
}

// UpdateName changes the display name.
func (s *ProfileService) UpdateName(ctx context.Context, admin *models.Admin, name string) error {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > 128 {
		return validationf("name is too long")
	}
	if err := s.db.WithContext(ctx).Model(admin).Update("name", name).Error; err != nil {
		s.log.ErrorContext(ctx, "update admin name", "admin_id", admin.ID, "error", err)
		return fmt.Errorf("update name: %w", err)
	}
	admin.Name = name
	return nil
}

// ChangePassword replaces the password after checking the old one.
func (s *ProfileService) ChangePassword(ctx context.Context, admin *models.Admin, oldPassword, newPassword string) error {
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(oldPassword)) != nil {
		return validationf("current password is incorrect")
	}
	if len(newPassword) < minPasswordLen {
		return validationf("new password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(admin).Update("password_hash", string(hash)).Error; err != nil {
		s.log.ErrorContext(ctx, "update admin password", "admin_id", admin.ID, "error", err)
		return fmt.Errorf("update password: %w", err)
	}
	admin.PasswordHash = string(hash)
	return nil
}

// Deactivate turns the account off. Existing tokens expire on their own;
// login is refused from now on.
func (s *ProfileService) Deactivate(ctx context.Context, admin *models.Admin) error {
	if err := s.db.WithContext(ctx).Model(admin).Update("is_active", false).Error; err != nil {
		s.log.ErrorContext(ctx, "deactivate admin", "admin_id", admin.ID, "error", err)
		return fmt.Errorf("deactivate: %w", err)
	}
	admin.IsActive = false
	return nil
}
