package db

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/barbershop-booking/internal/models"
)

// EnsureAdminUser creates the admin account when it does not exist yet. An
// existing account is left untouched, password included.
func EnsureAdminUser(gdb *gorm.DB, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}

	var existing models.User
	err := gdb.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	user := models.User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         "admin",
	}
	if err := gdb.Create(&user).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	return true, nil
}
