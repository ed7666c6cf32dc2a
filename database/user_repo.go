package database

import (
	"errors"
	"strings"
	"time"

	"github.com/rpupo63/portfolio-backend/models"
	"gorm.io/gorm"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db}
}

func (r *UserRepo) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByLogin looks a user up by email (case-insensitive) or username.
func (r *UserRepo) FindByLogin(identifier string) (*models.User, error) {
	var user models.User
	err := r.db.
		Where("LOWER(email) = ? OR username = ?", strings.ToLower(identifier), identifier).
		Order("id ASC").
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) Add(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepo) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("last_login", at).Error
}

// EnsureStaff makes sure an active staff account exists for username/email.
// A new account gets password; an existing one keeps its password and is
// promoted. It reports whether the account was created.
func (r *UserRepo) EnsureStaff(username, email, password string) (bool, error) {
	var existing models.User
	err := r.db.Where("username = ? OR LOWER(email) = ?", username, strings.ToLower(email)).First(&existing).Error
	switch {
	case err == nil:
		return false, r.db.Model(&existing).Updates(map[string]any{"is_staff": true, "is_active": true}).Error
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	user := models.User{
		Username: username,
		Email:    email,
		IsStaff:  true,
		IsActive: true,
	}
	if err := user.SetPassword(password); err != nil {
		return false, err
	}
	if err := r.db.Create(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}
