// Package store contains the gorm repositories. Sentinel errors from
// internal/errs are returned for every domain failure so the service and
// handler layers can match with errors.Is.
package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"license-admin/internal/errs"
	"license-admin/internal/model"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	var user model.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &user, nil
}

func (s *UserStore) GetByID(id uint) (*model.User, error) {
	var user model.User
	err := s.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &user, nil
}

// List returns all users newest first. Password hashes stay out of JSON via
// the model tag.
func (s *UserStore) List() ([]model.User, error) {
	var users []model.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserStore) Create(user *model.User) error {
	if err := s.db.Create(user).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return errs.ErrDuplicateUsername
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) SetActive(id uint, active bool) error {
	res := s.db.Model(&model.User{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("update user status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}
