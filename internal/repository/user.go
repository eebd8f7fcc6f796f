package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/healthlens-ai/backend/internal/database"
)

// UserRepository handles user data operations.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate gets the user row for an externally authenticated subject or
// creates it on first contact.
func (r *UserRepository) GetOrCreate(ctx context.Context, id, email, name string) (*database.User, error) {
	var user database.User
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error == nil {
		return &user, nil
	}

	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	user = database.User{
		ID:    id,
		Email: email,
		Name:  name,
	}

	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// GetByID gets a user by their id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*database.User, error) {
	var user database.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateName updates the display name for a user.
func (r *UserRepository) UpdateName(ctx context.Context, id, name string) error {
	return r.db.WithContext(ctx).Model(&database.User{}).Where("id = ?", id).Update("name", name).Error
}
