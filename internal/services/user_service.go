package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/healthlens-ai/backend/internal/auth"
	"github.com/healthlens-ai/backend/internal/cache"
	"github.com/healthlens-ai/backend/internal/database"
	apperrors "github.com/healthlens-ai/backend/internal/errors"
	"github.com/healthlens-ai/backend/internal/logger"
)

const maxNameLength = 100

type UserService struct {
	repo  UserStore
	cache cache.Store
	ttl   time.Duration
}

func NewUserService(repo UserStore, store cache.Store, cacheTTL time.Duration) *UserService {
	return &UserService{repo: repo, cache: store, ttl: cacheTTL}
}

// EnsureUser resolves the identity reported by the auth provider to a local
// user row, creating it on first contact. Rows are cached per subject so the
// upsert does not hit the database on every request.
func (s *UserService) EnsureUser(ctx context.Context, identity *auth.Identity) (*database.User, error) {
	key := userCacheKey(identity.Subject)

	var cached database.User
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	user, err := s.repo.GetOrCreate(ctx, identity.Subject, identity.Email, identity.Name)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	if err := s.cache.Set(ctx, key, user, s.ttl); err != nil {
		logger.Warn("User cache write failed", "error", err)
	}

	return user, nil
}

// GetProfile returns the stored profile for a user.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*database.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return user, nil
}

// UpdateProfile changes the user's display name and returns the fresh row.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name string) (*database.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required")
	}
	if len(name) > maxNameLength {
		return nil, apperrors.NewValidationError("name must not exceed 100 characters")
	}

	if err := s.repo.UpdateName(ctx, userID, name); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	if err := s.cache.Delete(ctx, userCacheKey(userID)); err != nil {
		logger.Warn("User cache invalidation failed", "error", err)
	}

	return s.GetProfile(ctx, userID)
}

func userCacheKey(subject string) string {
	return "auth:user:" + subject
}
