package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healthlens-ai/backend/internal/database"
)

// AnalysisRepository handles analysis data operations.
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Create inserts a new analysis row.
func (r *AnalysisRepository) Create(ctx context.Context, analysis *database.Analysis) error {
	return r.db.WithContext(ctx).Create(analysis).Error
}

// ListByUser returns a page of the user's analyses ordered newest first.
// An empty analysisType means no type filter.
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID, analysisType string, offset, limit int) ([]database.Analysis, error) {
	var analyses []database.Analysis
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if analysisType != "" {
		query = query.Where("type = ?", analysisType)
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&analyses).Error
	if err != nil {
		return nil, err
	}
	return analyses, nil
}

// CountByUser counts the user's analyses, optionally filtered by type.
func (r *AnalysisRepository) CountByUser(ctx context.Context, userID, analysisType string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&database.Analysis{}).Where("user_id = ?", userID)
	if analysisType != "" {
		query = query.Where("type = ?", analysisType)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetByID returns one analysis scoped to its owner. A row owned by another
// user is reported as gorm.ErrRecordNotFound.
func (r *AnalysisRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*database.Analysis, error) {
	var analysis database.Analysis
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&analysis).Error
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

// CountGroupedByType returns per-type analysis counts for a user.
func (r *AnalysisRepository) CountGroupedByType(ctx context.Context, userID string) (map[string]int64, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&database.Analysis{}).
		Select("type, count(*) as count").
		Where("user_id = ?", userID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return counts, nil
}

// LastCreatedAt returns the creation time of the user's newest analysis, or
// nil when the user has none.
func (r *AnalysisRepository) LastCreatedAt(ctx context.Context, userID string) (*time.Time, error) {
	var analysis database.Analysis
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").First(&analysis).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &analysis.CreatedAt, nil
}
