package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/healthlens-ai/backend/internal/config"
	"github.com/healthlens-ai/backend/internal/database/migrations"
	"github.com/healthlens-ai/backend/internal/logger"
)

// Analysis type values persisted in the Type column.
const (
	AnalysisTypeReport = "report"
	AnalysisTypeFace   = "face"
	AnalysisTypeRisk   = "risk"
)

// User mirrors the identity provider's subject. The row is upserted on first
// authenticated sighting and never deleted by the application.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"` // external subject id
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `json:"name,omitempty"`
	Password  string    `json:"-"` // placeholder, unused while external auth is active
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Analysis is one completed AI analysis. Rows are immutable after creation.
// Which optional columns are populated follows from Type by convention.
type Analysis struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string         `gorm:"index;not null" json:"user_id"`
	User             User           `gorm:"foreignKey:UserID" json:"-"`
	Type             string         `gorm:"index;not null" json:"type"` // report | face | risk
	RawData          datatypes.JSON `gorm:"not null" json:"raw_data"`
	StructuredData   datatypes.JSON `json:"structured_data,omitempty"`
	VisualMetrics    datatypes.JSON `json:"visual_metrics,omitempty"`
	RiskAssessment   string         `gorm:"type:text" json:"risk_assessment,omitempty"`
	ProblemsDetected datatypes.JSON `json:"problems_detected,omitempty"`
	Treatments       datatypes.JSON `json:"treatments,omitempty"`
	ImageURL         string         `json:"image_url,omitempty"`
	Fallback         bool           `json:"fallback"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns the application-generated primary key.
func (a *Analysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ValidAnalysisType reports whether t is one of the persisted type values.
func ValidAnalysisType(t string) bool {
	switch t {
	case AnalysisTypeReport, AnalysisTypeFace, AnalysisTypeRisk:
		return true
	}
	return false
}

func NewPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&User{}, &Analysis{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	registerMigrations()
	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database connection established and migrations completed")
	return db, nil
}

// registerMigrations adds code migrations for schema details AutoMigrate
// cannot express.
func registerMigrations() {
	// Filtered listings order by created_at within a user's rows of one type.
	migrations.Register("202504_analyses_listing_index",
		func(db *gorm.DB) error {
			return db.Exec(`CREATE INDEX IF NOT EXISTS idx_analyses_user_type_created ON analyses (user_id, type, created_at DESC)`).Error
		},
		func(db *gorm.DB) error {
			return db.Exec(`DROP INDEX IF EXISTS idx_analyses_user_type_created`).Error
		})
}
