package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/placementhq/readiness-api/internal/models"
)

// ErrVersionConflict indicates a progress write lost an optimistic-lock race
// and must be retried with freshly loaded state.
var ErrVersionConflict = errors.New("progress document version conflict")

// ProgressRepository persists per-student readiness progress documents.
type ProgressRepository interface {
	GetByStudent(ctx context.Context, studentID uint) (models.StudentJobReadiness, error)
	Create(ctx context.Context, progress *models.StudentJobReadiness) error
	UpdateVersioned(ctx context.Context, progress *models.StudentJobReadiness) error
	ListBySchool(ctx context.Context, school string) ([]models.StudentJobReadiness, error)
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository constructs the progress repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) GetByStudent(ctx context.Context, studentID uint) (models.StudentJobReadiness, error) {
	var progress models.StudentJobReadiness
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&progress).Error; err != nil {
		return models.StudentJobReadiness{}, err
	}

	return progress, nil
}

func (r *progressRepository) Create(ctx context.Context, progress *models.StudentJobReadiness) error {
	return r.db.WithContext(ctx).Create(progress).Error
}

// UpdateVersioned writes the document back guarded by its version counter.
// The student self-reporting while a PoC verifies is a real race; the losing
// writer gets ErrVersionConflict and must reload before retrying.
func (r *progressRepository) UpdateVersioned(ctx context.Context, progress *models.StudentJobReadiness) error {
	currentVersion := progress.Version
	progress.Version = currentVersion + 1

	result := r.db.WithContext(ctx).
		Model(&models.StudentJobReadiness{}).
		Where("id = ? AND version = ?", progress.ID, currentVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(progress)
	if result.Error != nil {
		progress.Version = currentVersion
		return result.Error
	}

	if result.RowsAffected == 0 {
		progress.Version = currentVersion
		return ErrVersionConflict
	}

	return nil
}

func (r *progressRepository) ListBySchool(ctx context.Context, school string) ([]models.StudentJobReadiness, error) {
	var progress []models.StudentJobReadiness
	if err := r.db.WithContext(ctx).Where("school = ?", school).Order("student_id ASC").Find(&progress).Error; err != nil {
		return nil, err
	}

	return progress, nil
}
