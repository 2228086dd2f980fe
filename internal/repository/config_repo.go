package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/placementhq/readiness-api/internal/models"
)

// ConfigFilter narrows admin config listings.
type ConfigFilter struct {
	School   *string
	IsActive *bool
	Page     int
	PageSize int
}

// ConfigRepository persists job readiness configuration documents.
type ConfigRepository interface {
	Create(ctx context.Context, config *models.JobReadinessConfig) error
	Update(ctx context.Context, config *models.JobReadinessConfig) error
	GetByID(ctx context.Context, id uint) (models.JobReadinessConfig, error)
	GetBySchoolAndCampus(ctx context.Context, school string, campusID *uint) (models.JobReadinessConfig, error)
	List(ctx context.Context, filter ConfigFilter) ([]models.JobReadinessConfig, int64, error)
	ListApplicable(ctx context.Context, school string, campusID *uint) ([]models.JobReadinessConfig, error)
}

type configRepository struct {
	db *gorm.DB
}

// NewConfigRepository constructs the config repository.
func NewConfigRepository(db *gorm.DB) ConfigRepository {
	return &configRepository{db: db}
}

func (r *configRepository) Create(ctx context.Context, config *models.JobReadinessConfig) error {
	return r.db.WithContext(ctx).Create(config).Error
}

func (r *configRepository) Update(ctx context.Context, config *models.JobReadinessConfig) error {
	return r.db.WithContext(ctx).Save(config).Error
}

func (r *configRepository) GetByID(ctx context.Context, id uint) (models.JobReadinessConfig, error) {
	var config models.JobReadinessConfig
	if err := r.db.WithContext(ctx).First(&config, id).Error; err != nil {
		return models.JobReadinessConfig{}, err
	}

	return config, nil
}

func (r *configRepository) GetBySchoolAndCampus(ctx context.Context, school string, campusID *uint) (models.JobReadinessConfig, error) {
	query := r.db.WithContext(ctx).Where("school = ?", school)
	if campusID == nil {
		query = query.Where("campus_id IS NULL")
	} else {
		query = query.Where("campus_id = ?", *campusID)
	}

	var config models.JobReadinessConfig
	if err := query.First(&config).Error; err != nil {
		return models.JobReadinessConfig{}, err
	}

	return config, nil
}

func (r *configRepository) List(ctx context.Context, filter ConfigFilter) ([]models.JobReadinessConfig, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.JobReadinessConfig{})

	if filter.School != nil {
		query = query.Where("school = ?", *filter.School)
	}

	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var configs []models.JobReadinessConfig
	if err := query.Order("school ASC, id ASC").Find(&configs).Error; err != nil {
		return nil, 0, err
	}

	return configs, total, nil
}

// ListApplicable returns the active configs that can contribute criteria for a
// student of the given school and campus: the school's own configs plus the
// Common layer, each either global (campus NULL) or scoped to the campus.
func (r *configRepository) ListApplicable(ctx context.Context, school string, campusID *uint) ([]models.JobReadinessConfig, error) {
	query := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("school IN ?", []string{school, models.SchoolCommon})

	if campusID == nil {
		query = query.Where("campus_id IS NULL")
	} else {
		query = query.Where("campus_id IS NULL OR campus_id = ?", *campusID)
	}

	var configs []models.JobReadinessConfig
	if err := query.Find(&configs).Error; err != nil {
		return nil, err
	}

	return configs, nil
}
