package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/placementhq/readiness-api/internal/dto"
	"github.com/placementhq/readiness-api/internal/models"
	"github.com/placementhq/readiness-api/internal/repository"
)

// ErrConfigNotFound indicates the requested readiness config does not exist.
var ErrConfigNotFound = errors.New("readiness config not found")

// ErrDuplicateConfig indicates a config already exists for the (school,
// campus) pair.
var ErrDuplicateConfig = errors.New("config already exists for school and campus")

// ErrDuplicateCriterion indicates a criteria id repeats within one config.
var ErrDuplicateCriterion = errors.New("duplicate criteria id within config")

// ConfigService manages readiness configuration documents for managers and
// coordinators.
type ConfigService interface {
	Create(ctx context.Context, payload dto.ConfigCreateRequest, actor ActivityActor) (dto.ConfigResponse, error)
	Update(ctx context.Context, id uint, payload dto.ConfigUpdateRequest, actor ActivityActor) (dto.ConfigResponse, error)
	Get(ctx context.Context, id uint) (dto.ConfigResponse, error)
	List(ctx context.Context, req dto.ConfigListRequest) (dto.ConfigListResponse, error)
}

type configService struct {
	repo      repository.ConfigRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewConfigService constructs the config service.
func NewConfigService(repo repository.ConfigRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ConfigService {
	return &configService{
		repo:      repo,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "config_service").Logger(),
		now:       time.Now,
	}
}

func (s *configService) Create(ctx context.Context, payload dto.ConfigCreateRequest, actor ActivityActor) (dto.ConfigResponse, error) {
	tracer := otel.Tracer("github.com/placementhq/readiness-api/internal/service/config")
	ctx, span := tracer.Start(ctx, "config.create")
	span.SetAttributes(attribute.String("config.school", payload.School))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ConfigResponse{}, err
	}

	criteria, err := buildCriteria(payload.Criteria)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_criteria")
		return dto.ConfigResponse{}, err
	}

	// Uniqueness of the (school, campus) pair is the registry's own
	// invariant; the partial DB index cannot cover the NULL campus case.
	_, err = s.repo.GetBySchoolAndCampus(ctx, payload.School, payload.CampusID)
	if err == nil {
		span.SetStatus(codes.Error, "duplicate_config")
		return dto.ConfigResponse{}, ErrDuplicateConfig
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		return dto.ConfigResponse{}, err
	}

	isActive := true
	if payload.IsActive != nil {
		isActive = *payload.IsActive
	}

	config := models.JobReadinessConfig{
		School:    strings.TrimSpace(payload.School),
		CampusID:  payload.CampusID,
		Criteria:  criteria,
		IsActive:  isActive,
		CreatedBy: actor.ID,
		UpdatedBy: actor.ID,
	}

	if err := s.repo.Create(ctx, &config); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create_failed")
		return dto.ConfigResponse{}, err
	}

	s.recordConfigActivity(ctx, actor, "config.created", config)

	return dto.NewConfigResponse(config), nil
}

func (s *configService) Update(ctx context.Context, id uint, payload dto.ConfigUpdateRequest, actor ActivityActor) (dto.ConfigResponse, error) {
	tracer := otel.Tracer("github.com/placementhq/readiness-api/internal/service/config")
	ctx, span := tracer.Start(ctx, "config.update")
	span.SetAttributes(attribute.Int64("config.id", int64(id)))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ConfigResponse{}, err
	}

	config, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ConfigResponse{}, ErrConfigNotFound
		}
		span.RecordError(err)
		return dto.ConfigResponse{}, err
	}

	if payload.Criteria != nil {
		criteria, err := buildCriteria(payload.Criteria)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid_criteria")
			return dto.ConfigResponse{}, err
		}
		config.Criteria = criteria
	}
	if payload.IsActive != nil {
		config.IsActive = *payload.IsActive
	}
	config.UpdatedBy = actor.ID

	if err := s.repo.Update(ctx, &config); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update_failed")
		return dto.ConfigResponse{}, err
	}

	s.recordConfigActivity(ctx, actor, "config.updated", config)

	return dto.NewConfigResponse(config), nil
}

func (s *configService) Get(ctx context.Context, id uint) (dto.ConfigResponse, error) {
	config, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ConfigResponse{}, ErrConfigNotFound
		}
		return dto.ConfigResponse{}, err
	}

	return dto.NewConfigResponse(config), nil
}

func (s *configService) List(ctx context.Context, req dto.ConfigListRequest) (dto.ConfigListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ConfigListResponse{}, err
	}

	filter := repository.ConfigFilter{
		IsActive: req.IsActive,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if school := strings.TrimSpace(req.School); school != "" {
		filter.School = &school
	}

	configs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ConfigListResponse{}, err
	}

	items := make([]dto.ConfigResponse, 0, len(configs))
	for _, config := range configs {
		items = append(items, dto.NewConfigResponse(config))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	} else {
		pagination.TotalPages = 1
	}

	return dto.ConfigListResponse{Items: items, Pagination: pagination}, nil
}

// buildCriteria normalises criterion payloads: weight defaults to 1, the
// rating scale is pinned, and criteria ids must be unique within the config.
func buildCriteria(payloads []dto.CriterionPayload) (models.CriterionList, error) {
	criteria := make(models.CriterionList, 0, len(payloads))
	seen := make(map[string]struct{}, len(payloads))

	for _, payload := range payloads {
		id := strings.TrimSpace(payload.CriteriaID)
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCriterion, id)
		}
		seen[id] = struct{}{}

		weight := float64(models.DefaultCriterionWeight)
		if payload.Weight != nil {
			weight = *payload.Weight
		}

		isActive := true
		if payload.IsActive != nil {
			isActive = *payload.IsActive
		}

		criteria = append(criteria, models.CriterionDefinition{
			CriteriaID:         id,
			Name:               strings.TrimSpace(payload.Name),
			Description:        payload.Description,
			Category:           models.CriterionCategory(payload.Category),
			Type:               models.CriterionType(payload.Type),
			IsActive:           isActive,
			IsMandatory:        payload.IsMandatory,
			Weight:             weight,
			NumericTarget:      payload.NumericTarget,
			PocCommentRequired: payload.PocCommentRequired,
			PocCommentTemplate: payload.PocCommentTemplate,
			PocRatingRequired:  payload.PocRatingRequired,
			PocRatingScale:     models.PocRatingScale,
			TargetSchools:      payload.TargetSchools,
			Link:               payload.Link,
		})
	}

	return criteria, nil
}

func (s *configService) recordConfigActivity(ctx context.Context, actor ActivityActor, action string, config models.JobReadinessConfig) {
	if s.activity == nil {
		return
	}

	configID := config.ID
	entry := ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "readiness_config",
		EntityID:   &configID,
		Metadata: map[string]interface{}{
			"school":         config.School,
			"campus_id":      config.CampusID,
			"criteria_count": len(config.Criteria),
			"is_active":      config.IsActive,
		},
	}

	if _, err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record config activity")
	}
}
