package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/placementhq/readiness-api/internal/dto"
	"github.com/placementhq/readiness-api/internal/repository"
)

// AnalyticsService produces cohort-level readiness reporting. The overview is
// built from the cached per-student fields and may itself be cached with a
// short TTL; it never feeds back into scoring.
type AnalyticsService interface {
	Overview(ctx context.Context, school string) (dto.ReadinessOverviewResponse, error)
}

type analyticsService struct {
	progress repository.ProgressRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAnalyticsService builds the readiness reporting aggregator.
func NewAnalyticsService(progress repository.ProgressRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AnalyticsService {
	return &analyticsService{
		progress: progress,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "analytics_service").Logger(),
		now:      time.Now,
	}
}

func (s *analyticsService) Overview(ctx context.Context, school string) (dto.ReadinessOverviewResponse, error) {
	cacheKey := fmt.Sprintf("readiness:overview:%s", school)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ReadinessOverviewResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("school", school).Msg("overview cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read overview cache")
		}
	}

	students, err := s.progress.ListBySchool(ctx, school)
	if err != nil {
		return dto.ReadinessOverviewResponse{}, err
	}

	response := dto.ReadinessOverviewResponse{
		School:        school,
		TotalStudents: len(students),
		StatusCounts:  map[string]int{},
		GeneratedAt:   s.now().UTC(),
	}

	var percentageTotal int
	for _, student := range students {
		percentageTotal += student.ReadinessPercentage
		response.StatusCounts[string(student.ReadinessStatus)]++
		if student.IsJobReady {
			response.JobReadyCount++
		}
		if student.ApprovedAsJobReady {
			response.ApprovedCount++
		}
	}
	if len(students) > 0 {
		response.AveragePercentage = float64(percentageTotal) / float64(len(students))
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store overview cache")
			}
		}
	}

	return response, nil
}
