package service

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/placementhq/readiness-api/internal/models"
	"github.com/placementhq/readiness-api/internal/repository"
)

// CriteriaResolver merges the configuration layers applying to one student
// into the effective criteria set used for scoring.
type CriteriaResolver interface {
	ResolveEffectiveCriteria(ctx context.Context, school string, campusID *uint) ([]models.CriterionDefinition, error)
}

type criteriaResolver struct {
	configs repository.ConfigRepository
	logger  zerolog.Logger
}

// NewCriteriaResolver constructs the resolver.
func NewCriteriaResolver(configs repository.ConfigRepository, logger zerolog.Logger) CriteriaResolver {
	return &criteriaResolver{
		configs: configs,
		logger:  logger.With().Str("component", "criteria_resolver").Logger(),
	}
}

// configScopeRank orders configuration layers from least to most specific.
// Later layers overwrite earlier ones during the merge, so campus-scoped
// configs must fold in after global ones, and a school's own layer after the
// Common layer.
func configScopeRank(config models.JobReadinessConfig) int {
	rank := 0
	if config.School != models.SchoolCommon {
		rank++
	}
	if !config.IsGlobal() {
		rank += 2
	}
	return rank
}

// ResolveEffectiveCriteria reads the current configuration on every call; a
// config edit is reflected on the next computation without an invalidation
// signal. No config at all is not an error: the empty set scores as
// vacuously ready downstream.
func (r *criteriaResolver) ResolveEffectiveCriteria(ctx context.Context, school string, campusID *uint) ([]models.CriterionDefinition, error) {
	configs, err := r.configs.ListApplicable(ctx, school, campusID)
	if err != nil {
		return nil, err
	}

	if len(configs) == 0 {
		r.logger.Debug().Str("school", school).Msg("no active readiness config resolved")
		return []models.CriterionDefinition{}, nil
	}

	sort.SliceStable(configs, func(i, j int) bool {
		return configScopeRank(configs[i]) < configScopeRank(configs[j])
	})

	byID := make(map[string]models.CriterionDefinition)
	order := make([]string, 0)
	for _, config := range configs {
		for _, criterion := range config.Criteria {
			if !criterion.IsActive {
				continue
			}
			if !criterionApplies(config, criterion, school) {
				continue
			}
			if _, seen := byID[criterion.CriteriaID]; !seen {
				order = append(order, criterion.CriteriaID)
			}
			byID[criterion.CriteriaID] = criterion
		}
	}

	effective := make([]models.CriterionDefinition, 0, len(order))
	for _, id := range order {
		effective = append(effective, byID[id])
	}

	return effective, nil
}

// criterionApplies gates a criterion on school targeting. Criteria from the
// student's own school or the Common layer always apply; criteria from other
// layers only when they explicitly target the school.
func criterionApplies(config models.JobReadinessConfig, criterion models.CriterionDefinition, school string) bool {
	if config.School == school || config.School == models.SchoolCommon {
		return true
	}
	return criterion.TargetsSchool(school)
}
