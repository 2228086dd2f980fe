package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/placementhq/readiness-api/internal/dto"
	"github.com/placementhq/readiness-api/internal/models"
)

func newConfigFixture() (ConfigService, *memoryConfigRepo, *captureRecorder) {
	repo := newMemoryConfigRepo()
	recorder := &captureRecorder{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewConfigService(repo, validate, recorder, testLogger()), repo, recorder
}

func criterionPayload(id string) dto.CriterionPayload {
	return dto.CriterionPayload{
		CriteriaID: id,
		Name:       id,
		Category:   "skills",
		Type:       "yes_no",
	}
}

func TestConfigCreateAppliesDefaults(t *testing.T) {
	svc, _, recorder := newConfigFixture()

	payload := criterionPayload("resume")
	payload.PocRatingRequired = true

	resp, err := svc.Create(context.Background(), dto.ConfigCreateRequest{
		School:   "School of Technology",
		Criteria: []dto.CriterionPayload{payload},
	}, ActivityActor{ID: 1, Role: "manager"})
	require.NoError(t, err)

	require.True(t, resp.IsActive)
	require.Equal(t, uint(1), resp.CreatedBy)
	require.Len(t, resp.Criteria, 1)
	require.Equal(t, float64(models.DefaultCriterionWeight), resp.Criteria[0].Weight)
	require.True(t, resp.Criteria[0].IsActive)
	require.Equal(t, models.PocRatingScale, resp.Criteria[0].PocRatingScale)

	require.Equal(t, []string{"config.created"}, recorder.actions())
}

func TestConfigCreateRejectsDuplicatePair(t *testing.T) {
	svc, _, _ := newConfigFixture()

	request := dto.ConfigCreateRequest{
		School:   "School of Technology",
		Criteria: []dto.CriterionPayload{criterionPayload("resume")},
	}

	_, err := svc.Create(context.Background(), request, ActivityActor{ID: 1, Role: "manager"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), request, ActivityActor{ID: 1, Role: "manager"})
	require.ErrorIs(t, err, ErrDuplicateConfig)

	// A campus-scoped config for the same school is a different pair.
	request.CampusID = uintPtr(3)
	_, err = svc.Create(context.Background(), request, ActivityActor{ID: 1, Role: "manager"})
	require.NoError(t, err)
}

func TestConfigCreateRejectsDuplicateCriteria(t *testing.T) {
	svc, _, _ := newConfigFixture()

	_, err := svc.Create(context.Background(), dto.ConfigCreateRequest{
		School:   "School of Technology",
		Criteria: []dto.CriterionPayload{criterionPayload("resume"), criterionPayload("resume")},
	}, ActivityActor{ID: 1, Role: "manager"})
	require.ErrorIs(t, err, ErrDuplicateCriterion)
}

func TestConfigUpdateReplacesCriteria(t *testing.T) {
	svc, _, recorder := newConfigFixture()

	created, err := svc.Create(context.Background(), dto.ConfigCreateRequest{
		School:   "School of Technology",
		Criteria: []dto.CriterionPayload{criterionPayload("resume")},
	}, ActivityActor{ID: 1, Role: "manager"})
	require.NoError(t, err)

	weighted := criterionPayload("mock-interview")
	weighted.Weight = float64Ptr(2.5)

	updated, err := svc.Update(context.Background(), created.ID, dto.ConfigUpdateRequest{
		Criteria: []dto.CriterionPayload{weighted},
		IsActive: boolPtr(false),
	}, ActivityActor{ID: 2, Role: "manager"})
	require.NoError(t, err)
	require.False(t, updated.IsActive)
	require.Equal(t, uint(2), updated.UpdatedBy)
	require.Len(t, updated.Criteria, 1)
	require.Equal(t, "mock-interview", updated.Criteria[0].CriteriaID)
	require.Equal(t, 2.5, updated.Criteria[0].Weight)

	require.Equal(t, []string{"config.created", "config.updated"}, recorder.actions())
}

func TestConfigUpdateNotFound(t *testing.T) {
	svc, _, _ := newConfigFixture()

	_, err := svc.Update(context.Background(), 404, dto.ConfigUpdateRequest{IsActive: boolPtr(true)}, ActivityActor{ID: 1, Role: "manager"})
	require.ErrorIs(t, err, ErrConfigNotFound)
}

func TestConfigListFiltersBySchool(t *testing.T) {
	svc, _, _ := newConfigFixture()

	for _, school := range []string{"School of Technology", "School of Business", models.SchoolCommon} {
		_, err := svc.Create(context.Background(), dto.ConfigCreateRequest{
			School:   school,
			Criteria: []dto.CriterionPayload{criterionPayload("resume")},
		}, ActivityActor{ID: 1, Role: "manager"})
		require.NoError(t, err)
	}

	result, err := svc.List(context.Background(), dto.ConfigListRequest{School: "School of Business"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, "School of Business", result.Items[0].School)
	require.Equal(t, int64(1), result.Pagination.TotalItems)

	all, err := svc.List(context.Background(), dto.ConfigListRequest{})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
}
