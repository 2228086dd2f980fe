package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/placementhq/readiness-api/internal/dto"
	"github.com/placementhq/readiness-api/internal/handler"
	"github.com/placementhq/readiness-api/internal/models"
	"github.com/placementhq/readiness-api/internal/service"
)

type stubReadinessService struct {
	response dto.ReadinessResponse
}

func (s stubReadinessService) GetOrCreateProgress(context.Context, service.StudentRef) (dto.ReadinessResponse, error) {
	return s.response, nil
}

func (s stubReadinessService) UpsertCriterionStatus(context.Context, service.StudentRef, string, dto.CriterionStatusPatch) (dto.ReadinessResponse, error) {
	return s.response, nil
}

func (s stubReadinessService) VerifyCriterion(context.Context, uint, string, service.ActivityActor, string) (dto.ReadinessResponse, error) {
	return s.response, nil
}

func (s stubReadinessService) RejectCriterion(context.Context, uint, string, service.ActivityActor, string) (dto.ReadinessResponse, error) {
	return s.response, nil
}

func (s stubReadinessService) CommentOrRate(context.Context, uint, string, service.ActivityActor, dto.CriterionFeedbackRequest) (dto.ReadinessResponse, error) {
	return s.response, nil
}

func (s stubReadinessService) ApproveJobReady(context.Context, uint, service.ActivityActor, string) (dto.ReadinessResponse, error) {
	return s.response, nil
}

func (s stubReadinessService) RevokeJobReadyApproval(context.Context, uint, service.ActivityActor, string) (dto.ReadinessResponse, error) {
	return s.response, nil
}

func (s stubReadinessService) RecomputeSchool(context.Context, string, service.ActivityActor) (dto.BatchRecomputeResponse, error) {
	return dto.BatchRecomputeResponse{}, nil
}

func TestReadinessProgressContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "readiness_progress.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	verifier := uint(7)
	verifiedAt := time.Now().UTC()
	completedAt := verifiedAt.Add(-time.Hour)
	rating := 3

	response := dto.ReadinessResponse{
		StudentID:           42,
		School:              "School of Technology",
		ReadinessPercentage: 67,
		ReadinessStatus:     models.ReadinessUnderProcess,
		Criteria: []dto.CriterionProgressView{
			{
				CriteriaID:  "resume",
				Name:        "Resume uploaded",
				Category:    string(models.CategoryProfile),
				Type:        string(models.CriterionTypeLink),
				IsMandatory: true,
				Weight:      2,
				Status:      models.StatusVerified,
				ProofURL:    "https://example.com/resume.pdf",
				VerifiedBy:  &verifier,
				VerifiedAt:  &verifiedAt,
				PocRating:   &rating,
				CompletedAt: &completedAt,
				UpdatedAt:   &verifiedAt,
			},
			{
				CriteriaID: "mock-interview",
				Name:       "Mock interview passed",
				Category:   string(models.CategoryPreparation),
				Type:       string(models.CriterionTypeYesNo),
				Weight:     1,
				Status:     models.StatusNotStarted,
			},
		},
		UpdatedAt: verifiedAt,
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	h := handler.NewReadinessHandler(stubReadinessService{response: response}, validate, zerolog.Nop())

	app := fiber.New()
	group := app.Group("/api/v1/readiness/me", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(42))
		return c.Next()
	})
	h.Register(group)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/readiness/me/progress?school=Engineering", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
