package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/placementhq/readiness-api/internal/dto"
	"github.com/placementhq/readiness-api/internal/handler"
	"github.com/placementhq/readiness-api/internal/service"
)

func newVerificationTestApp(svc service.ReadinessService) *fiber.App {
	app := fiber.New()
	validate := validator.New(validator.WithRequiredStructEnabled())
	h := handler.NewVerificationHandler(svc, validate, zerolog.New(io.Discard))

	review := app.Group("/api/v1/readiness/review", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(7))
		c.Locals("user_role", "poc")
		return c.Next()
	})
	h.Register(review)

	admin := app.Group("/api/v1/readiness/admin", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(8))
		c.Locals("user_role", "manager")
		return c.Next()
	})
	h.RegisterAdmin(admin)

	return app
}

func TestVerificationHandler_Verify(t *testing.T) {
	svc := &mockReadinessService{response: dto.ReadinessResponse{ReadinessPercentage: 100}}
	app := newVerificationTestApp(svc)

	body, err := json.Marshal(dto.VerificationRequest{Notes: "meets the rubric"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/readiness/review/students/42/criteria/resume/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, uint(42), svc.lastStudentID)
	require.Equal(t, "resume", svc.lastCriteriaID)
	require.Equal(t, "meets the rubric", svc.lastNotes)
}

func TestVerificationHandler_VerifyNotCompleted(t *testing.T) {
	svc := &mockReadinessService{err: service.ErrCriterionNotCompleted}
	app := newVerificationTestApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/readiness/review/students/42/criteria/resume/verify", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestVerificationHandler_FeedbackOutOfRange(t *testing.T) {
	svc := &mockReadinessService{err: service.ErrRatingOutOfRange}
	app := newVerificationTestApp(svc)

	body, err := json.Marshal(dto.CriterionFeedbackRequest{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/readiness/review/students/42/criteria/resume/feedback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestVerificationHandler_ApproveUnknownStudent(t *testing.T) {
	svc := &mockReadinessService{err: service.ErrProgressNotFound}
	app := newVerificationTestApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/readiness/review/students/999/approve", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestVerificationHandler_Recompute(t *testing.T) {
	svc := &mockReadinessService{batch: dto.BatchRecomputeResponse{School: "Engineering", Processed: 12, Changed: 4}}
	app := newVerificationTestApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/readiness/admin/recompute?school=Engineering", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data dto.BatchRecomputeResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, 12, response.Data.Processed)
	require.Equal(t, "Engineering", svc.lastSchool)

	// Without a school the batch never starts.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/readiness/admin/recompute", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
