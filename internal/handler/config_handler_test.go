package handler_test

import (
	"bytes"
	"context"
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

type mockConfigService struct {
	response    dto.ConfigResponse
	list        dto.ConfigListResponse
	err         error
	lastCreate  dto.ConfigCreateRequest
	lastUpdate  dto.ConfigUpdateRequest
	lastID      uint
	lastActorID uint
}

func (m *mockConfigService) Create(_ context.Context, payload dto.ConfigCreateRequest, actor service.ActivityActor) (dto.ConfigResponse, error) {
	m.lastCreate = payload
	m.lastActorID = actor.ID
	return m.response, m.err
}

func (m *mockConfigService) Update(_ context.Context, id uint, payload dto.ConfigUpdateRequest, actor service.ActivityActor) (dto.ConfigResponse, error) {
	m.lastID = id
	m.lastUpdate = payload
	m.lastActorID = actor.ID
	return m.response, m.err
}

func (m *mockConfigService) Get(_ context.Context, id uint) (dto.ConfigResponse, error) {
	m.lastID = id
	return m.response, m.err
}

func (m *mockConfigService) List(_ context.Context, _ dto.ConfigListRequest) (dto.ConfigListResponse, error) {
	return m.list, m.err
}

func newConfigTestApp(svc service.ConfigService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/readiness/configs", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(9))
		c.Locals("user_role", "manager")
		return c.Next()
	})
	validate := validator.New(validator.WithRequiredStructEnabled())
	handler.NewConfigHandler(svc, validate, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestConfigHandler_Create(t *testing.T) {
	svc := &mockConfigService{response: dto.ConfigResponse{ID: 1, School: "Engineering"}}
	app := newConfigTestApp(svc)

	payload := dto.ConfigCreateRequest{
		School: "Engineering",
		Criteria: []dto.CriterionPayload{{
			CriteriaID: "resume",
			Name:       "Resume uploaded",
			Category:   "profile",
			Type:       "link",
		}},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/readiness/configs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.Equal(t, "Engineering", svc.lastCreate.School)
	require.Len(t, svc.lastCreate.Criteria, 1)
	require.Equal(t, uint(9), svc.lastActorID)
}

func TestConfigHandler_CreateDuplicate(t *testing.T) {
	svc := &mockConfigService{err: service.ErrDuplicateConfig}
	app := newConfigTestApp(svc)

	body, err := json.Marshal(dto.ConfigCreateRequest{School: "Engineering"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/readiness/configs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestConfigHandler_GetNotFound(t *testing.T) {
	svc := &mockConfigService{err: service.ErrConfigNotFound}
	app := newConfigTestApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/readiness/configs/404", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, uint(404), svc.lastID)
}

func TestConfigHandler_UpdateTogglesActivation(t *testing.T) {
	svc := &mockConfigService{response: dto.ConfigResponse{ID: 2, IsActive: false}}
	app := newConfigTestApp(svc)

	inactive := false
	body, err := json.Marshal(dto.ConfigUpdateRequest{IsActive: &inactive})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/readiness/configs/2", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, uint(2), svc.lastID)
	require.NotNil(t, svc.lastUpdate.IsActive)
	require.False(t, *svc.lastUpdate.IsActive)
}
