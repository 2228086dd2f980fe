package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/placementhq/readiness-api/internal/dto"
	"github.com/placementhq/readiness-api/internal/service"
	"github.com/placementhq/readiness-api/internal/utils"
)

// ConfigHandler manages readiness config administration endpoints.
type ConfigHandler struct {
	service   service.ConfigService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewConfigHandler builds a config handler instance.
func NewConfigHandler(service service.ConfigService, validator *validator.Validate, logger zerolog.Logger) *ConfigHandler {
	return &ConfigHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "config_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ConfigHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
}

func (h *ConfigHandler) list(c *fiber.Ctx) error {
	req := dto.ConfigListRequest{School: strings.TrimSpace(c.Query("school"))}

	if page, err := parseQueryInt(c, "page"); err == nil {
		req.Page = page
	}
	if pageSize, err := parseQueryInt(c, "page_size"); err == nil {
		req.PageSize = pageSize
	}
	if active := strings.TrimSpace(c.Query("is_active")); active != "" {
		isActive := active == "true"
		req.IsActive = &isActive
	}

	configs, err := h.service.List(c.Context(), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "configs retrieved", configs)
}

func (h *ConfigHandler) create(c *fiber.Ctx) error {
	var payload dto.ConfigCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	config, err := h.service.Create(c.Context(), payload, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "config created", config)
}

func (h *ConfigHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	config, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "config retrieved", config)
}

func (h *ConfigHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ConfigUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	config, err := h.service.Update(c.Context(), id, payload, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "config updated", config)
}

func (h *ConfigHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrConfigNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "config not found")
	case errors.Is(err, service.ErrDuplicateConfig):
		return utils.SendError(c, fiber.StatusConflict, "config already exists for school and campus")
	case errors.Is(err, service.ErrDuplicateCriterion):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
