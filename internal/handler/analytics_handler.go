package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/placementhq/readiness-api/internal/dto"
	"github.com/placementhq/readiness-api/internal/service"
	"github.com/placementhq/readiness-api/internal/utils"
)

// AnalyticsHandler serves cohort readiness reporting plus the audit trail.
type AnalyticsHandler struct {
	analytics service.AnalyticsService
	activity  service.ActivityService
	logger    zerolog.Logger
}

// NewAnalyticsHandler builds an analytics handler instance.
func NewAnalyticsHandler(analytics service.AnalyticsService, activity service.ActivityService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		activity:  activity,
		logger:    logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AnalyticsHandler) Register(router fiber.Router) {
	router.Get("/overview", h.overview)
	router.Get("/activity", h.listActivity)
}

func (h *AnalyticsHandler) overview(c *fiber.Ctx) error {
	school := strings.TrimSpace(c.Query("school"))
	if school == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "school is required")
	}

	overview, err := h.analytics.Overview(c.Context(), school)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build readiness overview")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "readiness overview retrieved", overview)
}

func (h *AnalyticsHandler) listActivity(c *fiber.Ctx) error {
	req := dto.ActivityListRequest{
		Action:     strings.TrimSpace(c.Query("action")),
		EntityType: strings.TrimSpace(c.Query("entity_type")),
	}

	if page, err := parseQueryInt(c, "page"); err == nil {
		req.Page = page
	}
	if pageSize, err := parseQueryInt(c, "page_size"); err == nil {
		req.PageSize = pageSize
	}
	if actorID, err := parseQueryUintPtr(c, "actor_id"); err == nil && actorID != nil {
		req.ActorID = *actorID
	}
	if entityID, err := parseQueryUintPtr(c, "entity_id"); err == nil && entityID != nil {
		req.EntityID = entityID
	}

	entries, err := h.activity.List(c.Context(), req)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		h.logger.Error().Err(err).Msg("failed to list activity")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "activity retrieved", entries)
}
