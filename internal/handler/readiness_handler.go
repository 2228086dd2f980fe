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

// ReadinessHandler serves the student-facing readiness endpoints: the
// resolved dashboard view and criterion self-reporting.
type ReadinessHandler struct {
	service   service.ReadinessService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewReadinessHandler builds a readiness handler instance.
func NewReadinessHandler(service service.ReadinessService, validator *validator.Validate, logger zerolog.Logger) *ReadinessHandler {
	return &ReadinessHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "readiness_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ReadinessHandler) Register(router fiber.Router) {
	router.Get("/progress", h.getProgress)
	router.Put("/progress/criteria/:criteriaId", h.upsertStatus)
}

// studentRefFromRequest builds the student identity from the authenticated
// user plus the school/campus context owned by user management, forwarded in
// query parameters by the gateway.
func studentRefFromRequest(c *fiber.Ctx) (service.StudentRef, error) {
	ref := service.StudentRef{
		ID:     userIDFromContext(c),
		School: strings.TrimSpace(c.Query("school")),
	}
	if ref.ID == 0 {
		return service.StudentRef{}, errors.New("authenticated student required")
	}
	if ref.School == "" {
		return service.StudentRef{}, errors.New("school is required")
	}

	campusID, err := parseQueryUintPtr(c, "campus_id")
	if err != nil {
		return service.StudentRef{}, err
	}
	ref.CampusID = campusID

	return ref, nil
}

func (h *ReadinessHandler) getProgress(c *fiber.Ctx) error {
	ref, err := studentRefFromRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	progress, err := h.service.GetOrCreateProgress(c.Context(), ref)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "readiness progress retrieved", progress)
}

func (h *ReadinessHandler) upsertStatus(c *fiber.Ctx) error {
	ref, err := studentRefFromRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	criteriaID := strings.TrimSpace(c.Params("criteriaId"))
	if criteriaID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "criteria id is required")
	}

	var patch dto.CriterionStatusPatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	progress, err := h.service.UpsertCriterionStatus(c.Context(), ref, criteriaID, patch)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "criterion status updated", progress)
}

func (h *ReadinessHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrUnknownCriterion):
		return utils.SendError(c, fiber.StatusBadRequest, "criterion not part of the effective criteria")
	case errors.Is(err, service.ErrMissingRequiredProof):
		return utils.SendError(c, fiber.StatusBadRequest, "proof reference is required to complete this criterion")
	case errors.Is(err, service.ErrCriterionVerified):
		return utils.SendError(c, fiber.StatusConflict, "criterion already verified")
	case errors.Is(err, service.ErrConcurrentModification):
		return utils.SendError(c, fiber.StatusConflict, "progress was modified concurrently, please retry")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
