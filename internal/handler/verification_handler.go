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

// VerificationHandler serves the PoC and manager review surface:
// verification, rejection, feedback, the manual job-ready attestation and
// batch recompute.
type VerificationHandler struct {
	service   service.ReadinessService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewVerificationHandler builds a verification handler instance.
func NewVerificationHandler(service service.ReadinessService, validator *validator.Validate, logger zerolog.Logger) *VerificationHandler {
	return &VerificationHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "verification_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *VerificationHandler) Register(router fiber.Router) {
	router.Post("/students/:studentId/criteria/:criteriaId/verify", h.verify)
	router.Post("/students/:studentId/criteria/:criteriaId/reject", h.reject)
	router.Post("/students/:studentId/criteria/:criteriaId/feedback", h.feedback)
	router.Post("/students/:studentId/approve", h.approve)
	router.Post("/students/:studentId/approve/revoke", h.revokeApproval)
}

// RegisterAdmin attaches the batch recompute route, kept separate so it can
// carry a stricter role guard than the review surface.
func (h *VerificationHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/recompute", h.recomputeSchool)
}

func (h *VerificationHandler) verify(c *fiber.Ctx) error {
	studentID, criteriaID, err := studentCriterionParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.VerificationRequest
	if err := c.BodyParser(&payload); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	progress, err := h.service.VerifyCriterion(c.Context(), studentID, criteriaID, activityActorFromContext(c), payload.Notes)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "criterion verified", progress)
}

func (h *VerificationHandler) reject(c *fiber.Ctx) error {
	studentID, criteriaID, err := studentCriterionParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.VerificationRequest
	if err := c.BodyParser(&payload); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	progress, err := h.service.RejectCriterion(c.Context(), studentID, criteriaID, activityActorFromContext(c), payload.Notes)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "criterion rejected", progress)
}

func (h *VerificationHandler) feedback(c *fiber.Ctx) error {
	studentID, criteriaID, err := studentCriterionParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CriterionFeedbackRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	progress, err := h.service.CommentOrRate(c.Context(), studentID, criteriaID, activityActorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "criterion feedback recorded", progress)
}

func (h *VerificationHandler) approve(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApprovalRequest
	if err := c.BodyParser(&payload); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	progress, err := h.service.ApproveJobReady(c.Context(), studentID, activityActorFromContext(c), payload.Notes)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "student approved as job ready", progress)
}

func (h *VerificationHandler) revokeApproval(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApprovalRequest
	if err := c.BodyParser(&payload); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	progress, err := h.service.RevokeJobReadyApproval(c.Context(), studentID, activityActorFromContext(c), payload.Notes)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "job ready approval revoked", progress)
}

func (h *VerificationHandler) recomputeSchool(c *fiber.Ctx) error {
	school := strings.TrimSpace(c.Query("school"))
	if school == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "school is required")
	}

	result, err := h.service.RecomputeSchool(c.Context(), school, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "school readiness recomputed", result)
}

func studentCriterionParams(c *fiber.Ctx) (uint, string, error) {
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return 0, "", err
	}

	criteriaID := strings.TrimSpace(c.Params("criteriaId"))
	if criteriaID == "" {
		return 0, "", errors.New("criteria id is required")
	}

	return studentID, criteriaID, nil
}

func (h *VerificationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrProgressNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "readiness progress not found")
	case errors.Is(err, service.ErrUnknownCriterion):
		return utils.SendError(c, fiber.StatusBadRequest, "criterion not part of the effective criteria")
	case errors.Is(err, service.ErrCriterionNotCompleted):
		return utils.SendError(c, fiber.StatusConflict, "criterion must be completed before review")
	case errors.Is(err, service.ErrRatingOutOfRange):
		return utils.SendError(c, fiber.StatusBadRequest, "rating outside the poc rating scale")
	case errors.Is(err, service.ErrFeedbackEmpty):
		return utils.SendError(c, fiber.StatusBadRequest, "comment or rating is required")
	case errors.Is(err, service.ErrConcurrentModification):
		return utils.SendError(c, fiber.StatusConflict, "progress was modified concurrently, please retry")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
