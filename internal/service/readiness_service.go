package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/placementhq/readiness-api/internal/dto"
	"github.com/placementhq/readiness-api/internal/models"
	"github.com/placementhq/readiness-api/internal/observability"
	"github.com/placementhq/readiness-api/internal/repository"
	"github.com/placementhq/readiness-api/internal/scoring"
)

// ErrProgressNotFound indicates no readiness progress exists for the student.
var ErrProgressNotFound = errors.New("readiness progress not found")

// ErrUnknownCriterion indicates the criterion is absent from the student's
// currently resolved effective criteria set.
var ErrUnknownCriterion = errors.New("criterion not present in effective criteria")

// ErrMissingRequiredProof indicates a completion attempt without the evidence
// reference the criterion requires.
var ErrMissingRequiredProof = errors.New("proof reference required to complete criterion")

// ErrCriterionNotCompleted indicates a review action on an entry that is not
// in the completed state.
var ErrCriterionNotCompleted = errors.New("criterion must be completed before review")

// ErrCriterionVerified indicates a student write against a verified entry.
var ErrCriterionVerified = errors.New("criterion already verified")

// ErrRatingOutOfRange indicates a PoC rating outside the criterion's scale.
var ErrRatingOutOfRange = errors.New("rating outside the poc rating scale")

// ErrFeedbackEmpty indicates a feedback request with neither comment nor rating.
var ErrFeedbackEmpty = errors.New("comment or rating is required")

// ErrConcurrentModification indicates repeated optimistic-lock losses; the
// caller should retry the request.
var ErrConcurrentModification = errors.New("progress modified concurrently")

// progressWriteAttempts bounds the optimistic retry loop per request.
const progressWriteAttempts = 3

// StudentRef identifies a student together with the school and campus fields
// owned by user management.
type StudentRef struct {
	ID       uint
	School   string
	CampusID *uint
}

// ReadinessService is the mutation surface over a student's readiness
// progress. Every mutation recomputes the readiness result from the freshly
// resolved effective criteria and writes it back to the cached fields.
type ReadinessService interface {
	GetOrCreateProgress(ctx context.Context, ref StudentRef) (dto.ReadinessResponse, error)
	UpsertCriterionStatus(ctx context.Context, ref StudentRef, criteriaID string, patch dto.CriterionStatusPatch) (dto.ReadinessResponse, error)
	VerifyCriterion(ctx context.Context, studentID uint, criteriaID string, verifier ActivityActor, notes string) (dto.ReadinessResponse, error)
	RejectCriterion(ctx context.Context, studentID uint, criteriaID string, reviewer ActivityActor, notes string) (dto.ReadinessResponse, error)
	CommentOrRate(ctx context.Context, studentID uint, criteriaID string, reviewer ActivityActor, payload dto.CriterionFeedbackRequest) (dto.ReadinessResponse, error)
	ApproveJobReady(ctx context.Context, studentID uint, approver ActivityActor, notes string) (dto.ReadinessResponse, error)
	RevokeJobReadyApproval(ctx context.Context, studentID uint, actor ActivityActor, notes string) (dto.ReadinessResponse, error)
	RecomputeSchool(ctx context.Context, school string, actor ActivityActor) (dto.BatchRecomputeResponse, error)
}

type readinessService struct {
	progress  repository.ProgressRepository
	resolver  CriteriaResolver
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	activity  ActivityRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewReadinessService constructs the readiness workflow service.
func NewReadinessService(progress repository.ProgressRepository, resolver CriteriaResolver, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ReadinessService {
	return &readinessService{
		progress:  progress,
		resolver:  resolver,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		activity:  activity,
		logger:    logger.With().Str("component", "readiness_service").Logger(),
		now:       time.Now,
	}
}

func (s *readinessService) GetOrCreateProgress(ctx context.Context, ref StudentRef) (dto.ReadinessResponse, error) {
	progress, criteria, err := s.mutateProgress(ctx, ref.ID, &ref, nil)
	if err != nil {
		return dto.ReadinessResponse{}, err
	}

	return dto.NewReadinessResponse(progress, criteria), nil
}

func (s *readinessService) UpsertCriterionStatus(ctx context.Context, ref StudentRef, criteriaID string, patch dto.CriterionStatusPatch) (dto.ReadinessResponse, error) {
	ctx, span := s.startSpan(ctx, "readiness.upsert_status", ref.ID, criteriaID)
	defer span.End()

	if err := s.validator.Struct(patch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ReadinessResponse{}, err
	}

	now := s.now()
	progress, criteria, err := s.mutateProgress(ctx, ref.ID, &ref, func(progress *models.StudentJobReadiness, criteria []models.CriterionDefinition) error {
		criterion, ok := findCriterion(criteria, criteriaID)
		if !ok {
			return ErrUnknownCriterion
		}

		newStatus := models.CriterionStatus(patch.Status)
		idx := progress.CriteriaStatus.IndexOf(criteriaID)

		proofURL := patch.ProofURL
		if proofURL == "" && idx >= 0 {
			proofURL = progress.CriteriaStatus[idx].ProofURL
		}
		if newStatus == models.StatusCompleted && criterion.RequiresProof() && proofURL == "" {
			return ErrMissingRequiredProof
		}

		if idx < 0 {
			progress.CriteriaStatus = append(progress.CriteriaStatus, models.CriterionStatusEntry{
				CriteriaID: criteriaID,
				Status:     models.StatusNotStarted,
			})
			idx = len(progress.CriteriaStatus) - 1
		}

		entry := &progress.CriteriaStatus[idx]
		if entry.Status == models.StatusVerified {
			return ErrCriterionVerified
		}

		entry.Status = newStatus
		if patch.SelfReportedValue != nil {
			entry.SelfReportedValue = patch.SelfReportedValue
		}
		if patch.ProofURL != "" {
			entry.ProofURL = patch.ProofURL
		}
		if patch.Notes != "" {
			entry.Notes = s.sanitizer.Sanitize(patch.Notes)
		}

		switch newStatus {
		case models.StatusCompleted:
			if entry.CompletedAt == nil {
				completedAt := now
				entry.CompletedAt = &completedAt
			}
		case models.StatusInProgress:
			entry.CompletedAt = nil
		}
		entry.UpdatedAt = now

		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert_failed")
		return dto.ReadinessResponse{}, err
	}

	span.SetAttributes(attribute.Int("readiness.percentage", progress.ReadinessPercentage))
	return dto.NewReadinessResponse(progress, criteria), nil
}

func (s *readinessService) VerifyCriterion(ctx context.Context, studentID uint, criteriaID string, verifier ActivityActor, notes string) (dto.ReadinessResponse, error) {
	ctx, span := s.startSpan(ctx, "readiness.verify", studentID, criteriaID)
	defer span.End()

	now := s.now()
	progress, criteria, err := s.mutateProgress(ctx, studentID, nil, func(progress *models.StudentJobReadiness, criteria []models.CriterionDefinition) error {
		if _, ok := findCriterion(criteria, criteriaID); !ok {
			return ErrUnknownCriterion
		}

		idx := progress.CriteriaStatus.IndexOf(criteriaID)
		if idx < 0 || progress.CriteriaStatus[idx].Status != models.StatusCompleted {
			return ErrCriterionNotCompleted
		}

		entry := &progress.CriteriaStatus[idx]
		entry.Status = models.StatusVerified
		verifiedBy := verifier.ID
		verifiedAt := now
		entry.VerifiedBy = &verifiedBy
		entry.VerifiedAt = &verifiedAt
		entry.VerificationNotes = s.sanitizer.Sanitize(notes)
		entry.UpdatedAt = now

		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verify_failed")
		return dto.ReadinessResponse{}, err
	}

	s.record(ctx, verifier, "criterion.verified", progress.ID, map[string]interface{}{
		"student_id":  studentID,
		"criteria_id": criteriaID,
	})

	return dto.NewReadinessResponse(progress, criteria), nil
}

// RejectCriterion reverts a completed self-report to in_progress and records
// the reviewer and feedback in the verification fields. The status enum has
// no rejected value; the populated verification notes on a non-verified entry
// are what distinguishes a rejection from an untouched report.
func (s *readinessService) RejectCriterion(ctx context.Context, studentID uint, criteriaID string, reviewer ActivityActor, notes string) (dto.ReadinessResponse, error) {
	ctx, span := s.startSpan(ctx, "readiness.reject", studentID, criteriaID)
	defer span.End()

	now := s.now()
	progress, criteria, err := s.mutateProgress(ctx, studentID, nil, func(progress *models.StudentJobReadiness, criteria []models.CriterionDefinition) error {
		if _, ok := findCriterion(criteria, criteriaID); !ok {
			return ErrUnknownCriterion
		}

		idx := progress.CriteriaStatus.IndexOf(criteriaID)
		if idx < 0 || progress.CriteriaStatus[idx].Status != models.StatusCompleted {
			return ErrCriterionNotCompleted
		}

		entry := &progress.CriteriaStatus[idx]
		entry.Status = models.StatusInProgress
		reviewedBy := reviewer.ID
		entry.VerifiedBy = &reviewedBy
		entry.VerifiedAt = nil
		entry.VerificationNotes = s.sanitizer.Sanitize(notes)
		entry.CompletedAt = nil
		entry.UpdatedAt = now

		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reject_failed")
		return dto.ReadinessResponse{}, err
	}

	s.record(ctx, reviewer, "criterion.rejected", progress.ID, map[string]interface{}{
		"student_id":  studentID,
		"criteria_id": criteriaID,
	})

	return dto.NewReadinessResponse(progress, criteria), nil
}

func (s *readinessService) CommentOrRate(ctx context.Context, studentID uint, criteriaID string, reviewer ActivityActor, payload dto.CriterionFeedbackRequest) (dto.ReadinessResponse, error) {
	ctx, span := s.startSpan(ctx, "readiness.feedback", studentID, criteriaID)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ReadinessResponse{}, err
	}
	if payload.Comment == nil && payload.Rating == nil {
		return dto.ReadinessResponse{}, ErrFeedbackEmpty
	}

	now := s.now()
	progress, criteria, err := s.mutateProgress(ctx, studentID, nil, func(progress *models.StudentJobReadiness, criteria []models.CriterionDefinition) error {
		criterion, ok := findCriterion(criteria, criteriaID)
		if !ok {
			return ErrUnknownCriterion
		}

		if payload.Rating != nil {
			scale := criterion.PocRatingScale
			if scale <= 0 {
				scale = models.PocRatingScale
			}
			if *payload.Rating < 1 || *payload.Rating > scale {
				return ErrRatingOutOfRange
			}
		}

		idx := progress.CriteriaStatus.IndexOf(criteriaID)
		if idx < 0 {
			progress.CriteriaStatus = append(progress.CriteriaStatus, models.CriterionStatusEntry{
				CriteriaID: criteriaID,
				Status:     models.StatusNotStarted,
			})
			idx = len(progress.CriteriaStatus) - 1
		}

		entry := &progress.CriteriaStatus[idx]
		reviewerID := reviewer.ID
		if payload.Comment != nil {
			entry.PocComment = s.sanitizer.Sanitize(*payload.Comment)
			entry.PocCommentedBy = &reviewerID
			commentedAt := now
			entry.PocCommentedAt = &commentedAt
		}
		if payload.Rating != nil {
			rating := *payload.Rating
			entry.PocRating = &rating
			entry.PocRatedBy = &reviewerID
			ratedAt := now
			entry.PocRatedAt = &ratedAt
		}
		entry.UpdatedAt = now

		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "feedback_failed")
		return dto.ReadinessResponse{}, err
	}

	s.record(ctx, reviewer, "criterion.feedback", progress.ID, map[string]interface{}{
		"student_id":  studentID,
		"criteria_id": criteriaID,
	})

	return dto.NewReadinessResponse(progress, criteria), nil
}

// ApproveJobReady sets the manual attestation flag. It never touches the
// computed readiness fields: the two signals are allowed to disagree, and
// consumers needing the official designation must check the approval flag.
func (s *readinessService) ApproveJobReady(ctx context.Context, studentID uint, approver ActivityActor, notes string) (dto.ReadinessResponse, error) {
	ctx, span := s.startSpan(ctx, "readiness.approve", studentID, "")
	defer span.End()

	now := s.now()
	progress, criteria, err := s.mutateProgress(ctx, studentID, nil, func(progress *models.StudentJobReadiness, criteria []models.CriterionDefinition) error {
		approvedBy := approver.ID
		approvedAt := now
		progress.ApprovedAsJobReady = true
		progress.ApprovedBy = &approvedBy
		progress.ApprovedAt = &approvedAt
		progress.ApprovalNotes = s.sanitizer.Sanitize(notes)

		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "approve_failed")
		return dto.ReadinessResponse{}, err
	}

	s.record(ctx, approver, "readiness.approved", progress.ID, map[string]interface{}{
		"student_id":           studentID,
		"computed_isjobready":  progress.IsJobReady,
		"readiness_percentage": progress.ReadinessPercentage,
	})

	return dto.NewReadinessResponse(progress, criteria), nil
}

func (s *readinessService) RevokeJobReadyApproval(ctx context.Context, studentID uint, actor ActivityActor, notes string) (dto.ReadinessResponse, error) {
	ctx, span := s.startSpan(ctx, "readiness.revoke_approval", studentID, "")
	defer span.End()

	progress, criteria, err := s.mutateProgress(ctx, studentID, nil, func(progress *models.StudentJobReadiness, criteria []models.CriterionDefinition) error {
		progress.ApprovedAsJobReady = false
		progress.ApprovedBy = nil
		progress.ApprovedAt = nil
		progress.ApprovalNotes = s.sanitizer.Sanitize(notes)

		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "revoke_failed")
		return dto.ReadinessResponse{}, err
	}

	s.record(ctx, actor, "readiness.approval_revoked", progress.ID, map[string]interface{}{
		"student_id": studentID,
	})

	return dto.NewReadinessResponse(progress, criteria), nil
}

// RecomputeSchool re-runs resolution and scoring for every student of a
// school. Managers run it after editing a config so cached fields converge
// without waiting for each student's next interaction.
func (s *readinessService) RecomputeSchool(ctx context.Context, school string, actor ActivityActor) (dto.BatchRecomputeResponse, error) {
	tracer := otel.Tracer("github.com/placementhq/readiness-api/internal/service/readiness")
	ctx, span := tracer.Start(ctx, "readiness.recompute_school")
	span.SetAttributes(attribute.String("readiness.school", school))
	defer span.End()

	students, err := s.progress.ListBySchool(ctx, school)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_failed")
		return dto.BatchRecomputeResponse{}, err
	}

	response := dto.BatchRecomputeResponse{School: school}
	for _, current := range students {
		before := [3]interface{}{current.ReadinessPercentage, current.ReadinessStatus, current.IsJobReady}

		updated, _, err := s.mutateProgress(ctx, current.StudentID, nil, nil)
		if err != nil {
			s.logger.Warn().Err(err).Uint("student_id", current.StudentID).Msg("batch recompute skipped student")
			continue
		}

		response.Processed++
		after := [3]interface{}{updated.ReadinessPercentage, updated.ReadinessStatus, updated.IsJobReady}
		if before != after {
			response.Changed++
		}
	}

	s.record(ctx, actor, "readiness.recomputed", 0, map[string]interface{}{
		"school":    school,
		"processed": response.Processed,
		"changed":   response.Changed,
	})

	return response, nil
}

// mutateProgress is the single read-modify-write path for a student's
// progress document. It loads (or lazily creates) the document, resolves the
// effective criteria fresh, applies the mutation, recomputes the readiness
// result from scratch and writes everything back under optimistic versioning.
func (s *readinessService) mutateProgress(ctx context.Context, studentID uint, ensure *StudentRef, mutate func(*models.StudentJobReadiness, []models.CriterionDefinition) error) (models.StudentJobReadiness, []models.CriterionDefinition, error) {
	for attempt := 0; attempt < progressWriteAttempts; attempt++ {
		progress, err := s.loadOrCreate(ctx, studentID, ensure)
		if err != nil {
			return models.StudentJobReadiness{}, nil, err
		}

		criteria, err := s.resolver.ResolveEffectiveCriteria(ctx, progress.School, progress.CampusID)
		if err != nil {
			return models.StudentJobReadiness{}, nil, err
		}

		if mutate != nil {
			if err := mutate(&progress, criteria); err != nil {
				return models.StudentJobReadiness{}, nil, err
			}
		}

		result := scoring.Compute(criteria, progress.CriteriaStatus)
		progress.ReadinessPercentage = result.Percentage
		progress.ReadinessStatus = result.Status
		progress.IsJobReady = result.IsJobReady

		err = s.progress.UpdateVersioned(ctx, &progress)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug().Uint("student_id", studentID).Int("attempt", attempt+1).Msg("progress write lost optimistic race")
			continue
		}
		if err != nil {
			return models.StudentJobReadiness{}, nil, err
		}

		observability.ReadinessRecomputes().Inc()
		return progress, criteria, nil
	}

	return models.StudentJobReadiness{}, nil, ErrConcurrentModification
}

func (s *readinessService) loadOrCreate(ctx context.Context, studentID uint, ensure *StudentRef) (models.StudentJobReadiness, error) {
	progress, err := s.progress.GetByStudent(ctx, studentID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.StudentJobReadiness{}, err
	}
	if ensure == nil {
		return models.StudentJobReadiness{}, ErrProgressNotFound
	}

	created := models.StudentJobReadiness{
		StudentID:       ensure.ID,
		School:          ensure.School,
		CampusID:        ensure.CampusID,
		CriteriaStatus:  models.StatusEntryList{},
		ReadinessStatus: models.ReadinessNotReady,
	}
	if err := s.progress.Create(ctx, &created); err != nil {
		// A concurrent first interaction may have created the row already.
		if existing, getErr := s.progress.GetByStudent(ctx, studentID); getErr == nil {
			return existing, nil
		}
		return models.StudentJobReadiness{}, err
	}

	return created, nil
}

func (s *readinessService) record(ctx context.Context, actor ActivityActor, action string, progressID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	entry := ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "student_readiness",
		Metadata:   metadata,
	}
	if progressID > 0 {
		id := progressID
		entry.EntityID = &id
	}

	if _, err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record readiness activity")
	}
}

func (s *readinessService) startSpan(ctx context.Context, name string, studentID uint, criteriaID string) (context.Context, trace.Span) {
	tracer := otel.Tracer("github.com/placementhq/readiness-api/internal/service/readiness")
	ctx, span := tracer.Start(ctx, name)
	attrs := []attribute.KeyValue{attribute.Int64("readiness.student_id", int64(studentID))}
	if criteriaID != "" {
		attrs = append(attrs, attribute.String("readiness.criteria_id", criteriaID))
	}
	span.SetAttributes(attrs...)
	return ctx, span
}

func findCriterion(criteria []models.CriterionDefinition, criteriaID string) (models.CriterionDefinition, bool) {
	for _, criterion := range criteria {
		if criterion.CriteriaID == criteriaID {
			return criterion, true
		}
	}
	return models.CriterionDefinition{}, false
}
