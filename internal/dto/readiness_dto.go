package dto

import (
	"time"

	"github.com/placementhq/readiness-api/internal/models"
)

// CriterionStatusPatch is a student self-report against one criterion.
type CriterionStatusPatch struct {
	Status            string   `json:"status" validate:"required,oneof=in_progress completed"`
	SelfReportedValue *float64 `json:"self_reported_value"`
	ProofURL          string   `json:"proof_url" validate:"omitempty,url"`
	Notes             string   `json:"notes" validate:"max=2000"`
}

// VerificationRequest carries reviewer notes for a verify or reject action.
type VerificationRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// CriterionFeedbackRequest carries the orthogonal PoC feedback channel.
// At least one of comment or rating must be present.
type CriterionFeedbackRequest struct {
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
	Rating  *int    `json:"rating" validate:"omitempty,gte=1"`
}

// ApprovalRequest carries notes for the manual job-ready attestation.
type ApprovalRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// CriterionProgressView merges a resolved criterion definition with the
// student's status entry for the dashboard.
type CriterionProgressView struct {
	CriteriaID         string                 `json:"criteria_id"`
	Name               string                 `json:"name"`
	Description        string                 `json:"description,omitempty"`
	Category           string                 `json:"category"`
	Type               string                 `json:"type"`
	IsMandatory        bool                   `json:"is_mandatory"`
	Weight             float64                `json:"weight"`
	NumericTarget      *float64               `json:"numeric_target,omitempty"`
	Link               string                 `json:"link,omitempty"`
	PocCommentRequired bool                   `json:"poc_comment_required"`
	PocRatingRequired  bool                   `json:"poc_rating_required"`
	Status             models.CriterionStatus `json:"status"`
	SelfReportedValue  *float64               `json:"self_reported_value,omitempty"`
	ProofURL           string                 `json:"proof_url,omitempty"`
	Notes              string                 `json:"notes,omitempty"`
	VerifiedBy         *uint                  `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time             `json:"verified_at,omitempty"`
	VerificationNotes  string                 `json:"verification_notes,omitempty"`
	PocComment         string                 `json:"poc_comment,omitempty"`
	PocRating          *int                   `json:"poc_rating,omitempty"`
	CompletedAt        *time.Time             `json:"completed_at,omitempty"`
	UpdatedAt          *time.Time             `json:"updated_at,omitempty"`
}

// ReadinessResponse is the full readiness view for one student.
type ReadinessResponse struct {
	StudentID           uint                    `json:"student_id"`
	School              string                  `json:"school"`
	CampusID            *uint                   `json:"campus_id"`
	ReadinessPercentage int                     `json:"readiness_percentage"`
	ReadinessStatus     models.ReadinessStatus  `json:"readiness_status"`
	IsJobReady          bool                    `json:"is_job_ready"`
	ApprovedAsJobReady  bool                    `json:"approved_as_job_ready"`
	ApprovedBy          *uint                   `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time              `json:"approved_at,omitempty"`
	ApprovalNotes       string                  `json:"approval_notes,omitempty"`
	Criteria            []CriterionProgressView `json:"criteria"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// NewReadinessResponse joins the resolved criteria with the progress document.
// Criteria without an entry surface as not_started.
func NewReadinessResponse(progress models.StudentJobReadiness, criteria []models.CriterionDefinition) ReadinessResponse {
	views := make([]CriterionProgressView, 0, len(criteria))
	for _, criterion := range criteria {
		view := CriterionProgressView{
			CriteriaID:         criterion.CriteriaID,
			Name:               criterion.Name,
			Description:        criterion.Description,
			Category:           string(criterion.Category),
			Type:               string(criterion.Type),
			IsMandatory:        criterion.IsMandatory,
			Weight:             criterion.Weight,
			NumericTarget:      criterion.NumericTarget,
			Link:               criterion.Link,
			PocCommentRequired: criterion.PocCommentRequired,
			PocRatingRequired:  criterion.PocRatingRequired,
			Status:             models.StatusNotStarted,
		}

		if idx := progress.CriteriaStatus.IndexOf(criterion.CriteriaID); idx >= 0 {
			entry := progress.CriteriaStatus[idx]
			updatedAt := entry.UpdatedAt
			view.Status = entry.Status
			view.SelfReportedValue = entry.SelfReportedValue
			view.ProofURL = entry.ProofURL
			view.Notes = entry.Notes
			view.VerifiedBy = entry.VerifiedBy
			view.VerifiedAt = entry.VerifiedAt
			view.VerificationNotes = entry.VerificationNotes
			view.PocComment = entry.PocComment
			view.PocRating = entry.PocRating
			view.CompletedAt = entry.CompletedAt
			view.UpdatedAt = &updatedAt
		}

		views = append(views, view)
	}

	return ReadinessResponse{
		StudentID:           progress.StudentID,
		School:              progress.School,
		CampusID:            progress.CampusID,
		ReadinessPercentage: progress.ReadinessPercentage,
		ReadinessStatus:     progress.ReadinessStatus,
		IsJobReady:          progress.IsJobReady,
		ApprovedAsJobReady:  progress.ApprovedAsJobReady,
		ApprovedBy:          progress.ApprovedBy,
		ApprovedAt:          progress.ApprovedAt,
		ApprovalNotes:       progress.ApprovalNotes,
		Criteria:            views,
		UpdatedAt:           progress.UpdatedAt,
	}
}

// BatchRecomputeResponse summarises a school-wide recompute run.
type BatchRecomputeResponse struct {
	School    string `json:"school"`
	Processed int    `json:"processed"`
	Changed   int    `json:"changed"`
}
