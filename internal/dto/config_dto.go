package dto

import (
	"time"

	"github.com/placementhq/readiness-api/internal/models"
)

// CriterionPayload is the request shape for one criterion inside a config.
type CriterionPayload struct {
	CriteriaID         string   `json:"criteria_id" validate:"required,max=128"`
	Name               string   `json:"name" validate:"required,max=255"`
	Description        string   `json:"description" validate:"max=2000"`
	Category           string   `json:"category" validate:"required,oneof=profile skills technical preparation academic other"`
	Type               string   `json:"type" validate:"required,oneof=answer link yes_no comment"`
	IsActive           *bool    `json:"is_active"`
	IsMandatory        bool     `json:"is_mandatory"`
	Weight             *float64 `json:"weight" validate:"omitempty,gt=0"`
	NumericTarget      *float64 `json:"numeric_target"`
	PocCommentRequired bool     `json:"poc_comment_required"`
	PocCommentTemplate string   `json:"poc_comment_template" validate:"max=2000"`
	PocRatingRequired  bool     `json:"poc_rating_required"`
	TargetSchools      []string `json:"target_schools" validate:"dive,required"`
	Link               string   `json:"link" validate:"omitempty,url"`
}

// ConfigCreateRequest creates a readiness config for a (school, campus) pair.
type ConfigCreateRequest struct {
	School   string             `json:"school" validate:"required,max=128"`
	CampusID *uint              `json:"campus_id"`
	Criteria []CriterionPayload `json:"criteria" validate:"required,min=1,dive"`
	IsActive *bool              `json:"is_active"`
}

// ConfigUpdateRequest replaces the criteria list or toggles activation.
type ConfigUpdateRequest struct {
	Criteria []CriterionPayload `json:"criteria" validate:"omitempty,min=1,dive"`
	IsActive *bool              `json:"is_active"`
}

// ConfigListRequest filters the admin config listing.
type ConfigListRequest struct {
	School   string `json:"school"`
	IsActive *bool  `json:"is_active"`
	Page     int    `json:"page" validate:"gte=0"`
	PageSize int    `json:"page_size" validate:"gte=0,lte=100"`
}

// ConfigResponse is the API projection of a readiness config.
type ConfigResponse struct {
	ID        uint                         `json:"id"`
	School    string                       `json:"school"`
	CampusID  *uint                        `json:"campus_id"`
	Criteria  []models.CriterionDefinition `json:"criteria"`
	IsActive  bool                         `json:"is_active"`
	CreatedBy uint                         `json:"created_by"`
	UpdatedBy uint                         `json:"updated_by"`
	CreatedAt time.Time                    `json:"created_at"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

// NewConfigResponse maps a config model to its API projection.
func NewConfigResponse(config models.JobReadinessConfig) ConfigResponse {
	criteria := config.Criteria
	if criteria == nil {
		criteria = models.CriterionList{}
	}

	return ConfigResponse{
		ID:        config.ID,
		School:    config.School,
		CampusID:  config.CampusID,
		Criteria:  criteria,
		IsActive:  config.IsActive,
		CreatedBy: config.CreatedBy,
		UpdatedBy: config.UpdatedBy,
		CreatedAt: config.CreatedAt,
		UpdatedAt: config.UpdatedAt,
	}
}

// ConfigListResponse pages through configs for the admin surface.
type ConfigListResponse struct {
	Items      []ConfigResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}
