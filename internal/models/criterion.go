package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CriterionCategory groups criteria on the student-facing checklist.
type CriterionCategory string

const (
	CategoryProfile     CriterionCategory = "profile"
	CategorySkills      CriterionCategory = "skills"
	CategoryTechnical   CriterionCategory = "technical"
	CategoryPreparation CriterionCategory = "preparation"
	CategoryAcademic    CriterionCategory = "academic"
	CategoryOther       CriterionCategory = "other"
)

// CriterionType describes the kind of evidence a criterion expects.
type CriterionType string

const (
	CriterionTypeAnswer  CriterionType = "answer"
	CriterionTypeLink    CriterionType = "link"
	CriterionTypeYesNo   CriterionType = "yes_no"
	CriterionTypeComment CriterionType = "comment"
)

// PocRatingScale is the fixed upper bound for PoC ratings.
const PocRatingScale = 4

// DefaultCriterionWeight is applied when a config omits a criterion weight.
const DefaultCriterionWeight = 1

// CriterionDefinition is a single checkable readiness requirement embedded in
// a readiness config document.
type CriterionDefinition struct {
	CriteriaID         string            `json:"criteria_id" validate:"required"`
	Name               string            `json:"name" validate:"required"`
	Description        string            `json:"description"`
	Category           CriterionCategory `json:"category" validate:"required,oneof=profile skills technical preparation academic other"`
	Type               CriterionType     `json:"type" validate:"required,oneof=answer link yes_no comment"`
	IsActive           bool              `json:"is_active"`
	IsMandatory        bool              `json:"is_mandatory"`
	Weight             float64           `json:"weight" validate:"gte=0"`
	NumericTarget      *float64          `json:"numeric_target,omitempty"`
	PocCommentRequired bool              `json:"poc_comment_required"`
	PocCommentTemplate string            `json:"poc_comment_template,omitempty"`
	PocRatingRequired  bool              `json:"poc_rating_required"`
	PocRatingScale     int               `json:"poc_rating_scale"`
	TargetSchools      []string          `json:"target_schools,omitempty"`
	Link               string            `json:"link,omitempty"`
}

// RequiresProof reports whether completing the criterion needs an evidence URL.
func (c CriterionDefinition) RequiresProof() bool {
	return c.Type == CriterionTypeLink
}

// TargetsSchool reports whether the criterion explicitly targets the school.
// An empty target list inherits the applicability of the owning config.
func (c CriterionDefinition) TargetsSchool(school string) bool {
	for _, target := range c.TargetSchools {
		if target == school {
			return true
		}
	}
	return false
}

// CriterionList stores embedded criterion definitions as a JSON column.
type CriterionList []CriterionDefinition

// Value implements driver.Valuer.
func (l CriterionList) Value() (driver.Value, error) {
	if l == nil {
		l = CriterionList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *CriterionList) Scan(value interface{}) error {
	if value == nil {
		*l = CriterionList{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported criterion list source type %T", value)
	}
}

// GormDataType instructs GORM to map the list to a JSON column.
func (CriterionList) GormDataType() string {
	return "json"
}
