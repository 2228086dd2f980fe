package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CriterionStatus is the closed set of per-criterion progress states.
type CriterionStatus string

const (
	StatusNotStarted CriterionStatus = "not_started"
	StatusInProgress CriterionStatus = "in_progress"
	StatusCompleted  CriterionStatus = "completed"
	StatusVerified   CriterionStatus = "verified"
)

// ValidCriterionStatus reports whether the value belongs to the status enum.
func ValidCriterionStatus(status CriterionStatus) bool {
	switch status {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusVerified:
		return true
	default:
		return false
	}
}

// ReadinessStatus is the human-facing readiness label.
type ReadinessStatus string

const (
	ReadinessNotReady     ReadinessStatus = "Not Job Ready"
	ReadinessUnderProcess ReadinessStatus = "Job Ready Under Process"
	ReadinessJobReady     ReadinessStatus = "Job Ready"
)

// CriterionStatusEntry records a student's progress against one criterion.
// Entries are unique by CriteriaID within a progress document and are mutated
// in place, never duplicated.
type CriterionStatusEntry struct {
	CriteriaID        string          `json:"criteria_id"`
	Status            CriterionStatus `json:"status"`
	SelfReportedValue *float64        `json:"self_reported_value,omitempty"`
	ProofURL          string          `json:"proof_url,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	VerifiedBy        *uint           `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time      `json:"verified_at,omitempty"`
	VerificationNotes string          `json:"verification_notes,omitempty"`
	PocComment        string          `json:"poc_comment,omitempty"`
	PocCommentedBy    *uint           `json:"poc_commented_by,omitempty"`
	PocCommentedAt    *time.Time      `json:"poc_commented_at,omitempty"`
	PocRating         *int            `json:"poc_rating,omitempty"`
	PocRatedBy        *uint           `json:"poc_rated_by,omitempty"`
	PocRatedAt        *time.Time      `json:"poc_rated_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Achieved reports whether the entry counts towards the readiness percentage.
// Both completed and verified count; mandatory gating uses the same rule.
func (e CriterionStatusEntry) Achieved() bool {
	return e.Status == StatusCompleted || e.Status == StatusVerified
}

// StatusEntryList stores criterion status entries as a JSON column.
type StatusEntryList []CriterionStatusEntry

// IndexOf returns the position of the entry for the given criterion, or -1.
func (l StatusEntryList) IndexOf(criteriaID string) int {
	for i := range l {
		if l[i].CriteriaID == criteriaID {
			return i
		}
	}
	return -1
}

// Value implements driver.Valuer.
func (l StatusEntryList) Value() (driver.Value, error) {
	if l == nil {
		l = StatusEntryList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StatusEntryList) Scan(value interface{}) error {
	if value == nil {
		*l = StatusEntryList{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported status entry list source type %T", value)
	}
}

// GormDataType instructs GORM to map the list to a JSON column.
func (StatusEntryList) GormDataType() string {
	return "json"
}

// StudentJobReadiness is the per-student progress document. Exactly one row
// exists per student; it is created lazily on first interaction.
//
// ReadinessPercentage, ReadinessStatus and IsJobReady are derived caches
// recomputed from the effective criteria on every mutation. ApprovedAsJobReady
// is the only field with independent durable meaning: a manual attestation set
// by a PoC or coordinator, never derived.
type StudentJobReadiness struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	StudentID           uint            `gorm:"uniqueIndex;not null" json:"student_id"`
	School              string          `gorm:"size:128;not null;index" json:"school"`
	CampusID            *uint           `json:"campus_id"`
	CriteriaStatus      StatusEntryList `gorm:"type:json" json:"criteria_status"`
	ReadinessPercentage int             `gorm:"not null;default:0" json:"readiness_percentage"`
	ReadinessStatus     ReadinessStatus `gorm:"size:32;not null" json:"readiness_status"`
	IsJobReady          bool            `gorm:"not null;default:false" json:"is_job_ready"`
	ApprovedAsJobReady  bool            `gorm:"not null;default:false" json:"approved_as_job_ready"`
	ApprovedBy          *uint           `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time      `json:"approved_at,omitempty"`
	ApprovalNotes       string          `gorm:"type:text" json:"approval_notes,omitempty"`
	Version             uint            `gorm:"not null;default:0" json:"-"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
