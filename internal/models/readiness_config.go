package models

import "time"

// SchoolCommon is the sentinel school name for the global configuration layer.
const SchoolCommon = "Common"

// JobReadinessConfig holds the readiness criteria applying to one school, or
// to one campus of a school when CampusID is set. The (school, campus) pair is
// unique; (Common, nil) is the global default layer.
//
// Postgres treats NULL campus values as distinct within a unique index, so the
// config service enforces the pair uniqueness with a keyed lookup as well.
type JobReadinessConfig struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	School    string        `gorm:"size:128;not null;uniqueIndex:idx_config_school_campus" json:"school"`
	CampusID  *uint         `gorm:"uniqueIndex:idx_config_school_campus" json:"campus_id"`
	Criteria  CriterionList `gorm:"type:json" json:"criteria"`
	IsActive  bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedBy uint          `gorm:"not null" json:"created_by"`
	UpdatedBy uint          `json:"updated_by"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IsGlobal reports whether the config applies to every campus of its school.
func (c JobReadinessConfig) IsGlobal() bool {
	return c.CampusID == nil
}
