package dto

import "time"

// ReadinessOverviewResponse aggregates readiness across one school's cohort.
// It is a reporting view built from the cached per-student fields and may be
// served from a short-lived cache.
type ReadinessOverviewResponse struct {
	School            string         `json:"school"`
	TotalStudents     int            `json:"total_students"`
	AveragePercentage float64        `json:"average_percentage"`
	StatusCounts      map[string]int `json:"status_counts"`
	JobReadyCount     int            `json:"job_ready_count"`
	ApprovedCount     int            `json:"approved_count"`
	GeneratedAt       time.Time      `json:"generated_at"`
}
