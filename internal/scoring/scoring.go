// Package scoring computes the job readiness percentage, label and gated
// readiness flag from an effective criteria set and a student's status
// entries. It performs no I/O and is safe for concurrent use; batch jobs and
// reporting call it directly.
package scoring

import (
	"math"

	"github.com/placementhq/readiness-api/internal/models"
)

// UnderProcessThreshold is the minimum percentage for the intermediate label.
const UnderProcessThreshold = 30

// Result is the derived readiness state for one student.
type Result struct {
	Percentage int                    `json:"percentage"`
	Status     models.ReadinessStatus `json:"status"`
	IsJobReady bool                   `json:"is_job_ready"`
}

// Compute derives the readiness result for the given effective criteria and
// status entries. It is deterministic and order-independent over both inputs.
//
// An empty effective set yields 100% / Job Ready: a student with nothing
// required of them is vacuously ready. Callers must not reinterpret this as
// an error.
func Compute(criteria []models.CriterionDefinition, entries []models.CriterionStatusEntry) Result {
	if len(criteria) == 0 {
		return Result{Percentage: 100, Status: models.ReadinessJobReady, IsJobReady: true}
	}

	achievedByID := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.Achieved() {
			achievedByID[entry.CriteriaID] = true
		}
	}

	var totalWeight, achievedWeight float64
	allMandatoryAchieved := true
	for _, criterion := range criteria {
		totalWeight += criterion.Weight
		achieved := achievedByID[criterion.CriteriaID]
		if achieved {
			achievedWeight += criterion.Weight
		}
		if criterion.IsMandatory && !achieved {
			allMandatoryAchieved = false
		}
	}

	percentage := 0
	if totalWeight > 0 {
		percentage = int(math.Round(achievedWeight / totalWeight * 100))
	}

	return Result{
		Percentage: percentage,
		Status:     statusLabel(percentage),
		IsJobReady: percentage == 100 && allMandatoryAchieved,
	}
}

func statusLabel(percentage int) models.ReadinessStatus {
	switch {
	case percentage == 100:
		return models.ReadinessJobReady
	case percentage >= UnderProcessThreshold:
		return models.ReadinessUnderProcess
	default:
		return models.ReadinessNotReady
	}
}
