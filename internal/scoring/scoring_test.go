package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/placementhq/readiness-api/internal/models"
)

func criterion(id string, weight float64, mandatory bool) models.CriterionDefinition {
	return models.CriterionDefinition{
		CriteriaID:  id,
		Name:        id,
		Category:    models.CategoryProfile,
		Type:        models.CriterionTypeYesNo,
		IsActive:    true,
		IsMandatory: mandatory,
		Weight:      weight,
	}
}

func entry(id string, status models.CriterionStatus) models.CriterionStatusEntry {
	return models.CriterionStatusEntry{CriteriaID: id, Status: status}
}

func TestComputeEmptyCriteriaIsVacuouslyReady(t *testing.T) {
	result := Compute(nil, nil)
	require.Equal(t, 100, result.Percentage)
	require.Equal(t, models.ReadinessJobReady, result.Status)
	require.True(t, result.IsJobReady)
}

func TestComputeWeightedPercentage(t *testing.T) {
	criteria := []models.CriterionDefinition{
		criterion("resume", 1, true),
		criterion("mock-interview", 1, true),
		criterion("portfolio", 2, false),
	}
	entries := []models.CriterionStatusEntry{
		entry("resume", models.StatusCompleted),
		entry("mock-interview", models.StatusVerified),
		entry("portfolio", models.StatusInProgress),
	}

	result := Compute(criteria, entries)
	require.Equal(t, 50, result.Percentage)
	require.Equal(t, models.ReadinessUnderProcess, result.Status)
	require.False(t, result.IsJobReady, "optional weight still outstanding")
}

func TestComputeFullCompletionWithMandatoryGate(t *testing.T) {
	criteria := []models.CriterionDefinition{
		criterion("resume", 1, true),
		criterion("mock-interview", 1, true),
		criterion("portfolio", 2, false),
	}
	entries := []models.CriterionStatusEntry{
		entry("resume", models.StatusCompleted),
		entry("mock-interview", models.StatusCompleted),
		entry("portfolio", models.StatusCompleted),
	}

	result := Compute(criteria, entries)
	require.Equal(t, 100, result.Percentage)
	require.Equal(t, models.ReadinessJobReady, result.Status)
	require.True(t, result.IsJobReady)
}

func TestComputeMandatoryGateBlocksReadiness(t *testing.T) {
	// A heavy optional criterion can push the percentage to 100 after
	// rounding, but an unachieved mandatory criterion still blocks the flag.
	criteria := []models.CriterionDefinition{
		criterion("portfolio", 500, false),
		criterion("resume", 1, true),
	}
	entries := []models.CriterionStatusEntry{
		entry("portfolio", models.StatusCompleted),
	}

	result := Compute(criteria, entries)
	require.Equal(t, 100, result.Percentage)
	require.False(t, result.IsJobReady)
}

func TestComputeMandatoryAcceptsCompletedOrVerified(t *testing.T) {
	criteria := []models.CriterionDefinition{
		criterion("resume", 1, true),
		criterion("mock-interview", 1, true),
	}
	entries := []models.CriterionStatusEntry{
		entry("resume", models.StatusCompleted),
		entry("mock-interview", models.StatusVerified),
	}

	result := Compute(criteria, entries)
	require.True(t, result.IsJobReady, "completed counts the same as verified for the gate")
}

func TestComputeStatusLabelThresholds(t *testing.T) {
	criteria := []models.CriterionDefinition{
		criterion("a", 1, false),
		criterion("b", 1, false),
		criterion("c", 1, false),
		criterion("d", 1, false),
	}

	result := Compute(criteria, nil)
	require.Equal(t, 0, result.Percentage)
	require.Equal(t, models.ReadinessNotReady, result.Status)

	result = Compute(criteria, []models.CriterionStatusEntry{entry("a", models.StatusCompleted)})
	require.Equal(t, 25, result.Percentage)
	require.Equal(t, models.ReadinessNotReady, result.Status)

	result = Compute(criteria, []models.CriterionStatusEntry{
		entry("a", models.StatusCompleted),
		entry("b", models.StatusCompleted),
	})
	require.Equal(t, 50, result.Percentage)
	require.Equal(t, models.ReadinessUnderProcess, result.Status)
}

func TestComputeIgnoresUnresolvedEntriesAndBounds(t *testing.T) {
	criteria := []models.CriterionDefinition{criterion("resume", 1, false)}
	entries := []models.CriterionStatusEntry{
		entry("resume", models.StatusCompleted),
		entry("orphaned", models.StatusCompleted),
	}

	result := Compute(criteria, entries)
	require.Equal(t, 100, result.Percentage)
	require.GreaterOrEqual(t, result.Percentage, 0)
	require.LessOrEqual(t, result.Percentage, 100)
}

func TestComputeIsDeterministicAndOrderIndependent(t *testing.T) {
	criteria := []models.CriterionDefinition{
		criterion("a", 2, true),
		criterion("b", 3, false),
		criterion("c", 5, true),
	}
	entries := []models.CriterionStatusEntry{
		entry("c", models.StatusVerified),
		entry("a", models.StatusCompleted),
	}

	first := Compute(criteria, entries)

	reversedCriteria := []models.CriterionDefinition{criteria[2], criteria[1], criteria[0]}
	reversedEntries := []models.CriterionStatusEntry{entries[1], entries[0]}
	second := Compute(reversedCriteria, reversedEntries)

	require.Equal(t, first, second)
	require.Equal(t, first, Compute(criteria, entries))
}

func TestComputeZeroTotalWeight(t *testing.T) {
	criteria := []models.CriterionDefinition{criterion("a", 0, false)}

	result := Compute(criteria, nil)
	require.Equal(t, 0, result.Percentage)
	require.Equal(t, models.ReadinessNotReady, result.Status)
	require.False(t, result.IsJobReady)
}
