package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eight = decimal.NewFromInt(8)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateHours(t *testing.T) {
	assert.NoError(t, ValidateHours(dec("0.25"), eight))
	assert.NoError(t, ValidateHours(dec("8"), eight))
	assert.Error(t, ValidateHours(dec("0"), eight))
	assert.Error(t, ValidateHours(dec("-2"), eight))
	assert.Error(t, ValidateHours(dec("8.01"), eight))
}

func TestValidateEstimateCeiling(t *testing.T) {
	assert.NoError(t, ValidateEstimateCeiling(dec("10"), dec("10")))

	err := ValidateEstimateCeiling(dec("12.5"), dec("10"))
	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.True(t, vErr.Excess.Equal(dec("2.5")))
	assert.Contains(t, vErr.Error(), "2.5")
}

func TestValidatePlan(t *testing.T) {
	monday := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

	empty := &domain.DistributionPlan{}
	assert.Error(t, ValidatePlan(empty, dec("10"), eight))

	dup := &domain.DistributionPlan{Entries: []domain.PlanEntry{
		{Date: monday, Hours: dec("2")},
		{Date: monday.Add(3 * time.Hour), Hours: dec("2")},
	}}
	assert.Error(t, ValidatePlan(dup, dec("10"), eight))

	ok := &domain.DistributionPlan{Entries: []domain.PlanEntry{
		{Date: monday, Hours: dec("2")},
		{Date: monday.AddDate(0, 0, 1), Hours: dec("2")},
	}}
	assert.NoError(t, ValidatePlan(ok, dec("4"), eight))
	assert.Error(t, ValidatePlan(ok, dec("3"), eight))
}

func TestValidateAssignmentPatch(t *testing.T) {
	hours := dec("9")
	bad := domain.AssignmentStatus("archived")
	good := domain.AssignmentStatusCompleted
	notes := ""

	assert.Error(t, ValidateAssignmentPatch(domain.AssignmentPatch{}, eight))
	assert.Error(t, ValidateAssignmentPatch(domain.AssignmentPatch{AllocatedHours: &hours}, eight))
	assert.Error(t, ValidateAssignmentPatch(domain.AssignmentPatch{Status: &bad}, eight))
	assert.NoError(t, ValidateAssignmentPatch(domain.AssignmentPatch{Status: &good}, eight))
	assert.NoError(t, ValidateAssignmentPatch(domain.AssignmentPatch{Notes: &notes}, eight))
}

func TestGenerateRandomRequest(t *testing.T) {
	for i := 0; i < 50; i++ {
		req := GenerateRandomRequest()
		assert.True(t, req.EstimatedHours.IsPositive())
		assert.True(t, req.EstimatedHours.Mul(dec("2")).IsInteger())
		assert.NotEmpty(t, req.Title)
	}
}

func TestGenerateRandomTeamMember(t *testing.T) {
	m := GenerateRandomTeamMember("example.com")
	assert.True(t, m.IsActive)
	assert.True(t, m.WeeklyCapacity.IsPositive())
	assert.Contains(t, m.Email, "@example.com")
}
