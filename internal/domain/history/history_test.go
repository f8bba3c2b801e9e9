package history

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

func TestClaimantHistory_Counters(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	h := New(uuid.New(), values.USD)

	h.RecordFiled(uuid.New(), uuid.New(), 0, now)
	h.RecordApproved(now)
	require.NoError(t, h.RecordPaid(values.MustNewMoneyFromString("500.00", values.USD), now))

	h.RecordFiled(uuid.New(), uuid.New(), 0, now.Add(time.Hour))
	h.RecordRejected(true, now.Add(time.Hour))

	assert.Equal(t, 2, h.TotalClaims)
	assert.Equal(t, 1, h.ApprovedClaims)
	assert.Equal(t, 1, h.RejectedClaims)
	assert.Equal(t, 1, h.FraudRejectedClaims)
	assert.True(t, h.HasFraudRejection())
	assert.True(t, h.TotalPaid.Equal(values.MustNewMoneyFromString("500.00", values.USD)))
}

func TestClaimantHistory_ClaimsWithin(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	h := New(uuid.New(), values.USD)

	h.RecordFiled(uuid.New(), uuid.New(), 0, now.Add(-40*24*time.Hour))
	h.RecordFiled(uuid.New(), uuid.New(), 0, now.Add(-20*24*time.Hour))
	h.RecordFiled(uuid.New(), uuid.New(), 0, now.Add(-5*24*time.Hour))

	assert.Equal(t, 2, h.ClaimsWithin(30*24*time.Hour, now))
	assert.Equal(t, 3, h.ClaimsWithin(60*24*time.Hour, now))
	assert.Equal(t, 0, h.ClaimsWithin(24*time.Hour, now))
}

func TestClaimantHistory_CountAgainst(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	h := New(uuid.New(), values.USD)
	respondent := uuid.New()

	h.RecordFiled(uuid.New(), respondent, 0, now)
	h.RecordFiled(uuid.New(), respondent, 1, now)
	h.RecordFiled(uuid.New(), uuid.New(), 0, now)

	assert.Equal(t, 2, h.CountAgainst(respondent))
}

func TestClaimantHistory_SameTypeWithin(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	h := New(uuid.New(), values.USD)

	h.RecordFiled(uuid.New(), uuid.New(), 1, now.Add(-10*24*time.Hour))
	h.RecordFiled(uuid.New(), uuid.New(), 1, now.Add(-50*24*time.Hour))
	h.RecordFiled(uuid.New(), uuid.New(), 1, now.Add(-120*24*time.Hour))
	h.RecordFiled(uuid.New(), uuid.New(), 2, now.Add(-10*24*time.Hour))

	assert.Equal(t, 2, h.SameTypeWithin(1, 90*24*time.Hour, now))
}

func TestClaimantHistory_ClaimRatio(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	h := New(uuid.New(), values.USD)
	assert.True(t, h.ClaimRatio().IsZero())

	// Claims with no completed projects ratio to 1
	h.RecordFiled(uuid.New(), uuid.New(), 0, now)
	assert.True(t, h.ClaimRatio().Equal(decimal.NewFromInt(1)))

	h.CompletedProjects = 4
	h.RecordFiled(uuid.New(), uuid.New(), 0, now)
	assert.True(t, h.ClaimRatio().Equal(decimal.NewFromFloat(0.5)))
}
