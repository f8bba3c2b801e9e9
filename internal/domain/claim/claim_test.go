package claim

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/freelanceshield/claims-engine/internal/domain/errors"
	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

func newTestClaim(t *testing.T) *Claim {
	t.Helper()
	c, err := NewClaim(uuid.New(), uuid.New(), uuid.New(), TypeNonPayment,
		values.MustNewMoneyFromString("1500.00", values.USD), "client did not pay final invoice")
	require.NoError(t, err)
	return c
}

func TestNewClaim(t *testing.T) {
	policyID := uuid.New()
	claimant := uuid.New()
	respondent := uuid.New()
	amount := values.MustNewMoneyFromString("1500.00", values.USD)

	tests := []struct {
		name       string
		policyID   uuid.UUID
		claimant   uuid.UUID
		respondent uuid.UUID
		amount     values.Money
		reason     string
		wantErr    bool
	}{
		{"valid claim", policyID, claimant, respondent, amount, "unpaid invoice", false},
		{"nil policy", uuid.Nil, claimant, respondent, amount, "unpaid invoice", true},
		{"nil claimant", policyID, uuid.Nil, respondent, amount, "unpaid invoice", true},
		{"same parties", policyID, claimant, claimant, amount, "unpaid invoice", true},
		{"zero amount", policyID, claimant, respondent, values.Zero(values.USD), "unpaid invoice", true},
		{"empty reason", policyID, claimant, respondent, amount, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClaim(tt.policyID, tt.claimant, tt.respondent, TypeNonPayment, tt.amount, tt.reason)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusFiled, c.Status)
			assert.Equal(t, 0, c.FraudScore)
			assert.Nil(t, c.Verdict)
		})
	}
}

func TestClaim_StatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"filed to pending evidence", StatusFiled, StatusPendingEvidence, true},
		{"filed to under review", StatusFiled, StatusUnderReview, true},
		{"filed to paid", StatusFiled, StatusPaid, false},
		{"pending evidence to review", StatusPendingEvidence, StatusUnderReview, true},
		{"review to approved", StatusUnderReview, StatusApprovedPendingPayout, true},
		{"review to rejected", StatusUnderReview, StatusRejected, true},
		{"review to more evidence", StatusUnderReview, StatusAdditionalEvidenceRequested, true},
		{"more evidence back to review", StatusAdditionalEvidenceRequested, StatusUnderReview, true},
		{"approved to paid", StatusApprovedPendingPayout, StatusPaid, true},
		{"approved to rejected", StatusApprovedPendingPayout, StatusRejected, false},
		{"rejected to disputed", StatusRejected, StatusDisputed, true},
		{"disputed to arbitration", StatusDisputed, StatusArbitration, true},
		{"arbitration to approved", StatusArbitration, StatusApprovedPendingPayout, true},
		{"arbitration to closed", StatusArbitration, StatusClosed, true},
		{"paid is terminal", StatusPaid, StatusClosed, false},
		{"closed is terminal", StatusClosed, StatusUnderReview, false},
		{"paid cannot revert", StatusPaid, StatusUnderReview, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClaim(t)
			c.Status = tt.from
			err := c.UpdateStatus(tt.to)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, c.Status)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrInvalidClaimStatus)
				assert.Equal(t, tt.from, c.Status)
			}
		})
	}
}

func TestClaim_RecordVerdict(t *testing.T) {
	c := newTestClaim(t)
	require.NoError(t, c.UpdateStatus(StatusUnderReview))

	v := Verdict{
		Approved:   true,
		Reason:     "low risk",
		Processor:  ProcessorAutomated,
		FraudScore: 10,
		DecidedAt:  time.Now(),
	}
	require.NoError(t, c.RecordVerdict(v))
	assert.Equal(t, StatusApprovedPendingPayout, c.Status)
	require.NotNil(t, c.Verdict)
	assert.True(t, c.Verdict.Approved)
}

func TestClaim_Voting(t *testing.T) {
	mockClock := &MockClock{CurrentTime: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	SetClock(mockClock)
	defer ResetClock()

	c := newTestClaim(t)
	require.NoError(t, c.UpdateStatus(StatusUnderReview))
	c.OpenVoting(72 * time.Hour)

	// The deadline lands in the future; the audit timestamp does not.
	require.NotNil(t, c.VotingEndsAt)
	assert.Equal(t, mockClock.CurrentTime.Add(72*time.Hour), *c.VotingEndsAt)
	assert.Equal(t, mockClock.CurrentTime, c.UpdatedAt)

	voterA := uuid.New()
	voterB := uuid.New()

	require.NoError(t, c.AddVote(voterA, true, "looks legitimate"))
	require.NoError(t, c.AddVote(voterB, false, "evidence is thin"))

	err := c.AddVote(voterA, false, "changed my mind")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyVoted)

	approve, reject := c.TallyVotes()
	assert.Equal(t, 1, approve)
	assert.Equal(t, 1, reject)

	mockClock.Advance(73 * time.Hour)
	err = c.AddVote(uuid.New(), true, "late")
	assert.ErrorIs(t, err, apperrors.ErrVotingPeriodEnded)
}

func TestClaim_Dispute(t *testing.T) {
	mockClock := &MockClock{CurrentTime: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	SetClock(mockClock)
	defer ResetClock()

	c := newTestClaim(t)
	require.NoError(t, c.UpdateStatus(StatusUnderReview))
	require.NoError(t, c.UpdateStatus(StatusRejected))
	c.OpenDisputeWindow(7 * 24 * time.Hour)

	// Only the claimant may contest
	err := c.Dispute(c.Respondent)
	assert.ErrorIs(t, err, apperrors.ErrNotClaimOwner)

	require.NoError(t, c.Dispute(c.Claimant))
	assert.Equal(t, StatusDisputed, c.Status)
}

func TestClaim_DisputeWindowExpired(t *testing.T) {
	mockClock := &MockClock{CurrentTime: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	SetClock(mockClock)
	defer ResetClock()

	c := newTestClaim(t)
	require.NoError(t, c.UpdateStatus(StatusUnderReview))
	require.NoError(t, c.UpdateStatus(StatusRejected))
	c.OpenDisputeWindow(7 * 24 * time.Hour)

	mockClock.Advance(8 * 24 * time.Hour)
	err := c.Dispute(c.Claimant)
	assert.ErrorIs(t, err, apperrors.ErrDisputePeriodEnded)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
}

func TestClaim_MarkPaid(t *testing.T) {
	c := newTestClaim(t)
	require.NoError(t, c.UpdateStatus(StatusUnderReview))
	require.NoError(t, c.UpdateStatus(StatusApprovedPendingPayout))

	ref := uuid.New()
	require.NoError(t, c.MarkPaid(ref))
	assert.Equal(t, StatusPaid, c.Status)
	require.NotNil(t, c.PayoutRef)
	assert.Equal(t, ref, *c.PayoutRef)
}

func TestFraudFlags_BitmaskRoundTrip(t *testing.T) {
	flags := FraudFlags{
		Timing:        true,
		History:       true,
		Collusion:     true,
		Inconsistency: true,
	}

	mask := flags.Bitmask()
	decoded := FlagsFromBitmask(mask)
	assert.Equal(t, flags, decoded)
	assert.Equal(t, 4, decoded.Count())
	assert.True(t, decoded.Any())
	assert.Equal(t, []string{"timing", "history", "collusion", "inconsistency"}, decoded.Names())

	assert.False(t, FraudFlags{}.Any())
	assert.Equal(t, uint8(0), FraudFlags{}.Bitmask())
}
