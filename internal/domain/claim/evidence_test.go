package claim

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/freelanceshield/claims-engine/internal/domain/errors"
)

func TestEvidenceLedger_Append(t *testing.T) {
	claimant := uuid.New()
	respondent := uuid.New()
	ledger := NewEvidenceLedger(claimant, respondent)

	item, err := ledger.Append(claimant, EvidenceContract, "hash-1", "ipfs://contract", "signed contract")
	require.NoError(t, err)
	assert.Equal(t, EvidenceContract, item.Type)
	assert.Equal(t, 1, ledger.Count())

	// Respondent may also submit
	_, err = ledger.Append(respondent, EvidenceCommunication, "hash-2", "ipfs://emails", "")
	require.NoError(t, err)

	// Strangers may not
	_, err = ledger.Append(uuid.New(), EvidenceOther, "hash-3", "", "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorizedEvidence)

	// Duplicate hashes are rejected
	_, err = ledger.Append(claimant, EvidenceDeliverable, "hash-1", "", "")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEvidence)

	// Empty hash is rejected
	_, err = ledger.Append(claimant, EvidenceDeliverable, "", "", "")
	assert.Error(t, err)
}

func TestEvidenceLedger_Capacity(t *testing.T) {
	claimant := uuid.New()
	ledger := NewEvidenceLedger(claimant)

	for i := 0; i < MaxEvidenceItems; i++ {
		_, err := ledger.Append(claimant, EvidenceOther, uuid.NewString(), "", "")
		require.NoError(t, err)
	}

	_, err := ledger.Append(claimant, EvidenceOther, uuid.NewString(), "", "")
	assert.ErrorIs(t, err, apperrors.ErrEvidenceCapacity)
}

func TestEvidenceLedger_Authorize(t *testing.T) {
	claimant := uuid.New()
	arbitrator := uuid.New()
	ledger := NewEvidenceLedger(claimant)

	_, err := ledger.Append(arbitrator, EvidenceOther, "hash-1", "", "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorizedEvidence)

	ledger.Authorize(arbitrator)
	ledger.Authorize(arbitrator) // idempotent
	assert.Len(t, ledger.Authorized, 2)

	_, err = ledger.Append(arbitrator, EvidenceOther, "hash-1", "", "")
	require.NoError(t, err)
}

func TestEvidenceLedger_ReadyForReview(t *testing.T) {
	claimant := uuid.New()

	tests := []struct {
		name      string
		claimType Type
		types     []EvidenceType
		ready     bool
	}{
		{
			name:      "non-payment with contract and deliverable",
			claimType: TypeNonPayment,
			types:     []EvidenceType{EvidenceContract, EvidenceDeliverable},
			ready:     true,
		},
		{
			name:      "non-payment missing deliverable",
			claimType: TypeNonPayment,
			types:     []EvidenceType{EvidenceContract, EvidenceTimeline},
			ready:     false,
		},
		{
			name:      "quality dispute with contract and communication",
			claimType: TypeQualityDispute,
			types:     []EvidenceType{EvidenceContract, EvidenceCommunication},
			ready:     true,
		},
		{
			name:      "quality dispute missing communication",
			claimType: TypeQualityDispute,
			types:     []EvidenceType{EvidenceContract, EvidenceDeliverable},
			ready:     false,
		},
		{
			name:      "other type needs only the minimum count",
			claimType: TypeOther,
			types:     []EvidenceType{EvidenceTimeline, EvidenceTimeline},
			ready:     true,
		},
		{
			name:      "below minimum count",
			claimType: TypeOther,
			types:     []EvidenceType{EvidenceTimeline},
			ready:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := NewEvidenceLedger(claimant)
			for _, et := range tt.types {
				_, err := ledger.Append(claimant, et, uuid.NewString(), "", "")
				require.NoError(t, err)
			}
			assert.Equal(t, tt.ready, ledger.ReadyForReview(tt.claimType))
		})
	}
}

func TestEvidenceLedger_CountWithin(t *testing.T) {
	mockClock := &MockClock{CurrentTime: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	SetClock(mockClock)
	defer ResetClock()

	claimant := uuid.New()
	ledger := NewEvidenceLedger(claimant)

	for i := 0; i < 4; i++ {
		_, err := ledger.Append(claimant, EvidenceOther, uuid.NewString(), "", "")
		require.NoError(t, err)
		mockClock.Advance(2 * time.Minute)
	}
	mockClock.Advance(time.Hour)
	_, err := ledger.Append(claimant, EvidenceOther, uuid.NewString(), "", "")
	require.NoError(t, err)

	// Four items landed inside a ten-minute window, the fifth an hour later
	assert.Equal(t, 4, ledger.CountWithin(10*time.Minute))
	assert.Equal(t, 5, ledger.CountWithin(2*time.Hour))
	assert.Equal(t, 1, ledger.CountWithin(time.Minute))
}

func TestEvidenceLedger_HasDuplicateHashes(t *testing.T) {
	ledger := EvidenceLedger{Items: []EvidenceItem{
		{Hash: "a"}, {Hash: "b"}, {Hash: "a"},
	}}
	assert.True(t, ledger.HasDuplicateHashes())

	clean := EvidenceLedger{Items: []EvidenceItem{{Hash: "a"}, {Hash: "b"}}}
	assert.False(t, clean.HasDuplicateHashes())
}
