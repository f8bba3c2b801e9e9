package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WithDetailsLeavesSentinelUntouched(t *testing.T) {
	errA := ErrInvalidClaimStatus.WithDetails(map[string]interface{}{
		"claim_id": "claim-a",
	})
	errB := ErrInvalidClaimStatus.WithDetails(map[string]interface{}{
		"claim_id": "claim-b",
	})

	// Each derived error keeps its own details
	assert.Equal(t, "claim-a", errA.Details["claim_id"])
	assert.Equal(t, "claim-b", errB.Details["claim_id"])

	// The shared sentinel stays pristine
	assert.Nil(t, ErrInvalidClaimStatus.Details)
	assert.Nil(t, ErrInvalidClaimStatus.Cause)

	// Derived copies still match the sentinel by code
	assert.ErrorIs(t, errA, ErrInvalidClaimStatus)
	assert.ErrorIs(t, errB, ErrInvalidClaimStatus)
}

func TestAppError_WithCauseLeavesSentinelUntouched(t *testing.T) {
	cause := errors.New("ledger unavailable")
	wrapped := ErrInsufficientFunds.WithCause(cause)

	require.ErrorIs(t, wrapped, ErrInsufficientFunds)
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.Nil(t, ErrInsufficientFunds.Cause)
	assert.NotSame(t, ErrInsufficientFunds, wrapped)
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	assert.ErrorIs(t, NewValidationError("POLICY_EXPIRED", "other message"), ErrPolicyExpired)
	assert.NotErrorIs(t, ErrPolicyExpired, ErrPolicyInactive)
}
