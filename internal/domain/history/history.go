// Package history tracks per-claimant filing behavior. The counters and
// claim records here feed the fraud checks; they are not an audit log.
package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

// ClaimRecord is one filed claim from the claimant's past, kept with just
// enough detail for pattern checks.
type ClaimRecord struct {
	ClaimID    uuid.UUID `json:"claim_id"`
	Respondent uuid.UUID `json:"respondent"`
	ClaimType  int       `json:"claim_type"`
	FiledAt    time.Time `json:"filed_at"`
}

// ClaimantHistory aggregates a claimant's track record across all policies.
type ClaimantHistory struct {
	Claimant uuid.UUID `json:"claimant"`

	TotalClaims    int `json:"total_claims"`
	ApprovedClaims int `json:"approved_claims"`
	RejectedClaims int `json:"rejected_claims"`
	// Rejections where the fraud score crossed the auto-reject line.
	FraudRejectedClaims int `json:"fraud_rejected_claims"`

	TotalPaid values.Money `json:"total_paid"`

	CompletedProjects  int `json:"completed_projects"`
	SuccessfulProjects int `json:"successful_projects"`
	TotalTransactions  int `json:"total_transactions"`

	Records []ClaimRecord `json:"records"`

	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an empty history for a claimant.
func New(claimant uuid.UUID, currency string) *ClaimantHistory {
	return &ClaimantHistory{
		Claimant:  claimant,
		TotalPaid: values.Zero(currency),
	}
}

// RecordFiled registers a newly filed claim.
func (h *ClaimantHistory) RecordFiled(claimID, respondent uuid.UUID, claimType int, at time.Time) {
	h.TotalClaims++
	h.Records = append(h.Records, ClaimRecord{
		ClaimID:    claimID,
		Respondent: respondent,
		ClaimType:  claimType,
		FiledAt:    at,
	})
	h.UpdatedAt = at
}

// RecordApproved registers an approved claim.
func (h *ClaimantHistory) RecordApproved(at time.Time) {
	h.ApprovedClaims++
	h.UpdatedAt = at
}

// RecordRejected registers a rejection. fraudulent marks rejections made by
// the automated fraud stage rather than a reviewer.
func (h *ClaimantHistory) RecordRejected(fraudulent bool, at time.Time) {
	h.RejectedClaims++
	if fraudulent {
		h.FraudRejectedClaims++
	}
	h.UpdatedAt = at
}

// RecordPaid accumulates the payout total.
func (h *ClaimantHistory) RecordPaid(amount values.Money, at time.Time) error {
	total, err := h.TotalPaid.Add(amount)
	if err != nil {
		return fmt.Errorf("recording payout: %w", err)
	}
	h.TotalPaid = total
	h.UpdatedAt = at
	return nil
}

// ClaimsWithin counts claims filed inside the trailing window ending at now.
func (h *ClaimantHistory) ClaimsWithin(window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)
	n := 0
	for _, r := range h.Records {
		if !r.FiledAt.Before(cutoff) && !r.FiledAt.After(now) {
			n++
		}
	}
	return n
}

// CountAgainst counts past claims naming the given respondent.
func (h *ClaimantHistory) CountAgainst(respondent uuid.UUID) int {
	n := 0
	for _, r := range h.Records {
		if r.Respondent == respondent {
			n++
		}
	}
	return n
}

// SameTypeWithin counts claims of the given type filed inside the trailing
// window ending at now.
func (h *ClaimantHistory) SameTypeWithin(claimType int, window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)
	n := 0
	for _, r := range h.Records {
		if r.ClaimType == claimType && !r.FiledAt.Before(cutoff) && !r.FiledAt.After(now) {
			n++
		}
	}
	return n
}

// ClaimRatio returns total claims over completed projects. A claimant with
// no completed projects but at least one claim ratios to 1.
func (h *ClaimantHistory) ClaimRatio() decimal.Decimal {
	if h.CompletedProjects == 0 {
		if h.TotalClaims > 0 {
			return decimal.NewFromInt(1)
		}
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(h.TotalClaims)).Div(decimal.NewFromInt(int64(h.CompletedProjects)))
}

// HasFraudRejection reports whether any past claim was rejected for fraud.
func (h *ClaimantHistory) HasFraudRejection() bool {
	return h.FraudRejectedClaims > 0
}
