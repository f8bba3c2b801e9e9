package policy

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

// Policy is an insurance policy purchased by a freelancer. Coverage terms are
// immutable after purchase; only claim counters and payout totals mutate.
type Policy struct {
	ID               uuid.UUID    `json:"id"`
	Owner            uuid.UUID    `json:"owner"`
	CoverageAmount   values.Money `json:"coverage_amount"`
	PremiumPaid      values.Money `json:"premium_paid"`
	StartDate        time.Time    `json:"start_date"`
	EndDate          time.Time    `json:"end_date"`
	WaitingPeriodEnd time.Time    `json:"waiting_period_end"`
	IsActive         bool         `json:"is_active"`

	ClaimCount      int          `json:"claim_count"`
	PaidClaimCount  int          `json:"paid_claim_count"`
	TotalPaidAmount values.Money `json:"total_paid_amount"`

	// Typical value of the owner's projects, used as a fraud-scoring input.
	// Zero when the owner has no project history.
	AverageProjectValue values.Money `json:"average_project_value"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an active policy with the given coverage window. The waiting
// period starts at startDate and claims are rejected until it ends.
func New(owner uuid.UUID, coverage, premium values.Money, startDate, endDate time.Time, waitingPeriod time.Duration) (*Policy, error) {
	if owner == uuid.Nil {
		return nil, fmt.Errorf("policy owner cannot be nil")
	}
	if !coverage.IsPositive() {
		return nil, fmt.Errorf("coverage amount must be positive")
	}
	if premium.IsNegative() {
		return nil, fmt.Errorf("premium cannot be negative")
	}
	if !endDate.After(startDate) {
		return nil, fmt.Errorf("policy end date must be after start date")
	}
	if waitingPeriod < 0 {
		return nil, fmt.Errorf("waiting period cannot be negative")
	}

	now := clock.Now()
	return &Policy{
		ID:                  uuid.New(),
		Owner:               owner,
		CoverageAmount:      coverage,
		PremiumPaid:         premium,
		StartDate:           startDate,
		EndDate:             endDate,
		WaitingPeriodEnd:    startDate.Add(waitingPeriod),
		IsActive:            true,
		TotalPaidAmount:     values.Zero(coverage.Currency()),
		AverageProjectValue: values.Zero(coverage.Currency()),
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// InCoveragePeriod reports whether now falls inside the policy term.
func (p *Policy) InCoveragePeriod(now time.Time) bool {
	return !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// WaitingPeriodOver reports whether the initial waiting period has elapsed.
func (p *Policy) WaitingPeriodOver(now time.Time) bool {
	return !now.Before(p.WaitingPeriodEnd)
}

// AgeAt returns how long the policy has existed at the given time.
func (p *Policy) AgeAt(now time.Time) time.Duration {
	return now.Sub(p.StartDate)
}

// TimeToExpiry returns the remaining coverage term at the given time.
func (p *Policy) TimeToExpiry(now time.Time) time.Duration {
	return p.EndDate.Sub(now)
}

// RecordClaim increments the claim counter when a claim is filed.
func (p *Policy) RecordClaim() {
	p.ClaimCount++
	p.UpdatedAt = clock.Now()
}

// RecordPayment tracks a paid claim against this policy.
func (p *Policy) RecordPayment(amount values.Money) error {
	total, err := p.TotalPaidAmount.Add(amount)
	if err != nil {
		return fmt.Errorf("recording payment: %w", err)
	}
	p.TotalPaidAmount = total
	p.PaidClaimCount++
	p.UpdatedAt = clock.Now()
	return nil
}

// Deactivate ends the policy. Filed claims remain processable.
func (p *Policy) Deactivate() {
	p.IsActive = false
	p.UpdatedAt = clock.Now()
}
