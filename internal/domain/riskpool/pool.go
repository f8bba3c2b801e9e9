// Package riskpool holds the capital backing policy payouts. Every balance
// change is checked against the solvency invariants before it is applied.
package riskpool

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/freelanceshield/claims-engine/internal/domain/errors"
	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

// Params are the solvency knobs for a pool. Ratios are in basis points
// (10000 bp = 100%).
type Params struct {
	TargetReserveRatioBP int64
	RiskBufferBP         int64
	MinCapital           values.Money
}

// Pool is the shared capital pool. Capital, liability and the running
// premium and payout totals are all in the pool currency.
type Pool struct {
	ID       uuid.UUID `json:"id"`
	Currency string    `json:"currency"`

	TotalCapital      values.Money `json:"total_capital"`
	CoverageLiability values.Money `json:"coverage_liability"`
	PremiumsCollected values.Money `json:"premiums_collected"`
	ClaimsPaid        values.Money `json:"claims_paid"`

	Params Params `json:"params"`
	Paused bool   `json:"paused"`

	Guard ExternalCallGuard `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an empty pool in the given currency.
func New(currency string, params Params) (*Pool, error) {
	if params.TargetReserveRatioBP < 0 || params.RiskBufferBP < 0 {
		return nil, apperrors.NewValidationError("INVALID_POOL_PARAMS", "reserve ratio and risk buffer cannot be negative")
	}
	if params.MinCapital.IsNegative() {
		return nil, apperrors.NewValidationError("INVALID_POOL_PARAMS", "minimum capital cannot be negative")
	}

	now := clock.Now()
	return &Pool{
		ID:                uuid.New(),
		Currency:          currency,
		TotalCapital:      values.Zero(currency),
		CoverageLiability: values.Zero(currency),
		PremiumsCollected: values.Zero(currency),
		ClaimsPaid:        values.Zero(currency),
		Params:            params,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// ReserveRatioBP returns capital over liability in basis points. A pool with
// no liability is fully reserved.
func (p *Pool) ReserveRatioBP() int64 {
	if p.CoverageLiability.IsZero() {
		return 10000
	}
	return p.TotalCapital.Ratio(p.CoverageLiability).Mul(decimal.NewFromInt(10000)).IntPart()
}

// LossRatioBP returns claims paid over premiums collected in basis points.
func (p *Pool) LossRatioBP() int64 {
	if p.PremiumsCollected.IsZero() {
		return 0
	}
	return p.ClaimsPaid.Ratio(p.PremiumsCollected).Mul(decimal.NewFromInt(10000)).IntPart()
}

// IsAdequatelyCapitalized reports whether the reserve ratio meets the target.
func (p *Pool) IsAdequatelyCapitalized() bool {
	return p.ReserveRatioBP() >= p.Params.TargetReserveRatioBP
}

// Deposit adds capital to the pool.
func (p *Pool) Deposit(amount values.Money) error {
	if p.Paused {
		return apperrors.ErrPoolPaused
	}
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	total, err := p.TotalCapital.Add(amount)
	if err != nil {
		return apperrors.NewArithmeticError("capital overflow on deposit").WithCause(err)
	}
	p.TotalCapital = total
	p.UpdatedAt = clock.Now()
	return nil
}

// Withdraw removes capital, refusing any withdrawal that would leave the
// pool below its minimum capital or its target reserve ratio plus buffer.
func (p *Pool) Withdraw(amount values.Money) error {
	if p.Paused {
		return apperrors.ErrPoolPaused
	}
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if amount.GreaterThan(p.TotalCapital) {
		return apperrors.ErrInsufficientFunds
	}

	remaining, err := p.TotalCapital.Sub(amount)
	if err != nil {
		return apperrors.NewArithmeticError("capital underflow on withdrawal").WithCause(err)
	}
	if remaining.LessThan(p.Params.MinCapital) {
		return apperrors.ErrInsufficientLiquidity.WithDetails(map[string]interface{}{
			"remaining":   remaining.String(),
			"min_capital": p.Params.MinCapital.String(),
		})
	}
	if !p.CoverageLiability.IsZero() {
		required := p.Params.TargetReserveRatioBP + p.Params.RiskBufferBP
		ratioBP := remaining.Ratio(p.CoverageLiability).Mul(decimal.NewFromInt(10000)).IntPart()
		if ratioBP < required {
			return apperrors.ErrInsufficientLiquidity.WithDetails(map[string]interface{}{
				"reserve_ratio_bp": ratioBP,
				"required_bp":      required,
			})
		}
	}

	p.TotalCapital = remaining
	p.UpdatedAt = clock.Now()
	return nil
}

// AddCoverage increases the outstanding liability when a policy is issued.
func (p *Pool) AddCoverage(amount values.Money) error {
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	total, err := p.CoverageLiability.Add(amount)
	if err != nil {
		return apperrors.NewArithmeticError("liability overflow").WithCause(err)
	}
	p.CoverageLiability = total
	p.UpdatedAt = clock.Now()
	return nil
}

// ReleaseCoverage reduces liability when a policy expires or pays out.
// Releasing more than the outstanding liability clamps to zero.
func (p *Pool) ReleaseCoverage(amount values.Money) error {
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	remaining, err := p.CoverageLiability.Sub(amount)
	if err != nil {
		return apperrors.NewArithmeticError("liability underflow").WithCause(err)
	}
	if remaining.IsNegative() {
		remaining = values.Zero(p.Currency)
	}
	p.CoverageLiability = remaining
	p.UpdatedAt = clock.Now()
	return nil
}

// RecordPremium adds a collected premium to capital and the premium total.
func (p *Pool) RecordPremium(amount values.Money) error {
	if p.Paused {
		return apperrors.ErrPoolPaused
	}
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	capital, err := p.TotalCapital.Add(amount)
	if err != nil {
		return apperrors.NewArithmeticError("capital overflow on premium").WithCause(err)
	}
	premiums, err := p.PremiumsCollected.Add(amount)
	if err != nil {
		return apperrors.NewArithmeticError("premium total overflow").WithCause(err)
	}
	p.TotalCapital = capital
	p.PremiumsCollected = premiums
	p.UpdatedAt = clock.Now()
	return nil
}

// PayClaim moves capital out for an approved claim and updates the payout
// total. The caller holds the external-call guard across the matching
// ledger transfer.
func (p *Pool) PayClaim(amount values.Money) error {
	if p.Paused {
		return apperrors.ErrPoolPaused
	}
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if amount.GreaterThan(p.TotalCapital) {
		return apperrors.ErrInsufficientPoolFunds.WithDetails(map[string]interface{}{
			"capital": p.TotalCapital.String(),
			"claim":   amount.String(),
		})
	}

	capital, err := p.TotalCapital.Sub(amount)
	if err != nil {
		return apperrors.NewArithmeticError("capital underflow on payout").WithCause(err)
	}
	paid, err := p.ClaimsPaid.Add(amount)
	if err != nil {
		return apperrors.NewArithmeticError("payout total overflow").WithCause(err)
	}
	p.TotalCapital = capital
	p.ClaimsPaid = paid
	p.UpdatedAt = clock.Now()
	return nil
}

// Pause stops deposits, withdrawals and payouts.
func (p *Pool) Pause() {
	p.Paused = true
	p.UpdatedAt = clock.Now()
}

// Resume lifts a pause.
func (p *Pool) Resume() {
	p.Paused = false
	p.UpdatedAt = clock.Now()
}
