package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freelanceshield/claims-engine/internal/domain/policy"
	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

// PolicyRepository persists policies in PostgreSQL.
type PolicyRepository struct {
	db *pgxpool.Pool
}

// NewPolicyRepository creates a new policy repository.
func NewPolicyRepository(db *pgxpool.Pool) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// Save inserts a new policy.
func (r *PolicyRepository) Save(ctx context.Context, p *policy.Policy) error {
	query := `
		INSERT INTO policies (
			id, owner, coverage_amount, premium_paid, currency,
			start_date, end_date, waiting_period_end, is_active,
			claim_count, paid_claim_count, total_paid_amount,
			average_project_value, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12,
			$13, $14, $15
		)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.Owner,
		p.CoverageAmount.Amount().String(), p.PremiumPaid.Amount().String(), p.CoverageAmount.Currency(),
		p.StartDate, p.EndDate, p.WaitingPeriodEnd, p.IsActive,
		p.ClaimCount, p.PaidClaimCount, p.TotalPaidAmount.Amount().String(),
		p.AverageProjectValue.Amount().String(), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if IsDuplicateKeyViolation(err) {
			return fmt.Errorf("%w: policy %s", ErrDuplicateKey, p.ID)
		}
		return fmt.Errorf("inserting policy: %w", err)
	}
	return nil
}

// Update rewrites a policy's mutable state.
func (r *PolicyRepository) Update(ctx context.Context, p *policy.Policy) error {
	query := `
		UPDATE policies SET
			is_active = $2, claim_count = $3, paid_claim_count = $4,
			total_paid_amount = $5, average_project_value = $6, updated_at = $7
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		p.ID, p.IsActive, p.ClaimCount, p.PaidClaimCount,
		p.TotalPaidAmount.Amount().String(), p.AverageProjectValue.Amount().String(),
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating policy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: policy %s", ErrNotFound, p.ID)
	}
	return nil
}

// GetByID loads a policy by ID.
func (r *PolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*policy.Policy, error) {
	query := `
		SELECT
			id, owner, coverage_amount::text, premium_paid::text, currency,
			start_date, end_date, waiting_period_end, is_active,
			claim_count, paid_claim_count, total_paid_amount::text,
			average_project_value::text, created_at, updated_at
		FROM policies
		WHERE id = $1`

	var p policy.Policy
	var coverage, premium, totalPaid, avgProject, currency string

	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Owner, &coverage, &premium, &currency,
		&p.StartDate, &p.EndDate, &p.WaitingPeriodEnd, &p.IsActive,
		&p.ClaimCount, &p.PaidClaimCount, &totalPaid,
		&avgProject, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: policy %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("loading policy: %w", err)
	}

	if p.CoverageAmount, err = values.NewMoneyFromString(coverage, currency); err != nil {
		return nil, fmt.Errorf("parsing coverage amount: %w", err)
	}
	if p.PremiumPaid, err = values.NewMoneyFromString(premium, currency); err != nil {
		return nil, fmt.Errorf("parsing premium: %w", err)
	}
	if p.TotalPaidAmount, err = values.NewMoneyFromString(totalPaid, currency); err != nil {
		return nil, fmt.Errorf("parsing total paid: %w", err)
	}
	if p.AverageProjectValue, err = values.NewMoneyFromString(avgProject, currency); err != nil {
		return nil, fmt.Errorf("parsing average project value: %w", err)
	}
	return &p, nil
}
