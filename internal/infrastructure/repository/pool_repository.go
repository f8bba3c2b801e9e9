package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freelanceshield/claims-engine/internal/domain/values"
	"github.com/freelanceshield/claims-engine/internal/service/claims"
)

// PoolRepository appends risk-pool snapshots. The live aggregate is
// owned by the service; this table is its audit trail and the source
// for rehydration on restart.
type PoolRepository struct {
	db *pgxpool.Pool
}

// NewPoolRepository creates a new pool snapshot repository.
func NewPoolRepository(db *pgxpool.Pool) *PoolRepository {
	return &PoolRepository{db: db}
}

// Save appends a snapshot.
func (r *PoolRepository) Save(ctx context.Context, s claims.PoolSnapshot) error {
	query := `
		INSERT INTO pool_snapshots (
			pool_id, total_capital, coverage_liability, premiums_collected,
			claims_paid, currency, reserve_ratio_bp, paused, taken_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		s.PoolID,
		s.TotalCapital.Amount().String(),
		s.CoverageLiability.Amount().String(),
		s.PremiumsCollected.Amount().String(),
		s.ClaimsPaid.Amount().String(),
		s.TotalCapital.Currency(),
		s.ReserveRatioBP, s.Paused, s.TakenAt,
	)
	if err != nil {
		return fmt.Errorf("inserting pool snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot, or ErrNotFound when no pool
// state has ever been persisted. A deployment runs a single pool, so no
// pool filter is needed.
func (r *PoolRepository) Latest(ctx context.Context) (claims.PoolSnapshot, error) {
	query := `
		SELECT
			pool_id, total_capital::text, coverage_liability::text,
			premiums_collected::text, claims_paid::text, currency,
			reserve_ratio_bp, paused, taken_at
		FROM pool_snapshots
		ORDER BY taken_at DESC
		LIMIT 1`

	var s claims.PoolSnapshot
	var capital, liability, premiums, paid, currency string

	err := r.db.QueryRow(ctx, query).Scan(
		&s.PoolID, &capital, &liability, &premiums, &paid, &currency,
		&s.ReserveRatioBP, &s.Paused, &s.TakenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return claims.PoolSnapshot{}, fmt.Errorf("%w: pool snapshot", ErrNotFound)
		}
		return claims.PoolSnapshot{}, fmt.Errorf("loading pool snapshot: %w", err)
	}

	if s.TotalCapital, err = values.NewMoneyFromString(capital, currency); err != nil {
		return claims.PoolSnapshot{}, fmt.Errorf("parsing total capital: %w", err)
	}
	if s.CoverageLiability, err = values.NewMoneyFromString(liability, currency); err != nil {
		return claims.PoolSnapshot{}, fmt.Errorf("parsing coverage liability: %w", err)
	}
	if s.PremiumsCollected, err = values.NewMoneyFromString(premiums, currency); err != nil {
		return claims.PoolSnapshot{}, fmt.Errorf("parsing premiums collected: %w", err)
	}
	if s.ClaimsPaid, err = values.NewMoneyFromString(paid, currency); err != nil {
		return claims.PoolSnapshot{}, fmt.Errorf("parsing claims paid: %w", err)
	}
	return s, nil
}
