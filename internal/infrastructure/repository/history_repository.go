package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freelanceshield/claims-engine/internal/domain/history"
	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

// HistoryRepository persists per-claimant track records. A claimant with
// no stored row gets a fresh empty history rather than an error.
type HistoryRepository struct {
	db       *pgxpool.Pool
	currency string
}

// NewHistoryRepository creates a new history repository. The currency is
// used to seed empty histories for first-time claimants.
func NewHistoryRepository(db *pgxpool.Pool, currency string) *HistoryRepository {
	return &HistoryRepository{db: db, currency: currency}
}

// GetByClaimant loads the claimant's history, or an empty one if none
// has been recorded yet.
func (r *HistoryRepository) GetByClaimant(ctx context.Context, claimant uuid.UUID) (*history.ClaimantHistory, error) {
	query := `
		SELECT
			claimant, total_claims, approved_claims, rejected_claims,
			fraud_rejected_claims, total_paid::text, currency,
			completed_projects, successful_projects, total_transactions,
			records, updated_at
		FROM claimant_histories
		WHERE claimant = $1`

	var h history.ClaimantHistory
	var totalPaid, currency string
	var recordsJSON []byte

	err := r.db.QueryRow(ctx, query, claimant).Scan(
		&h.Claimant, &h.TotalClaims, &h.ApprovedClaims, &h.RejectedClaims,
		&h.FraudRejectedClaims, &totalPaid, &currency,
		&h.CompletedProjects, &h.SuccessfulProjects, &h.TotalTransactions,
		&recordsJSON, &h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return history.New(claimant, r.currency), nil
		}
		return nil, fmt.Errorf("loading claimant history: %w", err)
	}

	if h.TotalPaid, err = values.NewMoneyFromString(totalPaid, currency); err != nil {
		return nil, fmt.Errorf("parsing total paid: %w", err)
	}
	if len(recordsJSON) > 0 {
		if err := json.Unmarshal(recordsJSON, &h.Records); err != nil {
			return nil, fmt.Errorf("unmarshaling claim records: %w", err)
		}
	}
	return &h, nil
}

// Upsert writes the history, inserting the row on first use.
func (r *HistoryRepository) Upsert(ctx context.Context, h *history.ClaimantHistory) error {
	records, err := json.Marshal(h.Records)
	if err != nil {
		return fmt.Errorf("marshaling claim records: %w", err)
	}

	query := `
		INSERT INTO claimant_histories (
			claimant, total_claims, approved_claims, rejected_claims,
			fraud_rejected_claims, total_paid, currency,
			completed_projects, successful_projects, total_transactions,
			records, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (claimant) DO UPDATE SET
			total_claims = EXCLUDED.total_claims,
			approved_claims = EXCLUDED.approved_claims,
			rejected_claims = EXCLUDED.rejected_claims,
			fraud_rejected_claims = EXCLUDED.fraud_rejected_claims,
			total_paid = EXCLUDED.total_paid,
			currency = EXCLUDED.currency,
			completed_projects = EXCLUDED.completed_projects,
			successful_projects = EXCLUDED.successful_projects,
			total_transactions = EXCLUDED.total_transactions,
			records = EXCLUDED.records,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.Exec(ctx, query,
		h.Claimant, h.TotalClaims, h.ApprovedClaims, h.RejectedClaims,
		h.FraudRejectedClaims, h.TotalPaid.Amount().String(), h.TotalPaid.Currency(),
		h.CompletedProjects, h.SuccessfulProjects, h.TotalTransactions,
		records, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting claimant history: %w", err)
	}
	return nil
}
