// Package repository implements PostgreSQL persistence for the claims
// engine using pgx. Nested aggregate parts (evidence, votes, verdicts,
// history records) are stored as JSONB; everything queried on lives in
// scalar columns.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freelanceshield/claims-engine/internal/domain/claim"
	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

// ClaimRepository persists claims in PostgreSQL.
type ClaimRepository struct {
	db *pgxpool.Pool
}

// NewClaimRepository creates a new claim repository.
func NewClaimRepository(db *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Save inserts a newly filed claim.
func (r *ClaimRepository) Save(ctx context.Context, c *claim.Claim) error {
	evidence, votes, verdict, err := marshalClaimParts(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO claims (
			id, policy_id, claimant, respondent, type, amount, currency,
			reason, status, fraud_score, flags, legitimacy_bp,
			evidence, votes, verdict,
			voting_ends_at, dispute_deadline, arbitration_deadline,
			payout_ref, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15,
			$16, $17, $18,
			$19, $20, $21
		)`

	_, err = r.db.Exec(ctx, query,
		c.ID, c.PolicyID, c.Claimant, c.Respondent, int(c.Type),
		c.Amount.Amount().String(), c.Amount.Currency(),
		c.Reason, int(c.Status), c.FraudScore, c.Flags.Bitmask(), c.LegitimacyBP,
		evidence, votes, verdict,
		c.VotingEndsAt, c.DisputeDeadline, c.ArbitrationDeadline,
		c.PayoutRef, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if IsDuplicateKeyViolation(err) {
			return fmt.Errorf("%w: claim %s", ErrDuplicateKey, c.ID)
		}
		return fmt.Errorf("inserting claim: %w", err)
	}
	return nil
}

// Update rewrites a claim's mutable state.
func (r *ClaimRepository) Update(ctx context.Context, c *claim.Claim) error {
	evidence, votes, verdict, err := marshalClaimParts(c)
	if err != nil {
		return err
	}

	query := `
		UPDATE claims SET
			status = $2, fraud_score = $3, flags = $4, legitimacy_bp = $5,
			evidence = $6, votes = $7, verdict = $8,
			voting_ends_at = $9, dispute_deadline = $10, arbitration_deadline = $11,
			payout_ref = $12, updated_at = $13
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		c.ID, int(c.Status), c.FraudScore, c.Flags.Bitmask(), c.LegitimacyBP,
		evidence, votes, verdict,
		c.VotingEndsAt, c.DisputeDeadline, c.ArbitrationDeadline,
		c.PayoutRef, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: claim %s", ErrNotFound, c.ID)
	}
	return nil
}

// GetByID loads a claim by ID.
func (r *ClaimRepository) GetByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error) {
	query := `
		SELECT
			id, policy_id, claimant, respondent, type, amount::text, currency,
			reason, status, fraud_score, flags, legitimacy_bp,
			evidence, votes, verdict,
			voting_ends_at, dispute_deadline, arbitration_deadline,
			payout_ref, created_at, updated_at
		FROM claims
		WHERE id = $1`

	var (
		c            claim.Claim
		claimType    int
		statusInt    int
		flags        int64
		amountStr    string
		currency     string
		evidenceJSON []byte
		votesJSON    []byte
		verdictJSON  []byte
		votingEndsAt *time.Time
		disputeDL    *time.Time
		arbDL        *time.Time
		payoutRef    *uuid.UUID
	)

	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.PolicyID, &c.Claimant, &c.Respondent, &claimType, &amountStr, &currency,
		&c.Reason, &statusInt, &c.FraudScore, &flags, &c.LegitimacyBP,
		&evidenceJSON, &votesJSON, &verdictJSON,
		&votingEndsAt, &disputeDL, &arbDL,
		&payoutRef, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: claim %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("loading claim: %w", err)
	}

	c.Type = claim.Type(claimType)
	c.Status = claim.Status(statusInt)
	c.Flags = claim.FlagsFromBitmask(uint8(flags))
	c.VotingEndsAt = votingEndsAt
	c.DisputeDeadline = disputeDL
	c.ArbitrationDeadline = arbDL
	c.PayoutRef = payoutRef

	c.Amount, err = values.NewMoneyFromString(amountStr, currency)
	if err != nil {
		return nil, fmt.Errorf("parsing claim amount: %w", err)
	}
	if err := json.Unmarshal(evidenceJSON, &c.Evidence); err != nil {
		return nil, fmt.Errorf("unmarshaling evidence: %w", err)
	}
	if len(votesJSON) > 0 {
		if err := json.Unmarshal(votesJSON, &c.Votes); err != nil {
			return nil, fmt.Errorf("unmarshaling votes: %w", err)
		}
	}
	if len(verdictJSON) > 0 {
		var v claim.Verdict
		if err := json.Unmarshal(verdictJSON, &v); err != nil {
			return nil, fmt.Errorf("unmarshaling verdict: %w", err)
		}
		c.Verdict = &v
	}
	return &c, nil
}

// DueForVoteFinalization lists claims under review whose voting period
// has ended. Used by the maintenance sweeper.
func (r *ClaimRepository) DueForVoteFinalization(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM claims
		WHERE status = $1 AND voting_ends_at IS NOT NULL AND voting_ends_at < $2
		ORDER BY voting_ends_at
		LIMIT $3`
	return r.listIDs(ctx, query, int(claim.StatusUnderReview), now, limit)
}

// ExpiredDisputeWindows lists rejected claims whose dispute window has
// lapsed without a dispute.
func (r *ClaimRepository) ExpiredDisputeWindows(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM claims
		WHERE status = $1 AND dispute_deadline IS NOT NULL AND dispute_deadline < $2
		ORDER BY dispute_deadline
		LIMIT $3`
	return r.listIDs(ctx, query, int(claim.StatusRejected), now, limit)
}

// OverdueArbitrations lists disputed claims still unresolved past their
// arbitration deadline.
func (r *ClaimRepository) OverdueArbitrations(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM claims
		WHERE status = $1 AND arbitration_deadline IS NOT NULL AND arbitration_deadline < $2
		ORDER BY arbitration_deadline
		LIMIT $3`
	return r.listIDs(ctx, query, int(claim.StatusDisputed), now, limit)
}

func (r *ClaimRepository) listIDs(ctx context.Context, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning claim id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func marshalClaimParts(c *claim.Claim) (evidence, votes, verdict []byte, err error) {
	evidence, err = json.Marshal(c.Evidence)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling evidence: %w", err)
	}
	votes, err = json.Marshal(c.Votes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling votes: %w", err)
	}
	if c.Verdict != nil {
		verdict, err = json.Marshal(c.Verdict)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling verdict: %w", err)
		}
	}
	return evidence, votes, verdict, nil
}
