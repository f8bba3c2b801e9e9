package claims

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/freelanceshield/claims-engine/internal/domain/claim"
	apperrors "github.com/freelanceshield/claims-engine/internal/domain/errors"
)

// SupplementalEvidence is an evidence item attached while disputing.
type SupplementalEvidence struct {
	Type        claim.EvidenceType
	Hash        string
	URI         string
	Description string
}

// DisputeClaim contests a rejected claim inside the dispute window and
// schedules arbitration. Supplemental evidence rides along for the
// arbitrator, still subject to the ledger's capacity and dedup rules.
func (s *Service) DisputeClaim(ctx context.Context, claimID, by uuid.UUID, reason string, supplemental []SupplementalEvidence) (*claim.Claim, error) {
	if reason == "" {
		return nil, apperrors.NewValidationError("DISPUTE_REASON_REQUIRED", "a dispute must state its reason")
	}
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("claim").WithCause(err)
	}
	if err := c.Dispute(by); err != nil {
		return nil, err
	}
	for _, ev := range supplemental {
		if _, err := c.Evidence.Append(by, ev.Type, ev.Hash, ev.URI, ev.Description); err != nil {
			return nil, err
		}
	}
	deadline := s.clock.Now().Add(s.config.ArbitrationDeadline)
	c.ArbitrationDeadline = &deadline

	if err := s.claims.Update(ctx, c); err != nil {
		return nil, apperrors.NewInternalError("updating claim").WithCause(err)
	}
	s.emit(EventClaimDisputed, c, by, nil, map[string]interface{}{
		"reason": reason,
	})
	return c, nil
}

// ResolveArbitration settles a disputed claim. The arbitration fee is taken
// from the disputing claimant and split between the arbitrator, the pool
// and the treasury before the verdict is applied. An approving verdict
// returns the claim to the payout path; a confirming rejection closes it.
func (s *Service) ResolveArbitration(ctx context.Context, claimID, arbitrator uuid.UUID, approve bool, reason string) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("claim").WithCause(err)
	}
	if c.Status != claim.StatusDisputed {
		return nil, apperrors.ErrInvalidClaimStatus.WithDetails(map[string]interface{}{
			"status": c.Status.String(),
		})
	}
	if err := c.UpdateStatus(claim.StatusArbitration); err != nil {
		return nil, err
	}

	fee := c.Amount.PercentOf(s.config.ArbitrationFeeBP)
	arbitratorCut := fee.PercentOf(s.config.ArbitratorShareBP)
	poolCut := fee.PercentOf(s.config.PoolShareBP)
	treasuryCut, err := fee.Sub(arbitratorCut)
	if err == nil {
		treasuryCut, err = treasuryCut.Sub(poolCut)
	}
	if err != nil {
		return nil, apperrors.NewArithmeticError("arbitration fee split").WithCause(err)
	}

	release, err := s.pool.Guard.Acquire()
	if err != nil {
		if s.metrics != nil {
			s.metrics.ReentrancyRejected()
		}
		return nil, err
	}
	defer release()

	// The fee split settles as one batch so a failed leg cannot leave the
	// claimant partially charged before a retry.
	legs := []TransferLeg{
		{From: c.Claimant, To: arbitrator, Amount: arbitratorCut},
		{From: c.Claimant, To: s.accounts.Pool, Amount: poolCut},
	}
	if treasuryCut.IsPositive() {
		legs = append(legs, TransferLeg{From: c.Claimant, To: s.accounts.Treasury, Amount: treasuryCut})
	}
	if err := s.ledger.TransferBatch(ctx, legs); err != nil {
		return nil, apperrors.ErrInsufficientFunds.WithCause(err)
	}
	if err := s.pool.Deposit(poolCut); err != nil {
		return nil, err
	}
	s.snapshotPool(ctx)

	hist, err := s.histories.GetByClaimant(ctx, c.Claimant)
	if err != nil {
		return nil, apperrors.NewInternalError("loading claimant history").WithCause(err)
	}

	now := s.clock.Now()
	verdict := claim.Verdict{
		Approved:   approve,
		Reason:     reason,
		Processor:  claim.ProcessorArbitration,
		DecidedBy:  arbitrator,
		FraudScore: c.FraudScore,
		Flags:      c.Flags,
		DecidedAt:  now,
	}

	if approve {
		if err := c.UpdateStatus(claim.StatusApprovedPendingPayout); err != nil {
			return nil, err
		}
		c.Verdict = &verdict
		if hist != nil {
			// The original rejection stays counted; arbitration adds the
			// approval on top.
			hist.RecordApproved(now)
		}
	} else {
		if err := c.UpdateStatus(claim.StatusClosed); err != nil {
			return nil, err
		}
		c.Verdict = &verdict
	}

	if err := s.persistReview(ctx, c, hist); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		if approve {
			s.metrics.ClaimResolved("arbitration_approved")
		} else {
			s.metrics.ClaimResolved("arbitration_rejected")
		}
	}
	s.emit(EventClaimArbitrated, c, arbitrator, nil, map[string]interface{}{
		"approved": approve,
		"fee":      fee.String(),
	})
	s.logger.Info("arbitration resolved",
		zap.String("claim_id", c.ID.String()),
		zap.Bool("approved", approve),
		zap.String("fee", fee.String()),
	)
	return c, nil
}
