// Package claims orchestrates the claim lifecycle: filing against a policy,
// evidence accumulation, fraud scoring, review, payout and dispute
// resolution. All pool and history side effects of a transition are applied
// before the operation returns.
package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/freelanceshield/claims-engine/internal/domain/claim"
	apperrors "github.com/freelanceshield/claims-engine/internal/domain/errors"
	"github.com/freelanceshield/claims-engine/internal/domain/history"
	"github.com/freelanceshield/claims-engine/internal/domain/riskpool"
	"github.com/freelanceshield/claims-engine/internal/domain/values"
	"github.com/freelanceshield/claims-engine/internal/service/bayesian"
	"github.com/freelanceshield/claims-engine/internal/service/fraud"
)

// Config carries the lifecycle policy knobs.
type Config struct {
	// Claims at or below this amount with a low fraud score skip review.
	SmallClaimLimit values.Money

	// Filing velocity cap enforced at filing time.
	RecentClaimLimit  int
	RecentClaimWindow time.Duration

	// Community review.
	VotingPeriod time.Duration
	MinVotes     int

	// Dispute and arbitration.
	DisputeWindow       time.Duration
	ArbitrationDeadline time.Duration
	ArbitrationFeeBP    int64
	ArbitratorShareBP   int64
	PoolShareBP         int64
	TreasuryShareBP     int64

	// Run the probabilistic stage after the rule-based one when evidence
	// factors are supplied.
	UseBayesianStage bool

	// How long cached risk scores live.
	ScoreCacheTTL time.Duration
}

// DefaultConfig returns the standard lifecycle policy in the given currency.
func DefaultConfig(currency string) Config {
	return Config{
		SmallClaimLimit:     values.MustNewMoneyFromString("1000.00", currency),
		RecentClaimLimit:    3,
		RecentClaimWindow:   30 * 24 * time.Hour,
		VotingPeriod:        72 * time.Hour,
		MinVotes:            5,
		DisputeWindow:       7 * 24 * time.Hour,
		ArbitrationDeadline: 14 * 24 * time.Hour,
		ArbitrationFeeBP:    500,
		ArbitratorShareBP:   6000,
		PoolShareBP:         3000,
		TreasuryShareBP:     1000,
		UseBayesianStage:    true,
		ScoreCacheTTL:       time.Hour,
	}
}

// Accounts are the ledger endpoints the engine moves funds between.
type Accounts struct {
	Pool     uuid.UUID
	Treasury uuid.UUID
}

// Service drives claims through their lifecycle. Optional dependencies
// (events, cache, metrics, verifier) may be nil.
type Service struct {
	claims    ClaimRepository
	policies  PolicyRepository
	histories HistoryRepository
	poolRepo  PoolRepository
	pool      *riskpool.Pool
	ledger    LedgerTransfer
	scorer    Scorer
	verifier  Verifier
	events    EventSink
	cache     RiskScoreCache
	metrics   Metrics
	clock     Clock
	logger    *zap.Logger
	config    Config
	accounts  Accounts
}

// NewService wires the claim lifecycle engine.
func NewService(
	claimRepo ClaimRepository,
	policyRepo PolicyRepository,
	historyRepo HistoryRepository,
	poolRepo PoolRepository,
	pool *riskpool.Pool,
	ledger LedgerTransfer,
	scorer Scorer,
	verifier Verifier,
	events EventSink,
	cache RiskScoreCache,
	metrics Metrics,
	clk Clock,
	logger *zap.Logger,
	config Config,
	accounts Accounts,
) (*Service, error) {
	if claimRepo == nil || policyRepo == nil || historyRepo == nil {
		return nil, fmt.Errorf("claim, policy and history repositories are required")
	}
	if pool == nil {
		return nil, fmt.Errorf("risk pool is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger transfer port is required")
	}
	if scorer == nil {
		return nil, fmt.Errorf("fraud scorer is required")
	}
	if clk == nil {
		clk = claim.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		claims:    claimRepo,
		policies:  policyRepo,
		histories: historyRepo,
		poolRepo:  poolRepo,
		pool:      pool,
		ledger:    ledger,
		scorer:    scorer,
		verifier:  verifier,
		events:    events,
		cache:     cache,
		metrics:   metrics,
		clock:     clk,
		logger:    logger,
		config:    config,
		accounts:  accounts,
	}, nil
}

// FileClaimRequest carries the inputs for filing a claim.
type FileClaimRequest struct {
	PolicyID   uuid.UUID
	Claimant   uuid.UUID
	Respondent uuid.UUID
	ClaimType  claim.Type
	Amount     values.Money
	Reason     string
}

// FileClaim validates a new claim against the policy and the claimant's
// filing velocity, then persists it in the Filed state.
func (s *Service) FileClaim(ctx context.Context, req FileClaimRequest) (*claim.Claim, error) {
	pol, err := s.policies.GetByID(ctx, req.PolicyID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("policy").WithCause(err)
	}

	now := s.clock.Now()
	if pol.Owner != req.Claimant {
		return nil, apperrors.ErrNotPolicyOwner
	}
	if !pol.IsActive {
		return nil, apperrors.ErrPolicyInactive
	}
	if !pol.InCoveragePeriod(now) {
		return nil, apperrors.ErrPolicyExpired
	}
	if !pol.WaitingPeriodOver(now) {
		return nil, apperrors.ErrWaitingPeriodActive
	}
	if req.Amount.GreaterThan(pol.CoverageAmount) {
		return nil, apperrors.ErrExceedsCoverage.WithDetails(map[string]interface{}{
			"amount":   req.Amount.String(),
			"coverage": pol.CoverageAmount.String(),
		})
	}

	hist, err := s.histories.GetByClaimant(ctx, req.Claimant)
	if err != nil {
		return nil, apperrors.NewInternalError("loading claimant history").WithCause(err)
	}
	if hist == nil {
		hist = history.New(req.Claimant, req.Amount.Currency())
	}
	if hist.ClaimsWithin(s.config.RecentClaimWindow, now) >= s.config.RecentClaimLimit {
		return nil, apperrors.ErrTooManyRecentClaims
	}

	c, err := claim.NewClaim(req.PolicyID, req.Claimant, req.Respondent, req.ClaimType, req.Amount, req.Reason)
	if err != nil {
		return nil, err
	}

	pol.RecordClaim()
	hist.RecordFiled(c.ID, req.Respondent, int(req.ClaimType), now)

	if err := s.claims.Save(ctx, c); err != nil {
		return nil, apperrors.NewInternalError("saving claim").WithCause(err)
	}
	if err := s.policies.Update(ctx, pol); err != nil {
		return nil, apperrors.NewInternalError("updating policy").WithCause(err)
	}
	if err := s.histories.Upsert(ctx, hist); err != nil {
		return nil, apperrors.NewInternalError("updating claimant history").WithCause(err)
	}

	if s.metrics != nil {
		s.metrics.ClaimFiled()
	}
	s.emit(EventClaimCreated, c, req.Claimant, nil, map[string]interface{}{
		"claim_type": req.ClaimType.String(),
	})
	s.logger.Info("claim filed",
		zap.String("claim_id", c.ID.String()),
		zap.String("policy_id", req.PolicyID.String()),
		zap.String("amount", req.Amount.String()),
	)
	return c, nil
}

// AddEvidence appends an evidence item to a claim that is still gathering.
func (s *Service) AddEvidence(ctx context.Context, claimID, submitter uuid.UUID, evidenceType claim.EvidenceType, hash, uri, description string) (*claim.EvidenceItem, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("claim").WithCause(err)
	}

	switch c.Status {
	case claim.StatusFiled, claim.StatusPendingEvidence, claim.StatusAdditionalEvidenceRequested:
	default:
		return nil, apperrors.ErrInvalidClaimStatus.WithDetails(map[string]interface{}{
			"status": c.Status.String(),
		})
	}

	item, err := c.Evidence.Append(submitter, evidenceType, hash, uri, description)
	if err != nil {
		return nil, err
	}
	if c.Status == claim.StatusFiled {
		if err := c.UpdateStatus(claim.StatusPendingEvidence); err != nil {
			return nil, err
		}
	}

	if err := s.claims.Update(ctx, c); err != nil {
		return nil, apperrors.NewInternalError("updating claim").WithCause(err)
	}
	s.emit(EventEvidenceAdded, c, submitter, nil, map[string]interface{}{
		"evidence_type": evidenceType.String(),
		"hash":          hash,
	})
	return item, nil
}

// ReviewSubmission carries optional probabilistic evidence factors supplied
// at submission time.
type ReviewSubmission struct {
	ClaimID uuid.UUID
	By      uuid.UUID
	Factors *bayesian.Evidence
}

// SubmitForReview runs the fraud stage (and the probabilistic stage when
// configured) and routes the claim to auto-approval, auto-rejection or
// review.
func (s *Service) SubmitForReview(ctx context.Context, sub ReviewSubmission) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, sub.ClaimID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("claim").WithCause(err)
	}
	if c.Claimant != sub.By {
		return nil, apperrors.ErrNotClaimOwner
	}
	if c.Status != claim.StatusPendingEvidence && c.Status != claim.StatusAdditionalEvidenceRequested {
		return nil, apperrors.ErrInvalidClaimStatus.WithDetails(map[string]interface{}{
			"status": c.Status.String(),
		})
	}
	if c.Evidence.Count() < claim.MinEvidenceItems {
		return nil, apperrors.ErrInsufficientEvidence.WithDetails(map[string]interface{}{
			"count":    c.Evidence.Count(),
			"required": claim.MinEvidenceItems,
		})
	}

	pol, err := s.policies.GetByID(ctx, c.PolicyID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("policy").WithCause(err)
	}
	hist, err := s.histories.GetByClaimant(ctx, c.Claimant)
	if err != nil {
		return nil, apperrors.NewInternalError("loading claimant history").WithCause(err)
	}

	now := s.clock.Now()
	result := s.scorer.Score(fraud.Input{Claim: c, Policy: pol, History: hist, Now: now})
	c.RecordScore(result.Score, result.Flags)
	if err := c.UpdateStatus(claim.StatusUnderReview); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.FraudScoreObserved(result.Score)
	}
	if s.cache != nil {
		if err := s.cache.SetScore(ctx, c.ID, result.Score, s.config.ScoreCacheTTL); err != nil {
			s.logger.Warn("risk score cache write failed", zap.Error(err))
		}
	}

	// The probabilistic stage can only strengthen a rejection or demand
	// review; the rule-based stage stays authoritative for approval.
	bayesianDeny := false
	if s.config.UseBayesianStage && s.verifier != nil && sub.Factors != nil {
		outcome, posterior := s.verifier.Verify(*sub.Factors)
		c.LegitimacyBP = posterior
		if outcome == bayesian.OutcomeDenied {
			bayesianDeny = true
		}
	}

	switch {
	case result.Recommendation == fraud.RecommendReject || bayesianDeny:
		reason := result.RejectionReason()
		if bayesianDeny && result.Recommendation != fraud.RecommendReject {
			reason = "Claim rejected due to: low legitimacy probability"
		}
		return s.rejectClaim(ctx, c, hist, uuid.Nil, claim.ProcessorAutomated, reason, true)

	case result.Recommendation == fraud.RecommendReview:
		c.OpenVoting(s.config.VotingPeriod)
		if err := s.persistReview(ctx, c, hist); err != nil {
			return nil, err
		}
		score := result.Score
		s.emit(EventClaimUnderReview, c, sub.By, &score, nil)
		return c, nil

	case result.Recommendation == fraud.RecommendApprove && !c.Amount.GreaterThan(s.config.SmallClaimLimit):
		return s.approveClaim(ctx, c, hist, uuid.Nil, claim.ProcessorAutomated, "low risk small claim")

	default:
		c.OpenVoting(s.config.VotingPeriod)
		if err := s.persistReview(ctx, c, hist); err != nil {
			return nil, err
		}
		score := result.Score
		s.emit(EventClaimUnderReview, c, sub.By, &score, nil)
		return c, nil
	}
}

// ReviewClaim records a manual reviewer's verdict on a claim under review.
func (s *Service) ReviewClaim(ctx context.Context, claimID, reviewer uuid.UUID, approve bool, reason string) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("claim").WithCause(err)
	}
	if c.Status != claim.StatusUnderReview {
		return nil, apperrors.ErrInvalidClaimStatus
	}

	hist, err := s.histories.GetByClaimant(ctx, c.Claimant)
	if err != nil {
		return nil, apperrors.NewInternalError("loading claimant history").WithCause(err)
	}

	if approve {
		return s.approveClaim(ctx, c, hist, reviewer, claim.ProcessorReviewer, reason)
	}
	return s.rejectClaim(ctx, c, hist, reviewer, claim.ProcessorReviewer, reason, false)
}

// ProcessPayment transfers the approved amount from the pool to the
// claimant. The claim is marked Paid only after the transfer succeeds, and
// the pool's external-call guard serializes the whole sequence.
func (s *Service) ProcessPayment(ctx context.Context, claimID uuid.UUID) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("claim").WithCause(err)
	}
	if c.Status != claim.StatusApprovedPendingPayout {
		return nil, apperrors.ErrInvalidClaimStatus.WithDetails(map[string]interface{}{
			"status": c.Status.String(),
		})
	}

	release, err := s.pool.Guard.Acquire()
	if err != nil {
		if s.metrics != nil {
			s.metrics.ReentrancyRejected()
		}
		return nil, err
	}
	defer release()

	if s.pool.Paused {
		return nil, apperrors.ErrPoolPaused
	}
	if c.Amount.GreaterThan(s.pool.TotalCapital) {
		return nil, apperrors.ErrInsufficientPoolFunds
	}

	if err := s.ledger.Transfer(ctx, s.accounts.Pool, c.Claimant, c.Amount); err != nil {
		return nil, apperrors.ErrInsufficientFunds.WithCause(err)
	}

	// The transfer went through; pool and claim state must now both move.
	if err := s.pool.PayClaim(c.Amount); err != nil {
		return nil, err
	}
	if err := s.pool.ReleaseCoverage(c.Amount); err != nil {
		return nil, err
	}
	payoutRef := uuid.New()
	if err := c.MarkPaid(payoutRef); err != nil {
		return nil, err
	}

	pol, err := s.policies.GetByID(ctx, c.PolicyID)
	if err == nil {
		if perr := pol.RecordPayment(c.Amount); perr == nil {
			if uerr := s.policies.Update(ctx, pol); uerr != nil {
				s.logger.Error("policy payout update failed", zap.Error(uerr))
			}
		}
	}
	hist, err := s.histories.GetByClaimant(ctx, c.Claimant)
	if err == nil && hist != nil {
		if herr := hist.RecordPaid(c.Amount, s.clock.Now()); herr == nil {
			if uerr := s.histories.Upsert(ctx, hist); uerr != nil {
				s.logger.Error("history payout update failed", zap.Error(uerr))
			}
		}
	}

	if err := s.claims.Update(ctx, c); err != nil {
		return nil, apperrors.NewInternalError("updating claim").WithCause(err)
	}
	s.snapshotPool(ctx)

	if s.metrics != nil {
		s.metrics.PayoutRecorded(c.Amount)
		s.metrics.ReserveRatioUpdated(s.pool.ReserveRatioBP())
	}
	s.emit(EventClaimPaid, c, c.Claimant, nil, map[string]interface{}{
		"payout_ref": payoutRef.String(),
	})
	s.logger.Info("claim paid",
		zap.String("claim_id", c.ID.String()),
		zap.String("amount", c.Amount.String()),
	)
	return c, nil
}

// CloseExpiredDispute closes a rejected claim whose dispute window has
// lapsed without a dispute.
func (s *Service) CloseExpiredDispute(ctx context.Context, claimID uuid.UUID) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("claim").WithCause(err)
	}
	if c.Status != claim.StatusRejected {
		return nil, apperrors.ErrInvalidClaimStatus
	}
	if c.DisputeDeadline != nil && s.clock.Now().Before(*c.DisputeDeadline) {
		return nil, apperrors.NewBusinessError("DISPUTE_WINDOW_OPEN", "dispute window has not lapsed yet")
	}
	if err := c.UpdateStatus(claim.StatusClosed); err != nil {
		return nil, err
	}
	if err := s.claims.Update(ctx, c); err != nil {
		return nil, apperrors.NewInternalError("updating claim").WithCause(err)
	}
	s.emit(EventClaimClosed, c, uuid.Nil, nil, nil)
	return c, nil
}

// Pool exposes the live pool aggregate for capital operations and health
// surfaces.
func (s *Service) Pool() *riskpool.Pool {
	return s.pool
}

func (s *Service) approveClaim(ctx context.Context, c *claim.Claim, hist *history.ClaimantHistory, decidedBy uuid.UUID, processor claim.ProcessorKind, reason string) (*claim.Claim, error) {
	v := claim.Verdict{
		Approved:   true,
		Reason:     reason,
		Processor:  processor,
		DecidedBy:  decidedBy,
		FraudScore: c.FraudScore,
		Flags:      c.Flags,
		DecidedAt:  s.clock.Now(),
	}
	if err := c.RecordVerdict(v); err != nil {
		return nil, err
	}
	if hist != nil {
		hist.RecordApproved(s.clock.Now())
	}
	if err := s.persistReview(ctx, c, hist); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ClaimResolved("approved")
	}
	score := c.FraudScore
	s.emit(EventClaimApproved, c, decidedBy, &score, map[string]interface{}{
		"processor": processor.String(),
	})
	return c, nil
}

func (s *Service) rejectClaim(ctx context.Context, c *claim.Claim, hist *history.ClaimantHistory, decidedBy uuid.UUID, processor claim.ProcessorKind, reason string, fraudulent bool) (*claim.Claim, error) {
	v := claim.Verdict{
		Approved:   false,
		Reason:     reason,
		Processor:  processor,
		DecidedBy:  decidedBy,
		FraudScore: c.FraudScore,
		Flags:      c.Flags,
		DecidedAt:  s.clock.Now(),
	}
	if err := c.RecordVerdict(v); err != nil {
		return nil, err
	}
	c.OpenDisputeWindow(s.config.DisputeWindow)
	if hist != nil {
		hist.RecordRejected(fraudulent, s.clock.Now())
	}
	if err := s.persistReview(ctx, c, hist); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ClaimResolved("rejected")
	}
	score := c.FraudScore
	s.emit(EventClaimRejected, c, decidedBy, &score, map[string]interface{}{
		"processor": processor.String(),
		"reason":    reason,
	})
	return c, nil
}

func (s *Service) persistReview(ctx context.Context, c *claim.Claim, hist *history.ClaimantHistory) error {
	if err := s.claims.Update(ctx, c); err != nil {
		return apperrors.NewInternalError("updating claim").WithCause(err)
	}
	if hist != nil {
		if err := s.histories.Upsert(ctx, hist); err != nil {
			return apperrors.NewInternalError("updating claimant history").WithCause(err)
		}
	}
	return nil
}

func (s *Service) snapshotPool(ctx context.Context) {
	if s.poolRepo == nil {
		return
	}
	snapshot := PoolSnapshot{
		PoolID:            s.pool.ID,
		TotalCapital:      s.pool.TotalCapital,
		CoverageLiability: s.pool.CoverageLiability,
		PremiumsCollected: s.pool.PremiumsCollected,
		ClaimsPaid:        s.pool.ClaimsPaid,
		ReserveRatioBP:    s.pool.ReserveRatioBP(),
		Paused:            s.pool.Paused,
		TakenAt:           s.clock.Now(),
	}
	if err := s.poolRepo.Save(ctx, snapshot); err != nil {
		s.logger.Error("pool snapshot failed", zap.Error(err))
	}
}
