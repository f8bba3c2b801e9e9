package claim

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/freelanceshield/claims-engine/internal/domain/errors"
	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

// Status represents the lifecycle state of a claim
type Status int

const (
	StatusFiled Status = iota
	StatusPendingEvidence
	StatusUnderReview
	StatusAdditionalEvidenceRequested
	StatusApprovedPendingPayout
	StatusRejected
	StatusPaid
	StatusDisputed
	StatusArbitration
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusFiled:
		return "filed"
	case StatusPendingEvidence:
		return "pending_evidence"
	case StatusUnderReview:
		return "under_review"
	case StatusAdditionalEvidenceRequested:
		return "additional_evidence_requested"
	case StatusApprovedPendingPayout:
		return "approved_pending_payout"
	case StatusRejected:
		return "rejected"
	case StatusPaid:
		return "paid"
	case StatusDisputed:
		return "disputed"
	case StatusArbitration:
		return "arbitration"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is allowed from s,
// other than the dispute window that keeps Rejected claims contestable.
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// validTransitions encodes the claim state machine. Rejected is the only
// settled state with an escape hatch (the dispute window).
var validTransitions = map[Status][]Status{
	StatusFiled:                       {StatusPendingEvidence, StatusUnderReview},
	StatusPendingEvidence:             {StatusUnderReview},
	StatusUnderReview:                 {StatusApprovedPendingPayout, StatusRejected, StatusAdditionalEvidenceRequested},
	StatusAdditionalEvidenceRequested: {StatusUnderReview},
	StatusApprovedPendingPayout:       {StatusPaid},
	StatusRejected:                    {StatusDisputed, StatusClosed},
	StatusPaid:                        {},
	StatusDisputed:                    {StatusArbitration, StatusClosed},
	StatusArbitration:                 {StatusApprovedPendingPayout, StatusClosed},
	StatusClosed:                      {},
}

// Type categorizes the dispute a claim arises from
type Type int

const (
	TypeNonPayment Type = iota
	TypeIncompleteWork
	TypeQualityDispute
	TypeDeadlineMissed
	TypeContractBreach
	TypeOther
)

func (t Type) String() string {
	switch t {
	case TypeNonPayment:
		return "non_payment"
	case TypeIncompleteWork:
		return "incomplete_work"
	case TypeQualityDispute:
		return "quality_dispute"
	case TypeDeadlineMissed:
		return "deadline_missed"
	case TypeContractBreach:
		return "contract_breach"
	case TypeOther:
		return "other"
	default:
		return "unknown"
	}
}

// ProcessorKind identifies which adjudication path produced a verdict
type ProcessorKind int

const (
	ProcessorAutomated ProcessorKind = iota
	ProcessorReviewer
	ProcessorCommunity
	ProcessorArbitration
)

func (p ProcessorKind) String() string {
	switch p {
	case ProcessorAutomated:
		return "automated"
	case ProcessorReviewer:
		return "reviewer"
	case ProcessorCommunity:
		return "community"
	case ProcessorArbitration:
		return "arbitration"
	default:
		return "unknown"
	}
}

// Verdict is the immutable record of a claim decision. A claim carries at
// most one verdict per adjudication round; arbitration overwrites the
// disputed one.
type Verdict struct {
	Approved   bool          `json:"approved"`
	Reason     string        `json:"reason"`
	Processor  ProcessorKind `json:"processor"`
	DecidedBy  uuid.UUID     `json:"decided_by"`
	FraudScore int           `json:"fraud_score"`
	Flags      FraudFlags    `json:"flags"`
	DecidedAt  time.Time     `json:"decided_at"`
}

// Vote is a single community vote on a claim under review.
type Vote struct {
	Voter   uuid.UUID `json:"voter"`
	Approve bool      `json:"approve"`
	Reason  string    `json:"reason,omitempty"`
	CastAt  time.Time `json:"cast_at"`
}

// Claim is the aggregate root for a single insurance claim. All mutation
// goes through methods that enforce the state machine and ownership rules.
type Claim struct {
	ID         uuid.UUID    `json:"id"`
	PolicyID   uuid.UUID    `json:"policy_id"`
	Claimant   uuid.UUID    `json:"claimant"`
	Respondent uuid.UUID    `json:"respondent"`
	Type       Type         `json:"type"`
	Amount     values.Money `json:"amount"`
	Reason     string       `json:"reason"`
	Status     Status       `json:"status"`

	FraudScore int        `json:"fraud_score"`
	Flags      FraudFlags `json:"flags"`
	// Posterior legitimacy estimate in basis points, 0 when the
	// probabilistic stage did not run.
	LegitimacyBP int `json:"legitimacy_bp"`

	Evidence EvidenceLedger `json:"evidence"`
	Votes    []Vote         `json:"votes"`
	Verdict  *Verdict       `json:"verdict,omitempty"`

	VotingEndsAt        *time.Time `json:"voting_ends_at,omitempty"`
	DisputeDeadline     *time.Time `json:"dispute_deadline,omitempty"`
	ArbitrationDeadline *time.Time `json:"arbitration_deadline,omitempty"`

	PayoutRef *uuid.UUID `json:"payout_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewClaim files a claim against a policy. The claimant and respondent must
// differ and the amount must be positive; coverage checks belong to the
// service layer where the policy is loaded.
func NewClaim(policyID, claimant, respondent uuid.UUID, claimType Type, amount values.Money, reason string) (*Claim, error) {
	if policyID == uuid.Nil {
		return nil, fmt.Errorf("policy ID cannot be nil")
	}
	if claimant == uuid.Nil {
		return nil, fmt.Errorf("claimant cannot be nil")
	}
	if respondent == uuid.Nil {
		return nil, fmt.Errorf("respondent cannot be nil")
	}
	if claimant == respondent {
		return nil, fmt.Errorf("claimant and respondent cannot be the same party")
	}
	if !amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if reason == "" {
		return nil, fmt.Errorf("claim reason cannot be empty")
	}

	now := clock.Now()
	return &Claim{
		ID:         uuid.New(),
		PolicyID:   policyID,
		Claimant:   claimant,
		Respondent: respondent,
		Type:       claimType,
		Amount:     amount,
		Reason:     reason,
		Status:     StatusFiled,
		Evidence:   NewEvidenceLedger(claimant, respondent),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (c *Claim) CanTransitionTo(next Status) bool {
	for _, s := range validTransitions[c.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// UpdateStatus moves the claim to the next state, refusing transitions the
// state machine does not allow.
func (c *Claim) UpdateStatus(next Status) error {
	if !c.CanTransitionTo(next) {
		return apperrors.ErrInvalidClaimStatus.WithDetails(map[string]interface{}{
			"claim_id": c.ID.String(),
			"from":     c.Status.String(),
			"to":       next.String(),
		})
	}
	c.Status = next
	c.UpdatedAt = clock.Now()
	return nil
}

// RecordScore attaches the fraud-score output to the claim.
func (c *Claim) RecordScore(score int, flags FraudFlags) {
	c.FraudScore = score
	c.Flags = flags
	c.UpdatedAt = clock.Now()
}

// RecordVerdict stores a decision and moves the claim to the matching state.
func (c *Claim) RecordVerdict(v Verdict) error {
	next := StatusRejected
	if v.Approved {
		next = StatusApprovedPendingPayout
	}
	if err := c.UpdateStatus(next); err != nil {
		return err
	}
	c.Verdict = &v
	return nil
}

// AddVote records a community vote, one per voter, while voting is open.
func (c *Claim) AddVote(voter uuid.UUID, approve bool, reason string) error {
	if c.Status != StatusUnderReview {
		return apperrors.ErrInvalidClaimStatus
	}
	now := clock.Now()
	if c.VotingEndsAt != nil && now.After(*c.VotingEndsAt) {
		return apperrors.ErrVotingPeriodEnded
	}
	for _, v := range c.Votes {
		if v.Voter == voter {
			return apperrors.ErrAlreadyVoted
		}
	}
	c.Votes = append(c.Votes, Vote{Voter: voter, Approve: approve, Reason: reason, CastAt: now})
	c.UpdatedAt = now
	return nil
}

// TallyVotes returns approve and reject counts.
func (c *Claim) TallyVotes() (approve, reject int) {
	for _, v := range c.Votes {
		if v.Approve {
			approve++
		} else {
			reject++
		}
	}
	return approve, reject
}

// OpenVoting sets the voting deadline for community review.
func (c *Claim) OpenVoting(period time.Duration) {
	now := clock.Now()
	endsAt := now.Add(period)
	c.VotingEndsAt = &endsAt
	c.UpdatedAt = now
}

// OpenDisputeWindow starts the period during which a rejected claim may be
// contested.
func (c *Claim) OpenDisputeWindow(window time.Duration) {
	deadline := clock.Now().Add(window)
	c.DisputeDeadline = &deadline
}

// Dispute contests a rejection within the dispute window. Only the claimant
// may dispute.
func (c *Claim) Dispute(by uuid.UUID) error {
	if by != c.Claimant {
		return apperrors.ErrNotClaimOwner
	}
	if c.Status != StatusRejected {
		return apperrors.ErrInvalidClaimStatus
	}
	if c.DisputeDeadline == nil || clock.Now().After(*c.DisputeDeadline) {
		return apperrors.ErrDisputePeriodEnded
	}
	return c.UpdateStatus(StatusDisputed)
}

// MarkPaid records the payout reference and settles the claim.
func (c *Claim) MarkPaid(payoutRef uuid.UUID) error {
	if err := c.UpdateStatus(StatusPaid); err != nil {
		return err
	}
	c.PayoutRef = &payoutRef
	return nil
}
