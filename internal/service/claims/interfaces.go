package claims

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/freelanceshield/claims-engine/internal/domain/claim"
	"github.com/freelanceshield/claims-engine/internal/domain/history"
	"github.com/freelanceshield/claims-engine/internal/domain/policy"
	"github.com/freelanceshield/claims-engine/internal/domain/values"
	"github.com/freelanceshield/claims-engine/internal/service/bayesian"
	"github.com/freelanceshield/claims-engine/internal/service/fraud"
)

// ClaimRepository persists claims.
type ClaimRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error)
	Save(ctx context.Context, c *claim.Claim) error
	Update(ctx context.Context, c *claim.Claim) error
}

// PolicyRepository persists policies.
type PolicyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*policy.Policy, error)
	Update(ctx context.Context, p *policy.Policy) error
}

// HistoryRepository persists per-claimant track records. GetByClaimant
// returns an empty history for first-time claimants.
type HistoryRepository interface {
	GetByClaimant(ctx context.Context, claimant uuid.UUID) (*history.ClaimantHistory, error)
	Upsert(ctx context.Context, h *history.ClaimantHistory) error
}

// PoolRepository snapshots risk-pool state after mutation. The live pool
// aggregate is owned by the service; the repository is write-behind.
type PoolRepository interface {
	Save(ctx context.Context, snapshot PoolSnapshot) error
}

// PoolSnapshot is the persisted view of the pool.
type PoolSnapshot struct {
	PoolID            uuid.UUID
	TotalCapital      values.Money
	CoverageLiability values.Money
	PremiumsCollected values.Money
	ClaimsPaid        values.Money
	ReserveRatioBP    int64
	Paused            bool
	TakenAt           time.Time
}

// TransferLeg is one movement inside a batched transfer.
type TransferLeg struct {
	From   uuid.UUID
	To     uuid.UUID
	Amount values.Money
}

// LedgerTransfer moves funds between accounts on the external ledger.
// TransferBatch settles every leg or none of them; a multi-way split
// must never leave a partial charge behind.
type LedgerTransfer interface {
	Transfer(ctx context.Context, from, to uuid.UUID, amount values.Money) error
	TransferBatch(ctx context.Context, legs []TransferLeg) error
}

// EventSink receives lifecycle events. Emission is fire-and-forget; the
// engine never blocks on a slow consumer.
type EventSink interface {
	Publish(ctx context.Context, event Event)
}

// RiskScoreCache holds recent fraud scores for fast lookups by external
// surfaces. Optional; a nil cache disables caching.
type RiskScoreCache interface {
	SetScore(ctx context.Context, claimID uuid.UUID, score int, ttl time.Duration) error
	GetScore(ctx context.Context, claimID uuid.UUID) (int, bool, error)
}

// Scorer is the rule-based fraud stage.
type Scorer interface {
	Score(in fraud.Input) fraud.Result
}

// Verifier is the probabilistic second stage.
type Verifier interface {
	Verify(ev bayesian.Evidence) (bayesian.Outcome, int)
	Learn(predicted bayesian.Outcome, actuallyLegitimate bool)
}

// Clock supplies time for deadline checks (supports testing)
type Clock interface {
	Now() time.Time
}
