package fraud

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/freelanceshield/claims-engine/internal/domain/claim"
	"github.com/freelanceshield/claims-engine/internal/domain/history"
	"github.com/freelanceshield/claims-engine/internal/domain/policy"
	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

// Config tunes the fraud checks. DefaultConfig matches the documented
// underwriting rules; operators override individual knobs via engine config.
type Config struct {
	ReviewThreshold     int
	AutoRejectThreshold int
	AutoApproveCeiling  int

	NewPolicyWindow time.Duration
	ExpiryWindow    time.Duration

	CoverageRatioThreshold decimal.Decimal
	AvgProjectMultiplier   int64

	RecentClaimWindow   time.Duration
	RecentClaimLimit    int
	ClaimRatioThreshold decimal.Decimal

	LargeClaimFloor     values.Money
	EvidenceBurstCount  int
	EvidenceBurstWindow time.Duration

	RepeatedRespondentLimit int
	MultipleClaimLimit      int
	SameTypeWindow          time.Duration
	SameTypeLimit           int
}

// DefaultConfig returns the standard rule set in the given currency.
func DefaultConfig(currency string) Config {
	return Config{
		ReviewThreshold:         DefaultReviewThreshold,
		AutoRejectThreshold:     DefaultAutoRejectThreshold,
		AutoApproveCeiling:      DefaultAutoApproveCeiling,
		NewPolicyWindow:         DefaultNewPolicyWindow,
		ExpiryWindow:            DefaultExpiryWindow,
		CoverageRatioThreshold:  decimal.RequireFromString(DefaultCoverageRatioThreshold),
		AvgProjectMultiplier:    DefaultAvgProjectMultiplier,
		RecentClaimWindow:       DefaultRecentClaimWindow,
		RecentClaimLimit:        DefaultRecentClaimLimit,
		ClaimRatioThreshold:     decimal.RequireFromString(DefaultClaimRatioThreshold),
		LargeClaimFloor:         values.MustNewMoneyFromString(DefaultLargeClaimFloor, currency),
		EvidenceBurstCount:      DefaultEvidenceBurstCount,
		EvidenceBurstWindow:     DefaultEvidenceBurstWindow,
		RepeatedRespondentLimit: DefaultRepeatedRespondentLimit,
		MultipleClaimLimit:      DefaultMultipleClaimLimit,
		SameTypeWindow:          DefaultSameTypeWindow,
		SameTypeLimit:           DefaultSameTypeLimit,
	}
}

// Input bundles everything a single scoring pass reads. Scoring is pure;
// the caller supplies the evaluation time.
type Input struct {
	Claim   *claim.Claim
	Policy  *policy.Policy
	History *history.ClaimantHistory
	Now     time.Time
}

// Recommendation is the scorer's verdict on how the claim should proceed.
type Recommendation int

const (
	RecommendApprove Recommendation = iota
	RecommendStandard
	RecommendReview
	RecommendReject
)

func (r Recommendation) String() string {
	switch r {
	case RecommendApprove:
		return "approve"
	case RecommendStandard:
		return "standard"
	case RecommendReview:
		return "review"
	case RecommendReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Result is the outcome of one scoring pass.
type Result struct {
	Score          int              `json:"score"`
	Flags          claim.FraudFlags `json:"flags"`
	Reasons        []string         `json:"reasons"`
	Recommendation Recommendation   `json:"recommendation"`
}

// RejectionReason renders the human-readable reason attached to an
// auto-rejected claim.
func (r Result) RejectionReason() string {
	if len(r.Reasons) == 0 {
		return "Claim rejected due to: elevated fraud score"
	}
	reason := "Claim rejected due to: " + r.Reasons[0]
	for _, s := range r.Reasons[1:] {
		reason += ", " + s
	}
	return reason
}
