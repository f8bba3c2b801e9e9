package fraud

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/freelanceshield/claims-engine/internal/domain/claim"
)

// Scorer runs the rule-based fraud checks against a filed claim. Each check
// that fires adds its weight and sets a flag; the total saturates at
// MaxScore. Scoring reads its inputs and the supplied clock time only, so
// the same input always produces the same result.
type Scorer struct {
	config Config
	logger *zap.Logger
}

// NewScorer creates a scorer. A nil logger disables logging.
func NewScorer(config Config, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{config: config, logger: logger}
}

// Score evaluates all checks and returns the aggregate result.
func (s *Scorer) Score(in Input) Result {
	var res Result

	if s.checkTiming(in) {
		res.Flags.Timing = true
		res.Score += WeightTiming
		res.Reasons = append(res.Reasons, "suspicious claim timing")
	}
	if s.checkAmount(in) {
		res.Flags.Amount = true
		res.Score += WeightAmount
		res.Reasons = append(res.Reasons, "unusually high claim amount")
	}
	if s.checkHistory(in) {
		res.Flags.History = true
		res.Score += WeightHistory
		res.Reasons = append(res.Reasons, "problematic claims history")
	}
	if s.checkEvidence(in) {
		res.Flags.Evidence = true
		res.Score += WeightEvidence
		res.Reasons = append(res.Reasons, "evidence anomalies")
	}
	if s.checkCollusion(in) {
		res.Flags.Collusion = true
		res.Score += WeightCollusion
		res.Reasons = append(res.Reasons, "possible collusion with respondent")
	}
	if s.checkMultipleClaims(in) {
		res.Flags.MultipleClaims = true
		res.Score += WeightMultiple
		res.Reasons = append(res.Reasons, "multiple related claims")
	}
	if s.checkInconsistency(in) {
		res.Flags.Inconsistency = true
		res.Score += WeightInconsistency
		res.Reasons = append(res.Reasons, "evidence inconsistent with claim type")
	}

	if res.Score > MaxScore {
		res.Score = MaxScore
	}
	res.Recommendation = s.recommend(res.Score)

	s.logger.Debug("fraud score computed",
		zap.String("claim_id", in.Claim.ID.String()),
		zap.Int("score", res.Score),
		zap.Strings("flags", res.Flags.Names()),
		zap.String("recommendation", res.Recommendation.String()),
	)
	return res
}

func (s *Scorer) recommend(score int) Recommendation {
	switch {
	case score >= s.config.AutoRejectThreshold:
		return RecommendReject
	case score >= s.config.ReviewThreshold:
		return RecommendReview
	case score < s.config.AutoApproveCeiling:
		return RecommendApprove
	default:
		return RecommendStandard
	}
}

// checkTiming flags claims on policies that are very new or about to expire.
func (s *Scorer) checkTiming(in Input) bool {
	if in.Policy.AgeAt(in.Now) < s.config.NewPolicyWindow {
		return true
	}
	remaining := in.Policy.TimeToExpiry(in.Now)
	return remaining >= 0 && remaining < s.config.ExpiryWindow
}

// checkAmount flags claims near the coverage ceiling or far above the
// claimant's usual project value.
func (s *Scorer) checkAmount(in Input) bool {
	ratio := in.Claim.Amount.Ratio(in.Policy.CoverageAmount)
	if ratio.GreaterThan(s.config.CoverageRatioThreshold) {
		return true
	}
	avg := in.Policy.AverageProjectValue
	if avg.IsPositive() {
		limit := avg.Mul(decimal.NewFromInt(s.config.AvgProjectMultiplier))
		if in.Claim.Amount.GreaterThan(limit) {
			return true
		}
	}
	return false
}

// checkHistory flags rapid filing, a high claim-to-project ratio, and any
// prior fraud rejection.
func (s *Scorer) checkHistory(in Input) bool {
	if in.History == nil {
		return false
	}
	if in.History.ClaimsWithin(s.config.RecentClaimWindow, in.Now) >= s.config.RecentClaimLimit {
		return true
	}
	if in.History.ClaimRatio().GreaterThan(s.config.ClaimRatioThreshold) {
		return true
	}
	return in.History.HasFraudRejection()
}

// checkEvidence flags thin submissions on large claims, bulk uploads inside
// a short window, and duplicated content hashes.
func (s *Scorer) checkEvidence(in Input) bool {
	ledger := &in.Claim.Evidence
	if in.Claim.Amount.GreaterThan(s.config.LargeClaimFloor) && ledger.Count() < claim.MinEvidenceItems {
		return true
	}
	if ledger.CountWithin(s.config.EvidenceBurstWindow) > s.config.EvidenceBurstCount {
		return true
	}
	return ledger.HasDuplicateHashes()
}

// checkCollusion flags repeat respondents and accounts that transact but
// never complete projects.
func (s *Scorer) checkCollusion(in Input) bool {
	if in.History == nil {
		return false
	}
	if in.History.CountAgainst(in.Claim.Respondent) > s.config.RepeatedRespondentLimit {
		return true
	}
	return in.History.TotalTransactions > 0 && in.History.SuccessfulProjects == 0
}

// checkMultipleClaims flags more than one claim against the same respondent
// and same-type claim clusters inside the lookback window.
func (s *Scorer) checkMultipleClaims(in Input) bool {
	if in.History == nil {
		return false
	}
	if in.History.CountAgainst(in.Claim.Respondent) > s.config.MultipleClaimLimit {
		return true
	}
	return in.History.SameTypeWithin(int(in.Claim.Type), s.config.SameTypeWindow, in.Now) > s.config.SameTypeLimit
}

// checkInconsistency flags claims whose evidence does not structurally
// support the claim type.
func (s *Scorer) checkInconsistency(in Input) bool {
	return len(in.Claim.Evidence.MissingFor(in.Claim.Type)) > 0
}
