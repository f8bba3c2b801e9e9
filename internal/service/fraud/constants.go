package fraud

import "time"

// Check weights. The sum can exceed the cap; the score saturates at MaxScore.
const (
	WeightTiming        = 20
	WeightAmount        = 15
	WeightHistory       = 25
	WeightEvidence      = 20
	WeightCollusion     = 30
	WeightMultiple      = 15
	WeightInconsistency = 20

	MaxScore = 100
)

// Default decision thresholds. Overridable via Config.
const (
	DefaultReviewThreshold     = 40
	DefaultAutoRejectThreshold = 85
	DefaultAutoApproveCeiling  = 20
)

// Default check parameters.
const (
	// Claims filed on very young policies or just before expiry.
	DefaultNewPolicyWindow = 7 * 24 * time.Hour
	DefaultExpiryWindow    = 3 * 24 * time.Hour

	// Claims close to the coverage ceiling or far above the claimant's
	// usual project value.
	DefaultCoverageRatioThreshold = "0.9"
	DefaultAvgProjectMultiplier   = 3

	// Filing velocity and track record.
	DefaultRecentClaimWindow   = 30 * 24 * time.Hour
	DefaultRecentClaimLimit    = 2
	DefaultClaimRatioThreshold = "0.4"

	// Evidence shape. Large claims need more than a token submission and
	// bulk uploads inside a short window look scripted.
	DefaultLargeClaimFloor     = "1000.00"
	DefaultEvidenceBurstCount  = 3
	DefaultEvidenceBurstWindow = 600 * time.Second

	// Repeat respondents and claim-type clustering.
	DefaultRepeatedRespondentLimit = 2
	DefaultMultipleClaimLimit      = 1
	DefaultSameTypeWindow          = 90 * 24 * time.Hour
	DefaultSameTypeLimit           = 2
)
