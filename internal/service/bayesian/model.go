// Package bayesian implements the probabilistic second stage of claim
// verification. A claim's evidence factors are combined with a prior fraud
// rate into a posterior legitimacy probability on a 0-10000 scale, and the
// model self-tunes as ground-truth outcomes arrive.
package bayesian

// Probability scale. All probabilities, weights and thresholds are in basis
// points of this scale.
const Scale = 10000

// Default model parameters.
const (
	DefaultPriorFraudBP = 500 // 5% prior fraud probability

	DefaultCompletionWeight = 3500
	DefaultReviewWeight     = 2500
	DefaultHistoryWeight    = 2500
	DefaultTimeWeight       = 1500

	DefaultApproveThreshold = 8000
	DefaultDenyThreshold    = 2000

	// Online-learning knobs.
	DefaultThresholdAdjustmentRate = 200 // 2% per miss
	DefaultWeightAdjustmentRate    = 100 // 1% per accuracy review

	ApproveThresholdCap = 9500
	DenyThresholdFloor  = 500

	// Weight tuning waits for a minimum sample and only reacts when
	// rolling accuracy drops below this line.
	LearningMinSample = 100
	AccuracyFloorBP   = 8000
)

// Weights are the evidence factor weights. They are normalized to Scale
// before every evaluation, so callers may set them in any proportion.
type Weights struct {
	Completion int `json:"completion"`
	Review     int `json:"review"`
	History    int `json:"history"`
	Time       int `json:"time"`
}

// Counters track prediction performance for the online-learning update.
type Counters struct {
	TotalProcessed int `json:"total_processed"`
	Approved       int `json:"approved"`
	Denied         int `json:"denied"`
	ManualReview   int `json:"manual_review"`

	TruePositives  int `json:"true_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
}

// Model is the full verifier state. It is a plain value; the Verifier
// wrapper owns synchronization.
type Model struct {
	PriorFraudBP int     `json:"prior_fraud_bp"`
	Weights      Weights `json:"weights"`

	ApproveThreshold int `json:"approve_threshold"`
	DenyThreshold    int `json:"deny_threshold"`

	ThresholdAdjustmentRate int `json:"threshold_adjustment_rate"`
	WeightAdjustmentRate    int `json:"weight_adjustment_rate"`

	Counters Counters `json:"counters"`
}

// DefaultModel returns the standard starting parameters.
func DefaultModel() Model {
	return Model{
		PriorFraudBP: DefaultPriorFraudBP,
		Weights: Weights{
			Completion: DefaultCompletionWeight,
			Review:     DefaultReviewWeight,
			History:    DefaultHistoryWeight,
			Time:       DefaultTimeWeight,
		},
		ApproveThreshold:        DefaultApproveThreshold,
		DenyThreshold:           DefaultDenyThreshold,
		ThresholdAdjustmentRate: DefaultThresholdAdjustmentRate,
		WeightAdjustmentRate:    DefaultWeightAdjustmentRate,
	}
}

// normalizedWeights scales the weights so they sum to Scale. Degenerate
// weights fall back to an equal split.
func (m Model) normalizedWeights() Weights {
	total := m.Weights.Completion + m.Weights.Review + m.Weights.History + m.Weights.Time
	if total <= 0 {
		return Weights{Completion: 2500, Review: 2500, History: 2500, Time: 2500}
	}
	return Weights{
		Completion: m.Weights.Completion * Scale / total,
		Review:     m.Weights.Review * Scale / total,
		History:    m.Weights.History * Scale / total,
		Time:       m.Weights.Time * Scale / total,
	}
}

// Accuracy returns the rolling prediction accuracy in basis points, or -1
// when no classified outcome has been recorded yet.
func (m Model) Accuracy() int {
	c := m.Counters
	total := c.TruePositives + c.TrueNegatives + c.FalsePositives + c.FalseNegatives
	if total == 0 {
		return -1
	}
	return (c.TruePositives + c.TrueNegatives) * Scale / total
}
