package bayesian

import (
	"sync"

	"go.uber.org/zap"
)

// Evidence carries the four scored factors for one claim. Scores are 0-100;
// DaysSinceCompletion saturates at 100 for the time factor.
type Evidence struct {
	CompletionScore     int `json:"completion_score"`
	ReviewScore         int `json:"review_score"`
	HistoryScore        int `json:"history_score"`
	DaysSinceCompletion int `json:"days_since_completion"`
}

// Outcome is the verifier's classification of a claim.
type Outcome int

const (
	OutcomeApproved Outcome = iota
	OutcomeDenied
	OutcomeManualReview
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApproved:
		return "approved"
	case OutcomeDenied:
		return "denied"
	case OutcomeManualReview:
		return "manual_review"
	default:
		return "unknown"
	}
}

// Legitimacy computes the posterior probability that a claim is genuine,
// on the 0-Scale range. The computation is pure integer arithmetic so the
// same model and evidence always produce the same posterior.
func Legitimacy(m Model, ev Evidence) int {
	priorFraud := int64(m.PriorFraudBP)
	priorLegitimate := int64(Scale) - priorFraud

	w := m.normalizedWeights()

	days := ev.DaysSinceCompletion
	if days > 100 {
		days = 100
	}

	// Weighted evidence score on the 0-Scale range. Recent filings score
	// high on the time factor.
	weighted := int64(clampScore(ev.CompletionScore))*int64(w.Completion)/100 +
		int64(clampScore(ev.ReviewScore))*int64(w.Review)/100 +
		int64(clampScore(ev.HistoryScore))*int64(w.History)/100 +
		int64(100-days)*int64(w.Time)/100

	// Map the evidence score to a likelihood ratio favoring legitimacy,
	// then apply Bayes:
	//   P(legit|ev) = L * P(legit) / (L * P(legit) + P(fraud))
	likelihoodRatio := weighted * 3 / 100

	numerator := likelihoodRatio * priorLegitimate
	denominator := numerator + (int64(Scale)-weighted)*priorFraud/100
	if denominator == 0 {
		return Scale / 2
	}

	posterior := numerator * Scale / denominator
	if posterior < 0 {
		return 0
	}
	if posterior > Scale {
		return Scale
	}
	return int(posterior)
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// Classify maps a posterior to an outcome using the model thresholds.
func Classify(m Model, posterior int) Outcome {
	switch {
	case posterior >= m.ApproveThreshold:
		return OutcomeApproved
	case posterior <= m.DenyThreshold:
		return OutcomeDenied
	default:
		return OutcomeManualReview
	}
}

// Verifier wraps a model with synchronization and outcome bookkeeping so
// the claims service can share one instance across operations.
type Verifier struct {
	mu     sync.Mutex
	model  Model
	logger *zap.Logger
}

// NewVerifier creates a verifier around the given model. A nil logger
// disables logging.
func NewVerifier(model Model, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{model: model, logger: logger}
}

// Verify classifies the evidence and returns the outcome with the
// posterior that produced it.
func (v *Verifier) Verify(ev Evidence) (Outcome, int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	posterior := Legitimacy(v.model, ev)
	outcome := Classify(v.model, posterior)

	switch outcome {
	case OutcomeApproved:
		v.model.Counters.Approved++
	case OutcomeDenied:
		v.model.Counters.Denied++
	case OutcomeManualReview:
		v.model.Counters.ManualReview++
	}

	v.logger.Debug("bayesian verification",
		zap.Int("posterior_bp", posterior),
		zap.String("outcome", outcome.String()),
	)
	return outcome, posterior
}

// Model returns a copy of the current model state.
func (v *Verifier) Model() Model {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.model
}
