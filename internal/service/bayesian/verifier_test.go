package bayesian

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLegitimacy_StrongEvidenceApproves(t *testing.T) {
	m := DefaultModel()
	ev := Evidence{CompletionScore: 90, ReviewScore: 90, HistoryScore: 90, DaysSinceCompletion: 5}

	posterior := Legitimacy(m, ev)
	assert.GreaterOrEqual(t, posterior, m.ApproveThreshold)
	assert.LessOrEqual(t, posterior, Scale)
	assert.Equal(t, OutcomeApproved, Classify(m, posterior))
}

func TestLegitimacy_WeakEvidenceDenies(t *testing.T) {
	m := DefaultModel()
	ev := Evidence{CompletionScore: 0, ReviewScore: 0, HistoryScore: 0, DaysSinceCompletion: 100}

	posterior := Legitimacy(m, ev)
	assert.LessOrEqual(t, posterior, m.DenyThreshold)
	assert.Equal(t, OutcomeDenied, Classify(m, posterior))
}

func TestLegitimacy_DegenerateDenominatorIsNeutral(t *testing.T) {
	// Zero prior fraud and zero evidence zero both Bayes terms.
	m := DefaultModel()
	m.PriorFraudBP = 0
	ev := Evidence{DaysSinceCompletion: 100}

	assert.Equal(t, Scale/2, Legitimacy(m, ev))
}

func TestLegitimacy_Monotonic(t *testing.T) {
	m := DefaultModel()

	prev := -1
	for score := 0; score <= 100; score += 10 {
		ev := Evidence{CompletionScore: score, ReviewScore: score, HistoryScore: score, DaysSinceCompletion: 100 - score}
		p := Legitimacy(m, ev)
		assert.GreaterOrEqual(t, p, prev, "posterior must not decrease as evidence improves (score %d)", score)
		prev = p
	}
}

func TestLegitimacy_ClampsInputs(t *testing.T) {
	m := DefaultModel()

	over := Legitimacy(m, Evidence{CompletionScore: 500, ReviewScore: 500, HistoryScore: 500, DaysSinceCompletion: 0})
	best := Legitimacy(m, Evidence{CompletionScore: 100, ReviewScore: 100, HistoryScore: 100, DaysSinceCompletion: 0})
	assert.Equal(t, best, over)

	under := Legitimacy(m, Evidence{CompletionScore: -10, ReviewScore: -10, HistoryScore: -10, DaysSinceCompletion: 300})
	worst := Legitimacy(m, Evidence{CompletionScore: 0, ReviewScore: 0, HistoryScore: 0, DaysSinceCompletion: 100})
	assert.Equal(t, worst, under)
}

func TestModel_NormalizedWeights(t *testing.T) {
	m := DefaultModel()
	m.Weights = Weights{Completion: 7000, Review: 5000, History: 5000, Time: 3000}

	w := m.normalizedWeights()
	assert.Equal(t, 3500, w.Completion)
	assert.Equal(t, 2500, w.Review)
	assert.Equal(t, 2500, w.History)
	assert.Equal(t, 1500, w.Time)

	// Degenerate weights fall back to an equal split
	m.Weights = Weights{}
	w = m.normalizedWeights()
	assert.Equal(t, Weights{Completion: 2500, Review: 2500, History: 2500, Time: 2500}, w)
}

func TestVerifier_CountsOutcomes(t *testing.T) {
	v := NewVerifier(DefaultModel(), nil)

	outcome, posterior := v.Verify(Evidence{CompletionScore: 90, ReviewScore: 90, HistoryScore: 90, DaysSinceCompletion: 5})
	assert.Equal(t, OutcomeApproved, outcome)
	assert.GreaterOrEqual(t, posterior, DefaultApproveThreshold)

	outcome, _ = v.Verify(Evidence{DaysSinceCompletion: 100})
	assert.Equal(t, OutcomeDenied, outcome)

	m := v.Model()
	assert.Equal(t, 1, m.Counters.Approved)
	assert.Equal(t, 1, m.Counters.Denied)
}

func TestLearn_FalsePositiveTightensApproval(t *testing.T) {
	v := NewVerifier(DefaultModel(), nil)
	before := v.Model().ApproveThreshold

	v.Learn(OutcomeApproved, false)

	m := v.Model()
	assert.Equal(t, 1, m.Counters.FalsePositives)
	assert.Greater(t, m.ApproveThreshold, before)

	// Repeated misses cannot push the threshold past the cap
	for i := 0; i < 50; i++ {
		v.Learn(OutcomeApproved, false)
	}
	assert.LessOrEqual(t, v.Model().ApproveThreshold, ApproveThresholdCap)
}

func TestLearn_FalseNegativeLoosensDenial(t *testing.T) {
	v := NewVerifier(DefaultModel(), nil)
	before := v.Model().DenyThreshold

	v.Learn(OutcomeDenied, true)

	m := v.Model()
	assert.Equal(t, 1, m.Counters.FalseNegatives)
	assert.Less(t, m.DenyThreshold, before)

	for i := 0; i < 100; i++ {
		v.Learn(OutcomeDenied, true)
	}
	assert.GreaterOrEqual(t, v.Model().DenyThreshold, DenyThresholdFloor)
}

func TestLearn_CorrectPredictionsLeaveThresholdsAlone(t *testing.T) {
	v := NewVerifier(DefaultModel(), nil)

	v.Learn(OutcomeApproved, true)
	v.Learn(OutcomeDenied, false)

	m := v.Model()
	assert.Equal(t, DefaultApproveThreshold, m.ApproveThreshold)
	assert.Equal(t, DefaultDenyThreshold, m.DenyThreshold)
	assert.Equal(t, 1, m.Counters.TruePositives)
	assert.Equal(t, 1, m.Counters.TrueNegatives)
}

func TestLearn_WeightTuningAfterSample(t *testing.T) {
	v := NewVerifier(DefaultModel(), nil)

	// Build a sample past the learning gate with accuracy below the floor,
	// dominated by false positives.
	for i := 0; i < 60; i++ {
		v.Learn(OutcomeApproved, false)
	}
	for i := 0; i < 45; i++ {
		v.Learn(OutcomeApproved, true)
	}

	m := v.Model()
	assert.Greater(t, m.Counters.TotalProcessed, LearningMinSample)
	assert.Less(t, m.Accuracy(), AccuracyFloorBP)

	// Completion outweighs history more than in the default split, and the
	// weights still sum to (approximately) the full scale.
	defaultRatio := float64(DefaultCompletionWeight) / float64(DefaultHistoryWeight)
	tunedRatio := float64(m.Weights.Completion) / float64(m.Weights.History)
	assert.Greater(t, tunedRatio, defaultRatio)

	sum := m.Weights.Completion + m.Weights.Review + m.Weights.History + m.Weights.Time
	assert.InDelta(t, Scale, sum, 4, "integer renormalization may drop a few basis points")
}

func TestAccuracy(t *testing.T) {
	m := DefaultModel()
	assert.Equal(t, -1, m.Accuracy())

	m.Counters.TruePositives = 8
	m.Counters.TrueNegatives = 1
	m.Counters.FalsePositives = 1
	assert.Equal(t, 9000, m.Accuracy())
}
