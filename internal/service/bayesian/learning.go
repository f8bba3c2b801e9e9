package bayesian

import "go.uber.org/zap"

// Learn feeds a resolved claim's ground truth back into the model. Threshold
// adjustments react to individual misclassifications; weight adjustments
// wait for a minimum sample and only move when rolling accuracy is poor.
func (v *Verifier) Learn(predicted Outcome, actuallyLegitimate bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	m := &v.model
	m.Counters.TotalProcessed++

	switch {
	case predicted == OutcomeApproved && actuallyLegitimate:
		m.Counters.TruePositives++

	case predicted == OutcomeApproved && !actuallyLegitimate:
		// Approved a fraudulent claim: tighten the approval bar.
		m.Counters.FalsePositives++
		adjustment := m.ApproveThreshold * m.ThresholdAdjustmentRate / Scale
		m.ApproveThreshold += adjustment
		if m.ApproveThreshold > ApproveThresholdCap {
			m.ApproveThreshold = ApproveThresholdCap
		}

	case predicted == OutcomeDenied && actuallyLegitimate:
		// Denied a genuine claim: loosen the denial bar.
		m.Counters.FalseNegatives++
		adjustment := m.DenyThreshold * m.ThresholdAdjustmentRate / Scale
		m.DenyThreshold -= adjustment
		if m.DenyThreshold < DenyThresholdFloor {
			m.DenyThreshold = DenyThresholdFloor
		}

	case predicted == OutcomeDenied && !actuallyLegitimate:
		m.Counters.TrueNegatives++

	default:
		// Manual-review outcomes carry no prediction to grade.
	}

	v.tuneWeights()
}

// tuneWeights nudges evidence weights toward whichever error type dominates
// once enough outcomes have accumulated, then renormalizes to Scale.
func (v *Verifier) tuneWeights() {
	m := &v.model
	if m.Counters.TotalProcessed <= LearningMinSample {
		return
	}
	accuracy := m.Accuracy()
	if accuracy < 0 || accuracy >= AccuracyFloorBP {
		return
	}

	if m.Counters.FalsePositives > m.Counters.FalseNegatives {
		// Fraud slipping through: lean harder on completion evidence.
		m.Weights.Completion += m.Weights.Completion * m.WeightAdjustmentRate / Scale
	} else {
		// Genuine claims being denied: lean harder on claim history.
		m.Weights.History += m.Weights.History * m.WeightAdjustmentRate / Scale
	}

	total := m.Weights.Completion + m.Weights.Review + m.Weights.History + m.Weights.Time
	if total > 0 {
		m.Weights.Completion = m.Weights.Completion * Scale / total
		m.Weights.Review = m.Weights.Review * Scale / total
		m.Weights.History = m.Weights.History * Scale / total
		m.Weights.Time = m.Weights.Time * Scale / total
	}

	v.logger.Info("bayesian weights retuned",
		zap.Int("accuracy_bp", accuracy),
		zap.Int("completion_weight", m.Weights.Completion),
		zap.Int("history_weight", m.Weights.History),
	)
}
