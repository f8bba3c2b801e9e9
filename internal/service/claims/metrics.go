package claims

import "github.com/freelanceshield/claims-engine/internal/domain/values"

// Metrics receives engine measurements. Implementations must be cheap and
// non-blocking; a nil Metrics disables instrumentation.
type Metrics interface {
	ClaimFiled()
	ClaimResolved(outcome string)
	FraudScoreObserved(score int)
	PayoutRecorded(amount values.Money)
	ReserveRatioUpdated(bp int64)
	ReentrancyRejected()
}
