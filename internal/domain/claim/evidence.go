package claim

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/freelanceshield/claims-engine/internal/domain/errors"
)

// EvidenceType categorizes a submitted evidence item
type EvidenceType int

const (
	EvidenceContract EvidenceType = iota
	EvidenceCommunication
	EvidenceDeliverable
	EvidencePayment
	EvidenceTimeline
	EvidenceQualityAssessment
	EvidenceExpertOpinion
	EvidenceOther
)

func (t EvidenceType) String() string {
	switch t {
	case EvidenceContract:
		return "contract"
	case EvidenceCommunication:
		return "communication"
	case EvidenceDeliverable:
		return "deliverable"
	case EvidencePayment:
		return "payment"
	case EvidenceTimeline:
		return "timeline"
	case EvidenceQualityAssessment:
		return "quality_assessment"
	case EvidenceExpertOpinion:
		return "expert_opinion"
	case EvidenceOther:
		return "other"
	default:
		return "unknown"
	}
}

const (
	// MaxEvidenceItems caps the ledger size per claim.
	MaxEvidenceItems = 20
	// MinEvidenceItems is required before a claim can enter review.
	MinEvidenceItems = 2
)

// EvidenceItem is a single piece of evidence. The content itself lives off
// the engine; only the content hash and a locator are stored.
type EvidenceItem struct {
	ID          uuid.UUID    `json:"id"`
	Submitter   uuid.UUID    `json:"submitter"`
	Type        EvidenceType `json:"type"`
	Hash        string       `json:"hash"`
	URI         string       `json:"uri"`
	Description string       `json:"description,omitempty"`
	Verified    bool         `json:"verified"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

// EvidenceLedger is an append-only record of evidence for one claim.
// Submissions are restricted to the parties of the claim, content hashes
// must be unique, and the ledger is capped.
type EvidenceLedger struct {
	Items      []EvidenceItem `json:"items"`
	Authorized []uuid.UUID    `json:"authorized"`
}

// NewEvidenceLedger creates a ledger restricted to the given parties.
func NewEvidenceLedger(parties ...uuid.UUID) EvidenceLedger {
	return EvidenceLedger{Authorized: parties}
}

// Authorize adds a party (e.g. an appointed arbitrator) to the submitter set.
func (l *EvidenceLedger) Authorize(party uuid.UUID) {
	for _, p := range l.Authorized {
		if p == party {
			return
		}
	}
	l.Authorized = append(l.Authorized, party)
}

// Append adds an item after authorization, capacity and dedup checks.
func (l *EvidenceLedger) Append(submitter uuid.UUID, evidenceType EvidenceType, hash, uri, description string) (*EvidenceItem, error) {
	if hash == "" {
		return nil, fmt.Errorf("evidence hash cannot be empty")
	}
	if !l.isAuthorized(submitter) {
		return nil, apperrors.ErrUnauthorizedEvidence
	}
	if len(l.Items) >= MaxEvidenceItems {
		return nil, apperrors.ErrEvidenceCapacity
	}
	for _, item := range l.Items {
		if item.Hash == hash {
			return nil, apperrors.ErrDuplicateEvidence
		}
	}

	item := EvidenceItem{
		ID:          uuid.New(),
		Submitter:   submitter,
		Type:        evidenceType,
		Hash:        hash,
		URI:         uri,
		Description: description,
		SubmittedAt: clock.Now(),
	}
	l.Items = append(l.Items, item)
	return &item, nil
}

func (l *EvidenceLedger) isAuthorized(submitter uuid.UUID) bool {
	for _, p := range l.Authorized {
		if p == submitter {
			return true
		}
	}
	return false
}

// MarkVerified flags the item with the given hash as verified by a reviewer.
func (l *EvidenceLedger) MarkVerified(hash string) bool {
	for i := range l.Items {
		if l.Items[i].Hash == hash {
			l.Items[i].Verified = true
			return true
		}
	}
	return false
}

// Count returns the number of items in the ledger.
func (l *EvidenceLedger) Count() int {
	return len(l.Items)
}

// HasType reports whether at least one item of the given type exists.
func (l *EvidenceLedger) HasType(t EvidenceType) bool {
	for _, item := range l.Items {
		if item.Type == t {
			return true
		}
	}
	return false
}

// CountWithin returns how many items were submitted inside any sliding
// window of the given length. Used to detect bulk submissions.
func (l *EvidenceLedger) CountWithin(window time.Duration) int {
	max := 0
	for i := range l.Items {
		n := 0
		for j := range l.Items {
			d := l.Items[j].SubmittedAt.Sub(l.Items[i].SubmittedAt)
			if d >= 0 && d <= window {
				n++
			}
		}
		if n > max {
			max = n
		}
	}
	return max
}

// HasDuplicateHashes checks a ledger hydrated from storage. Appends reject
// duplicates, so this only fires on externally loaded data.
func (l *EvidenceLedger) HasDuplicateHashes() bool {
	seen := make(map[string]struct{}, len(l.Items))
	for _, item := range l.Items {
		if _, ok := seen[item.Hash]; ok {
			return true
		}
		seen[item.Hash] = struct{}{}
	}
	return false
}

// requiredEvidence maps claim types to the evidence they must include
// before review. Types not listed have no structural requirement.
var requiredEvidence = map[Type][]EvidenceType{
	TypeNonPayment:     {EvidenceContract, EvidenceDeliverable},
	TypeQualityDispute: {EvidenceContract, EvidenceCommunication},
}

// MissingFor returns the evidence types the given claim type still requires.
func (l *EvidenceLedger) MissingFor(claimType Type) []EvidenceType {
	var missing []EvidenceType
	for _, t := range requiredEvidence[claimType] {
		if !l.HasType(t) {
			missing = append(missing, t)
		}
	}
	return missing
}

// ReadyForReview reports whether the ledger meets the minimum item count
// and the structural requirements of the claim type.
func (l *EvidenceLedger) ReadyForReview(claimType Type) bool {
	return len(l.Items) >= MinEvidenceItems && len(l.MissingFor(claimType)) == 0
}
