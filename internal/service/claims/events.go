package claims

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/freelanceshield/claims-engine/internal/domain/claim"
	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventClaimCreated     EventType = "claim.created"
	EventEvidenceAdded    EventType = "claim.evidence_added"
	EventClaimUnderReview EventType = "claim.under_review"
	EventClaimApproved    EventType = "claim.approved"
	EventClaimRejected    EventType = "claim.rejected"
	EventClaimPaid        EventType = "claim.paid"
	EventClaimDisputed    EventType = "claim.disputed"
	EventClaimArbitrated  EventType = "claim.arbitrated"
	EventClaimClosed      EventType = "claim.closed"
	EventVoteCast         EventType = "claim.vote_cast"
)

// Event is one lifecycle notification. Consumed by off-process indexers;
// not part of engine correctness.
type Event struct {
	Type      EventType              `json:"type"`
	ClaimID   uuid.UUID              `json:"claim_id"`
	Actor     uuid.UUID              `json:"actor"`
	Amount    *values.Money          `json:"amount,omitempty"`
	Score     *int                   `json:"score,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

func (s *Service) emit(eventType EventType, c *claim.Claim, actor uuid.UUID, score *int, details map[string]interface{}) {
	if s.events == nil {
		return
	}
	amount := c.Amount
	s.events.Publish(context.Background(), Event{
		Type:      eventType,
		ClaimID:   c.ID,
		Actor:     actor,
		Amount:    &amount,
		Score:     score,
		Timestamp: s.clock.Now(),
		Details:   details,
	})
}
