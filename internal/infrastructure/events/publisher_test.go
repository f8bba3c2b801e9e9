package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/freelanceshield/claims-engine/internal/service/claims"
)

type recorder struct {
	mu     sync.Mutex
	events []claims.Event
}

func (r *recorder) handle(_ context.Context, event claims.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []claims.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]claims.Event, len(r.events))
	copy(out, r.events)
	return out
}

func makeEvent(t claims.EventType) claims.Event {
	return claims.Event{
		Type:      t,
		ClaimID:   uuid.New(),
		Actor:     uuid.New(),
		Timestamp: time.Now(),
	}
}

func TestPublisher_DeliversToHandlers(t *testing.T) {
	rec := &recorder{}
	p := NewPublisher(zap.NewNop(), WithHandler(rec.handle))

	p.Publish(context.Background(), makeEvent(claims.EventClaimCreated))
	p.Publish(context.Background(), makeEvent(claims.EventClaimPaid))
	p.Close()

	got := rec.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, claims.EventClaimCreated, got[0].Type)
	assert.Equal(t, claims.EventClaimPaid, got[1].Type)
	assert.Zero(t, p.Dropped())
}

func TestPublisher_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	p := NewPublisher(zap.NewNop(),
		WithQueueSize(1),
		WithHandler(func(_ context.Context, _ claims.Event) {
			<-block
		}),
	)

	// First event occupies the worker, second fills the queue; anything
	// beyond that has nowhere to go.
	for i := 0; i < 5; i++ {
		p.Publish(context.Background(), makeEvent(claims.EventVoteCast))
	}

	assert.Eventually(t, func() bool {
		return p.Dropped() >= 3
	}, time.Second, 10*time.Millisecond)

	close(block)
	p.Close()
}

func TestPublisher_CloseDrainsQueue(t *testing.T) {
	rec := &recorder{}
	p := NewPublisher(zap.NewNop(), WithQueueSize(16), WithHandler(rec.handle))

	for i := 0; i < 10; i++ {
		p.Publish(context.Background(), makeEvent(claims.EventClaimUnderReview))
	}
	p.Close()

	assert.Len(t, rec.snapshot(), 10)
}

func TestPublisher_PublishAfterCloseDrops(t *testing.T) {
	p := NewPublisher(zap.NewNop())
	p.Close()

	p.Publish(context.Background(), makeEvent(claims.EventClaimClosed))
	assert.Equal(t, int64(1), p.Dropped())
}
