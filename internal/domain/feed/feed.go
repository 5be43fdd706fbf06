// Package feed keeps a bounded, non-durable window of recent rating events
// for polling clients. It is a display projection, not an audit log.
package feed

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/grouprank/internal/domain/model"
	"github.com/okian/grouprank/pkg/metrics"
)

// DefaultCapacity is the number of events retained when no option is given.
const DefaultCapacity = 15

// Publisher is a fixed-size ring of LiveEvents. Publishing beyond capacity
// evicts the oldest event.
type Publisher struct {
	mu       sync.RWMutex
	ring     []model.LiveEvent
	head     int // index of the oldest event
	size     int
	capacity int
	now      func() time.Time
	newID    func() string
}

// NewPublisher creates an empty publisher.
func NewPublisher(opts ...Option) *Publisher {
	p := &Publisher{
		capacity: DefaultCapacity,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ring = make([]model.LiveEvent, p.capacity)
	metrics.UpdateLiveFeedSize(0)
	return p
}

// Publish appends e, evicting the oldest event when full.
func (p *Publisher) Publish(e model.LiveEvent) { //nolint:gocritic // events are small values copied into the ring
	p.mu.Lock()
	if p.size < p.capacity {
		p.ring[(p.head+p.size)%p.capacity] = e
		p.size++
	} else {
		p.ring[p.head] = e
		p.head = (p.head + 1) % p.capacity
	}
	size := p.size
	p.mu.Unlock()

	metrics.RecordLiveEventPublished()
	metrics.UpdateLiveFeedSize(size)
}

// Record builds the event for a stored rating, publishes it and returns it.
func (p *Publisher) Record(r model.Rating, groupName string) model.LiveEvent { //nolint:gocritic // rating is read-only here
	e := model.LiveEvent{
		ID:          p.newID(),
		GroupID:     r.GroupID,
		GroupName:   groupName,
		Points:      r.Points(),
		Timestamp:   p.now().UTC(),
		Breakdown:   r.Scores,
		RaterUserID: r.RaterUserID,
	}
	p.Publish(e)
	return e
}

// Poll returns a snapshot of the retained events, newest last. IsSelf is
// set on events authored by viewerID; an empty viewerID matches nothing.
func (p *Publisher) Poll(viewerID string) []model.LiveEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.LiveEvent, p.size)
	for i := 0; i < p.size; i++ {
		e := p.ring[(p.head+i)%p.capacity]
		e.IsSelf = viewerID != "" && e.RaterUserID == viewerID
		out[i] = e
	}
	return out
}

// Len returns the number of retained events.
func (p *Publisher) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}

// Capacity returns the maximum number of retained events.
func (p *Publisher) Capacity() int { return p.capacity }

// Clear drops every retained event.
func (p *Publisher) Clear() {
	p.mu.Lock()
	clear(p.ring)
	p.head, p.size = 0, 0
	p.mu.Unlock()
	metrics.UpdateLiveFeedSize(0)
}
