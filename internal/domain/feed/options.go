package feed

import "time"

// Option applies a configuration option to the Publisher.
type Option func(*Publisher)

// WithCapacity sets the number of retained events.
func WithCapacity(capacity int) Option {
	return func(p *Publisher) {
		if capacity > 0 {
			p.capacity = capacity
		}
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(newID func() string) Option {
	return func(p *Publisher) {
		if newID != nil {
			p.newID = newID
		}
	}
}
