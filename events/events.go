package events

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/rotblauer/trailhud/types"
)

// Bus fans sensor readings out to any number of subscribers.
// Build one per process and hand it to producers and consumers;
// producers never know who is listening.
//
// Feeds deliver synchronously: Publish* blocks until every subscribed
// channel has accepted the value. Subscribers should use buffered channels
// and keep their receive loops short.
type Bus struct {
	inclines  event.FeedOf[types.Incline]
	locations event.FeedOf[types.Location]
	scope     event.SubscriptionScope
}

func NewBus() *Bus {
	return &Bus{}
}

// PublishIncline is emitted for every new inclinometer reading.
// It returns the number of subscribers the reading was delivered to.
func (b *Bus) PublishIncline(in types.Incline) int {
	return b.inclines.Send(in)
}

// PublishLocation is emitted for every new location fix.
func (b *Bus) PublishLocation(l types.Location) int {
	return b.locations.Send(l)
}

// SubscribeInclines delivers inclines to ch until the subscription is
// unsubscribed or the bus is closed.
func (b *Bus) SubscribeInclines(ch chan<- types.Incline) event.Subscription {
	return b.scope.Track(b.inclines.Subscribe(ch))
}

// SubscribeLocations delivers locations to ch until the subscription is
// unsubscribed or the bus is closed.
func (b *Bus) SubscribeLocations(ch chan<- types.Location) event.Subscription {
	return b.scope.Track(b.locations.Subscribe(ch))
}

// Subscribers is the number of live subscriptions across both feeds.
func (b *Bus) Subscribers() int {
	return b.scope.Count()
}

// Close unsubscribes every subscriber. Subscribers see their Err channel close.
func (b *Bus) Close() {
	b.scope.Close()
}
