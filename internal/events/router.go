// Package events routes domain events from mutations to subscription
// streams. Delivery is filtered per subscriber, at-most-once, and follows
// publish order on each subscriber's channel.
package events

import (
	"context"
	"sync"

	"github.com/huddleup/huddle/internal/model"
	"go.uber.org/zap"
)

const (
	// TopicMessageAdded carries messages freshly created in a group.
	TopicMessageAdded = "messageAdded"
	// TopicGroupAdded carries freshly created groups.
	TopicGroupAdded = "groupAdded"

	defaultBufferSize = 16
)

// Event is the payload published on a topic. Exactly one of Message or Group
// is set, matching the topic.
type Event struct {
	Topic string

	Message *model.Message

	Group *model.Group
	// MemberIDs lists the new group's members in creation order; the
	// creator is first.
	MemberIDs []string
}

// Filter decides whether an event is delivered to one subscriber. A filter
// error (or panic) skips that subscriber only; it never tears down the
// stream for others and never fails the publishing mutation.
type Filter func(Event) (bool, error)

// Router is the process-wide topic bus with a bounded subscriber list per
// topic and explicit subscribe/unsubscribe lifecycle.
type Router struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*subscriber
	nextID      int64
	bufferSize  int
	logger      *zap.Logger
}

type subscriber struct {
	id     int64
	filter Filter
	stream chan Event
}

// NewRouter constructs an empty router. A nil logger is replaced with a nop.
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		subscribers: make(map[string]map[int64]*subscriber),
		bufferSize:  defaultBufferSize,
		logger:      logger,
	}
}

// Subscribe attaches a filtered stream to the topic. The stream is detached
// when the returned cancel func runs or the context is done, whichever comes
// first.
func (r *Router) Subscribe(ctx context.Context, topic string, filter Filter) (<-chan Event, func()) {
	if topic == "" {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	sub := &subscriber{
		filter: filter,
		stream: make(chan Event, r.bufferSize),
	}
	r.register(topic, sub)
	cleanup := func() {
		r.unregister(topic, sub.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return sub.stream, cleanup
}

// Publish delivers the event to every matching subscriber of its topic. A
// full subscriber buffer drops the event for that subscriber.
func (r *Router) Publish(event Event) {
	if event.Topic == "" {
		return
	}
	r.mu.RLock()
	subs := r.subscribers[event.Topic]
	if len(subs) == 0 {
		r.mu.RUnlock()
		return
	}
	copies := make([]*subscriber, 0, len(subs))
	for _, sub := range subs {
		copies = append(copies, sub)
	}
	r.mu.RUnlock()

	for _, sub := range copies {
		if !r.matches(sub, event) {
			continue
		}
		select {
		case sub.stream <- event:
		default:
			r.logger.Warn("event dropped, subscriber buffer full",
				zap.String("topic", event.Topic), zap.Int64("subscriber", sub.id))
		}
	}
}

func (r *Router) matches(sub *subscriber, event Event) (delivered bool) {
	if sub.filter == nil {
		return true
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Warn("subscriber filter panicked",
				zap.String("topic", event.Topic), zap.Any("panic", recovered))
			delivered = false
		}
	}()
	ok, err := sub.filter(event)
	if err != nil {
		r.logger.Warn("subscriber filter failed",
			zap.String("topic", event.Topic), zap.Error(err))
		return false
	}
	return ok
}

func (r *Router) register(topic string, sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	sub.id = r.nextID
	if _, ok := r.subscribers[topic]; !ok {
		r.subscribers[topic] = make(map[int64]*subscriber)
	}
	r.subscribers[topic][sub.id] = sub
}

func (r *Router) unregister(topic string, subscriberID int64) {
	r.mu.Lock()
	subs := r.subscribers[topic]
	if subs != nil {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(r.subscribers, topic)
		}
	}
	r.mu.Unlock()
}
