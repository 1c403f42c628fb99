package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huddleup/huddle/internal/model"
)

const receiveTimeout = 2 * time.Second

func receive(t *testing.T, stream <-chan Event) Event {
	t.Helper()
	select {
	case event := <-stream:
		return event
	case <-time.After(receiveTimeout):
		t.Fatalf("timed out waiting for an event")
		return Event{}
	}
}

func messageEvent(id int64, groupID string) Event {
	return Event{
		Topic:   TopicMessageAdded,
		Message: &model.Message{ID: id, GroupID: groupID, Text: "payload"},
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	router := NewRouter(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, _ := router.Subscribe(ctx, TopicMessageAdded, nil)

	router.Publish(messageEvent(1, "g"))
	router.Publish(messageEvent(2, "g"))
	router.Publish(messageEvent(3, "g"))

	for want := int64(1); want <= 3; want++ {
		event := receive(t, stream)
		if event.Message.ID != want {
			t.Fatalf("expected event %d, got %d", want, event.Message.ID)
		}
	}
}

func TestFilterSelectsEvents(t *testing.T) {
	router := NewRouter(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, _ := router.Subscribe(ctx, TopicMessageAdded, func(event Event) (bool, error) {
		return event.Message.GroupID == "watched", nil
	})

	router.Publish(messageEvent(1, "other"))
	router.Publish(messageEvent(2, "watched"))

	event := receive(t, stream)
	if event.Message.ID != 2 {
		t.Fatalf("expected only the watched event, got %d", event.Message.ID)
	}
	select {
	case event := <-stream:
		t.Fatalf("expected no further events, got %d", event.Message.ID)
	default:
	}
}

func TestFilterErrorSkipsOnlyThatSubscriber(t *testing.T) {
	router := NewRouter(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broken, _ := router.Subscribe(ctx, TopicMessageAdded, func(Event) (bool, error) {
		return false, errors.New("predicate blew up")
	})
	healthy, _ := router.Subscribe(ctx, TopicMessageAdded, nil)

	router.Publish(messageEvent(1, "g"))

	event := receive(t, healthy)
	if event.Message.ID != 1 {
		t.Fatalf("expected the healthy subscriber to receive event 1, got %d", event.Message.ID)
	}
	select {
	case <-broken:
		t.Fatalf("expected the failing subscriber to be skipped")
	default:
	}
}

func TestFilterPanicIsContained(t *testing.T) {
	router := NewRouter(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	panicking, _ := router.Subscribe(ctx, TopicMessageAdded, func(Event) (bool, error) {
		panic("bad predicate")
	})
	healthy, _ := router.Subscribe(ctx, TopicMessageAdded, nil)

	router.Publish(messageEvent(1, "g"))

	event := receive(t, healthy)
	if event.Message.ID != 1 {
		t.Fatalf("expected delivery despite a panicking peer, got %d", event.Message.ID)
	}
	select {
	case <-panicking:
		t.Fatalf("expected the panicking subscriber to be skipped")
	default:
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	router := NewRouter(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groups, _ := router.Subscribe(ctx, TopicGroupAdded, nil)

	router.Publish(messageEvent(1, "g"))
	select {
	case <-groups:
		t.Fatalf("expected no cross-topic delivery")
	default:
	}

	router.Publish(Event{Topic: TopicGroupAdded, Group: &model.Group{ID: "g"}, MemberIDs: []string{"alice"}})
	event := receive(t, groups)
	if event.Group == nil || event.Group.ID != "g" {
		t.Fatalf("expected the group event, got %+v", event)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	router := NewRouter(nil)

	stream, unsubscribe := router.Subscribe(context.Background(), TopicMessageAdded, nil)
	unsubscribe()

	router.Publish(messageEvent(1, "g"))
	select {
	case <-stream:
		t.Fatalf("expected no delivery after unsubscribe")
	default:
	}
}

func TestContextCancelDetachesSubscriber(t *testing.T) {
	router := NewRouter(nil)
	ctx, cancel := context.WithCancel(context.Background())

	stream, _ := router.Subscribe(ctx, TopicMessageAdded, nil)
	cancel()

	// Detach happens asynchronously; keep publishing until events stop
	// arriving or the deadline expires.
	deadline := time.Now().Add(receiveTimeout)
	for {
		router.Publish(messageEvent(1, "g"))
		select {
		case <-stream:
		case <-time.After(20 * time.Millisecond):
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscriber was never detached after context cancel")
		}
	}
}

func TestFullBufferDropsEvent(t *testing.T) {
	router := NewRouter(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, _ := router.Subscribe(ctx, TopicMessageAdded, nil)

	// Nobody drains the stream, so publishes beyond the buffer are dropped
	// rather than blocking the publisher.
	for i := 0; i < defaultBufferSize+5; i++ {
		router.Publish(messageEvent(int64(i+1), "g"))
	}

	drained := 0
	for {
		select {
		case <-stream:
			drained++
		default:
			if drained != defaultBufferSize {
				t.Fatalf("expected %d buffered events, got %d", defaultBufferSize, drained)
			}
			return
		}
	}
}
