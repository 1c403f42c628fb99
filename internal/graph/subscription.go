package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/huddleup/huddle/internal/events"
)

type messageAddedArgs struct {
	UserID   graphql.ID
	GroupIDs []graphql.ID
}

// MessageAdded streams new messages in the requested groups. The subscriber
// must be the acting user and a member of every requested group; their own
// messages are never echoed back.
func (r *Resolver) MessageAdded(ctx context.Context, args messageAddedArgs) (<-chan *messageResolver, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if string(args.UserID) != acting.ID {
		return nil, errUnauthorized()
	}
	if len(args.GroupIDs) == 0 {
		return nil, errInvalidArgument("at least one group id is required")
	}

	groupIDs := make(map[string]bool, len(args.GroupIDs))
	for _, id := range args.GroupIDs {
		if err := r.requireMember(ctx, string(id), acting.ID); err != nil {
			return nil, err
		}
		groupIDs[string(id)] = true
	}

	subscriberID := acting.ID
	filter := func(event events.Event) (bool, error) {
		if event.Message == nil {
			return false, nil
		}
		return groupIDs[event.Message.GroupID] && event.Message.AuthorID != subscriberID, nil
	}
	stream, _ := r.events.Subscribe(ctx, events.TopicMessageAdded, filter)

	out := make(chan *messageResolver)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-stream:
				if !ok {
					return
				}
				select {
				case out <- &messageResolver{root: r, message: *event.Message}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type groupAddedArgs struct {
	UserID graphql.ID
}

// GroupAdded streams groups the subscriber was just added to by someone
// else; the creator does not hear about their own group.
func (r *Resolver) GroupAdded(ctx context.Context, args groupAddedArgs) (<-chan *groupResolver, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if string(args.UserID) != acting.ID {
		return nil, errUnauthorized()
	}

	subscriberID := acting.ID
	filter := func(event events.Event) (bool, error) {
		if event.Group == nil || len(event.MemberIDs) == 0 {
			return false, nil
		}
		// The creator is first in creation order.
		if event.MemberIDs[0] == subscriberID {
			return false, nil
		}
		for _, memberID := range event.MemberIDs {
			if memberID == subscriberID {
				return true, nil
			}
		}
		return false, nil
	}
	stream, _ := r.events.Subscribe(ctx, events.TopicGroupAdded, filter)

	out := make(chan *groupResolver)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-stream:
				if !ok {
					return
				}
				select {
				case out <- &groupResolver{root: r, group: *event.Group}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
