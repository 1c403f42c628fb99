package graph

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/huddleup/huddle/internal/store"
)

// connectionArgs are the cursor arguments on Group.messages. Exactly one of
// first/last supplies the limit; before/after are opaque cursor bounds.
type connectionArgs struct {
	First  *int32
	Last   *int32
	Before *string
	After  *string
}

// window is a validated pagination request against one group's feed.
// Cursor convention, fixed here and tested in both directions: the feed is
// sorted by ordering key descending (newest first); before is an exclusive
// upper bound (strictly older messages, key < cursor) and after is an
// exclusive lower bound (strictly newer messages, key > cursor).
type window struct {
	limit       int
	oldestFirst bool
	before      int64
	after       int64
}

// encodeCursor wraps a message ordering key as an opaque token: base64 of
// its decimal text. Keys are store-assigned and totally ordered, so cursors
// survive concurrent inserts where offsets would not.
func encodeCursor(key int64) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.FormatInt(key, 10)))
}

// decodeCursor reverses encodeCursor. Failure is a client error.
func decodeCursor(cursor string) (int64, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("decode base64: %w", err)
	}
	key, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ordering key: %w", err)
	}
	if key <= 0 {
		return 0, fmt.Errorf("ordering key out of range: %d", key)
	}
	return key, nil
}

// parseWindow validates the cursor arguments. A limit is required; a window
// bounded on both sides is ambiguous and rejected.
func parseWindow(args connectionArgs) (window, error) {
	if args.First == nil && args.Last == nil {
		return window{}, errInvalidArgument("first or last is required")
	}
	if args.Before != nil && args.After != nil {
		return window{}, errInvalidArgument("before and after are mutually exclusive")
	}

	w := window{}
	switch {
	case args.First != nil:
		if *args.First < 0 {
			return window{}, errInvalidArgument("first must not be negative")
		}
		w.limit = int(*args.First)
	default:
		if *args.Last < 0 {
			return window{}, errInvalidArgument("last must not be negative")
		}
		w.limit = int(*args.Last)
		w.oldestFirst = true
	}

	if args.Before != nil {
		key, err := decodeCursor(*args.Before)
		if err != nil {
			return window{}, errInvalidCursor(err)
		}
		w.before = key
	}
	if args.After != nil {
		key, err := decodeCursor(*args.After)
		if err != nil {
			return window{}, errInvalidCursor(err)
		}
		w.after = key
	}
	return w, nil
}

// messageConnection pages through a group's feed. The connection is always
// presented newest-first; last selects the oldest N of the bounded window
// before presentation.
func (r *Resolver) messageConnection(ctx context.Context, groupID string, args connectionArgs) (*messageConnectionResolver, error) {
	w, err := parseWindow(args)
	if err != nil {
		return nil, err
	}

	messages, err := r.store.MessagePage(ctx, store.MessagePage{
		GroupID:     groupID,
		Before:      w.before,
		After:       w.after,
		Limit:       w.limit,
		OldestFirst: w.oldestFirst,
	})
	if err != nil {
		return nil, wrapStoreError(err, "messages")
	}
	if w.oldestFirst {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}

	edges := make([]*messageEdgeResolver, 0, len(messages))
	for _, message := range messages {
		edges = append(edges, &messageEdgeResolver{
			cursor: encodeCursor(message.ID),
			node:   &messageResolver{root: r, message: message},
		})
	}

	info := &pageInfoResolver{
		root:    r,
		groupID: groupID,
		filled:  len(messages) == w.limit && w.limit > 0,
		after:   w.after,
	}
	if len(messages) > 0 {
		info.newestKey = messages[0].ID
		info.oldestKey = messages[len(messages)-1].ID
	}

	return &messageConnectionResolver{edges: edges, pageInfo: info}, nil
}

type messageConnectionResolver struct {
	edges    []*messageEdgeResolver
	pageInfo *pageInfoResolver
}

func (c *messageConnectionResolver) Edges() []*messageEdgeResolver {
	return c.edges
}

func (c *messageConnectionResolver) PageInfo() *pageInfoResolver {
	return c.pageInfo
}

type messageEdgeResolver struct {
	cursor string
	node   *messageResolver
}

func (e *messageEdgeResolver) Cursor() string {
	return e.cursor
}

func (e *messageEdgeResolver) Node() *messageResolver {
	return e.node
}

// pageInfoResolver probes the store lazily, only when the client asks for
// the page flags.
type pageInfoResolver struct {
	root    *Resolver
	groupID string

	// filled is false when the window returned fewer rows than requested,
	// which already proves there is no next page.
	filled    bool
	newestKey int64
	oldestKey int64
	after     int64
}

// HasNextPage reports whether a message older than the last returned edge
// exists, still inside the after bound when one was given.
func (p *pageInfoResolver) HasNextPage(ctx context.Context) (bool, error) {
	if !p.filled || p.oldestKey == 0 {
		return false, nil
	}
	exists, err := p.root.store.MessageExists(ctx, store.MessageProbe{
		GroupID:   p.groupID,
		NewerThan: p.after,
		OlderThan: p.oldestKey,
	})
	if err != nil {
		return false, wrapStoreError(err, "messages")
	}
	return exists, nil
}

// HasPreviousPage reports whether a message newer than the first returned
// edge exists.
func (p *pageInfoResolver) HasPreviousPage(ctx context.Context) (bool, error) {
	if p.newestKey == 0 {
		return false, nil
	}
	exists, err := p.root.store.MessageExists(ctx, store.MessageProbe{
		GroupID:   p.groupID,
		NewerThan: p.newestKey,
	})
	if err != nil {
		return false, wrapStoreError(err, "messages")
	}
	return exists, nil
}
