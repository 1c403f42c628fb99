package graph

import (
	"context"
	"strconv"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/huddleup/huddle/internal/model"
)

// messageResolver exposes one message. Messages are immutable; the parent is
// re-fetched lazily for relationship fields so deletion is discovered at
// resolution time.
type messageResolver struct {
	root    *Resolver
	message model.Message
}

func (m *messageResolver) ID() graphql.ID {
	return graphql.ID(strconv.FormatInt(m.message.ID, 10))
}

func (m *messageResolver) Text() string {
	return m.message.Text
}

func (m *messageResolver) CreatedAt() graphql.Time {
	return graphql.Time{Time: m.message.CreatedAt}
}

// To resolves the destination group.
func (m *messageResolver) To(ctx context.Context) (*groupResolver, error) {
	group, err := m.root.store.GroupByID(ctx, m.message.GroupID)
	if err != nil {
		return nil, wrapStoreError(err, "group")
	}
	return &groupResolver{root: m.root, group: *group}, nil
}

// From resolves the author.
func (m *messageResolver) From(ctx context.Context) (*userResolver, error) {
	author, err := m.root.store.UserByID(ctx, m.message.AuthorID)
	if err != nil {
		return nil, wrapStoreError(err, "user")
	}
	return &userResolver{root: m.root, user: *author}, nil
}
