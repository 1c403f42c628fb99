package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/huddleup/huddle/internal/model"
)

// groupResolver exposes one group. Membership is re-checked on every field
// that reveals group contents: groups can be reached through edges that did
// not verify the viewer (user.groups resolves for the owner, but the group
// may have been left since the parent was fetched).
type groupResolver struct {
	root  *Resolver
	group model.Group
}

func (g *groupResolver) ID() graphql.ID {
	return graphql.ID(g.group.ID)
}

func (g *groupResolver) Name() string {
	return g.group.Name
}

// Users lists the membership; only members may see it.
func (g *groupResolver) Users(ctx context.Context) ([]*userResolver, error) {
	if err := g.requireViewerMembership(ctx); err != nil {
		return nil, err
	}
	members, err := g.root.store.GroupMembers(ctx, g.group.ID)
	if err != nil {
		return nil, wrapStoreError(err, "group")
	}
	return g.root.userResolvers(members), nil
}

// Messages pages through the group's feed, newest first.
func (g *groupResolver) Messages(ctx context.Context, args connectionArgs) (*messageConnectionResolver, error) {
	if err := g.requireViewerMembership(ctx); err != nil {
		return nil, err
	}
	return g.root.messageConnection(ctx, g.group.ID, args)
}

func (g *groupResolver) Todos(ctx context.Context) ([]*todoResolver, error) {
	if err := g.requireViewerMembership(ctx); err != nil {
		return nil, err
	}
	todos, err := g.root.store.GroupTodos(ctx, g.group.ID)
	if err != nil {
		return nil, wrapStoreError(err, "group")
	}
	resolvers := make([]*todoResolver, 0, len(todos))
	for _, todo := range todos {
		resolvers = append(resolvers, &todoResolver{root: g.root, todo: todo})
	}
	return resolvers, nil
}

func (g *groupResolver) requireViewerMembership(ctx context.Context) error {
	acting, err := actingUser(ctx)
	if err != nil {
		return err
	}
	return g.root.requireMember(ctx, g.group.ID, acting.ID)
}
