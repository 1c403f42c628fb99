package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/huddleup/huddle/internal/model"
)

// userResolver exposes one user. Private fields (email, friends, groups,
// todos, messages) resolve only for their owner; the guard runs again on
// every one of them because a user can be reached through public edges like
// message authorship.
type userResolver struct {
	root *Resolver
	user model.User

	// jwt is set only on the resolver returned by login/signup.
	jwt string
}

func (u *userResolver) ID() graphql.ID {
	return graphql.ID(u.user.ID)
}

func (u *userResolver) Username() *string {
	if u.user.Username == "" {
		return nil
	}
	username := u.user.Username
	return &username
}

func (u *userResolver) Jwt() *string {
	if u.jwt == "" {
		return nil
	}
	token := u.jwt
	return &token
}

func (u *userResolver) Email(ctx context.Context) (string, error) {
	if err := u.requireOwner(ctx); err != nil {
		return "", err
	}
	return u.user.Email, nil
}

func (u *userResolver) Friends(ctx context.Context) ([]*userResolver, error) {
	if err := u.requireOwner(ctx); err != nil {
		return nil, err
	}
	friends, err := u.root.store.UserFriends(ctx, u.user.ID)
	if err != nil {
		return nil, wrapStoreError(err, "user")
	}
	return u.root.userResolvers(friends), nil
}

func (u *userResolver) Groups(ctx context.Context) ([]*groupResolver, error) {
	if err := u.requireOwner(ctx); err != nil {
		return nil, err
	}
	groups, err := u.root.store.UserGroups(ctx, u.user.ID)
	if err != nil {
		return nil, wrapStoreError(err, "user")
	}
	resolvers := make([]*groupResolver, 0, len(groups))
	for _, group := range groups {
		resolvers = append(resolvers, &groupResolver{root: u.root, group: group})
	}
	return resolvers, nil
}

func (u *userResolver) Todos(ctx context.Context) ([]*todoResolver, error) {
	if err := u.requireOwner(ctx); err != nil {
		return nil, err
	}
	todos, err := u.root.store.UserTodos(ctx, u.user.ID)
	if err != nil {
		return nil, wrapStoreError(err, "user")
	}
	resolvers := make([]*todoResolver, 0, len(todos))
	for _, todo := range todos {
		resolvers = append(resolvers, &todoResolver{root: u.root, todo: todo})
	}
	return resolvers, nil
}

func (u *userResolver) Messages(ctx context.Context) ([]*messageResolver, error) {
	if err := u.requireOwner(ctx); err != nil {
		return nil, err
	}
	messages, err := u.root.store.Messages(ctx, "", u.user.ID)
	if err != nil {
		return nil, wrapStoreError(err, "user")
	}
	return u.root.messageResolvers(messages), nil
}

func (u *userResolver) requireOwner(ctx context.Context) error {
	acting, err := actingUser(ctx)
	if err != nil {
		return err
	}
	if acting.ID != u.user.ID {
		return errUnauthorized()
	}
	return nil
}

func (r *Resolver) userResolvers(users []model.User) []*userResolver {
	resolvers := make([]*userResolver, 0, len(users))
	for _, user := range users {
		resolvers = append(resolvers, &userResolver{root: r, user: user})
	}
	return resolvers
}
