// Package graph implements the GraphQL resolution layer: authorization-
// scoped field resolvers, cursor pagination over message feeds, and
// subscription wiring onto the event router.
package graph

import (
	"context"
	"fmt"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/huddleup/huddle/internal/auth"
	"github.com/huddleup/huddle/internal/events"
	"github.com/huddleup/huddle/internal/model"
	"github.com/huddleup/huddle/internal/store"
	"go.uber.org/zap"
)

// Config describes the dependencies the resolver graph needs.
type Config struct {
	Store       store.Store
	Credentials *auth.Credentials
	Tokens      *auth.TokenIssuer
	Events      *events.Router
	Logger      *zap.Logger
	Clock       func() time.Time
	IDProvider  IDProvider
}

// Resolver is the root of the resolver graph; every query, mutation and
// subscription hangs off it.
type Resolver struct {
	store       store.Store
	credentials *auth.Credentials
	tokens      *auth.TokenIssuer
	events      *events.Router
	logger      *zap.Logger
	clock       func() time.Time
	ids         IDProvider
}

// NewResolver validates dependencies and constructs the root resolver.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("graph: record store is required")
	}
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("graph: credential service is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("graph: token issuer is required")
	}
	if cfg.Events == nil {
		return nil, fmt.Errorf("graph: event router is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = NewUUIDProvider()
	}
	return &Resolver{
		store:       cfg.Store,
		credentials: cfg.Credentials,
		tokens:      cfg.Tokens,
		events:      cfg.Events,
		logger:      logger,
		clock:       clock,
		ids:         ids,
	}, nil
}

// NewSchema parses the schema against a root resolver built from cfg.
func NewSchema(cfg Config) (*graphql.Schema, error) {
	resolver, err := NewResolver(cfg)
	if err != nil {
		return nil, err
	}
	return graphql.ParseSchema(SchemaText, resolver)
}

type userQueryArgs struct {
	ID    *graphql.ID
	Email *string
}

// User returns the acting user. When id or email is supplied it must match
// them; other users' records are never readable.
func (r *Resolver) User(ctx context.Context, args userQueryArgs) (*userResolver, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if args.ID != nil && string(*args.ID) != acting.ID {
		return nil, errUnauthorized()
	}
	if args.Email != nil && acting.Email != model.NormalizeEmail(*args.Email) {
		return nil, errUnauthorized()
	}
	return &userResolver{root: r, user: *acting}, nil
}

type groupQueryArgs struct {
	GroupID graphql.ID
}

// Group returns the group only when the acting user is one of its members.
func (r *Resolver) Group(ctx context.Context, args groupQueryArgs) (*groupResolver, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	group, err := r.store.GroupByID(ctx, string(args.GroupID))
	if err != nil {
		return nil, wrapStoreError(err, "group")
	}
	member, err := r.store.IsGroupMember(ctx, group.ID, acting.ID)
	if err != nil {
		return nil, wrapStoreError(err, "group")
	}
	if !member {
		return nil, errUnauthorized()
	}
	return &groupResolver{root: r, group: *group}, nil
}

type messagesQueryArgs struct {
	GroupID *graphql.ID
	UserID  *graphql.ID
}

// Messages lists messages by group, by author, or either. The group filter
// requires membership and the author filter must name the acting user.
func (r *Resolver) Messages(ctx context.Context, args messagesQueryArgs) ([]*messageResolver, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if args.GroupID == nil && args.UserID == nil {
		return nil, errInvalidArgument("groupId or userId is required")
	}

	groupID := ""
	if args.GroupID != nil {
		groupID = string(*args.GroupID)
		member, err := r.store.IsGroupMember(ctx, groupID, acting.ID)
		if err != nil {
			return nil, wrapStoreError(err, "group")
		}
		if !member {
			return nil, errUnauthorized()
		}
	}
	authorID := ""
	if args.UserID != nil {
		authorID = string(*args.UserID)
		if authorID != acting.ID {
			return nil, errUnauthorized()
		}
	}

	messages, err := r.store.Messages(ctx, groupID, authorID)
	if err != nil {
		return nil, wrapStoreError(err, "messages")
	}
	return r.messageResolvers(messages), nil
}

type todoQueryArgs struct {
	ID graphql.ID
}

// Todo returns a todo when the acting user is an assignee or a member of the
// todo's group.
func (r *Resolver) Todo(ctx context.Context, args todoQueryArgs) (*todoResolver, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	todo, err := r.store.TodoByID(ctx, string(args.ID))
	if err != nil {
		return nil, wrapStoreError(err, "todo")
	}
	if err := r.requireTodoAccess(ctx, todo, acting.ID); err != nil {
		return nil, err
	}
	return &todoResolver{root: r, todo: *todo}, nil
}

// requireMember fails with UNAUTHORIZED unless userID belongs to the group.
func (r *Resolver) requireMember(ctx context.Context, groupID, userID string) error {
	member, err := r.store.IsGroupMember(ctx, groupID, userID)
	if err != nil {
		return wrapStoreError(err, "group")
	}
	if !member {
		return errUnauthorized()
	}
	return nil
}

func (r *Resolver) messageResolvers(messages []model.Message) []*messageResolver {
	resolvers := make([]*messageResolver, 0, len(messages))
	for _, message := range messages {
		resolvers = append(resolvers, &messageResolver{root: r, message: message})
	}
	return resolvers
}
