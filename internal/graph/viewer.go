package graph

import (
	"context"
	"sync"

	"github.com/huddleup/huddle/internal/model"
)

type requestContextKey struct{}

// UserResolverFunc resolves the acting user for one request, typically from
// a bearer token. Returning (nil, nil) means anonymous.
type UserResolverFunc func(ctx context.Context) (*model.User, error)

// RequestContext carries the lazily-resolved acting user through one GraphQL
// operation. It is built per request by the transport layer and never
// outlives the operation, so a resolved user is cached at most for the
// operation's lifetime.
type RequestContext struct {
	resolve UserResolverFunc

	once sync.Once
	user *model.User
	err  error
}

// NewRequestContext wraps an acting-user resolver for one request.
func NewRequestContext(resolve UserResolverFunc) *RequestContext {
	return &RequestContext{resolve: resolve}
}

// WithRequestContext attaches the request context for resolvers to find.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// ActingUser resolves the credential-derived user once and memoizes the
// result for the rest of the operation.
func (rc *RequestContext) ActingUser(ctx context.Context) (*model.User, error) {
	rc.once.Do(func() {
		if rc.resolve == nil {
			return
		}
		rc.user, rc.err = rc.resolve(ctx)
	})
	return rc.user, rc.err
}

// actingUser is the authorization guard: every sensitive resolver calls it
// first. It fails with an UNAUTHORIZED error when no acting user can be
// resolved from the request.
func actingUser(ctx context.Context) (*model.User, error) {
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	if !ok || rc == nil {
		return nil, errUnauthorized()
	}
	user, err := rc.ActingUser(ctx)
	if err != nil || user == nil {
		return nil, errUnauthorized()
	}
	return user, nil
}
