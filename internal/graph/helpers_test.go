package graph

import (
	"context"
	"testing"

	"github.com/huddleup/huddle/internal/auth"
	"github.com/huddleup/huddle/internal/events"
	"github.com/huddleup/huddle/internal/model"
	"github.com/huddleup/huddle/internal/store/memstore"
)

func newTestResolver(t *testing.T) (*Resolver, *memstore.Store) {
	t.Helper()
	records := memstore.New(nil)
	credentials, err := auth.NewCredentials(records)
	if err != nil {
		t.Fatalf("unexpected credentials constructor error: %v", err)
	}
	resolver, err := NewResolver(Config{
		Store:       records,
		Credentials: credentials,
		Tokens: auth.NewTokenIssuer(auth.TokenIssuerConfig{
			SigningSecret: []byte("test-secret"),
			Issuer:        "huddle-auth",
			Audience:      "huddle-api",
		}),
		Events: events.NewRouter(nil),
	})
	if err != nil {
		t.Fatalf("unexpected resolver constructor error: %v", err)
	}
	return resolver, records
}

// viewerContext builds a request context whose acting user is already
// resolved, the way the transport layer does after token validation.
func viewerContext(user *model.User) context.Context {
	requestContext := NewRequestContext(func(context.Context) (*model.User, error) {
		return user, nil
	})
	return WithRequestContext(context.Background(), requestContext)
}

func anonymousContext() context.Context {
	return WithRequestContext(context.Background(), NewRequestContext(func(context.Context) (*model.User, error) {
		return nil, nil
	}))
}

func mustCreateUser(t *testing.T, records *memstore.Store, id, email string) *model.User {
	t.Helper()
	user := &model.User{ID: id, Email: email, Username: id, PasswordHash: "unused"}
	if err := records.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
	return user
}

func mustCreateGroup(t *testing.T, records *memstore.Store, id, name string, memberIDs ...string) *model.Group {
	t.Helper()
	group := &model.Group{ID: id, Name: name}
	if err := records.CreateGroup(context.Background(), group, memberIDs); err != nil {
		t.Fatalf("failed to seed group %s: %v", id, err)
	}
	return group
}

func mustCreateMessage(t *testing.T, records *memstore.Store, groupID, authorID, text string) *model.Message {
	t.Helper()
	message := &model.Message{Text: text, AuthorID: authorID, GroupID: groupID}
	if err := records.CreateMessage(context.Background(), message); err != nil {
		t.Fatalf("failed to seed message in %s: %v", groupID, err)
	}
	return message
}

func mustCreateTodo(t *testing.T, records *memstore.Store, id, groupID, text string, assigneeIDs ...string) *model.Todo {
	t.Helper()
	todo := &model.Todo{ID: id, Text: text, GroupID: groupID}
	if err := records.CreateTodo(context.Background(), todo, assigneeIDs); err != nil {
		t.Fatalf("failed to seed todo %s: %v", id, err)
	}
	return todo
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if !HasCode(err, code) {
		t.Fatalf("expected error code %s, got %v", code, err)
	}
}

func int32Ptr(v int32) *int32 {
	return &v
}

func strPtr(v string) *string {
	return &v
}
