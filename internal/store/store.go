// Package store defines the record store adapter the resolvers depend on.
// Typed queries replace ad-hoc predicate callbacks so the resolution layer
// never inspects collection internals; implementations live in sqlitestore
// (gorm) and memstore (in-process).
package store

import (
	"context"
	"errors"

	"github.com/huddleup/huddle/internal/model"
)

var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrEmailTaken indicates a signup collided with an existing address.
	ErrEmailTaken = errors.New("store: email already registered")
	// ErrUnavailable indicates the backing store could not serve the request.
	// It is surfaced, never retried here; retry policy belongs to the backend.
	ErrUnavailable = errors.New("store: unavailable")
)

// MessagePage selects a window of a group's message feed by ordering key.
// Before and After are exclusive bounds on the key; zero means unbounded.
// The window is sorted descending unless OldestFirst is set.
type MessagePage struct {
	GroupID     string
	Before      int64
	After       int64
	Limit       int
	OldestFirst bool
}

// MessageProbe asks whether at least one message exists inside the given
// exclusive bounds. Zero bounds are ignored.
type MessageProbe struct {
	GroupID   string
	NewerThan int64
	OlderThan int64
}

// Store is the uniform CRUD and relationship-resolution surface over the
// entity graph. Every method honours the passed context and returns
// ErrNotFound for absent parents. Read-modify-write sequences (membership
// changes, cascade deletes, friend updates) are serialized per entity by the
// implementation.
type Store interface {
	// CreateUser persists a new user. The email must already be normalized;
	// a duplicate address yields ErrEmailTaken.
	CreateUser(ctx context.Context, user *model.User) error
	UserByID(ctx context.Context, id string) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)

	// AddFriend records the friendship in both directions.
	AddFriend(ctx context.Context, userID, friendID string) error
	UserFriends(ctx context.Context, userID string) ([]model.User, error)
	UserGroups(ctx context.Context, userID string) ([]model.Group, error)
	UserTodos(ctx context.Context, userID string) ([]model.Todo, error)

	// CreateGroup persists the group and its initial member set in one step.
	CreateGroup(ctx context.Context, group *model.Group, memberIDs []string) error
	GroupByID(ctx context.Context, id string) (*model.Group, error)
	GroupMembers(ctx context.Context, groupID string) ([]model.User, error)
	IsGroupMember(ctx context.Context, groupID, userID string) (bool, error)
	RenameGroup(ctx context.Context, groupID, name string) (*model.Group, error)

	// RemoveGroupMember drops the membership and returns how many members
	// remain. When the last member leaves, the group and everything it owns
	// are deleted in the same step.
	RemoveGroupMember(ctx context.Context, groupID, userID string) (int, error)
	// DeleteGroup removes the group together with its messages and todos.
	DeleteGroup(ctx context.Context, groupID string) error

	// CreateMessage persists the message and fills in its ordering key.
	CreateMessage(ctx context.Context, message *model.Message) error
	// Messages lists messages sent to the group, sent by the author, or
	// either when both filters are present, in natural store order.
	Messages(ctx context.Context, groupID, authorID string) ([]model.Message, error)
	MessagePage(ctx context.Context, page MessagePage) ([]model.Message, error)
	MessageExists(ctx context.Context, probe MessageProbe) (bool, error)

	CreateTodo(ctx context.Context, todo *model.Todo, assigneeIDs []string) error
	TodoByID(ctx context.Context, id string) (*model.Todo, error)
	// UpdateTodo persists field changes; a nil assigneeIDs leaves the
	// assignee set untouched.
	UpdateTodo(ctx context.Context, todo *model.Todo, assigneeIDs []string) error
	// ToggleTodo flips the completed flag and returns the updated todo.
	ToggleTodo(ctx context.Context, id string) (*model.Todo, error)
	TodoAssignees(ctx context.Context, todoID string) ([]model.User, error)
	GroupTodos(ctx context.Context, groupID string) ([]model.Todo, error)
}
