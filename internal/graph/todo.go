package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/huddleup/huddle/internal/model"
)

// todoResolver exposes one todo to its assignees and group members.
type todoResolver struct {
	root *Resolver
	todo model.Todo
}

func (t *todoResolver) ID() graphql.ID {
	return graphql.ID(t.todo.ID)
}

func (t *todoResolver) Title() *string {
	if t.todo.Title == "" {
		return nil
	}
	title := t.todo.Title
	return &title
}

func (t *todoResolver) Text() string {
	return t.todo.Text
}

func (t *todoResolver) DueDate() graphql.Time {
	return graphql.Time{Time: t.todo.DueAt}
}

func (t *todoResolver) Completed() bool {
	return t.todo.Completed
}

func (t *todoResolver) Group(ctx context.Context) (*groupResolver, error) {
	group, err := t.root.store.GroupByID(ctx, t.todo.GroupID)
	if err != nil {
		return nil, wrapStoreError(err, "group")
	}
	return &groupResolver{root: t.root, group: *group}, nil
}

func (t *todoResolver) Assignees(ctx context.Context) ([]*userResolver, error) {
	assignees, err := t.root.store.TodoAssignees(ctx, t.todo.ID)
	if err != nil {
		return nil, wrapStoreError(err, "todo")
	}
	return t.root.userResolvers(assignees), nil
}

// requireTodoAccess admits assignees and members of the todo's group.
func (r *Resolver) requireTodoAccess(ctx context.Context, todo *model.Todo, userID string) error {
	assignees, err := r.store.TodoAssignees(ctx, todo.ID)
	if err != nil {
		return wrapStoreError(err, "todo")
	}
	for _, assignee := range assignees {
		if assignee.ID == userID {
			return nil
		}
	}
	return r.requireMember(ctx, todo.GroupID, userID)
}
