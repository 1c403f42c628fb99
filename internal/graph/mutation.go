package graph

import (
	"context"
	"strings"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/huddleup/huddle/internal/events"
	"github.com/huddleup/huddle/internal/model"
	"go.uber.org/zap"
)

type signupArgs struct {
	Email    string
	Password string
	Username *string
}

// Signup registers an account and returns the user with a session token.
func (r *Resolver) Signup(ctx context.Context, args signupArgs) (*userResolver, error) {
	username := ""
	if args.Username != nil {
		username = *args.Username
	}
	user, err := r.credentials.Register(ctx, args.Email, args.Password, username)
	if err != nil {
		return nil, wrapStoreError(err, "user")
	}
	token, err := r.tokens.IssueToken(user.ID)
	if err != nil {
		return nil, wrapStoreError(err, "user")
	}
	r.logger.Info("user signed up", zap.String("user_id", user.ID))
	return &userResolver{root: r, user: *user, jwt: token}, nil
}

type loginArgs struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the user with a session token.
func (r *Resolver) Login(ctx context.Context, args loginArgs) (*userResolver, error) {
	user, err := r.credentials.Verify(ctx, args.Email, args.Password)
	if err != nil {
		return nil, wrapStoreError(err, "user")
	}
	token, err := r.tokens.IssueToken(user.ID)
	if err != nil {
		return nil, wrapStoreError(err, "user")
	}
	return &userResolver{root: r, user: *user, jwt: token}, nil
}

type createMessageArgs struct {
	Text    string
	GroupID graphql.ID
}

// CreateMessage posts a message to a group the acting user belongs to and
// publishes it on the event bus. Publishing never fails the mutation.
func (r *Resolver) CreateMessage(ctx context.Context, args createMessageArgs) (*messageResolver, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Text) == "" {
		return nil, errInvalidArgument("message text is required")
	}
	if err := r.requireMember(ctx, string(args.GroupID), acting.ID); err != nil {
		return nil, err
	}

	message := &model.Message{
		Text:     args.Text,
		AuthorID: acting.ID,
		GroupID:  string(args.GroupID),
	}
	if err := r.store.CreateMessage(ctx, message); err != nil {
		return nil, wrapStoreError(err, "group")
	}

	r.events.Publish(events.Event{
		Topic:   events.TopicMessageAdded,
		Message: message,
	})
	return &messageResolver{root: r, message: *message}, nil
}

type createGroupArgs struct {
	Name    string
	UserIDs *[]graphql.ID
}

// CreateGroup creates a group whose members are the acting user plus any of
// their friends named in userIds; ids that are not friends are ignored, the
// same way the membership invite flow would drop them.
func (r *Resolver) CreateGroup(ctx context.Context, args createGroupArgs) (*groupResolver, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Name) == "" {
		return nil, errInvalidArgument("group name is required")
	}

	memberIDs := []string{acting.ID}
	if args.UserIDs != nil && len(*args.UserIDs) > 0 {
		friends, err := r.store.UserFriends(ctx, acting.ID)
		if err != nil {
			return nil, wrapStoreError(err, "user")
		}
		friendSet := make(map[string]bool, len(friends))
		for _, friend := range friends {
			friendSet[friend.ID] = true
		}
		for _, id := range *args.UserIDs {
			if friendSet[string(id)] {
				memberIDs = append(memberIDs, string(id))
			}
		}
	}

	groupID, err := r.ids.NewID()
	if err != nil {
		return nil, wrapStoreError(err, "group")
	}
	group := &model.Group{ID: groupID, Name: args.Name}
	if err := r.store.CreateGroup(ctx, group, memberIDs); err != nil {
		return nil, wrapStoreError(err, "group")
	}

	r.events.Publish(events.Event{
		Topic:     events.TopicGroupAdded,
		Group:     group,
		MemberIDs: memberIDs,
	})
	r.logger.Info("group created",
		zap.String("group_id", group.ID), zap.Int("members", len(memberIDs)))
	return &groupResolver{root: r, group: *group}, nil
}

type groupIDArgs struct {
	ID graphql.ID
}

// DeleteGroup removes a group the acting user belongs to, cascading to its
// messages and todos.
func (r *Resolver) DeleteGroup(ctx context.Context, args groupIDArgs) (*groupResolver, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	group, err := r.store.GroupByID(ctx, string(args.ID))
	if err != nil {
		return nil, wrapStoreError(err, "group")
	}
	if err := r.requireMember(ctx, group.ID, acting.ID); err != nil {
		return nil, err
	}
	if err := r.store.DeleteGroup(ctx, group.ID); err != nil {
		return nil, wrapStoreError(err, "group")
	}
	r.logger.Info("group deleted", zap.String("group_id", group.ID))
	return &groupResolver{root: r, group: *group}, nil
}

// LeaveGroup removes the acting user from the group. When the last member
// leaves, the group is deleted with everything it owns.
func (r *Resolver) LeaveGroup(ctx context.Context, args groupIDArgs) (graphql.ID, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return "", err
	}
	if err := r.requireMember(ctx, string(args.ID), acting.ID); err != nil {
		return "", err
	}
	remaining, err := r.store.RemoveGroupMember(ctx, string(args.ID), acting.ID)
	if err != nil {
		return "", wrapStoreError(err, "group")
	}
	if remaining == 0 {
		r.logger.Info("group removed with last member", zap.String("group_id", string(args.ID)))
	}
	return args.ID, nil
}

type updateGroupArgs struct {
	ID   graphql.ID
	Name string
}

// UpdateGroup renames a group the acting user belongs to.
func (r *Resolver) UpdateGroup(ctx context.Context, args updateGroupArgs) (*groupResolver, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Name) == "" {
		return nil, errInvalidArgument("group name is required")
	}
	if err := r.requireMember(ctx, string(args.ID), acting.ID); err != nil {
		return nil, err
	}
	group, err := r.store.RenameGroup(ctx, string(args.ID), args.Name)
	if err != nil {
		return nil, wrapStoreError(err, "group")
	}
	return &groupResolver{root: r, group: *group}, nil
}

type createTodoArgs struct {
	Text        string
	GroupID     graphql.ID
	Title       *string
	AssigneeIDs *[]graphql.ID
	DueDate     *graphql.Time
}

// CreateTodo adds a todo to a group the acting user belongs to. Assignees
// default to the acting user; a missing due date defaults to now.
func (r *Resolver) CreateTodo(ctx context.Context, args createTodoArgs) (*todoResolver, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Text) == "" {
		return nil, errInvalidArgument("todo text is required")
	}
	if err := r.requireMember(ctx, string(args.GroupID), acting.ID); err != nil {
		return nil, err
	}

	assigneeIDs := []string{acting.ID}
	if args.AssigneeIDs != nil && len(*args.AssigneeIDs) > 0 {
		assigneeIDs = make([]string, 0, len(*args.AssigneeIDs))
		for _, id := range *args.AssigneeIDs {
			assigneeIDs = append(assigneeIDs, string(id))
		}
	}

	todoID, err := r.ids.NewID()
	if err != nil {
		return nil, wrapStoreError(err, "todo")
	}
	todo := &model.Todo{
		ID:      todoID,
		Text:    args.Text,
		GroupID: string(args.GroupID),
		DueAt:   r.clock().UTC(),
	}
	if args.Title != nil {
		todo.Title = *args.Title
	}
	if args.DueDate != nil {
		todo.DueAt = args.DueDate.Time
	}
	if err := r.store.CreateTodo(ctx, todo, assigneeIDs); err != nil {
		return nil, wrapStoreError(err, "todo")
	}
	return &todoResolver{root: r, todo: *todo}, nil
}

type editTodoArgs struct {
	ID          graphql.ID
	Title       *string
	Text        *string
	AssigneeIDs *[]graphql.ID
	DueDate     *graphql.Time
}

// EditTodo applies a partial update; absent arguments leave fields as they
// are.
func (r *Resolver) EditTodo(ctx context.Context, args editTodoArgs) (*todoResolver, error) {
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

	if args.Title != nil {
		todo.Title = *args.Title
	}
	if args.Text != nil {
		if strings.TrimSpace(*args.Text) == "" {
			return nil, errInvalidArgument("todo text must not be empty")
		}
		todo.Text = *args.Text
	}
	if args.DueDate != nil {
		todo.DueAt = args.DueDate.Time
	}
	var assigneeIDs []string
	if args.AssigneeIDs != nil {
		assigneeIDs = make([]string, 0, len(*args.AssigneeIDs))
		for _, id := range *args.AssigneeIDs {
			assigneeIDs = append(assigneeIDs, string(id))
		}
	}
	if err := r.store.UpdateTodo(ctx, todo, assigneeIDs); err != nil {
		return nil, wrapStoreError(err, "todo")
	}
	return &todoResolver{root: r, todo: *todo}, nil
}

type todoIDArgs struct {
	ID graphql.ID
}

// MarkTodo toggles the completed flag.
func (r *Resolver) MarkTodo(ctx context.Context, args todoIDArgs) (*todoResolver, error) {
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
	toggled, err := r.store.ToggleTodo(ctx, todo.ID)
	if err != nil {
		return nil, wrapStoreError(err, "todo")
	}
	return &todoResolver{root: r, todo: *toggled}, nil
}

type addFriendArgs struct {
	UserID graphql.ID
}

// AddFriend records a symmetric friendship between the acting user and the
// named user.
func (r *Resolver) AddFriend(ctx context.Context, args addFriendArgs) (*userResolver, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	friendID := string(args.UserID)
	if friendID == acting.ID {
		return nil, errInvalidArgument("cannot befriend yourself")
	}
	if _, err := r.store.UserByID(ctx, friendID); err != nil {
		return nil, wrapStoreError(err, "user")
	}
	if err := r.store.AddFriend(ctx, acting.ID, friendID); err != nil {
		return nil, wrapStoreError(err, "user")
	}
	return &userResolver{root: r, user: *acting}, nil
}
