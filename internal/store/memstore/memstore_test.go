package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/huddleup/huddle/internal/model"
	"github.com/huddleup/huddle/internal/store"
)

func seedUser(t *testing.T, records *Store, id string) *model.User {
	t.Helper()
	user := &model.User{ID: id, Email: id + "@example.com", PasswordHash: "unused"}
	if err := records.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
	return user
}

func seedGroup(t *testing.T, records *Store, id string, memberIDs ...string) *model.Group {
	t.Helper()
	group := &model.Group{ID: id, Name: id}
	if err := records.CreateGroup(context.Background(), group, memberIDs); err != nil {
		t.Fatalf("failed to seed group %s: %v", id, err)
	}
	return group
}

func seedMessages(t *testing.T, records *Store, groupID, authorID string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		message := &model.Message{Text: "hello", AuthorID: authorID, GroupID: groupID}
		if err := records.CreateMessage(context.Background(), message); err != nil {
			t.Fatalf("failed to seed message: %v", err)
		}
	}
}

func messageIDs(messages []model.Message) []int64 {
	ids := make([]int64, 0, len(messages))
	for _, message := range messages {
		ids = append(ids, message.ID)
	}
	return ids
}

func assertIDs(t *testing.T, got []int64, want ...int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, got)
		}
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	records := New(nil)
	seedUser(t, records, "alice")

	err := records.CreateUser(context.Background(), &model.User{
		ID:    "alice-2",
		Email: "alice@example.com",
	})
	if !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserLookups(t *testing.T) {
	records := New(nil)
	alice := seedUser(t, records, "alice")
	ctx := context.Background()

	byID, err := records.UserByID(ctx, alice.ID)
	if err != nil || byID.Email != alice.Email {
		t.Fatalf("expected alice by id, got %v (%v)", byID, err)
	}
	byEmail, err := records.UserByEmail(ctx, alice.Email)
	if err != nil || byEmail.ID != alice.ID {
		t.Fatalf("expected alice by email, got %v (%v)", byEmail, err)
	}
	if _, err := records.UserByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := records.UserByEmail(ctx, "missing@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddFriendBothDirections(t *testing.T) {
	records := New(nil)
	alice := seedUser(t, records, "alice")
	bob := seedUser(t, records, "bob")
	ctx := context.Background()

	if err := records.AddFriend(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Adding twice must not duplicate the join.
	if err := records.AddFriend(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	aliceFriends, err := records.UserFriends(ctx, alice.ID)
	if err != nil || len(aliceFriends) != 1 || aliceFriends[0].ID != bob.ID {
		t.Fatalf("expected [bob], got %v (%v)", aliceFriends, err)
	}
	bobFriends, err := records.UserFriends(ctx, bob.ID)
	if err != nil || len(bobFriends) != 1 || bobFriends[0].ID != alice.ID {
		t.Fatalf("expected [alice], got %v (%v)", bobFriends, err)
	}
}

func TestGroupMembership(t *testing.T) {
	records := New(nil)
	alice := seedUser(t, records, "alice")
	bob := seedUser(t, records, "bob")
	group := seedGroup(t, records, "team", alice.ID, bob.ID)
	ctx := context.Background()

	member, err := records.IsGroupMember(ctx, group.ID, alice.ID)
	if err != nil || !member {
		t.Fatalf("expected alice to be a member, got %v (%v)", member, err)
	}
	member, err = records.IsGroupMember(ctx, group.ID, "stranger")
	if err != nil || member {
		t.Fatalf("expected stranger to be outside, got %v (%v)", member, err)
	}
	if _, err := records.IsGroupMember(ctx, "missing", alice.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	groups, err := records.UserGroups(ctx, alice.ID)
	if err != nil || len(groups) != 1 || groups[0].ID != group.ID {
		t.Fatalf("expected [team], got %v (%v)", groups, err)
	}
}

func TestRemoveGroupMemberDeletesEmptyGroup(t *testing.T) {
	records := New(nil)
	alice := seedUser(t, records, "alice")
	bob := seedUser(t, records, "bob")
	group := seedGroup(t, records, "team", alice.ID, bob.ID)
	seedMessages(t, records, group.ID, alice.ID, 2)
	ctx := context.Background()

	remaining, err := records.RemoveGroupMember(ctx, group.ID, alice.ID)
	if err != nil || remaining != 1 {
		t.Fatalf("expected one member to remain, got %d (%v)", remaining, err)
	}
	if _, err := records.GroupByID(ctx, group.ID); err != nil {
		t.Fatalf("expected the group to survive, got %v", err)
	}

	remaining, err = records.RemoveGroupMember(ctx, group.ID, bob.ID)
	if err != nil || remaining != 0 {
		t.Fatalf("expected an empty group, got %d (%v)", remaining, err)
	}
	if _, err := records.GroupByID(ctx, group.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected the empty group to be deleted, got %v", err)
	}
	messages, err := records.Messages(ctx, group.ID, "")
	if err != nil || len(messages) != 0 {
		t.Fatalf("expected messages to cascade, got %v (%v)", messages, err)
	}
}

func TestMessageOrderingKeysAreMonotonic(t *testing.T) {
	records := New(nil)
	alice := seedUser(t, records, "alice")
	group := seedGroup(t, records, "team", alice.ID)
	seedMessages(t, records, group.ID, alice.ID, 3)

	messages, err := records.Messages(context.Background(), group.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, messageIDs(messages), 1, 2, 3)
}

func TestMessagePageBounds(t *testing.T) {
	records := New(nil)
	alice := seedUser(t, records, "alice")
	group := seedGroup(t, records, "team", alice.ID)
	seedMessages(t, records, group.ID, alice.ID, 5)
	ctx := context.Background()

	newest, err := records.MessagePage(ctx, store.MessagePage{GroupID: group.ID, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, messageIDs(newest), 5, 4)

	older, err := records.MessagePage(ctx, store.MessagePage{GroupID: group.ID, Before: 4, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, messageIDs(older), 3, 2)

	newer, err := records.MessagePage(ctx, store.MessagePage{GroupID: group.ID, After: 3, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, messageIDs(newer), 5, 4)

	oldest, err := records.MessagePage(ctx, store.MessagePage{GroupID: group.ID, Limit: 2, OldestFirst: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, messageIDs(oldest), 1, 2)
}

func TestMessageExistsProbes(t *testing.T) {
	records := New(nil)
	alice := seedUser(t, records, "alice")
	group := seedGroup(t, records, "team", alice.ID)
	seedMessages(t, records, group.ID, alice.ID, 3)
	ctx := context.Background()

	exists, err := records.MessageExists(ctx, store.MessageProbe{GroupID: group.ID, NewerThan: 2})
	if err != nil || !exists {
		t.Fatalf("expected a message newer than 2, got %v (%v)", exists, err)
	}
	exists, err = records.MessageExists(ctx, store.MessageProbe{GroupID: group.ID, NewerThan: 3})
	if err != nil || exists {
		t.Fatalf("expected nothing newer than 3, got %v (%v)", exists, err)
	}
	exists, err = records.MessageExists(ctx, store.MessageProbe{GroupID: group.ID, NewerThan: 1, OlderThan: 3})
	if err != nil || !exists {
		t.Fatalf("expected message 2 inside the bounds, got %v (%v)", exists, err)
	}
	exists, err = records.MessageExists(ctx, store.MessageProbe{GroupID: "other", NewerThan: 0})
	if err != nil || exists {
		t.Fatalf("expected no messages in another group, got %v (%v)", exists, err)
	}
}

func TestMessagesFiltersByGroupOrAuthor(t *testing.T) {
	records := New(nil)
	alice := seedUser(t, records, "alice")
	bob := seedUser(t, records, "bob")
	home := seedGroup(t, records, "home", alice.ID, bob.ID)
	work := seedGroup(t, records, "work", alice.ID)
	seedMessages(t, records, home.ID, alice.ID, 1)
	seedMessages(t, records, home.ID, bob.ID, 1)
	seedMessages(t, records, work.ID, alice.ID, 1)
	ctx := context.Background()

	byGroup, err := records.Messages(ctx, home.ID, "")
	if err != nil || len(byGroup) != 2 {
		t.Fatalf("expected 2 home messages, got %v (%v)", byGroup, err)
	}
	byAuthor, err := records.Messages(ctx, "", alice.ID)
	if err != nil || len(byAuthor) != 2 {
		t.Fatalf("expected 2 alice messages, got %v (%v)", byAuthor, err)
	}
	either, err := records.Messages(ctx, home.ID, alice.ID)
	if err != nil || len(either) != 3 {
		t.Fatalf("expected 3 matching messages, got %v (%v)", either, err)
	}
}

func TestTodoLifecycle(t *testing.T) {
	records := New(nil)
	alice := seedUser(t, records, "alice")
	bob := seedUser(t, records, "bob")
	group := seedGroup(t, records, "team", alice.ID, bob.ID)
	ctx := context.Background()

	todo := &model.Todo{ID: "todo-1", Text: "buy snacks", GroupID: group.ID}
	if err := records.CreateTodo(ctx, todo, []string{alice.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assigned, err := records.TodoAssignees(ctx, todo.ID)
	if err != nil || len(assigned) != 1 || assigned[0].ID != alice.ID {
		t.Fatalf("expected [alice], got %v (%v)", assigned, err)
	}

	toggled, err := records.ToggleTodo(ctx, todo.ID)
	if err != nil || !toggled.Completed {
		t.Fatalf("expected a completed todo, got %v (%v)", toggled, err)
	}
	toggled, err = records.ToggleTodo(ctx, todo.ID)
	if err != nil || toggled.Completed {
		t.Fatalf("expected a reopened todo, got %v (%v)", toggled, err)
	}

	todo.Text = "buy more snacks"
	if err := records.UpdateTodo(ctx, todo, []string{bob.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, err := records.TodoByID(ctx, todo.ID)
	if err != nil || updated.Text != "buy more snacks" {
		t.Fatalf("expected the updated text, got %v (%v)", updated, err)
	}
	assigned, err = records.TodoAssignees(ctx, todo.ID)
	if err != nil || len(assigned) != 1 || assigned[0].ID != bob.ID {
		t.Fatalf("expected reassignment to [bob], got %v (%v)", assigned, err)
	}

	todos, err := records.UserTodos(ctx, bob.ID)
	if err != nil || len(todos) != 1 || todos[0].ID != todo.ID {
		t.Fatalf("expected bob's todo list, got %v (%v)", todos, err)
	}
	todos, err = records.GroupTodos(ctx, group.ID)
	if err != nil || len(todos) != 1 {
		t.Fatalf("expected one group todo, got %v (%v)", todos, err)
	}
}

func TestUpdateTodoNilAssigneesLeavesJoinAlone(t *testing.T) {
	records := New(nil)
	alice := seedUser(t, records, "alice")
	group := seedGroup(t, records, "team", alice.ID)
	ctx := context.Background()

	todo := &model.Todo{ID: "todo-1", Text: "original", GroupID: group.ID}
	if err := records.CreateTodo(ctx, todo, []string{alice.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	todo.Text = "edited"
	if err := records.UpdateTodo(ctx, todo, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assigned, err := records.TodoAssignees(ctx, todo.ID)
	if err != nil || len(assigned) != 1 || assigned[0].ID != alice.ID {
		t.Fatalf("expected the join to be unchanged, got %v (%v)", assigned, err)
	}
}
