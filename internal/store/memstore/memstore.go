// Package memstore implements the record store adapter against in-process
// indexed tables. It backs the non-persistent test mode; construct one per
// test run, never share a process-wide instance.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/huddleup/huddle/internal/model"
	"github.com/huddleup/huddle/internal/store"
)

// Store keeps every table behind one mutex, which serializes all
// read-modify-write sequences per the concurrency contract.
type Store struct {
	mu sync.Mutex

	users    map[string]model.User
	byEmail  map[string]string
	groups   map[string]model.Group
	messages map[int64]model.Message
	todos    map[string]model.Todo

	members   map[string][]string // group id -> member ids, join order
	friends   map[string][]string // user id -> friend ids, join order
	assignees map[string][]string // todo id -> assignee ids, join order

	nextMessageID int64
	clock         func() time.Time
}

// New returns an empty store. A nil clock defaults to time.Now.
func New(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		users:     make(map[string]model.User),
		byEmail:   make(map[string]string),
		groups:    make(map[string]model.Group),
		messages:  make(map[int64]model.Message),
		todos:     make(map[string]model.Todo),
		members:   make(map[string][]string),
		friends:   make(map[string][]string),
		assignees: make(map[string][]string),
		clock:     clock,
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[user.Email]; taken {
		return store.ErrEmailTaken
	}
	user.CreatedAt = s.clock()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *Store) UserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userLocked(id)
}

func (s *Store) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.userLocked(id)
}

func (s *Store) AddFriend(_ context.Context, userID, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := s.users[friendID]; !ok {
		return store.ErrNotFound
	}
	s.friends[userID] = appendUnique(s.friends[userID], friendID)
	s.friends[friendID] = appendUnique(s.friends[friendID], userID)
	return nil
}

func (s *Store) UserFriends(_ context.Context, userID string) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil, store.ErrNotFound
	}
	return s.usersLocked(s.friends[userID]), nil
}

func (s *Store) UserGroups(_ context.Context, userID string) ([]model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil, store.ErrNotFound
	}
	groupIDs := make([]string, 0)
	for groupID, memberIDs := range s.members {
		if contains(memberIDs, userID) {
			groupIDs = append(groupIDs, groupID)
		}
	}
	sort.Strings(groupIDs)
	groups := make([]model.Group, 0, len(groupIDs))
	for _, id := range groupIDs {
		groups = append(groups, s.groups[id])
	}
	return groups, nil
}

func (s *Store) UserTodos(_ context.Context, userID string) ([]model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil, store.ErrNotFound
	}
	todoIDs := make([]string, 0)
	for todoID, assigned := range s.assignees {
		if contains(assigned, userID) {
			todoIDs = append(todoIDs, todoID)
		}
	}
	sort.Strings(todoIDs)
	todos := make([]model.Todo, 0, len(todoIDs))
	for _, id := range todoIDs {
		todos = append(todos, s.todos[id])
	}
	return todos, nil
}

func (s *Store) CreateGroup(_ context.Context, group *model.Group, memberIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range memberIDs {
		if _, ok := s.users[id]; !ok {
			return store.ErrNotFound
		}
	}
	group.CreatedAt = s.clock()
	group.UpdatedAt = group.CreatedAt
	s.groups[group.ID] = *group
	joined := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		joined = appendUnique(joined, id)
	}
	s.members[group.ID] = joined
	return nil
}

func (s *Store) GroupByID(_ context.Context, id string) (*model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &group, nil
}

func (s *Store) GroupMembers(_ context.Context, groupID string) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return nil, store.ErrNotFound
	}
	return s.usersLocked(s.members[groupID]), nil
}

func (s *Store) IsGroupMember(_ context.Context, groupID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return false, store.ErrNotFound
	}
	return contains(s.members[groupID], userID), nil
}

func (s *Store) RenameGroup(_ context.Context, groupID, name string) (*model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[groupID]
	if !ok {
		return nil, store.ErrNotFound
	}
	group.Name = name
	group.UpdatedAt = s.clock()
	s.groups[groupID] = group
	return &group, nil
}

func (s *Store) RemoveGroupMember(_ context.Context, groupID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return 0, store.ErrNotFound
	}
	remaining := remove(s.members[groupID], userID)
	s.members[groupID] = remaining
	if len(remaining) == 0 {
		s.deleteGroupLocked(groupID)
		return 0, nil
	}
	return len(remaining), nil
}

func (s *Store) DeleteGroup(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return store.ErrNotFound
	}
	s.deleteGroupLocked(groupID)
	return nil
}

func (s *Store) CreateMessage(_ context.Context, message *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[message.GroupID]; !ok {
		return store.ErrNotFound
	}
	s.nextMessageID++
	message.ID = s.nextMessageID
	message.CreatedAt = s.clock()
	s.messages[message.ID] = *message
	return nil
}

func (s *Store) Messages(_ context.Context, groupID, authorID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]model.Message, 0)
	for _, message := range s.messages {
		if (groupID != "" && message.GroupID == groupID) ||
			(authorID != "" && message.AuthorID == authorID) {
			matched = append(matched, message)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (s *Store) MessagePage(_ context.Context, page store.MessagePage) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := make([]model.Message, 0)
	for _, message := range s.messages {
		if !inBounds(message, page.GroupID, page.After, page.Before) {
			continue
		}
		window = append(window, message)
	}
	if page.OldestFirst {
		sort.Slice(window, func(i, j int) bool { return window[i].ID < window[j].ID })
	} else {
		sort.Slice(window, func(i, j int) bool { return window[i].ID > window[j].ID })
	}
	if page.Limit >= 0 && len(window) > page.Limit {
		window = window[:page.Limit]
	}
	return window, nil
}

func (s *Store) MessageExists(_ context.Context, probe store.MessageProbe) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, message := range s.messages {
		if inBounds(message, probe.GroupID, probe.NewerThan, probe.OlderThan) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateTodo(_ context.Context, todo *model.Todo, assigneeIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[todo.GroupID]; !ok {
		return store.ErrNotFound
	}
	for _, id := range assigneeIDs {
		if _, ok := s.users[id]; !ok {
			return store.ErrNotFound
		}
	}
	todo.CreatedAt = s.clock()
	todo.UpdatedAt = todo.CreatedAt
	s.todos[todo.ID] = *todo
	joined := make([]string, 0, len(assigneeIDs))
	for _, id := range assigneeIDs {
		joined = appendUnique(joined, id)
	}
	s.assignees[todo.ID] = joined
	return nil
}

func (s *Store) TodoByID(_ context.Context, id string) (*model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	todo, ok := s.todos[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &todo, nil
}

func (s *Store) UpdateTodo(_ context.Context, todo *model.Todo, assigneeIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.todos[todo.ID]; !ok {
		return store.ErrNotFound
	}
	todo.UpdatedAt = s.clock()
	s.todos[todo.ID] = *todo
	if assigneeIDs != nil {
		joined := make([]string, 0, len(assigneeIDs))
		for _, id := range assigneeIDs {
			joined = appendUnique(joined, id)
		}
		s.assignees[todo.ID] = joined
	}
	return nil
}

func (s *Store) ToggleTodo(_ context.Context, id string) (*model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	todo, ok := s.todos[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	todo.Completed = !todo.Completed
	todo.UpdatedAt = s.clock()
	s.todos[id] = todo
	return &todo, nil
}

func (s *Store) TodoAssignees(_ context.Context, todoID string) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.todos[todoID]; !ok {
		return nil, store.ErrNotFound
	}
	return s.usersLocked(s.assignees[todoID]), nil
}

func (s *Store) GroupTodos(_ context.Context, groupID string) ([]model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return nil, store.ErrNotFound
	}
	todoIDs := make([]string, 0)
	for id, todo := range s.todos {
		if todo.GroupID == groupID {
			todoIDs = append(todoIDs, id)
		}
	}
	sort.Strings(todoIDs)
	todos := make([]model.Todo, 0, len(todoIDs))
	for _, id := range todoIDs {
		todos = append(todos, s.todos[id])
	}
	return todos, nil
}

func (s *Store) userLocked(id string) (*model.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) usersLocked(ids []string) []model.User {
	users := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			users = append(users, user)
		}
	}
	return users
}

// deleteGroupLocked cascades: the group exclusively owns its messages and
// todos, so both collections go with it.
func (s *Store) deleteGroupLocked(groupID string) {
	for id, message := range s.messages {
		if message.GroupID == groupID {
			delete(s.messages, id)
		}
	}
	for id, todo := range s.todos {
		if todo.GroupID == groupID {
			delete(s.todos, id)
			delete(s.assignees, id)
		}
	}
	delete(s.members, groupID)
	delete(s.groups, groupID)
}

func inBounds(message model.Message, groupID string, newerThan, olderThan int64) bool {
	if message.GroupID != groupID {
		return false
	}
	if newerThan > 0 && message.ID <= newerThan {
		return false
	}
	if olderThan > 0 && message.ID >= olderThan {
		return false
	}
	return true
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func appendUnique(ids []string, id string) []string {
	if contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func remove(ids []string, id string) []string {
	kept := make([]string, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			kept = append(kept, candidate)
		}
	}
	return kept
}
