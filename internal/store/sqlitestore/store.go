// Package sqlitestore implements the record store adapter on gorm over
// SQLite. Read-modify-write sequences run inside a transaction with row
// locking so concurrent mutations cannot lose updates.
package sqlitestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/huddleup/huddle/internal/model"
	"github.com/huddleup/huddle/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store wraps a gorm handle opened by the database package.
type Store struct {
	db *gorm.DB
}

// New constructs a store over the provided database handle.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlitestore: database handle is required")
	}
	return &Store{db: db}, nil
}

var _ store.Store = (*Store)(nil)

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.User
		err := tx.Where("email = ?", user.Email).Take(&existing).Error
		if err == nil {
			return store.ErrEmailTaken
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return unavailable(err)
		}
		if err := tx.Create(user).Error; err != nil {
			return unavailable(err)
		}
		return nil
	})
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) AddFriend(ctx context.Context, userID, friendID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		friend, err := lockUser(tx, friendID)
		if err != nil {
			return err
		}
		if err := tx.Model(user).Association("Friends").Append(friend); err != nil {
			return unavailable(err)
		}
		if err := tx.Model(friend).Association("Friends").Append(user); err != nil {
			return unavailable(err)
		}
		return nil
	})
}

func (s *Store) UserFriends(ctx context.Context, userID string) ([]model.User, error) {
	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var friends []*model.User
	if err := s.db.WithContext(ctx).Model(user).Association("Friends").Find(&friends); err != nil {
		return nil, unavailable(err)
	}
	resolved := make([]model.User, 0, len(friends))
	for _, friend := range friends {
		resolved = append(resolved, *friend)
	}
	return resolved, nil
}

func (s *Store) UserGroups(ctx context.Context, userID string) ([]model.Group, error) {
	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var groups []model.Group
	if err := s.db.WithContext(ctx).Model(user).Association("Groups").Find(&groups); err != nil {
		return nil, unavailable(err)
	}
	return groups, nil
}

func (s *Store) UserTodos(ctx context.Context, userID string) ([]model.Todo, error) {
	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var todos []model.Todo
	if err := s.db.WithContext(ctx).Model(user).Association("Todos").Find(&todos); err != nil {
		return nil, unavailable(err)
	}
	return todos, nil
}

func (s *Store) CreateGroup(ctx context.Context, group *model.Group, memberIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var members []model.User
		if err := tx.Where("id IN ?", memberIDs).Find(&members).Error; err != nil {
			return unavailable(err)
		}
		if len(members) != len(memberIDs) {
			return store.ErrNotFound
		}
		if err := tx.Create(group).Error; err != nil {
			return unavailable(err)
		}
		if err := tx.Model(group).Association("Members").Append(&members); err != nil {
			return unavailable(err)
		}
		return nil
	})
}

func (s *Store) GroupByID(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&group).Error; err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

func (s *Store) GroupMembers(ctx context.Context, groupID string) ([]model.User, error) {
	group, err := s.GroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	var members []model.User
	if err := s.db.WithContext(ctx).Model(group).Association("Members").Find(&members); err != nil {
		return nil, unavailable(err)
	}
	return members, nil
}

func (s *Store) IsGroupMember(ctx context.Context, groupID, userID string) (bool, error) {
	if _, err := s.GroupByID(ctx, groupID); err != nil {
		return false, err
	}
	var count int64
	err := s.db.WithContext(ctx).
		Table("group_members").
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, unavailable(err)
	}
	return count > 0, nil
}

func (s *Store) RenameGroup(ctx context.Context, groupID, name string) (*model.Group, error) {
	var renamed model.Group
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := lockGroup(tx, groupID)
		if err != nil {
			return err
		}
		group.Name = name
		if err := tx.Save(group).Error; err != nil {
			return unavailable(err)
		}
		renamed = *group
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &renamed, nil
}

func (s *Store) RemoveGroupMember(ctx context.Context, groupID, userID string) (int, error) {
	remaining := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := lockGroup(tx, groupID)
		if err != nil {
			return err
		}
		err = tx.Exec("DELETE FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID).Error
		if err != nil {
			return unavailable(err)
		}
		var count int64
		if err := tx.Table("group_members").Where("group_id = ?", groupID).Count(&count).Error; err != nil {
			return unavailable(err)
		}
		remaining = int(count)
		if remaining == 0 {
			return deleteGroupTx(tx, group.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := lockGroup(tx, groupID)
		if err != nil {
			return err
		}
		return deleteGroupTx(tx, group.ID)
	})
}

func (s *Store) CreateMessage(ctx context.Context, message *model.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockGroup(tx, message.GroupID); err != nil {
			return err
		}
		if err := tx.Create(message).Error; err != nil {
			return unavailable(err)
		}
		return nil
	})
}

func (s *Store) Messages(ctx context.Context, groupID, authorID string) ([]model.Message, error) {
	query := s.db.WithContext(ctx).Model(&model.Message{})
	switch {
	case groupID != "" && authorID != "":
		query = query.Where("group_id = ? OR author_id = ?", groupID, authorID)
	case groupID != "":
		query = query.Where("group_id = ?", groupID)
	case authorID != "":
		query = query.Where("author_id = ?", authorID)
	}
	var messages []model.Message
	if err := query.Order("id ASC").Find(&messages).Error; err != nil {
		return nil, unavailable(err)
	}
	return messages, nil
}

func (s *Store) MessagePage(ctx context.Context, page store.MessagePage) ([]model.Message, error) {
	query := s.db.WithContext(ctx).Where("group_id = ?", page.GroupID)
	if page.After > 0 {
		query = query.Where("id > ?", page.After)
	}
	if page.Before > 0 {
		query = query.Where("id < ?", page.Before)
	}
	order := "id DESC"
	if page.OldestFirst {
		order = "id ASC"
	}
	var messages []model.Message
	if err := query.Order(order).Limit(page.Limit).Find(&messages).Error; err != nil {
		return nil, unavailable(err)
	}
	return messages, nil
}

func (s *Store) MessageExists(ctx context.Context, probe store.MessageProbe) (bool, error) {
	query := s.db.WithContext(ctx).Model(&model.Message{}).Where("group_id = ?", probe.GroupID)
	if probe.NewerThan > 0 {
		query = query.Where("id > ?", probe.NewerThan)
	}
	if probe.OlderThan > 0 {
		query = query.Where("id < ?", probe.OlderThan)
	}
	var count int64
	if err := query.Limit(1).Count(&count).Error; err != nil {
		return false, unavailable(err)
	}
	return count > 0, nil
}

func (s *Store) CreateTodo(ctx context.Context, todo *model.Todo, assigneeIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockGroup(tx, todo.GroupID); err != nil {
			return err
		}
		var assigned []model.User
		if err := tx.Where("id IN ?", assigneeIDs).Find(&assigned).Error; err != nil {
			return unavailable(err)
		}
		if len(assigned) != len(assigneeIDs) {
			return store.ErrNotFound
		}
		if err := tx.Create(todo).Error; err != nil {
			return unavailable(err)
		}
		if err := tx.Model(todo).Association("Assignees").Append(&assigned); err != nil {
			return unavailable(err)
		}
		return nil
	})
}

func (s *Store) TodoByID(ctx context.Context, id string) (*model.Todo, error) {
	var todo model.Todo
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&todo).Error; err != nil {
		return nil, translate(err)
	}
	return &todo, nil
}

func (s *Store) UpdateTodo(ctx context.Context, todo *model.Todo, assigneeIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Todo
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", todo.ID).
			Take(&existing).Error
		if err != nil {
			return translate(err)
		}
		if err := tx.Save(todo).Error; err != nil {
			return unavailable(err)
		}
		if assigneeIDs == nil {
			return nil
		}
		var assigned []model.User
		if err := tx.Where("id IN ?", assigneeIDs).Find(&assigned).Error; err != nil {
			return unavailable(err)
		}
		if len(assigned) != len(assigneeIDs) {
			return store.ErrNotFound
		}
		if err := tx.Model(todo).Association("Assignees").Replace(&assigned); err != nil {
			return unavailable(err)
		}
		return nil
	})
}

func (s *Store) ToggleTodo(ctx context.Context, id string) (*model.Todo, error) {
	var toggled model.Todo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var todo model.Todo
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&todo).Error
		if err != nil {
			return translate(err)
		}
		todo.Completed = !todo.Completed
		if err := tx.Save(&todo).Error; err != nil {
			return unavailable(err)
		}
		toggled = todo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &toggled, nil
}

func (s *Store) TodoAssignees(ctx context.Context, todoID string) ([]model.User, error) {
	todo, err := s.TodoByID(ctx, todoID)
	if err != nil {
		return nil, err
	}
	var assigned []model.User
	if err := s.db.WithContext(ctx).Model(todo).Association("Assignees").Find(&assigned); err != nil {
		return nil, unavailable(err)
	}
	return assigned, nil
}

func (s *Store) GroupTodos(ctx context.Context, groupID string) ([]model.Todo, error) {
	if _, err := s.GroupByID(ctx, groupID); err != nil {
		return nil, err
	}
	var todos []model.Todo
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Find(&todos).Error
	if err != nil {
		return nil, unavailable(err)
	}
	return todos, nil
}

// deleteGroupTx cascades to the collections the group owns: messages, todos
// and the join rows that reference them.
func deleteGroupTx(tx *gorm.DB, groupID string) error {
	if err := tx.Where("group_id = ?", groupID).Delete(&model.Message{}).Error; err != nil {
		return unavailable(err)
	}
	err := tx.Exec("DELETE FROM todo_assignees WHERE todo_id IN (SELECT id FROM todos WHERE group_id = ?)", groupID).Error
	if err != nil {
		return unavailable(err)
	}
	if err := tx.Where("group_id = ?", groupID).Delete(&model.Todo{}).Error; err != nil {
		return unavailable(err)
	}
	if err := tx.Exec("DELETE FROM group_members WHERE group_id = ?", groupID).Error; err != nil {
		return unavailable(err)
	}
	if err := tx.Where("id = ?", groupID).Delete(&model.Group{}).Error; err != nil {
		return unavailable(err)
	}
	return nil
}

func lockUser(tx *gorm.DB, id string) (*model.User, error) {
	var user model.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func lockGroup(tx *gorm.DB, id string) (*model.Group, error) {
	var group model.Group
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&group).Error
	if err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return unavailable(err)
}

func unavailable(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrEmailTaken) {
		return err
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}
