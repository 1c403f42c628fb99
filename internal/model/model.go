// Package model defines the persistent entities shared by the record store
// implementations and the GraphQL resolvers.
package model

import (
	"strings"
	"time"
)

// User is an account holder. Friends are symmetric; the store keeps both
// directions of the join in sync.
type User struct {
	ID           string    `gorm:"column:id;primaryKey;size:36"`
	Email        string    `gorm:"column:email;size:320;uniqueIndex;not null"`
	Username     string    `gorm:"column:username;size:190"`
	PasswordHash string    `gorm:"column:password_hash;size:72;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Groups  []Group   `gorm:"many2many:group_members"`
	Friends []*User   `gorm:"many2many:user_friends;joinForeignKey:user_id;joinReferences:friend_id"`
	Todos   []Todo    `gorm:"many2many:todo_assignees"`
	Message []Message `gorm:"foreignKey:AuthorID"`
}

// TableName exposes the table backing users.
func (User) TableName() string {
	return "users"
}

// Group owns its message and todo collections; deleting a group cascades to
// both. A group with zero members must not exist.
type Group struct {
	ID        string    `gorm:"column:id;primaryKey;size:36"`
	Name      string    `gorm:"column:name;size:190;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Members  []User    `gorm:"many2many:group_members"`
	Messages []Message `gorm:"foreignKey:GroupID"`
	Todos    []Todo    `gorm:"foreignKey:GroupID"`
}

// TableName exposes the table backing groups.
func (Group) TableName() string {
	return "groups"
}

// Message is immutable once created. The autoincrement primary key is the
// ordering key used for feed sorting and cursors; it is assigned by the store
// and is never the human timestamp.
type Message struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Text      string    `gorm:"column:text;not null"`
	AuthorID  string    `gorm:"column:author_id;size:36;not null;index"`
	GroupID   string    `gorm:"column:group_id;size:36;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing messages.
func (Message) TableName() string {
	return "messages"
}

// Todo belongs to exactly one group and may be assigned to several users.
type Todo struct {
	ID        string    `gorm:"column:id;primaryKey;size:36"`
	Title     string    `gorm:"column:title;size:190"`
	Text      string    `gorm:"column:text;not null"`
	GroupID   string    `gorm:"column:group_id;size:36;not null;index"`
	DueAt     time.Time `gorm:"column:due_at"`
	Completed bool      `gorm:"column:completed;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Assignees []User `gorm:"many2many:todo_assignees"`
}

// TableName exposes the table backing todos.
func (Todo) TableName() string {
	return "todos"
}

// NormalizeEmail lower-cases and trims an address so uniqueness checks and
// lookups agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
