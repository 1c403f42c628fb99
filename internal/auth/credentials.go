package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/huddleup/huddle/internal/model"
	"github.com/huddleup/huddle/internal/store"
)

// ErrInvalidCredentials covers every login/signup failure mode so the
// response never reveals whether an address is registered.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Credentials verifies logins and registers new accounts against the record
// store.
type Credentials struct {
	store store.Store
}

// NewCredentials constructs the credential service.
func NewCredentials(recordStore store.Store) (*Credentials, error) {
	if recordStore == nil {
		return nil, fmt.Errorf("auth: record store is required")
	}
	return &Credentials{store: recordStore}, nil
}

// Verify checks an email/password pair and returns the matching user.
func (c *Credentials) Verify(ctx context.Context, email, plaintext string) (*model.User, error) {
	user, err := c.store.UserByEmail(ctx, model.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, plaintext) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Register creates a new account. The email is case-normalized before the
// uniqueness check; a taken address fails the same way a bad login does.
func (c *Credentials) Register(ctx context.Context, email, plaintext, username string) (*model.User, error) {
	normalized := model.NormalizeEmail(email)
	if normalized == "" || plaintext == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := HashPassword(plaintext)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           id.String(),
		Email:        normalized,
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
	}
	if err := c.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}
