// Package repository declares the storage contracts the services depend on.
//
// Two implementations live in subpackages:
//   - repository/mongo: the document store used in production
//   - repository/sqlite: an embedded store for local runs and tests
//
// All "missing record" outcomes are apperror.NotFound; any other error is a
// store failure and surfaces as a 500.
package repository

import (
	"context"

	"github.com/sakif/blog-api/internal/model"
)

// UserRepository is the Account Directory. There is deliberately no update
// or delete: accounts are immutable once created.
type UserRepository interface {
	Exists(ctx context.Context, username string) (bool, error)
	// Create assigns ID and CreatedAt. Returns apperror.ErrConflict when the
	// username is already taken.
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// PostRepository is the Blog Store.
//
// Like, Unlike and AddComment are single atomic operations at the storage
// boundary, so concurrent callers never lose an update.
type PostRepository interface {
	// Create assigns ID and CreatedAt, and resets Likes and Comments.
	Create(ctx context.Context, post *model.Post) error
	// List returns every post, newest first.
	List(ctx context.Context) ([]model.Post, error)
	GetByID(ctx context.Context, id string) (*model.Post, error)
	UpdateFields(ctx context.Context, id string, update model.PostUpdate) (*model.Post, error)
	// Like increments the counter and returns the new value.
	Like(ctx context.Context, id string) (int, error)
	// Unlike decrements the counter if it is above zero and returns the
	// resulting value, which is 0 when there was nothing to take away.
	Unlike(ctx context.Context, id string) (int, error)
	// AddComment appends to the post's comments and returns the full sequence.
	AddComment(ctx context.Context, id string, comment model.Comment) ([]model.Comment, error)
	// Delete removes the post with its comments and returns what was removed.
	Delete(ctx context.Context, id string) (*model.Post, error)
}
