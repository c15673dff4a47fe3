package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/model"
)

// newTestDB creates a fresh in-memory database for each test.
// Every test gets its own isolated database, so tests can't interfere with each other.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	// t.Cleanup registers a function to run when the test finishes.
	// This is like defer, but scoped to the test, and it works in subtests.
	t.Cleanup(func() { db.Close() })
	return db
}

// newFileTestDB opens a database file in a temp directory.
// ":memory:" is pinned to one connection, so only a file database lets
// several pooled connections write at the same time.
func newFileTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "blog.db"))
	if err != nil {
		t.Fatalf("failed to create file test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser is a test helper that creates a user and fails the test if it errors.
func createTestUser(t *testing.T, u *UserDB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username: username,
		Password: "secret",
		Role:     "reader",
	}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	u := newTestDB(t).Users()

	user := &model.User{Username: "testuser", Password: "pw", Role: "admin"}

	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Verify the user was modified in-place (pointer receiver)
	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "firstuser")

	err := u.Create(context.Background(), &model.User{Username: "firstuser", Password: "other"})
	if err == nil {
		t.Fatal("Create() should have returned an error for duplicate username")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Create() error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_UsernameIsCaseSensitive(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "Alice")

	if err := u.Create(context.Background(), &model.User{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("Create() with different case error = %v", err)
	}
}

// =========================================================================
// EXISTS / FIND TESTS
// =========================================================================

func TestUserExists(t *testing.T) {
	u := newTestDB(t).Users()

	exists, err := u.Exists(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true before signup, want false")
	}

	createTestUser(t, u, "ghost")

	exists, err = u.Exists(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() = false after signup, want true")
	}
}

func TestUserFindByUsername(t *testing.T) {
	u := newTestDB(t).Users()
	created := createTestUser(t, u, "finder")

	found, err := u.FindByUsername(context.Background(), "finder")
	if err != nil {
		t.Fatalf("FindByUsername() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
	if found.Password != "secret" {
		t.Errorf("Password = %q, want %q", found.Password, "secret")
	}
	if found.Role != "reader" {
		t.Errorf("Role = %q, want %q", found.Role, "reader")
	}
}

func TestUserFindByUsername_NotFound(t *testing.T) {
	u := newTestDB(t).Users()

	_, err := u.FindByUsername(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindByUsername() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListUsers(t *testing.T) {
	u := newTestDB(t).Users()

	users, err := u.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 0 {
		t.Errorf("ListUsers() returned %d users, want 0", len(users))
	}

	createTestUser(t, u, "one")
	createTestUser(t, u, "two")

	users, err = u.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("ListUsers() returned %d users, want 2", len(users))
	}
	if users[0].Username != "one" || users[1].Username != "two" {
		t.Errorf("ListUsers() order = [%s %s], want [one two]", users[0].Username, users[1].Username)
	}
}
