package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/model"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// Hand-written, in-memory implementations of the repository interfaces.
// Each fake has an err field: when set, every method returns it, which is
// how the tests simulate "database down".
//
// The mutex makes the fakes safe for the concurrent tests, and every read
// returns a copy so a test can't mutate stored state by accident.

var errStoreDown = errors.New("connection refused")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]model.User // keyed by username
	nextID int
	err    error

	// existsLies makes Exists always report false, to exercise the path
	// where the storage-level uniqueness check is the one that fires.
	existsLies bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]model.User)}
}

func (f *fakeUserRepo) Exists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.existsLies {
		return false, nil
	}
	_, ok := f.users[username]
	return ok, nil
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[user.Username]; ok {
		return apperror.Conflict("user", user.Username)
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.users[user.Username] = *user
	return nil
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[username]
	if !ok {
		return nil, apperror.NotFound("user", username)
	}
	return &u, nil
}

func (f *fakeUserRepo) ListUsers(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakePostRepo struct {
	mu     sync.Mutex
	posts  map[string]*model.Post
	order  []string // insertion order
	nextID int
	err    error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*model.Post)}
}

func (f *fakePostRepo) Create(_ context.Context, post *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	post.ID = fmt.Sprintf("post-%d", f.nextID)
	post.Likes = 0
	post.Comments = []model.Comment{}
	stored := *post
	f.posts[post.ID] = &stored
	f.order = append(f.order, post.ID)
	return nil
}

func (f *fakePostRepo) List(_ context.Context) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Post{}
	for i := len(f.order) - 1; i >= 0; i-- {
		if p, ok := f.posts[f.order[i]]; ok {
			out = append(out, copyPost(p))
		}
	}
	return out, nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id string) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	c := copyPost(p)
	return &c, nil
}

func (f *fakePostRepo) UpdateFields(_ context.Context, id string, update model.PostUpdate) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Content != nil {
		p.Content = *update.Content
	}
	c := copyPost(p)
	return &c, nil
}

func (f *fakePostRepo) Like(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup(id)
	if err != nil {
		return 0, err
	}
	p.Likes++
	return p.Likes, nil
}

func (f *fakePostRepo) Unlike(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup(id)
	if err != nil {
		return 0, err
	}
	if p.Likes > 0 {
		p.Likes--
	}
	return p.Likes, nil
}

func (f *fakePostRepo) AddComment(_ context.Context, id string, comment model.Comment) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	p.Comments = append(p.Comments, comment)
	return append([]model.Comment(nil), p.Comments...), nil
}

func (f *fakePostRepo) Delete(_ context.Context, id string) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	delete(f.posts, id)
	c := copyPost(p)
	return &c, nil
}

// lookup must be called with mu held.
func (f *fakePostRepo) lookup(id string) (*model.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	return p, nil
}

func copyPost(p *model.Post) model.Post {
	c := *p
	c.Comments = append([]model.Comment{}, p.Comments...)
	return c
}

// =========================================================================
// FAKE MEDIA STORE
// =========================================================================

type savedFile struct {
	filename string
	mimeType string
	body     string
}

type fakeMedia struct {
	mu    sync.Mutex
	saved []savedFile
	err   error
}

func (f *fakeMedia) Save(_ context.Context, filename, mimeType string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, savedFile{filename, mimeType, string(body)})
	return "/uploads/fake/" + filename, nil
}
